package fakebar

import (
	"context"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/types"
)

type tap struct {
	bar     *Bar
	id      int
	opts    platform.TapOptions
	handler platform.TapHandler
	enabled bool
	closed  bool
}

func (t *tap) wants(ev *platform.Event, loc platform.Location) bool {
	if !t.enabled || t.opts.Location != loc {
		return false
	}
	if loc == platform.LocationPID && t.opts.PID != ev.TargetPID {
		return false
	}
	if len(t.opts.Kinds) == 0 {
		return true
	}
	for _, k := range t.opts.Kinds {
		if k == ev.Kind {
			return true
		}
	}
	return false
}

func (t *tap) Enable(ctx context.Context) error {
	b := t.bar
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.closed {
		return errNoSuchTap
	}
	if !t.enabled {
		t.enabled = true
		b.enabledTaps++
		if b.enabledTaps > b.maxEnabled {
			b.maxEnabled = b.enabledTaps
		}
	}
	return nil
}

func (t *tap) Disable(ctx context.Context) error {
	b := t.bar
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.closed {
		return errNoSuchTap
	}
	t.disableLocked()
	return nil
}

func (t *tap) disableLocked() {
	if t.enabled {
		t.enabled = false
		t.bar.enabledTaps--
	}
}

func (t *tap) Close() error {
	b := t.bar
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.closed {
		return nil
	}
	t.disableLocked()
	t.closed = true
	delete(b.taps, t.id)
	return nil
}

// NewTap implements platform.EventSystem.
func (b *Bar) NewTap(ctx context.Context, opts platform.TapOptions, handler platform.TapHandler) (platform.Tap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTap++
	t := &tap{bar: b, id: b.nextTap, opts: opts, handler: handler}
	b.taps[t.id] = t
	return t, nil
}

// NewEvent implements platform.EventSystem.
func (b *Bar) NewEvent(ctx context.Context, kind platform.EventKind, point types.Point, flags platform.Flags) (*platform.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.noSource {
		return nil, items.ErrInvalidEventSource
	}
	return &platform.Event{Kind: kind, Point: point, Flags: flags}, nil
}

// Post implements platform.EventSystem. Tap handlers run on their own
// goroutines after the event has been applied.
func (b *Bar) Post(ctx context.Context, ev *platform.Event, loc platform.Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	hook := b.onPost
	b.mu.Unlock()
	if hook != nil {
		hook(ev.Clone(), loc)
	}

	b.mu.Lock()
	var deliver []*tap
	for _, t := range b.taps {
		if t.wants(ev, loc) {
			deliver = append(deliver, t)
		}
	}

	switch loc {
	case platform.LocationPID:
		// An owner that has stopped responding never sees its events, so
		// no tap on its path fires either.
		if e, ok := b.byID[ev.WindowID]; ok && e.unresponsive {
			deliver = nil
		}
	case platform.LocationSession:
		consumed := false
		for _, t := range deliver {
			consumed = consumed || t.opts.Consume
		}
		if !consumed {
			b.applyLocked(ev)
		}
	case platform.LocationHID:
		b.hidPosts = append(b.hidPosts, ev.Clone())
		b.applyLocked(ev)
	}
	b.mu.Unlock()

	for _, t := range deliver {
		go t.handler(ev.Clone())
	}
	return nil
}

// applyLocked lets the owning process react to an event that reached it.
func (b *Bar) applyLocked(ev *platform.Event) {
	e, ok := b.byID[ev.WindowID]
	if !ok {
		return
	}
	command := ev.Flags&platform.FlagCommand != 0

	switch ev.Kind {
	case platform.KindLeftMouseDown:
		if !command {
			e.pressed = true
			return
		}
		if e.frozen || e.dragBounds != nil {
			return
		}
		r := types.Rect{
			X:      ev.Point.X - e.width/2,
			Y:      ev.Point.Y - ItemHeight/2,
			Width:  e.width,
			Height: ItemHeight,
		}
		e.dragBounds = &r

	case platform.KindLeftMouseUp:
		if e.dragBounds != nil {
			b.dropLocked(e, ev.Point.X)
			return
		}
		if command || !e.pressed {
			return
		}
		e.pressed = false
		e.clicks++
		if e.opensInterface {
			r, _ := b.boundsLocked(e.item.WindowID)
			b.openWindowLocked(e.item.EffectivePID(), types.Rect{X: r.X, Y: ItemHeight, Width: 200, Height: 300})
		}
	}
}

// dropLocked reinserts a dragged item before the first other item whose
// centre lies right of x, measured with the dragged item still in its slot.
func (b *Bar) dropLocked(dragged *entry, x float64) {
	slots := b.slotsLocked()
	rest := make([]*entry, 0, len(b.order))
	for _, e := range b.order {
		if e != dragged {
			rest = append(rest, e)
		}
	}

	at := len(rest)
	for i, e := range rest {
		if slots[e].MidX() > x {
			at = i
			break
		}
	}

	reordered := make([]*entry, 0, len(b.order))
	reordered = append(reordered, rest[:at]...)
	reordered = append(reordered, dragged)
	reordered = append(reordered, rest[at:]...)
	b.order = reordered
	dragged.dragBounds = nil
}

func (b *Bar) slotsLocked() map[*entry]types.Rect {
	slots := make(map[*entry]types.Rect, len(b.order))
	x := b.rightEdge
	for i := len(b.order) - 1; i >= 0; i-- {
		e := b.order[i]
		x -= e.width
		slots[e] = types.Rect{X: x, Y: 0, Width: e.width, Height: ItemHeight}
	}
	return slots
}

// Modifiers implements platform.Input.
func (b *Bar) Modifiers(ctx context.Context) (platform.Flags, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modifiers, nil
}

// PressedButtons implements platform.Input.
func (b *Bar) PressedButtons(ctx context.Context) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buttons, nil
}

// PointerLocation implements platform.Input.
func (b *Bar) PointerLocation(ctx context.Context) (types.Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pointer, nil
}

// HideCursor implements platform.Input.
func (b *Bar) HideCursor(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorHidden = true
	return nil
}

// ShowCursor implements platform.Input.
func (b *Bar) ShowCursor(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorHidden = false
	return nil
}

// WarpCursor implements platform.Input.
func (b *Bar) WarpCursor(ctx context.Context, p types.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pointer = p
	b.warps++
	return nil
}

// SuppressLocalEvents implements platform.Input.
func (b *Bar) SuppressLocalEvents(ctx context.Context, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.suppressed = enabled
	return nil
}
