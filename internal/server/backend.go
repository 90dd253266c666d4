// Package server adapts the TrayServer RPC surface to the platform
// interfaces the relocation engine consumes.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/tray-cli/internal/client"
	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/models"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/types"
)

// Caller is the part of client.Client the backend uses.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error)
	Events() (<-chan *models.Event, func(), error)
}

// Backend implements platform.Backend over a TrayServer connection.
type Backend struct {
	rpc Caller

	mu        sync.Mutex
	taps      map[string]*remoteTap
	sourceOK  bool
	signals   chan platform.Signal
	stopWatch func()
}

var _ platform.Backend = (*Backend)(nil)

// New returns a backend using rpc. Call Start to receive tap events and
// signals.
func New(rpc Caller) *Backend {
	return &Backend{
		rpc:     rpc,
		taps:    make(map[string]*remoteTap),
		signals: make(chan platform.Signal, 16),
	}
}

// Start subscribes to server events and dispatches them until ctx is done
// or the connection ends, at which point the Signals channel is closed.
func (b *Backend) Start(ctx context.Context) error {
	events, cancel, err := b.rpc.Events()
	if err != nil {
		return fmt.Errorf("failed to subscribe to server events: %w", err)
	}
	b.mu.Lock()
	b.stopWatch = cancel
	b.mu.Unlock()

	go func() {
		defer close(b.signals)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					logging.Warn().Msg("server event stream ended")
					return
				}
				b.dispatch(ev)
			}
		}
	}()
	return nil
}

// Signals streams change notifications once Start has been called.
func (b *Backend) Signals() <-chan platform.Signal {
	return b.signals
}

func (b *Backend) dispatch(ev *models.Event) {
	switch ev.EventType {
	case models.EventTapIntercepted:
		id := toString(ev.Data["tapId"])
		b.mu.Lock()
		t := b.taps[id]
		b.mu.Unlock()
		if t == nil {
			logging.Debug().Str("tapId", id).Msg("event for unknown tap")
			return
		}
		pev, err := parseEvent(ev.Data["event"])
		if err != nil {
			logging.Warn().Err(err).Str("tapId", id).Msg("failed to parse intercepted event")
			return
		}
		t.deliver(pev)

	case models.EventItemsChanged, models.EventProcessesChanged, models.EventEditorVisible:
		sig := platform.Signal{Kind: platform.SignalKind(ev.EventType), At: ev.Timestamp}
		if sig.At.IsZero() {
			sig.At = time.Now()
		}
		select {
		case b.signals <- sig:
		default:
			// Refreshes coalesce; a full queue already guarantees one.
			logging.Debug().Str("signal", ev.EventType).Msg("signal queue full, dropping")
		}

	default:
		logging.Debug().Str("eventType", ev.EventType).Msg("ignoring server event")
	}
}

// MenuBarItems implements platform.WindowServer.
func (b *Backend) MenuBarItems(ctx context.Context, scope platform.Scope) ([]items.Item, error) {
	raw, err := b.rpc.Call(ctx, models.MethodMenuBarItems, map[string]interface{}{
		"display":         scope.Display,
		"onScreenOnly":    scope.OnScreenOnly,
		"activeSpaceOnly": scope.ActiveSpaceOnly,
	})
	if err != nil {
		return nil, err
	}
	list, err := parseItems(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse menu bar items: %w", err)
	}
	return list, nil
}

// ItemBounds implements platform.WindowServer.
func (b *Backend) ItemBounds(ctx context.Context, windowID uint32) (types.Rect, bool, error) {
	raw, err := b.rpc.Call(ctx, models.MethodWindowBounds, map[string]interface{}{"windowId": windowID})
	if err != nil {
		if serverCode(err) == models.CodeWindowNotFound {
			return types.Rect{}, false, nil
		}
		return types.Rect{}, false, err
	}
	rect, ok := parseFrame(raw["bounds"])
	if !ok {
		return types.Rect{}, false, fmt.Errorf("%w: window %d", items.ErrMissingItemBounds, windowID)
	}
	return rect, true, nil
}

// OnScreenWindows implements platform.WindowServer.
func (b *Backend) OnScreenWindows(ctx context.Context) ([]platform.WindowSnapshot, error) {
	raw, err := b.rpc.Call(ctx, models.MethodWindowList, map[string]interface{}{"onScreenOnly": true})
	if err != nil {
		return nil, err
	}
	return parseWindows(raw), nil
}

// ApplicationMenuFrame implements platform.WindowServer.
func (b *Backend) ApplicationMenuFrame(ctx context.Context, displayID string) (types.Rect, error) {
	raw, err := b.rpc.Call(ctx, models.MethodApplicationMenuFrame, map[string]interface{}{"display": displayID})
	if err != nil {
		return types.Rect{}, err
	}
	rect, ok := parseFrame(raw["frame"])
	if !ok {
		return types.Rect{}, fmt.Errorf("application menu frame missing for display %s", displayID)
	}
	return rect, nil
}

// ActiveMenuBarDisplay implements platform.WindowServer.
func (b *Backend) ActiveMenuBarDisplay(ctx context.Context) (string, error) {
	raw, err := b.rpc.Call(ctx, models.MethodActiveMenuBarDisplay, nil)
	if err != nil {
		return "", err
	}
	id := toString(raw["display"])
	if id == "" {
		return "", fmt.Errorf("server returned no active menu bar display")
	}
	return id, nil
}

// Lookup implements platform.Processes.
func (b *Backend) Lookup(ctx context.Context, pid int) (items.ProcessInfo, error) {
	raw, err := b.rpc.Call(ctx, models.MethodProcessInfo, map[string]interface{}{"pid": pid})
	if err != nil {
		return items.ProcessInfo{}, err
	}
	return items.ProcessInfo{
		PID:      pid,
		BundleID: toString(raw["bundleId"]),
		Name:     toString(raw["name"]),
		Running:  toBool(raw["running"]),
	}, nil
}

func (b *Backend) inputState(ctx context.Context) (map[string]interface{}, error) {
	return b.rpc.Call(ctx, models.MethodInputState, nil)
}

// Modifiers implements platform.Input.
func (b *Backend) Modifiers(ctx context.Context) (platform.Flags, error) {
	raw, err := b.inputState(ctx)
	if err != nil {
		return 0, err
	}
	return platform.Flags(interfaceToInt(raw["modifiers"])), nil
}

// PressedButtons implements platform.Input.
func (b *Backend) PressedButtons(ctx context.Context) (uint32, error) {
	raw, err := b.inputState(ctx)
	if err != nil {
		return 0, err
	}
	return uint32(interfaceToInt(raw["buttons"])), nil
}

// PointerLocation implements platform.Input.
func (b *Backend) PointerLocation(ctx context.Context) (types.Point, error) {
	raw, err := b.inputState(ctx)
	if err != nil {
		return types.Point{}, err
	}
	p, ok := parsePoint(raw["location"])
	if !ok {
		return types.Point{}, items.ErrMissingMouseLocation
	}
	return p, nil
}

// HideCursor implements platform.Input.
func (b *Backend) HideCursor(ctx context.Context) error {
	_, err := b.rpc.Call(ctx, models.MethodCursorHide, nil)
	return err
}

// ShowCursor implements platform.Input.
func (b *Backend) ShowCursor(ctx context.Context) error {
	_, err := b.rpc.Call(ctx, models.MethodCursorShow, nil)
	return err
}

// WarpCursor implements platform.Input.
func (b *Backend) WarpCursor(ctx context.Context, p types.Point) error {
	_, err := b.rpc.Call(ctx, models.MethodCursorWarp, pointParams(p))
	return err
}

// SuppressLocalEvents implements platform.Input.
func (b *Backend) SuppressLocalEvents(ctx context.Context, enabled bool) error {
	_, err := b.rpc.Call(ctx, models.MethodInputSuppress, map[string]interface{}{"enabled": enabled})
	return err
}

// NewEvent implements platform.EventSystem. Events are built locally; the
// server is only asked once whether it has an event source.
func (b *Backend) NewEvent(ctx context.Context, kind platform.EventKind, point types.Point, flags platform.Flags) (*platform.Event, error) {
	if err := b.checkSource(ctx); err != nil {
		return nil, err
	}
	if kind < platform.KindNull || kind > platform.KindLeftMouseDragged {
		return nil, fmt.Errorf("%w: unsupported kind %s", items.ErrEventCreationFailure, kind)
	}
	return &platform.Event{Kind: kind, Point: point, Flags: flags}, nil
}

func (b *Backend) checkSource(ctx context.Context) error {
	b.mu.Lock()
	ok := b.sourceOK
	b.mu.Unlock()
	if ok {
		return nil
	}

	raw, err := b.rpc.Call(ctx, models.MethodEventSource, nil)
	if err != nil {
		if serverCode(err) == models.CodeNoEventSource {
			return fmt.Errorf("%w: %v", items.ErrInvalidEventSource, err)
		}
		return err
	}
	if !toBool(raw["available"]) {
		return items.ErrInvalidEventSource
	}
	b.mu.Lock()
	b.sourceOK = true
	b.mu.Unlock()
	return nil
}

// Post implements platform.EventSystem.
func (b *Backend) Post(ctx context.Context, ev *platform.Event, loc platform.Location) error {
	_, err := b.rpc.Call(ctx, models.MethodEventPost, map[string]interface{}{
		"event":    eventParams(ev),
		"location": loc.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to post %s to %s: %w", ev.Kind, loc, err)
	}
	return nil
}

// NewTap implements platform.EventSystem.
func (b *Backend) NewTap(ctx context.Context, opts platform.TapOptions, handler platform.TapHandler) (platform.Tap, error) {
	kinds := make([]string, len(opts.Kinds))
	for i, k := range opts.Kinds {
		kinds[i] = k.String()
	}
	raw, err := b.rpc.Call(ctx, models.MethodTapCreate, map[string]interface{}{
		"location": opts.Location.String(),
		"pid":      opts.PID,
		"types":    kinds,
		"consume":  opts.Consume,
	})
	if err != nil {
		if serverCode(err) == models.CodeEventCreation {
			return nil, fmt.Errorf("%w: %v", items.ErrEventCreationFailure, err)
		}
		return nil, err
	}
	id := toString(raw["tapId"])
	if id == "" {
		return nil, fmt.Errorf("%w: server returned no tap id", items.ErrEventCreationFailure)
	}

	t := &remoteTap{id: id, backend: b, handler: handler}
	b.mu.Lock()
	b.taps[id] = t
	b.mu.Unlock()
	return t, nil
}

// Alert implements platform.Alerter.
func (b *Backend) Alert(ctx context.Context, title, message string) error {
	_, err := b.rpc.Call(ctx, models.MethodAlertShow, map[string]interface{}{
		"title":   title,
		"message": message,
	})
	return err
}

// Close releases every tap still registered and stops event dispatch.
func (b *Backend) Close() {
	b.mu.Lock()
	taps := make([]*remoteTap, 0, len(b.taps))
	for _, t := range b.taps {
		taps = append(taps, t)
	}
	stop := b.stopWatch
	b.mu.Unlock()

	for _, t := range taps {
		if err := t.Close(); err != nil {
			logging.Warn().Err(err).Str("tapId", t.id).Msg("failed to destroy tap")
		}
	}
	if stop != nil {
		stop()
	}
}

func serverCode(err error) int {
	var se *client.ServerError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// remoteTap is a server-side event tap. Intercepted events arrive through
// the backend's event stream and are only delivered while enabled.
type remoteTap struct {
	id      string
	backend *Backend
	handler platform.TapHandler

	mu      sync.Mutex
	enabled bool
	closed  bool
}

func (t *remoteTap) Enable(ctx context.Context) error {
	// Accept deliveries before the server starts intercepting.
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()
	if _, err := t.backend.rpc.Call(ctx, models.MethodTapEnable, map[string]interface{}{"tapId": t.id}); err != nil {
		t.mu.Lock()
		t.enabled = false
		t.mu.Unlock()
		return err
	}
	return nil
}

func (t *remoteTap) Disable(ctx context.Context) error {
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
	_, err := t.backend.rpc.Call(ctx, models.MethodTapDisable, map[string]interface{}{"tapId": t.id})
	return err
}

func (t *remoteTap) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.enabled = false
	t.mu.Unlock()

	t.backend.mu.Lock()
	delete(t.backend.taps, t.id)
	t.backend.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := t.backend.rpc.Call(ctx, models.MethodTapDestroy, map[string]interface{}{"tapId": t.id})
	return err
}

func (t *remoteTap) deliver(ev *platform.Event) {
	t.mu.Lock()
	enabled := t.enabled
	t.mu.Unlock()
	if enabled {
		go t.handler(ev)
	}
}
