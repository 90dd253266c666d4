package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/section"
)

// TempShow moves a hidden item into the visible section, clicks it, and
// schedules its return to the slot it came from. The return happens on the
// rehide timer and waits while a menu the item opened is still in front.
func (m *Manager) TempShow(ctx context.Context, tag items.Tag) error {
	display, list, err := m.fetch(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(list, tag)
	if idx < 0 {
		return fmt.Errorf("%w: no item with tag %s", items.ErrInvalidItem, tag)
	}
	item := list[idx]
	if !item.IsMovable() {
		return items.Wrap("tempShow", item, items.ErrItemNotMovable)
	}

	if sc := m.shownFor(tag); sc != nil {
		logging.Info().Str("tag", tag.String()).Msg("item already shown, extending")
		m.mu.Lock()
		sc.item = item
		m.restartRehideLocked(m.rehideInterval())
		m.mu.Unlock()
		return m.clickAndTrack(ctx, sc)
	}

	// The slot the item returns to is named by its right-hand neighbour.
	if idx == 0 || idx == len(list)-1 {
		return items.Wrap("tempShow", item, items.ErrNoReturnDestination)
	}
	returnDest := items.LeftOfItem(list[idx+1])

	anchor, err := m.showAnchor(ctx, display, list, item)
	if err != nil {
		return items.Wrap("tempShow", item, err)
	}
	if anchor == nil {
		msg := fmt.Sprintf("There is not enough room in the menu bar to show %q. Close some apps or hide more items and try again.", item.Title)
		if err := m.backend.Alert(ctx, "Not enough room", msg); err != nil {
			logging.Warn().Err(err).Msg("failed to show alert")
		}
		return items.Wrap("tempShow", item, items.ErrNoSpace)
	}

	if err := m.Move(ctx, item, items.LeftOfItem(*anchor)); err != nil {
		return err
	}

	sc := &shownContext{tag: tag, item: item, returnDest: returnDest}
	m.mu.Lock()
	m.shown = append(m.shown, sc)
	m.restartRehideLocked(m.rehideInterval())
	hook := m.onShown
	m.mu.Unlock()
	logging.Info().
		Str("tag", tag.String()).
		Str("returnTo", returnDest.String()).
		Msg("temporarily showing item")
	if hook != nil {
		hook(tag, returnDest)
	}

	return m.clickAndTrack(ctx, sc)
}

// OnShown registers fn to run once TempShow has moved an item into view,
// before the item is clicked. fn receives the slot the item returns to.
func (m *Manager) OnShown(fn func(items.Tag, items.Destination)) {
	m.mu.Lock()
	m.onShown = fn
	m.mu.Unlock()
}

// showAnchor finds the leftmost visible item the target can sit beside
// without being pushed under the application menu. It returns nil when no
// visible item leaves enough room.
func (m *Manager) showAnchor(ctx context.Context, display string, list []items.Item, target items.Item) (*items.Item, error) {
	controls := section.FindControls(list)
	if controls.Hidden == nil {
		return nil, fmt.Errorf("%w: hidden control item not found", items.ErrMissingItemBounds)
	}
	menu, err := m.backend.ApplicationMenuFrame(ctx, display)
	if err != nil {
		return nil, fmt.Errorf("failed to get application menu frame: %w", err)
	}

	width := target.Bounds.Width
	var best *items.Item
	for i := len(list) - 1; i >= 0; i-- {
		it := list[i]
		if it.Bounds.MinX() < controls.Hidden.Bounds.MaxX() {
			break
		}
		if it.WindowID == target.WindowID {
			continue
		}
		if it.Bounds.MinX()-width < menu.MaxX() {
			break
		}
		best = &list[i]
	}
	return best, nil
}

// clickAndTrack clicks a shown item and records any window it opened.
func (m *Manager) clickAndTrack(ctx context.Context, sc *shownContext) error {
	before, err := m.backend.OnScreenWindows(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to list windows before click")
	}

	m.mu.Lock()
	item := sc.item
	m.mu.Unlock()
	if err := m.Click(ctx, item); err != nil {
		return err
	}

	if m.opts.SettleDelay > 0 {
		timer := time.NewTimer(m.opts.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	after, err := m.backend.OnScreenWindows(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to list windows after click")
		return nil
	}
	if iface := newWindow(before, after, item.EffectivePID()); iface != nil {
		m.mu.Lock()
		sc.iface = iface
		m.mu.Unlock()
		logging.Debug().Str("tag", item.Tag.String()).Uint32("interface", iface.WindowID).Msg("item opened a window")
	}
	return nil
}

func newWindow(before, after []platform.WindowSnapshot, pid int) *platform.WindowSnapshot {
	seen := make(map[uint32]bool, len(before))
	for _, w := range before {
		seen[w.WindowID] = true
	}
	for _, w := range after {
		if w.OwnerPID == pid && !seen[w.WindowID] {
			w := w
			return &w
		}
	}
	return nil
}

// RemoveTemporarilyShown forgets a shown item without moving it back.
func (m *Manager) RemoveTemporarilyShown(tag items.Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeShownLocked(tag)
	if len(m.shown) == 0 && m.rehideTimer != nil {
		m.rehideTimer.Stop()
		m.rehideTimer = nil
	}
}

// IsTemporarilyShown reports whether tag is waiting to be rehidden.
func (m *Manager) IsTemporarilyShown(tag items.Tag) bool {
	return m.shownFor(tag) != nil
}

func (m *Manager) shownFor(tag items.Tag) *shownContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sc := range m.shown {
		if sc.tag == tag {
			return sc
		}
	}
	return nil
}

func (m *Manager) removeShownLocked(tag items.Tag) {
	for i, sc := range m.shown {
		if sc.tag == tag {
			m.shown = append(m.shown[:i], m.shown[i+1:]...)
			return
		}
	}
}

// ReturnDestination reports where a temporarily shown item goes back to.
// It also feeds section.Build so shown items are cached at that slot.
func (m *Manager) ReturnDestination(tag items.Tag) (items.Destination, bool) {
	if sc := m.shownFor(tag); sc != nil {
		return sc.returnDest, true
	}
	return items.Destination{}, false
}

func (m *Manager) restartRehideLocked(d time.Duration) {
	if m.rehideTimer != nil {
		m.rehideTimer.Stop()
	}
	if m.baseCtx.Err() != nil {
		return
	}
	m.rehideTimer = time.AfterFunc(d, func() { m.rehide(m.baseCtx) })
}

// rehide returns every shown item to its slot, unless one of them has a
// menu open in front, in which case everything waits for a longer interval.
// Items that fail to return stay shown and are retried next interval.
func (m *Manager) rehide(ctx context.Context) {
	m.mu.Lock()
	pending := append([]*shownContext(nil), m.shown...)
	m.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	if sc := m.openInterface(ctx, pending); sc != nil {
		d := m.rehideInterval() * time.Duration(m.opts.InterfaceRehideFactor)
		if d < m.opts.InterfaceRehideMin {
			d = m.opts.InterfaceRehideMin
		}
		logging.Info().Str("tag", sc.tag.String()).Dur("retryIn", d).Msg("interface still open, deferring rehide")
		m.mu.Lock()
		m.restartRehideLocked(d)
		m.mu.Unlock()
		return
	}

	for _, sc := range pending {
		if err := m.returnToSlot(ctx, sc); err != nil {
			m.mu.Lock()
			attempts := sc.rehideAttempts
			m.mu.Unlock()
			logging.Warn().
				Err(err).
				Str("tag", sc.tag.String()).
				Int("attempts", attempts).
				Msg("failed to rehide item, will retry")
			continue
		}
		m.mu.Lock()
		m.removeShownLocked(sc.tag)
		m.mu.Unlock()
	}

	m.mu.Lock()
	if len(m.shown) > 0 {
		m.restartRehideLocked(m.rehideInterval())
	} else if m.rehideTimer != nil {
		m.rehideTimer.Stop()
		m.rehideTimer = nil
	}
	m.mu.Unlock()
	m.requestRefresh(true)
}

// openInterface returns a context whose interface window is frontmost.
// Interfaces that have closed are forgotten.
func (m *Manager) openInterface(ctx context.Context, pending []*shownContext) *shownContext {
	windows, err := m.backend.OnScreenWindows(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to list windows, assuming interfaces closed")
		return nil
	}
	present := make(map[uint32]bool, len(windows))
	for _, w := range windows {
		present[w.WindowID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sc := range pending {
		if sc.iface == nil {
			continue
		}
		if !present[sc.iface.WindowID] {
			sc.iface = nil
			continue
		}
		if len(windows) > 0 && windows[0].WindowID == sc.iface.WindowID {
			return sc
		}
	}
	return nil
}

// returnToSlot moves a shown item back, re-resolving both the item and its
// anchor by tag since either may have been recreated.
func (m *Manager) returnToSlot(ctx context.Context, sc *shownContext) error {
	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxRehideAttempts; attempt++ {
		_, list, err := m.fetch(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		idx := indexOf(list, sc.tag)
		if idx < 0 {
			logging.Info().Str("tag", sc.tag.String()).Msg("shown item is gone, dropping")
			return nil
		}
		item := list[idx]

		dest := sc.returnDest
		if a := indexOf(list, dest.Anchor.Tag); a >= 0 {
			dest.Anchor = list[a]
		} else if c := section.FindControls(list); c.Hidden != nil {
			logging.Warn().Str("tag", sc.tag.String()).Msg("return anchor is gone, hiding next to control item")
			dest = items.LeftOfItem(*c.Hidden)
		}

		lastErr = m.Move(ctx, item, dest)
		if lastErr == nil {
			logging.Info().Str("tag", sc.tag.String()).Str("destination", dest.String()).Msg("rehid item")
			return nil
		}

		m.mu.Lock()
		sc.rehideAttempts++
		m.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// ReturnItem moves tag back to dest the way a rehide does, falling back to
// the hidden section when the anchor is gone, and stops tracking it. It
// serves items shown by an earlier process whose rehide never ran.
func (m *Manager) ReturnItem(ctx context.Context, tag items.Tag, dest items.Destination) error {
	if err := m.returnToSlot(ctx, &shownContext{tag: tag, returnDest: dest}); err != nil {
		return err
	}
	m.RemoveTemporarilyShown(tag)
	m.requestRefresh(true)
	return nil
}

func indexOf(list []items.Item, tag items.Tag) int {
	for i, it := range list {
		if it.Tag == tag {
			return i
		}
	}
	return -1
}
