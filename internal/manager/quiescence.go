package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/types"
)

// waitForQuiescence blocks until no modifier keys are held, the pointer has
// stopped moving, and no mouse buttons are pressed. A synthetic drag that
// starts mid-gesture corrupts both gestures.
//
// The three conditions are checked one after another, so a key pressed
// while waiting for the pointer goes unnoticed.
// TODO: replace with a single wait that re-arms earlier conditions when a
// later one sees them invalidated.
func (m *Manager) waitForQuiescence(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.QuiescenceTimeout)
	defer cancel()

	err := m.poll(ctx, func() (bool, error) {
		flags, err := m.backend.Modifiers(ctx)
		if err != nil {
			return false, err
		}
		return flags&platform.ModifierMask == 0, nil
	})
	if err != nil {
		return quiescenceError("modifier keys", err)
	}

	var last *types.Point
	err = m.poll(ctx, func() (bool, error) {
		p, err := m.backend.PointerLocation(ctx)
		if err != nil {
			return false, fmt.Errorf("%w: %v", items.ErrMissingMouseLocation, err)
		}
		still := last != nil && *last == p
		last = &p
		return still, nil
	})
	if err != nil {
		return quiescenceError("pointer", err)
	}

	err = m.poll(ctx, func() (bool, error) {
		buttons, err := m.backend.PressedButtons(ctx)
		if err != nil {
			return false, err
		}
		return buttons == 0, nil
	})
	if err != nil {
		return quiescenceError("mouse buttons", err)
	}
	return nil
}

func quiescenceError(what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: waiting for %s to settle", items.ErrEventOperationTimeout, what)
	}
	return fmt.Errorf("waiting for %s to settle: %w", what, err)
}

// poll calls cond every PollInterval until it reports true, fails, or ctx
// is done.
func (m *Manager) poll(ctx context.Context, cond func() (bool, error)) error {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitForBoundsChange polls an item until its bounds differ from old.
func (m *Manager) waitForBoundsChange(ctx context.Context, item items.Item, old types.Rect, timeout time.Duration) (types.Rect, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var current types.Rect
	err := m.poll(ctx, func() (bool, error) {
		r, ok, err := m.backend.ItemBounds(ctx, item.WindowID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, items.ErrMissingItemBounds
		}
		current = r
		return r != old, nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		logging.Debug().Str("tag", item.Tag.String()).Dur("timeout", timeout).Msg("item bounds did not change")
		return old, items.ErrItemResponseTimeout
	}
	return current, err
}

// withPointerSuspended hides the cursor and blocks local input while fn
// runs, then puts the pointer back where the user left it.
func (m *Manager) withPointerSuspended(ctx context.Context, fn func() error) error {
	origin, err := m.backend.PointerLocation(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", items.ErrMissingMouseLocation, err)
	}
	if err := m.backend.SuppressLocalEvents(ctx, true); err != nil {
		return fmt.Errorf("failed to suppress local events: %w", err)
	}
	if err := m.backend.HideCursor(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to hide cursor")
	}

	defer func() {
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := m.backend.WarpCursor(restoreCtx, origin); err != nil {
			logging.Warn().Err(err).Msg("failed to restore pointer location")
		}
		if err := m.backend.ShowCursor(restoreCtx); err != nil {
			logging.Warn().Err(err).Msg("failed to show cursor")
		}
		if err := m.backend.SuppressLocalEvents(restoreCtx, false); err != nil {
			logging.Error().Err(err).Msg("failed to re-enable local events")
		}
	}()

	return fn()
}
