package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/relay"
	"github.com/yourusername/tray-cli/internal/types"
)

// offscreenStart is where drags begin for items that are on screen. The
// owner only needs the mouse-down to land on its item window, which the
// relay guarantees; starting away from the bar keeps the item from
// flickering under the pointer.
var offscreenStart = types.Point{X: 20000, Y: 20000}

// Move drags item to dest. It retries with an adaptive per-tag timeout and
// returns the last attempt's error, annotated with the item.
func (m *Manager) Move(ctx context.Context, item items.Item, dest items.Destination) error {
	if dest.Anchor.WindowID == 0 {
		return items.Wrap("move", item, fmt.Errorf("%w: destination has no anchor", items.ErrInvalidItem))
	}

	var lastErr error
	for attempt := 1; attempt <= m.opts.MoveAttempts; attempt++ {
		timeout := m.timeouts.get(item.Tag)
		moved, err := m.moveOnce(ctx, item, dest, timeout)
		if err == nil {
			if moved {
				m.timeouts.succeeded(item.Tag)
				m.requestRefresh(true)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return items.Wrap("move", item, ctx.Err())
		}
		if !retryable(err) {
			break
		}

		next := m.timeouts.failed(item.Tag)
		logState("move", item, "retrying")
		logging.Warn().
			Err(err).
			Str("tag", item.Tag.String()).
			Str("destination", dest.String()).
			Int("attempt", attempt).
			Dur("nextTimeout", next).
			Msg("move attempt failed")
	}

	logState("move", item, "failed")
	logging.Error().
		Err(lastErr).
		Str("tag", item.Tag.String()).
		Str("destination", dest.String()).
		Msg("move failed")
	return items.Wrap("move", item, lastErr)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, items.ErrItemNotMovable),
		errors.Is(err, items.ErrInvalidItem),
		errors.Is(err, items.ErrInvalidEventSource):
		return false
	}
	return true
}

// moveOnce runs a single attempt. moved is false when the item already sat
// at the destination.
func (m *Manager) moveOnce(ctx context.Context, item items.Item, dest items.Destination, timeout time.Duration) (moved bool, err error) {
	if err := m.gate.Acquire(ctx); err != nil {
		return false, err
	}
	defer m.gate.Release()

	logState("move", item, "checkingPosition")
	before, err := m.currentBounds(ctx, item)
	if err != nil {
		return false, err
	}
	anchor, err := m.currentBounds(ctx, dest.Anchor)
	if err != nil {
		return false, err
	}
	if dest.SatisfiedBy(before, anchor) {
		logState("move", item, "succeeded")
		return false, nil
	}

	logState("move", item, "waitingForQuiescence")
	if !item.IsMovable() {
		return false, items.ErrItemNotMovable
	}
	if err := m.waitForQuiescence(ctx); err != nil {
		return false, err
	}

	logState("move", item, "posting")
	start, end := movePoints(before, anchor, dest.Side)
	defer m.markMoved()

	err = m.withPointerSuspended(ctx, func() error {
		err := m.relay.Do(ctx, relay.Request{
			Item:    item,
			Kind:    platform.KindLeftMouseDown,
			Point:   start,
			Flags:   platform.FlagCommand,
			Timeout: timeout,
		})
		if err != nil {
			return err
		}
		dragging, err := m.waitForBoundsChange(ctx, item, before, timeout)
		if err != nil {
			return err
		}
		err = m.relay.Do(ctx, relay.Request{
			Item:    item,
			Kind:    platform.KindLeftMouseUp,
			Point:   end,
			Flags:   platform.FlagCommand,
			Repeat:  2,
			Timeout: timeout,
		})
		if err != nil {
			return err
		}
		_, err = m.waitForBoundsChange(ctx, item, dragging, timeout)
		return err
	})
	if err != nil {
		m.postFallback(ctx, item, end, platform.FlagCommand)
		return false, err
	}

	logState("move", item, "confirming")
	after, err := m.currentBounds(ctx, item)
	if err != nil {
		return false, err
	}
	if after == before {
		return false, items.ErrCouldNotComplete
	}

	logState("move", item, "succeeded")
	logging.Info().
		Str("tag", item.Tag.String()).
		Str("destination", dest.String()).
		Str("bounds", after.String()).
		Msg("moved item")
	return true, nil
}

// movePoints returns where a drag starts and ends. Items already off screen
// are picked up at the anchor's edge instead of the far-away start point.
func movePoints(item, anchor types.Rect, side types.Side) (start, end types.Point) {
	edge := anchor.MinX()
	if side == types.RightOf {
		edge = anchor.MaxX()
	}
	end = types.Point{X: edge, Y: anchor.MidY()}

	start = offscreenStart
	if item.MaxX() <= 0 {
		start = end
	}
	return start, end
}

func (m *Manager) currentBounds(ctx context.Context, item items.Item) (types.Rect, error) {
	r, ok, err := m.backend.ItemBounds(ctx, item.WindowID)
	if err != nil {
		return types.Rect{}, fmt.Errorf("failed to get bounds of %s: %w", item, err)
	}
	if !ok {
		return types.Rect{}, fmt.Errorf("%w: %s", items.ErrMissingItemBounds, item)
	}
	return r, nil
}

// postFallback posts one mouse-up on the hardware path so an owner left
// mid-drag by a failed exchange does not stay stuck. Failures are logged.
func (m *Manager) postFallback(ctx context.Context, item items.Item, at types.Point, flags platform.Flags) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	ev, err := m.backend.NewEvent(ctx, platform.KindLeftMouseUp, at, flags)
	if err != nil {
		logging.Warn().Err(err).Str("tag", item.Tag.String()).Msg("failed to create fallback event")
		return
	}
	ev.WindowID = item.WindowID
	ev.TargetPID = item.EffectivePID()
	if err := m.backend.Post(ctx, ev, platform.LocationHID); err != nil {
		logging.Warn().Err(err).Str("tag", item.Tag.String()).Msg("failed to post fallback event")
		return
	}
	logging.Debug().Str("tag", item.Tag.String()).Msg("posted fallback mouse up")
}
