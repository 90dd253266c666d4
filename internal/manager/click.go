package manager

import (
	"context"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/relay"
)

// Click presses and releases the mouse on the centre of item. Unlike Move
// it makes a single attempt.
func (m *Manager) Click(ctx context.Context, item items.Item) error {
	if err := m.gate.Acquire(ctx); err != nil {
		return items.Wrap("click", item, err)
	}
	defer m.gate.Release()

	bounds, err := m.currentBounds(ctx, item)
	if err != nil {
		return items.Wrap("click", item, err)
	}
	point := bounds.Center()

	err = m.withPointerSuspended(ctx, func() error {
		err := m.relay.Do(ctx, relay.Request{
			Item:    item,
			Kind:    platform.KindLeftMouseDown,
			Point:   point,
			Timeout: m.opts.ClickTimeout,
		})
		if err != nil {
			return err
		}
		return m.relay.Do(ctx, relay.Request{
			Item:    item,
			Kind:    platform.KindLeftMouseUp,
			Point:   point,
			Repeat:  2,
			Timeout: m.opts.ClickTimeout,
		})
	})
	if err != nil {
		m.postFallback(ctx, item, point, 0)
		logging.Error().Err(err).Str("tag", item.Tag.String()).Msg("click failed")
		return items.Wrap("click", item, err)
	}

	logging.Info().Str("tag", item.Tag.String()).Msg("clicked item")
	return nil
}
