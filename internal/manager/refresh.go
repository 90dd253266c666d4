package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/section"
)

// Run keeps the layout cache current until ctx is done. It rebuilds on a
// timer, on every signal, and after successful moves. signals may be nil.
func (m *Manager) Run(ctx context.Context, signals <-chan platform.Signal) error {
	m.startRefresh(ctx, true)

	tick := time.NewTicker(m.opts.RefreshInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			m.startRefresh(ctx, false)
		case force := <-m.kick:
			m.startRefresh(ctx, force)
		case sig, ok := <-signals:
			if !ok {
				logging.Warn().Msg("signal stream closed, falling back to periodic refresh")
				signals = nil
				continue
			}
			logging.Debug().Str("signal", string(sig.Kind)).Msg("signal received")
			m.startRefresh(ctx, sig.Kind == platform.SignalEditorVisible)
		}
	}
}

func (m *Manager) startRefresh(ctx context.Context, force bool) {
	go func() {
		err := m.Refresh(ctx, force)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			logging.Debug().Msg("refresh superseded")
		default:
			logging.Error().Err(err).Msg("refresh failed")
		}
	}()
}

// Refresh rebuilds the layout cache. A call supersedes and cancels any
// rebuild still in flight. Unless force is set, the rebuild is skipped when
// the set of item windows has not changed since the last one. A rebuild
// requested right after a move waits for the move cooldown to pass.
func (m *Manager) Refresh(ctx context.Context, force bool) error {
	m.mu.Lock()
	if m.buildCancel != nil {
		m.buildCancel()
		force = force || m.buildForced
	}
	ctx, cancel := context.WithCancel(ctx)
	m.buildSeq++
	seq := m.buildSeq
	m.buildCancel = cancel
	m.buildForced = force
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		if m.buildSeq == seq {
			m.buildCancel = nil
			m.buildForced = false
		}
		m.mu.Unlock()
	}()

	if err := m.waitForCooldown(ctx); err != nil {
		return err
	}
	return m.rebuild(ctx, seq, force)
}

func (m *Manager) waitForCooldown(ctx context.Context) error {
	m.mu.Lock()
	last := m.lastMove
	m.mu.Unlock()
	wait := m.opts.MoveCooldown - time.Since(last)
	if last.IsZero() || wait <= 0 {
		return nil
	}

	logging.Debug().Dur("wait", wait).Msg("deferring refresh after move")
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		// Another move may have landed while waiting.
		return m.waitForCooldown(ctx)
	}
}

func (m *Manager) rebuild(ctx context.Context, seq uint64, force bool) error {
	display, list, err := m.fetch(ctx)
	if err != nil {
		return err
	}

	ids := make(map[uint32]bool, len(list))
	for _, it := range list {
		ids[it.WindowID] = true
	}

	m.mu.Lock()
	force = force || m.needsForce
	unchanged := sameWindowSet(ids, m.lastWindowIDs)
	m.mu.Unlock()
	current := m.publisher.Current()
	if unchanged && !force && current != nil && current.DisplayID == display {
		logging.Debug().Int("items", len(ids)).Msg("item set unchanged, skipping rebuild")
		return nil
	}
	m.identity.Prune(ids)

	controls := section.FindControls(list)
	if controls.Hidden == nil {
		return fmt.Errorf("%w: hidden control item not found", items.ErrMissingItemBounds)
	}
	if m.alwaysHiddenEnabled() && controls.OrderingBroken() {
		if err := m.repairControlOrder(ctx, controls); err != nil {
			return err
		}
		if display, list, err = m.fetch(ctx); err != nil {
			return err
		}
		controls = section.FindControls(list)
		if controls.Hidden == nil {
			return fmt.Errorf("%w: hidden control item not found", items.ErrMissingItemBounds)
		}
	}

	anchors := section.Anchors{Hidden: controls.Hidden.Bounds}
	if m.alwaysHiddenEnabled() && controls.AlwaysHidden != nil {
		b := controls.AlwaysHidden.Bounds
		anchors.AlwaysHidden = &b
	}

	res := section.Build(section.BuildInput{
		DisplayID:         display,
		Items:             list,
		Anchors:           anchors,
		ReturnDestination: m.ReturnDestination,
	})

	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.buildSeq != seq {
		m.mu.Unlock()
		return context.Canceled
	}
	m.lastWindowIDs = ids
	m.needsForce = res.NeedsForcedRebuild
	m.mu.Unlock()

	if m.publisher.Publish(res.Cache) {
		logging.Info().
			Str("display", display).
			Int("visible", len(res.Cache.Items(section.Visible))).
			Int("hidden", len(res.Cache.Items(section.Hidden))).
			Int("alwaysHidden", len(res.Cache.Items(section.AlwaysHidden))).
			Msg("layout cache updated")
	}
	return nil
}

// repairControlOrder puts the always-hidden control back left of the hidden
// control.
func (m *Manager) repairControlOrder(ctx context.Context, c section.Controls) error {
	logging.Warn().Msg("always-hidden control is right of hidden control, repairing")
	if err := m.Move(ctx, *c.AlwaysHidden, items.LeftOfItem(*c.Hidden)); err != nil {
		return fmt.Errorf("failed to repair control item order: %w", err)
	}
	return nil
}

func sameWindowSet(a, b map[uint32]bool) bool {
	if b == nil || len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}
