// Package relay delivers synthetic input events to menu bar items owned by
// other processes and waits for proof that the owner handled them.
//
// A marker event is posted on the owner's process path, where a consuming
// tap intercepts it; the actual event is then posted on the session path and a
// listen-only tap there confirms it by its window ID and user data.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/types"
)

// DefaultTimeout is the per-cycle timeout when a Request has none.
const DefaultTimeout = 300 * time.Millisecond

// Request describes one relay exchange.
type Request struct {
	Item  items.Item
	Kind  platform.EventKind
	Point types.Point
	Flags platform.Flags

	// Repeat drives the exchange this many times on the same taps.
	Repeat int

	// Timeout bounds one cycle; the whole exchange gets Timeout * Repeat.
	Timeout time.Duration
}

// Relay runs exchanges against an event system. It keeps no state between
// calls apart from a user data counter.
type Relay struct {
	events   platform.EventSystem
	userData atomic.Int64
}

// New creates a Relay.
func New(events platform.EventSystem) *Relay {
	r := &Relay{events: events}
	r.userData.Store(time.Now().UnixNano() & 0xffffffff)
	return r
}

// Do performs the exchange described by req. It returns
// items.ErrEventOperationTimeout if a confirmation does not arrive in time
// and the context error if ctx is cancelled. Both taps are removed before
// Do returns.
func (r *Relay) Do(ctx context.Context, req Request) error {
	if req.Repeat < 1 {
		req.Repeat = 1
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	pid := req.Item.EffectivePID()
	if pid <= 0 {
		return fmt.Errorf("%w: no owning process", items.ErrInvalidItem)
	}

	x := newExchange()
	log := logging.Logger.With().
		Str("tag", req.Item.Tag.String()).
		Uint32("windowId", req.Item.WindowID).
		Str("kind", req.Kind.String()).
		Int("repeat", req.Repeat).
		Logger()

	pidTap, err := r.events.NewTap(ctx, platform.TapOptions{
		Location: platform.LocationPID,
		PID:      pid,
		Kinds:    []platform.EventKind{platform.KindNull},
		Consume:  true,
	}, x.onMarker)
	if err != nil {
		x.transition(stateFailed)
		return fmt.Errorf("%w: process tap: %v", items.ErrEventCreationFailure, err)
	}
	defer closeTap(pidTap)

	sessionTap, err := r.events.NewTap(ctx, platform.TapOptions{
		Location: platform.LocationSession,
	}, x.onSession)
	if err != nil {
		x.transition(stateFailed)
		return fmt.Errorf("%w: session tap: %v", items.ErrEventCreationFailure, err)
	}
	defer closeTap(sessionTap)

	for _, tap := range []platform.Tap{pidTap, sessionTap} {
		if err := tap.Enable(ctx); err != nil {
			x.transition(stateFailed)
			return fmt.Errorf("failed to enable tap: %w", err)
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, req.Timeout*time.Duration(req.Repeat))
	defer cancel()

	start := time.Now()
	for i := 0; i < req.Repeat; i++ {
		if err := r.cycle(opCtx, x, req, pid); err != nil {
			if ctx.Err() != nil {
				x.transition(stateCancelled)
				log.Debug().Str("state", x.current().String()).Msg("relay cancelled")
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				x.transition(stateTimedOut)
				log.Debug().Str("state", x.current().String()).Dur("timeout", req.Timeout).Msg("relay timed out")
				return items.ErrEventOperationTimeout
			}
			x.transition(stateFailed)
			return err
		}
	}

	log.Debug().Dur("elapsed", time.Since(start)).Msg("relay confirmed")
	return nil
}

// cycle posts one marker and waits for the actual event to come back.
func (r *Relay) cycle(ctx context.Context, x *exchange, req Request, pid int) error {
	base := r.userData.Add(2)

	marker, err := r.newEvent(ctx, platform.KindNull, req.Point, 0)
	if err != nil {
		return err
	}
	marker.WindowID = req.Item.WindowID
	marker.UserData = base
	marker.TargetPID = pid

	actual, err := r.newEvent(ctx, req.Kind, req.Point, req.Flags)
	if err != nil {
		return err
	}
	actual.WindowID = req.Item.WindowID
	actual.UserData = base + 1
	actual.TargetPID = pid

	if !x.arm(marker, actual) {
		return fmt.Errorf("relay in state %s cannot be re-armed", x.current())
	}
	if err := r.events.Post(ctx, marker, platform.LocationPID); err != nil {
		return fmt.Errorf("failed to post marker: %w", err)
	}

	for {
		select {
		case <-x.intercepted:
			if err := r.events.Post(ctx, actual, platform.LocationSession); err != nil {
				return fmt.Errorf("failed to forward event: %w", err)
			}
		case <-x.confirmed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Relay) newEvent(ctx context.Context, kind platform.EventKind, p types.Point, flags platform.Flags) (*platform.Event, error) {
	ev, err := r.events.NewEvent(ctx, kind, p, flags)
	if err == nil {
		return ev, nil
	}
	if errors.Is(err, items.ErrInvalidEventSource) || errors.Is(err, items.ErrEventCreationFailure) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", items.ErrEventCreationFailure, err)
}

// closeTap disables and removes a tap. It runs on every exit path, including
// after the caller's context has been cancelled.
func closeTap(tap platform.Tap) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tap.Disable(ctx); err != nil {
		logging.Debug().Err(err).Msg("failed to disable tap")
	}
	if err := tap.Close(); err != nil {
		logging.Debug().Err(err).Msg("failed to close tap")
	}
}

// Gate admits one exchange at a time across the process. Concurrent
// exchanges would see each other's events on the session tap.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the gate is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release frees the gate.
func (g *Gate) Release() {
	g.sem.Release(1)
}
