package relay

import (
	"fmt"
	"sync"

	"github.com/yourusername/tray-cli/internal/platform"
)

type state int

const (
	stateIdle state = iota
	stateArmed
	stateForwarded
	stateConfirmed
	stateTimedOut
	stateCancelled
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateArmed:
		return "armed"
	case stateForwarded:
		return "forwarded"
	case stateConfirmed:
		return "confirmed"
	case stateTimedOut:
		return "timedOut"
	case stateCancelled:
		return "cancelled"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s state) terminal() bool {
	return s == stateTimedOut || s == stateCancelled || s == stateFailed
}

// next lists the legal transitions. confirmed -> armed starts another cycle
// on the same taps.
var next = map[state][]state{
	stateIdle:      {stateArmed, stateCancelled, stateFailed},
	stateArmed:     {stateForwarded, stateTimedOut, stateCancelled, stateFailed},
	stateForwarded: {stateConfirmed, stateTimedOut, stateCancelled, stateFailed},
	stateConfirmed: {stateArmed, stateTimedOut, stateCancelled, stateFailed},
}

// exchange tracks one relay call. Tap handlers only record what they saw
// and signal the owning goroutine; they never post events themselves.
type exchange struct {
	mu     sync.Mutex
	state  state
	marker *platform.Event
	actual *platform.Event
	cycle  int

	intercepted chan struct{}
	confirmed   chan struct{}
}

func newExchange() *exchange {
	return &exchange{
		state:       stateIdle,
		intercepted: make(chan struct{}, 1),
		confirmed:   make(chan struct{}, 1),
	}
}

// transition moves to s if that is legal from the current state.
func (x *exchange) transition(s state) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.transitionLocked(s)
}

func (x *exchange) transitionLocked(s state) bool {
	for _, allowed := range next[x.state] {
		if allowed == s {
			x.state = s
			return true
		}
	}
	return false
}

func (x *exchange) current() state {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// arm starts a cycle for a marker and actual event pair.
func (x *exchange) arm(marker, actual *platform.Event) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.transitionLocked(stateArmed) {
		return false
	}
	x.marker = marker
	x.actual = actual
	x.cycle++
	return true
}

// onMarker handles the consuming tap on the target process path.
func (x *exchange) onMarker(ev *platform.Event) {
	x.mu.Lock()
	ok := x.state == stateArmed && x.marker.Matches(ev) && x.transitionLocked(stateForwarded)
	x.mu.Unlock()
	if ok {
		signal(x.intercepted)
	}
}

// onSession handles the listen-only tap on the session path. The event
// may have been rewritten in transit, so only the identifying fields count.
func (x *exchange) onSession(ev *platform.Event) {
	x.mu.Lock()
	ok := x.state == stateForwarded && x.actual.Matches(ev) && x.transitionLocked(stateConfirmed)
	x.mu.Unlock()
	if ok {
		signal(x.confirmed)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
