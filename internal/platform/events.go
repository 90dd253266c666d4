package platform

import (
	"context"
	"fmt"

	"github.com/yourusername/tray-cli/internal/types"
)

// EventKind is the type of a synthetic input event.
type EventKind int

const (
	// KindNull carries no input; it is used as a relay marker.
	KindNull EventKind = iota
	KindLeftMouseDown
	KindLeftMouseUp
	KindLeftMouseDragged
)

func (k EventKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindLeftMouseDown:
		return "leftMouseDown"
	case KindLeftMouseUp:
		return "leftMouseUp"
	case KindLeftMouseDragged:
		return "leftMouseDragged"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for k := KindNull; k <= KindLeftMouseDragged; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Flags is a modifier key mask, using the Quartz bit layout.
type Flags uint64

const (
	FlagShift   Flags = 1 << 17
	FlagControl Flags = 1 << 18
	FlagOption  Flags = 1 << 19
	FlagCommand Flags = 1 << 20

	// ModifierMask covers the keys that count as "held".
	ModifierMask = FlagShift | FlagControl | FlagOption | FlagCommand
)

// Location is a point in the event pipeline where events are posted or tapped.
type Location int

const (
	// LocationHID is where hardware events enter the system.
	LocationHID Location = iota
	// LocationSession is the session-wide path shared by all processes.
	LocationSession
	// LocationPID targets a single process.
	LocationPID
)

func (l Location) String() string {
	switch l {
	case LocationHID:
		return "hid"
	case LocationSession:
		return "session"
	case LocationPID:
		return "pid"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// ParseLocation is the inverse of Location.String.
func ParseLocation(s string) (Location, bool) {
	for l := LocationHID; l <= LocationPID; l++ {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// Event is a synthetic input event. WindowID and UserData survive transit
// through the event pipeline and are used to recognise an event after the
// system has rewritten its other fields.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Point     types.Point `json:"point"`
	Flags     Flags       `json:"flags"`
	WindowID  uint32      `json:"windowId"`
	UserData  int64       `json:"userData"`
	TargetPID int         `json:"targetPid,omitempty"`
}

// Clone returns a copy of e.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// Matches reports whether other carries the same identifying fields.
func (e *Event) Matches(other *Event) bool {
	return other != nil && e.WindowID == other.WindowID && e.UserData == other.UserData
}

// TapOptions describes an interception point.
type TapOptions struct {
	Location Location
	PID      int // LocationPID only
	Kinds    []EventKind

	// Consume removes intercepted events from the pipeline. Taps that do not
	// consume are listen-only.
	Consume bool
}

// TapHandler receives intercepted events. It is called from a goroutine
// owned by the tap and must not block.
type TapHandler func(ev *Event)

// Tap is an installed interception point. Taps start disabled.
type Tap interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Close() error
}

// EventSystem creates, posts and intercepts synthetic events.
type EventSystem interface {
	// NewEvent builds an event. It fails with items.ErrInvalidEventSource
	// when no event source is available and items.ErrEventCreationFailure
	// when the event itself cannot be built.
	NewEvent(ctx context.Context, kind EventKind, point types.Point, flags Flags) (*Event, error)

	NewTap(ctx context.Context, opts TapOptions, handler TapHandler) (Tap, error)

	Post(ctx context.Context, ev *Event, loc Location) error
}
