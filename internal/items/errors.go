package items

import (
	"errors"
	"fmt"
)

// Creation failures
var (
	ErrEventCreationFailure = errors.New("failed to create event")
	ErrInvalidEventSource   = errors.New("invalid event source")
)

// Timing failures
var (
	ErrItemResponseTimeout   = errors.New("item did not respond in time")
	ErrEventOperationTimeout = errors.New("event operation timed out")
)

// Geometry failures
var (
	ErrMissingItemBounds    = errors.New("missing item bounds")
	ErrMissingMouseLocation = errors.New("missing mouse location")
)

// Policy failures
var (
	ErrItemNotMovable      = errors.New("item is not movable")
	ErrInvalidItem         = errors.New("invalid item")
	ErrNoReturnDestination = errors.New("item has no return destination")
	ErrNoSpace             = errors.New("not enough room to show item")
)

// ErrCouldNotComplete is the catch-all completion failure.
var ErrCouldNotComplete = errors.New("could not complete operation")

// OpError attaches the offending item to a failure.
type OpError struct {
	Op       string
	Tag      Tag
	WindowID uint32
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s (window %d): %v", e.Op, e.Tag, e.WindowID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Wrap returns err annotated with op and item. Errors already annotated for
// the same op and item are returned unchanged.
func Wrap(op string, item Item, err error) error {
	if err == nil {
		return nil
	}
	var existing *OpError
	if errors.As(err, &existing) && existing.Op == op && existing.Tag == item.Tag {
		return err
	}
	return &OpError{Op: op, Tag: item.Tag, WindowID: item.WindowID, Err: err}
}
