package items

import (
	"fmt"

	"github.com/yourusername/tray-cli/internal/types"
)

// Item is a snapshot of one menu bar item. The item is rendered and owned by
// another process; Bounds go stale as soon as any other item moves, so
// callers re-query before relying on them.
type Item struct {
	WindowID   uint32     `json:"windowId"`
	OwnerPID   int        `json:"ownerPid"`
	SourcePID  int        `json:"sourcePid,omitempty"` // process that created the content, 0 if unknown
	Bounds     types.Rect `json:"bounds"`
	Title      string     `json:"title,omitempty"`
	OwnerName  string     `json:"ownerName,omitempty"`
	IsOnScreen bool       `json:"isOnScreen"`

	// Tag is filled in by Identity when the item is fetched.
	Tag Tag `json:"tag"`
}

// EffectivePID returns the process that should receive events for the item.
func (i Item) EffectivePID() int {
	if i.SourcePID != 0 {
		return i.SourcePID
	}
	return i.OwnerPID
}

// IsControlItem reports whether the item is one of our own section boundaries.
func (i Item) IsControlItem() bool {
	return i.Tag.IsControlItem()
}

// IsMovable reports whether the OS lets the item be dragged at all.
func (i Item) IsMovable() bool {
	return IsMovable(i.Tag)
}

// CanBeHidden reports whether the item may be placed outside the visible section.
func (i Item) CanBeHidden() bool {
	return CanBeHidden(i.Tag)
}

func (i Item) String() string {
	return fmt.Sprintf("%s[%d]", i.Tag, i.WindowID)
}

// Destination is a position relative to an anchor item.
type Destination struct {
	Anchor Item
	Side   types.Side
}

// LeftOfItem places an item immediately left of anchor.
func LeftOfItem(anchor Item) Destination {
	return Destination{Anchor: anchor, Side: types.LeftOf}
}

// RightOfItem places an item immediately right of anchor.
func RightOfItem(anchor Item) Destination {
	return Destination{Anchor: anchor, Side: types.RightOf}
}

// SatisfiedBy reports whether an item at itemBounds already sits at the
// destination when the anchor is at anchorBounds.
func (d Destination) SatisfiedBy(itemBounds, anchorBounds types.Rect) bool {
	switch d.Side {
	case types.LeftOf:
		return itemBounds.MaxX() == anchorBounds.MinX()
	case types.RightOf:
		return itemBounds.MinX() == anchorBounds.MaxX()
	default:
		return false
	}
}

func (d Destination) String() string {
	return fmt.Sprintf("%s %s", d.Side, d.Anchor.Tag)
}
