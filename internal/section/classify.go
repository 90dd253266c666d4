// Package section partitions menu bar items into the visible, hidden and
// always-hidden sections and holds the resulting layout cache.
package section

import (
	"fmt"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/types"
)

// Name identifies a section.
type Name int

const (
	Visible Name = iota
	Hidden
	AlwaysHidden
)

// Names lists the sections left to right on screen.
var Names = []Name{AlwaysHidden, Hidden, Visible}

func (n Name) String() string {
	switch n {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case AlwaysHidden:
		return "alwaysHidden"
	default:
		return fmt.Sprintf("Name(%d)", int(n))
	}
}

// Anchors holds the current bounds of the boundary control items.
// AlwaysHidden is nil when the third section is disabled.
type Anchors struct {
	Hidden       types.Rect
	AlwaysHidden *types.Rect
}

// Classify assigns an item to a section by comparing its bounds with the
// anchors. Sections are tested visible, hidden, always-hidden; the first
// match wins. ok is false when nothing matches.
func Classify(a Anchors, bounds types.Rect) (Name, bool) {
	if bounds.MinX() >= a.Hidden.MaxX() {
		return Visible, true
	}
	if bounds.MaxX() <= a.Hidden.MinX() &&
		(a.AlwaysHidden == nil || bounds.MinX() >= a.AlwaysHidden.MaxX()) {
		return Hidden, true
	}
	if a.AlwaysHidden != nil && bounds.MaxX() <= a.AlwaysHidden.MinX() {
		return AlwaysHidden, true
	}
	return 0, false
}

// Controls are the control items found in one query.
type Controls struct {
	Visible      *items.Item
	Hidden       *items.Item
	AlwaysHidden *items.Item
}

// FindControls picks the control items out of a tagged item list.
func FindControls(list []items.Item) Controls {
	var c Controls
	for i := range list {
		it := &list[i]
		switch it.Tag {
		case items.VisibleControl:
			c.Visible = it
		case items.HiddenControl:
			c.Hidden = it
		case items.AlwaysHiddenControl:
			c.AlwaysHidden = it
		}
	}
	return c
}

// OrderingBroken reports whether the always-hidden control has drifted to
// the right of the hidden control.
func (c Controls) OrderingBroken() bool {
	if c.Hidden == nil || c.AlwaysHidden == nil {
		return false
	}
	return c.AlwaysHidden.Bounds.MaxX() > c.Hidden.Bounds.MinX()
}
