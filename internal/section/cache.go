package section

import (
	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/types"
)

// Cache maps each section to its items ordered left to right, for one
// display. A published Cache is never mutated; Clone it first.
type Cache struct {
	DisplayID string                `json:"displayId"`
	Sections  map[Name][]items.Item `json:"sections"`
}

// NewCache returns an empty cache for displayID.
func NewCache(displayID string) *Cache {
	return &Cache{
		DisplayID: displayID,
		Sections: map[Name][]items.Item{
			Visible:      {},
			Hidden:       {},
			AlwaysHidden: {},
		},
	}
}

// Items returns the items of one section.
func (c *Cache) Items(n Name) []items.Item {
	if c == nil {
		return nil
	}
	return c.Sections[n]
}

// AllItems returns every cached item left to right across sections.
func (c *Cache) AllItems() []items.Item {
	if c == nil {
		return nil
	}
	var out []items.Item
	for _, n := range Names {
		out = append(out, c.Sections[n]...)
	}
	return out
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, list := range c.Sections {
		total += len(list)
	}
	return total
}

// Clone returns a deep copy.
func (c *Cache) Clone() *Cache {
	out := NewCache(c.DisplayID)
	for n, list := range c.Sections {
		out.Sections[n] = append([]items.Item{}, list...)
	}
	return out
}

// Find returns the cached item with tag and its section.
func (c *Cache) Find(tag items.Tag) (items.Item, Name, bool) {
	if c == nil {
		return items.Item{}, 0, false
	}
	for n, list := range c.Sections {
		for _, it := range list {
			if it.Tag == tag {
				return it, n, true
			}
		}
	}
	return items.Item{}, 0, false
}

// SectionOf returns the section holding tag.
func (c *Cache) SectionOf(tag items.Tag) (Name, bool) {
	_, n, ok := c.Find(tag)
	return n, ok
}

// Equal reports whether both caches hold the same items in the same places.
func (c *Cache) Equal(o *Cache) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.DisplayID != o.DisplayID {
		return false
	}
	for _, n := range Names {
		a, b := c.Sections[n], o.Sections[n]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].Tag != b[i].Tag || a[i].WindowID != b[i].WindowID || a[i].Bounds != b[i].Bounds {
				return false
			}
		}
	}
	return true
}

// Insert places item at dest. Destinations anchored on a boundary control
// item go to the edge of the adjoining section; any other anchor must be
// cached already. It reports false when the anchor cannot be found.
func (c *Cache) Insert(item items.Item, dest items.Destination) bool {
	switch dest.Anchor.Tag {
	case items.HiddenControl:
		if dest.Side == types.LeftOf {
			c.Sections[Hidden] = append(c.Sections[Hidden], item)
		} else {
			c.Sections[Visible] = insertAt(c.Sections[Visible], 0, item)
		}
		return true
	case items.AlwaysHiddenControl:
		if dest.Side == types.LeftOf {
			c.Sections[AlwaysHidden] = append(c.Sections[AlwaysHidden], item)
		} else {
			c.Sections[Hidden] = insertAt(c.Sections[Hidden], 0, item)
		}
		return true
	}

	for n, list := range c.Sections {
		for i, it := range list {
			if it.Tag != dest.Anchor.Tag {
				continue
			}
			if dest.Side == types.RightOf {
				i++
			}
			c.Sections[n] = insertAt(list, i, item)
			return true
		}
	}
	return false
}

func insertAt(list []items.Item, i int, item items.Item) []items.Item {
	if i < 0 {
		i = 0
	}
	if i > len(list) {
		i = len(list)
	}
	out := make([]items.Item, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, item)
	return append(out, list[i:]...)
}
