package state

import (
	"sort"
	"sync"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/section"
	"github.com/yourusername/tray-cli/internal/types"
)

const (
	// StateVersion is the current state file format version
	StateVersion = 2
)

// RuntimeState is the root state structure persisted to disk
type RuntimeState struct {
	Version     int                        `json:"version"`
	Shown       map[string]*ShownItem      `json:"shown"`   // tag string -> shown item
	Layouts     map[string]*LayoutSnapshot `json:"layouts"` // display ID -> last layout
	LastUpdated time.Time                  `json:"lastUpdated"`

	mu sync.RWMutex `json:"-"` // For thread-safe access (not serialized)
}

// ShownItem is an item revealed by "tray items reveal" that has not been
// confirmed back in its section yet.
type ShownItem struct {
	Tag     items.Tag `json:"tag"`
	Anchor  items.Tag `json:"anchor"` // item the shown one returns beside
	Side    string    `json:"side"`   // "leftOf" or "rightOf"
	ShownAt time.Time `json:"shownAt"`
}

// Destination rebuilds the return destination. Only the anchor's tag is
// known; callers resolve it against live items before moving.
func (s *ShownItem) Destination() (items.Destination, bool) {
	side, ok := types.ParseSide(s.Side)
	if !ok {
		return items.Destination{}, false
	}
	return items.Destination{Anchor: items.Item{Tag: s.Anchor}, Side: side}, true
}

// LayoutSnapshot records the tags in each section of one display
type LayoutSnapshot struct {
	DisplayID string              `json:"displayId"`
	Sections  map[string][]string `json:"sections"` // section name -> tags, left to right
	SavedAt   time.Time           `json:"savedAt"`
}

// NewRuntimeState creates a new empty runtime state
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		Version:     StateVersion,
		Shown:       make(map[string]*ShownItem),
		Layouts:     make(map[string]*LayoutSnapshot),
		LastUpdated: time.Now(),
	}
}

// RecordShown remembers that tag was revealed and where it returns to
func (rs *RuntimeState) RecordShown(tag items.Tag, dest items.Destination) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Shown[tag.String()] = &ShownItem{
		Tag:     tag,
		Anchor:  dest.Anchor.Tag,
		Side:    dest.Side.String(),
		ShownAt: time.Now(),
	}
}

// ForgetShown drops tag from the shown list
func (rs *RuntimeState) ForgetShown(tag items.Tag) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.Shown, tag.String())
}

// ShownItems returns the shown items, oldest first
func (rs *RuntimeState) ShownItems() []ShownItem {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]ShownItem, 0, len(rs.Shown))
	for _, s := range rs.Shown {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShownAt.Equal(out[j].ShownAt) {
			return out[i].Tag.String() < out[j].Tag.String()
		}
		return out[i].ShownAt.Before(out[j].ShownAt)
	})
	return out
}

// RecordLayout stores the sections of a layout cache
func (rs *RuntimeState) RecordLayout(c *section.Cache) {
	if c == nil {
		return
	}
	snap := &LayoutSnapshot{
		DisplayID: c.DisplayID,
		Sections:  make(map[string][]string, len(section.Names)),
		SavedAt:   time.Now(),
	}
	for _, n := range section.Names {
		tags := make([]string, 0, len(c.Items(n)))
		for _, it := range c.Items(n) {
			tags = append(tags, it.Tag.String())
		}
		snap.Sections[n.String()] = tags
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Layouts[c.DisplayID] = snap
}

// Layout returns the last layout recorded for a display
func (rs *RuntimeState) Layout(displayID string) (*LayoutSnapshot, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	snap, ok := rs.Layouts[displayID]
	return snap, ok
}

// Summary returns counts for display
func (rs *RuntimeState) Summary() map[string]interface{} {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	displays := make([]string, 0, len(rs.Layouts))
	for id := range rs.Layouts {
		displays = append(displays, id)
	}
	sort.Strings(displays)

	return map[string]interface{}{
		"version":     rs.Version,
		"shown":       len(rs.Shown),
		"displays":    displays,
		"lastUpdated": rs.LastUpdated,
	}
}

// MarkUpdated updates the LastUpdated timestamp
func (rs *RuntimeState) MarkUpdated() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastUpdated = time.Now()
}
