package section

import (
	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
)

// BuildInput is everything a rebuild needs.
type BuildInput struct {
	DisplayID string
	Items     []items.Item // tagged, left to right
	Anchors   Anchors

	// ReturnDestination reports where a temporarily shown item belongs.
	// Such items are cached at that slot instead of where they are now.
	ReturnDestination func(tag items.Tag) (items.Destination, bool)
}

// Result is the outcome of a rebuild.
type Result struct {
	Cache *Cache

	// NeedsForcedRebuild is set when an item could not be classified, so
	// the next rebuild must not be skipped.
	NeedsForcedRebuild bool
	Dropped            []items.Item
}

type deferred struct {
	item items.Item
	dest items.Destination
}

// Build classifies every cacheable item and returns a new cache.
func Build(in BuildInput) Result {
	res := Result{Cache: NewCache(in.DisplayID)}
	var later []deferred

	for _, it := range in.Items {
		if !cacheable(it) {
			continue
		}
		if in.ReturnDestination != nil {
			if dest, ok := in.ReturnDestination(it.Tag); ok {
				later = append(later, deferred{item: it, dest: dest})
				continue
			}
		}

		name, ok := Classify(in.Anchors, it.Bounds)
		if !ok {
			logging.Warn().
				Str("tag", it.Tag.String()).
				Uint32("windowId", it.WindowID).
				Str("bounds", it.Bounds.String()).
				Msg("could not classify item, dropping")
			res.Dropped = append(res.Dropped, it)
			res.NeedsForcedRebuild = true
			continue
		}
		res.Cache.Sections[name] = append(res.Cache.Sections[name], it)
	}

	for _, d := range later {
		if res.Cache.Insert(d.item, d.dest) {
			continue
		}
		// The anchor left the bar; keep the item hidden rather than lose it.
		logging.Warn().
			Str("tag", d.item.Tag.String()).
			Str("destination", d.dest.String()).
			Msg("return anchor not cached, placing at end of hidden section")
		res.Cache.Sections[Hidden] = append(res.Cache.Sections[Hidden], d.item)
	}

	return res
}

func cacheable(it items.Item) bool {
	if it.Tag.IsSectionBoundary() {
		return false
	}
	return it.CanBeHidden()
}
