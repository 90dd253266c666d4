package manager

import (
	"sync"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
)

const (
	timeoutShrink = 0.8
	timeoutGrow   = 1.5
)

// timeoutTable remembers a per-attempt timeout for each tag. Some items are
// consistently slow to answer, so each tag starts from its last estimate.
type timeoutTable struct {
	mu       sync.Mutex
	byTag    map[items.Tag]time.Duration
	initial  time.Duration
	min, max time.Duration
}

func newTimeoutTable(initial, min, max time.Duration) *timeoutTable {
	return &timeoutTable{
		byTag:   make(map[items.Tag]time.Duration),
		initial: clampDuration(initial, min, max),
		min:     min,
		max:     max,
	}
}

func (t *timeoutTable) get(tag items.Tag) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.byTag[tag]; ok {
		return d
	}
	return t.initial
}

func (t *timeoutTable) succeeded(tag items.Tag) time.Duration {
	return t.scale(tag, timeoutShrink)
}

func (t *timeoutTable) failed(tag items.Tag) time.Duration {
	return t.scale(tag, timeoutGrow)
}

func (t *timeoutTable) scale(tag items.Tag, factor float64) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.byTag[tag]
	if !ok {
		d = t.initial
	}
	d = clampDuration(time.Duration(float64(d)*factor), t.min, t.max)
	t.byTag[tag] = d
	return d
}

func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
