package items

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ProcessInfo describes a running process.
type ProcessInfo struct {
	PID      int    `json:"pid"`
	BundleID string `json:"bundleId,omitempty"`
	Name     string `json:"name,omitempty"`
	Running  bool   `json:"running"`
}

// ProcessResolver looks up process metadata by pid.
type ProcessResolver interface {
	Lookup(ctx context.Context, pid int) (ProcessInfo, error)
}

// pruneAfter is how many consecutive prunes a window must be missing from
// before its synthetic namespace is dropped.
const pruneAfter = 5

// Identity derives tags for items. Items with no attributable process get a
// random namespace that is stable for the lifetime of the Identity, keyed by
// window ID; such items will get a different tag after a relaunch.
type Identity struct {
	procs ProcessResolver

	mu        sync.RWMutex
	synthetic map[uint32]string
	missing   map[uint32]int
	newID     func() string
}

// NewIdentity creates an Identity backed by procs. procs may be nil.
func NewIdentity(procs ProcessResolver) *Identity {
	return &Identity{
		procs:     procs,
		synthetic: make(map[uint32]string),
		missing:   make(map[uint32]int),
		newID:     func() string { return uuid.New().String() },
	}
}

// Tag returns the tag for item. It never fails.
func (id *Identity) Tag(ctx context.Context, item Item) Tag {
	if strings.HasPrefix(item.Title, ControlItemPrefix) {
		return Tag{Namespace: SelfNamespace, Title: item.Title}
	}
	return Tag{Namespace: id.namespace(ctx, item), Title: item.Title}
}

// Assign fills in the Tag of every item and returns the slice.
func (id *Identity) Assign(ctx context.Context, list []Item) []Item {
	for i := range list {
		list[i].Tag = id.Tag(ctx, list[i])
	}
	return list
}

// Prune drops synthetic namespaces for windows that have been absent from
// live for pruneAfter consecutive calls. A window seen again starts over.
func (id *Identity) Prune(live map[uint32]bool) {
	id.mu.Lock()
	defer id.mu.Unlock()

	for windowID := range id.synthetic {
		if live[windowID] {
			delete(id.missing, windowID)
			continue
		}
		id.missing[windowID]++
		if id.missing[windowID] >= pruneAfter {
			delete(id.synthetic, windowID)
			delete(id.missing, windowID)
		}
	}
}

func (id *Identity) namespace(ctx context.Context, item Item) string {
	if pid := item.EffectivePID(); pid > 0 && id.procs != nil {
		info, err := id.procs.Lookup(ctx, pid)
		if err == nil {
			if info.BundleID != "" {
				return info.BundleID
			}
			if info.Name != "" {
				return info.Name
			}
		}
		if pid == item.OwnerPID && item.OwnerName != "" {
			return item.OwnerName
		}
	}
	return id.syntheticNamespace(item.WindowID)
}

func (id *Identity) syntheticNamespace(windowID uint32) string {
	id.mu.RLock()
	ns, ok := id.synthetic[windowID]
	id.mu.RUnlock()
	if ok {
		return ns
	}

	id.mu.Lock()
	defer id.mu.Unlock()
	if ns, ok := id.synthetic[windowID]; ok {
		return ns
	}
	ns = id.newID()
	id.synthetic[windowID] = ns
	return ns
}
