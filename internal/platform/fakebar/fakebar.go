// Package fakebar is an in-memory menu bar that behaves like the real one
// closely enough to drive the relocation engine end to end. Items are packed
// right to left against a fixed right edge. A command-drag delivered through
// the event pipeline moves an item, a plain down/up pair clicks it.
package fakebar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/types"
)

const (
	DefaultRightEdge = 1000.0
	ItemHeight       = 24.0
	DisplayID        = "fake-display"
)

// ItemSpec describes an item to add.
type ItemSpec struct {
	PID       int
	SourcePID int
	Title     string
	OwnerName string
	Width     float64
}

type entry struct {
	item  items.Item
	width float64

	// dragBounds is set while the item follows a command-drag.
	dragBounds *types.Rect
	pressed    bool

	unresponsive   bool
	frozen         bool
	opensInterface bool
	clicks         int
}

// Bar is a simulated menu bar. All methods are safe for concurrent use.
type Bar struct {
	mu sync.Mutex

	rightEdge float64
	menuFrame types.Rect
	order     []*entry // left to right
	byID      map[uint32]*entry
	procs     map[int]items.ProcessInfo
	windows   []platform.WindowSnapshot // frontmost first
	nextID    uint32

	taps         map[int]*tap
	nextTap      int
	enabledTaps  int
	maxEnabled   int
	noSource     bool
	hidPosts     []*platform.Event
	alerts       []string
	pointer      types.Point
	modifiers    platform.Flags
	buttons      uint32
	cursorHidden bool
	suppressed   bool
	warps        int

	onPost  func(ev *platform.Event, loc platform.Location)
	signals chan platform.Signal
}

var _ platform.Backend = (*Bar)(nil)

// New returns an empty bar whose rightmost item ends at rightEdge.
func New(rightEdge float64) *Bar {
	if rightEdge <= 0 {
		rightEdge = DefaultRightEdge
	}
	return &Bar{
		rightEdge: rightEdge,
		menuFrame: types.Rect{X: 0, Y: 0, Width: 200, Height: ItemHeight},
		byID:      make(map[uint32]*entry),
		procs:     make(map[int]items.ProcessInfo),
		taps:      make(map[int]*tap),
		nextID:    100,
		pointer:   types.Point{X: 500, Y: 500},
		signals:   make(chan platform.Signal, 16),
	}
}

// AddProcess registers process metadata for Lookup.
func (b *Bar) AddProcess(pid int, bundleID, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.procs[pid] = items.ProcessInfo{PID: pid, BundleID: bundleID, Name: name, Running: true}
}

// AddItem appends an item at the right end of the bar and returns its window ID.
func (b *Bar) AddItem(spec ItemSpec) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if spec.Width <= 0 {
		spec.Width = 20
	}
	b.nextID++
	e := &entry{
		item: items.Item{
			WindowID:  b.nextID,
			OwnerPID:  spec.PID,
			SourcePID: spec.SourcePID,
			Title:     spec.Title,
			OwnerName: spec.OwnerName,
		},
		width: spec.Width,
	}
	b.order = append(b.order, e)
	b.byID[e.item.WindowID] = e
	return e.item.WindowID
}

// RemoveItem deletes an item, as when its owner quits.
func (b *Bar) RemoveItem(windowID uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.order {
		if e.item.WindowID == windowID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	delete(b.byID, windowID)
}

// SetMenuFrame sets the frontmost application's menu frame.
func (b *Bar) SetMenuFrame(r types.Rect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.menuFrame = r
}

// SetUnresponsive makes the item's owner ignore relayed events.
func (b *Bar) SetUnresponsive(windowID uint32, v bool) {
	b.withEntry(windowID, func(e *entry) { e.unresponsive = v })
}

// SetFrozen makes the item acknowledge events without ever moving.
func (b *Bar) SetFrozen(windowID uint32, v bool) {
	b.withEntry(windowID, func(e *entry) { e.frozen = v })
}

// SetOpensInterface makes a click on the item open a window owned by its process.
func (b *Bar) SetOpensInterface(windowID uint32, v bool) {
	b.withEntry(windowID, func(e *entry) { e.opensInterface = v })
}

// SetNoEventSource makes NewEvent fail as if the event source were invalid.
func (b *Bar) SetNoEventSource(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.noSource = v
}

// SetModifiers sets the held modifier keys.
func (b *Bar) SetModifiers(f platform.Flags) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modifiers = f
}

// SetButtons sets the pressed mouse button mask.
func (b *Bar) SetButtons(mask uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buttons = mask
}

// SetPointer moves the hardware pointer.
func (b *Bar) SetPointer(p types.Point) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pointer = p
}

// OnPost installs a hook called before every posted event is processed.
func (b *Bar) OnPost(fn func(ev *platform.Event, loc platform.Location)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPost = fn
}

// OpenWindow puts a window on screen in front of all others.
func (b *Bar) OpenWindow(ownerPID int, bounds types.Rect) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openWindowLocked(ownerPID, bounds)
}

func (b *Bar) openWindowLocked(ownerPID int, bounds types.Rect) uint32 {
	b.nextID++
	w := platform.WindowSnapshot{
		WindowID: b.nextID,
		OwnerPID: ownerPID,
		Bounds:   bounds,
		OnScreen: true,
	}
	b.windows = append([]platform.WindowSnapshot{w}, b.windows...)
	return w.WindowID
}

// CloseWindow removes a window.
func (b *Bar) CloseWindow(windowID uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.windows {
		if w.WindowID == windowID {
			b.windows = append(b.windows[:i], b.windows[i+1:]...)
			return
		}
	}
}

// Emit queues a push signal.
func (b *Bar) Emit(kind platform.SignalKind) {
	b.signals <- platform.Signal{Kind: kind}
}

// Signals returns the push signal stream.
func (b *Bar) Signals() <-chan platform.Signal {
	return b.signals
}

// Titles returns the item titles left to right.
func (b *Bar) Titles() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.order))
	for _, e := range b.order {
		out = append(out, e.item.Title)
	}
	return out
}

// Bounds returns the current bounds of an item.
func (b *Bar) Bounds(windowID uint32) types.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, _ := b.boundsLocked(windowID)
	return r
}

// Clicks returns how many clicks the item has received.
func (b *Bar) Clicks(windowID uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.byID[windowID]; ok {
		return e.clicks
	}
	return 0
}

// HIDPosts returns the events posted at the hardware location.
func (b *Bar) HIDPosts() []*platform.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*platform.Event(nil), b.hidPosts...)
}

// Alerts returns the alert messages shown so far.
func (b *Bar) Alerts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.alerts...)
}

// MaxEnabledTaps is the largest number of taps that were enabled at once.
func (b *Bar) MaxEnabledTaps() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxEnabled
}

// OpenTaps is the number of taps not yet closed.
func (b *Bar) OpenTaps() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.taps)
}

// InputState reports the cursor and suppression state.
func (b *Bar) InputState() (pointer types.Point, cursorHidden, suppressed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pointer, b.cursorHidden, b.suppressed
}

func (b *Bar) withEntry(windowID uint32, fn func(e *entry)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.byID[windowID]; ok {
		fn(e)
	}
}

// boundsLocked lays out every item against the right edge. An item being
// dragged keeps its slot so the others do not shift under the pointer.
func (b *Bar) boundsLocked(windowID uint32) (types.Rect, bool) {
	x := b.rightEdge
	for i := len(b.order) - 1; i >= 0; i-- {
		e := b.order[i]
		x -= e.width
		if e.item.WindowID != windowID {
			continue
		}
		if e.dragBounds != nil {
			return *e.dragBounds, true
		}
		return types.Rect{X: x, Y: 0, Width: e.width, Height: ItemHeight}, true
	}
	return types.Rect{}, false
}

// MenuBarItems implements platform.WindowServer.
func (b *Bar) MenuBarItems(ctx context.Context, scope platform.Scope) ([]items.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]items.Item, 0, len(b.order))
	for _, e := range b.order {
		it := e.item
		it.Bounds, _ = b.boundsLocked(it.WindowID)
		it.IsOnScreen = it.Bounds.MaxX() > 0 && it.Bounds.MinX() < b.rightEdge+1
		if scope.OnScreenOnly && !it.IsOnScreen {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// ItemBounds implements platform.WindowServer.
func (b *Bar) ItemBounds(ctx context.Context, windowID uint32) (types.Rect, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.Rect{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.boundsLocked(windowID)
	return r, ok, nil
}

// OnScreenWindows implements platform.WindowServer.
func (b *Bar) OnScreenWindows(ctx context.Context) ([]platform.WindowSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.WindowSnapshot(nil), b.windows...), nil
}

// ApplicationMenuFrame implements platform.WindowServer.
func (b *Bar) ApplicationMenuFrame(ctx context.Context, displayID string) (types.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.menuFrame, nil
}

// ActiveMenuBarDisplay implements platform.WindowServer.
func (b *Bar) ActiveMenuBarDisplay(ctx context.Context) (string, error) {
	return DisplayID, nil
}

// Lookup implements platform.Processes.
func (b *Bar) Lookup(ctx context.Context, pid int) (items.ProcessInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.procs[pid]
	if !ok {
		return items.ProcessInfo{}, fmt.Errorf("no process with pid %d", pid)
	}
	return info, nil
}

// Alert implements platform.Alerter.
func (b *Bar) Alert(ctx context.Context, title, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, title+": "+message)
	return nil
}

var errNoSuchTap = errors.New("no such tap")
