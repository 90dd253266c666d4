// Package platform declares the OS services the relocation engine consumes.
// The production implementation lives in internal/server and talks to the
// native TrayServer helper; tests use internal/platform/fakebar.
package platform

import (
	"context"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/types"
)

// Scope narrows a menu bar query.
type Scope struct {
	Display         string // empty means the active menu bar display
	OnScreenOnly    bool
	ActiveSpaceOnly bool
}

// WindowSnapshot is one on-screen window at the moment of a query.
type WindowSnapshot struct {
	WindowID uint32     `json:"windowId"`
	OwnerPID int        `json:"ownerPid"`
	Layer    int        `json:"layer"`
	Bounds   types.Rect `json:"bounds"`
	Title    string     `json:"title,omitempty"`
	OnScreen bool       `json:"onScreen"`
}

// WindowServer answers geometry queries. Every call returns data current to
// the moment of the call; nothing is cached on this side.
type WindowServer interface {
	// MenuBarItems returns the items in scope ordered left to right.
	MenuBarItems(ctx context.Context, scope Scope) ([]items.Item, error)

	// ItemBounds returns the current bounds of a menu bar item window.
	// ok is false when the window no longer exists.
	ItemBounds(ctx context.Context, windowID uint32) (bounds types.Rect, ok bool, err error)

	// OnScreenWindows returns on-screen windows, frontmost first.
	OnScreenWindows(ctx context.Context) ([]WindowSnapshot, error)

	// ApplicationMenuFrame returns the frame of the frontmost app's menus.
	ApplicationMenuFrame(ctx context.Context, displayID string) (types.Rect, error)

	// ActiveMenuBarDisplay returns the display currently showing the menu bar.
	ActiveMenuBarDisplay(ctx context.Context) (string, error)
}

// Processes resolves process metadata.
type Processes interface {
	items.ProcessResolver
}

// Input reads and controls the shared pointer and keyboard state.
type Input interface {
	Modifiers(ctx context.Context) (Flags, error)
	PressedButtons(ctx context.Context) (uint32, error)
	PointerLocation(ctx context.Context) (types.Point, error)
	HideCursor(ctx context.Context) error
	ShowCursor(ctx context.Context) error
	WarpCursor(ctx context.Context, p types.Point) error

	// SuppressLocalEvents stops hardware input from reaching the session
	// while enabled.
	SuppressLocalEvents(ctx context.Context, enabled bool) error
}

// Alerter shows a blocking alert to the user.
type Alerter interface {
	Alert(ctx context.Context, title, message string) error
}

// Settings supplies user preferences. Implementations must be safe for
// concurrent use.
type Settings interface {
	RehideInterval() time.Duration
	AlwaysHiddenEnabled() bool

	// MenuBarDisplay returns a pinned display ID, or "" to follow the
	// active menu bar.
	MenuBarDisplay() string
}

// SignalKind names a push notification from the window server.
type SignalKind string

const (
	SignalItemsChanged     SignalKind = "menubar.itemsChanged"
	SignalProcessesChanged SignalKind = "process.listChanged"
	SignalEditorVisible    SignalKind = "editor.visible"
)

// Signal is a change notification that may warrant a cache refresh.
type Signal struct {
	Kind SignalKind
	At   time.Time
}

// Backend bundles every service the engine needs.
type Backend interface {
	WindowServer
	Processes
	Input
	EventSystem
	Alerter
}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	Rehide       time.Duration
	AlwaysHidden bool
	Display      string
}

func (s StaticSettings) RehideInterval() time.Duration { return s.Rehide }
func (s StaticSettings) AlwaysHiddenEnabled() bool      { return s.AlwaysHidden }
func (s StaticSettings) MenuBarDisplay() string         { return s.Display }
