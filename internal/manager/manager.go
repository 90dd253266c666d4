// Package manager owns the layout cache and every operation that changes
// the menu bar: moving and clicking items, temporarily revealing hidden
// items, and rebuilding the cache when the bar changes.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/relay"
	"github.com/yourusername/tray-cli/internal/section"
)

// Options tunes timing and retry behaviour.
type Options struct {
	MoveAttempts   int
	InitialTimeout time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	ClickTimeout   time.Duration

	// QuiescenceTimeout bounds the wait for the user to let go of the
	// keyboard and mouse before a drag.
	QuiescenceTimeout time.Duration
	PollInterval      time.Duration

	SettleDelay       time.Duration
	MaxRehideAttempts int

	// InterfaceRehideFactor stretches the rehide interval while a revealed
	// item's menu is still open, but never below InterfaceRehideMin.
	InterfaceRehideFactor int
	InterfaceRehideMin    time.Duration

	RefreshInterval time.Duration
	MoveCooldown    time.Duration
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		MoveAttempts:          5,
		InitialTimeout:        300 * time.Millisecond,
		MinTimeout:            100 * time.Millisecond,
		MaxTimeout:            2 * time.Second,
		ClickTimeout:          300 * time.Millisecond,
		QuiescenceTimeout:     2 * time.Second,
		PollInterval:          10 * time.Millisecond,
		SettleDelay:           300 * time.Millisecond,
		MaxRehideAttempts:     3,
		InterfaceRehideFactor: 3,
		InterfaceRehideMin:    3 * time.Second,
		RefreshInterval:       3 * time.Second,
		MoveCooldown:          time.Second,
	}
}

// shownContext is the bookkeeping for one temporarily revealed item.
type shownContext struct {
	tag            items.Tag
	item           items.Item
	returnDest     items.Destination
	iface          *platform.WindowSnapshot
	rehideAttempts int
}

// Manager is the single owner of the layout cache and the temporarily shown
// items. All exported methods are safe for concurrent use.
type Manager struct {
	backend  platform.Backend
	settings platform.Settings
	opts     Options

	identity  *items.Identity
	relay     *relay.Relay
	gate      *relay.Gate
	timeouts  *timeoutTable
	publisher *section.Publisher

	// kick asks Run for a refresh; the value is the force flag.
	kick chan bool

	baseCtx context.Context
	stop    context.CancelFunc

	mu            sync.Mutex
	shown         []*shownContext
	onShown       func(items.Tag, items.Destination)
	rehideTimer   *time.Timer
	lastMove      time.Time
	needsForce    bool
	lastWindowIDs map[uint32]bool
	buildSeq      uint64
	buildCancel   context.CancelFunc
	buildForced   bool
}

// New creates a Manager. Call Close to stop its timers. Unset options take
// their defaults, except that zero SettleDelay, InterfaceRehideMin and
// MoveCooldown are kept as zero.
func New(backend platform.Backend, settings platform.Settings, opts Options) *Manager {
	def := DefaultOptions()
	if opts.MoveAttempts <= 0 {
		opts.MoveAttempts = def.MoveAttempts
	}
	if opts.InitialTimeout <= 0 {
		opts.InitialTimeout = def.InitialTimeout
	}
	if opts.MinTimeout <= 0 {
		opts.MinTimeout = def.MinTimeout
	}
	if opts.MaxTimeout <= 0 {
		opts.MaxTimeout = def.MaxTimeout
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = def.ClickTimeout
	}
	if opts.QuiescenceTimeout <= 0 {
		opts.QuiescenceTimeout = def.QuiescenceTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = def.SettleDelay
	}
	if opts.MaxRehideAttempts <= 0 {
		opts.MaxRehideAttempts = def.MaxRehideAttempts
	}
	if opts.InterfaceRehideFactor <= 0 {
		opts.InterfaceRehideFactor = def.InterfaceRehideFactor
	}
	if opts.InterfaceRehideMin < 0 {
		opts.InterfaceRehideMin = def.InterfaceRehideMin
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = def.RefreshInterval
	}
	if opts.MoveCooldown < 0 {
		opts.MoveCooldown = def.MoveCooldown
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		backend:   backend,
		settings:  settings,
		opts:      opts,
		identity:  items.NewIdentity(backend),
		relay:     relay.New(backend),
		gate:      relay.NewGate(),
		timeouts:  newTimeoutTable(opts.InitialTimeout, opts.MinTimeout, opts.MaxTimeout),
		publisher: section.NewPublisher(),
		kick:      make(chan bool, 1),
		baseCtx:   ctx,
		stop:      cancel,
	}
}

// Close stops the rehide timer and aborts background work.
func (m *Manager) Close() {
	m.stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rehideTimer != nil {
		m.rehideTimer.Stop()
		m.rehideTimer = nil
	}
	if m.buildCancel != nil {
		m.buildCancel()
	}
}

// Cache returns the latest published layout cache, or nil before the first
// rebuild.
func (m *Manager) Cache() *section.Cache {
	return m.publisher.Current()
}

// Subscribe streams layout cache updates. See section.Publisher.
func (m *Manager) Subscribe() (<-chan *section.Cache, func()) {
	return m.publisher.Subscribe()
}

// Lookup finds a live item by tag, with fresh bounds.
func (m *Manager) Lookup(ctx context.Context, tag items.Tag) (items.Item, error) {
	_, list, err := m.fetch(ctx)
	if err != nil {
		return items.Item{}, err
	}
	for _, it := range list {
		if it.Tag == tag {
			return it, nil
		}
	}
	return items.Item{}, fmt.Errorf("%w: no item with tag %s", items.ErrInvalidItem, tag)
}

// display resolves the menu bar display to work on.
func (m *Manager) display(ctx context.Context) (string, error) {
	if m.settings != nil {
		if id := m.settings.MenuBarDisplay(); id != "" {
			return id, nil
		}
	}
	id, err := m.backend.ActiveMenuBarDisplay(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get active menu bar display: %w", err)
	}
	return id, nil
}

// fetch queries every menu bar item on the working display and tags it.
func (m *Manager) fetch(ctx context.Context) (string, []items.Item, error) {
	display, err := m.display(ctx)
	if err != nil {
		return "", nil, err
	}
	list, err := m.backend.MenuBarItems(ctx, platform.Scope{Display: display, ActiveSpaceOnly: true})
	if err != nil {
		return "", nil, fmt.Errorf("failed to list menu bar items: %w", err)
	}
	return display, m.identity.Assign(ctx, list), nil
}

func (m *Manager) rehideInterval() time.Duration {
	if m.settings != nil {
		if d := m.settings.RehideInterval(); d > 0 {
			return d
		}
	}
	return 15 * time.Second
}

func (m *Manager) alwaysHiddenEnabled() bool {
	return m.settings != nil && m.settings.AlwaysHiddenEnabled()
}

// requestRefresh asks a running Run loop for a refresh without blocking.
func (m *Manager) requestRefresh(force bool) {
	select {
	case m.kick <- force:
	default:
		if force {
			// A pending request may be unforced; upgrade it.
			select {
			case <-m.kick:
			default:
			}
			select {
			case m.kick <- true:
			default:
			}
		}
	}
}

func (m *Manager) markMoved() {
	m.mu.Lock()
	m.lastMove = time.Now()
	m.mu.Unlock()
}

func logState(op string, item items.Item, state string) {
	logging.Debug().
		Str("op", op).
		Str("tag", item.Tag.String()).
		Uint32("windowId", item.WindowID).
		Str("state", state).
		Msg("state change")
}
