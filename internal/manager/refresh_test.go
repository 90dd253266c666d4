package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/platform/fakebar"
	"github.com/yourusername/tray-cli/internal/section"
	"github.com/yourusername/tray-cli/internal/types"
)

func TestRefreshBuildsSections(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{AlwaysHidden: true},
		"AH1", alwaysCtl, "H1", hiddenCtl, "Clock", "FaceTime", "V1")

	if err := f.m.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	c := f.m.Cache()
	if c == nil {
		t.Fatal("no cache published")
	}
	if c.DisplayID != fakebar.DisplayID {
		t.Errorf("DisplayID = %q, want %q", c.DisplayID, fakebar.DisplayID)
	}

	tests := []struct {
		name section.Name
		want []string
	}{
		// Clock cannot move and FaceTime cannot hide, so neither is cached.
		{section.Visible, []string{"V1"}},
		{section.Hidden, []string{"H1"}},
		{section.AlwaysHidden, []string{"AH1"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, cachedTitles(c, tt.name)); diff != "" {
			t.Errorf("%s section (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestRefreshWithoutAlwaysHiddenSection(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{},
		"AH1", alwaysCtl, "H1", hiddenCtl, "V1")

	if err := f.m.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	c := f.m.Cache()
	if diff := cmp.Diff([]string{"AH1", "H1"}, cachedTitles(c, section.Hidden)); diff != "" {
		t.Errorf("hidden section (-want +got):\n%s", diff)
	}
	if got := len(c.Items(section.AlwaysHidden)); got != 0 {
		t.Errorf("always-hidden items = %d, want 0", got)
	}
}

func TestRefreshRepairsControlOrder(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{AlwaysHidden: true},
		"H1", hiddenCtl, alwaysCtl, "V1")

	if err := f.m.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if diff := cmp.Diff([]string{"H1", alwaysCtl, hiddenCtl, "V1"}, f.titles()); diff != "" {
		t.Errorf("order after repair (-want +got):\n%s", diff)
	}
	c := f.m.Cache()
	if diff := cmp.Diff([]string{"H1"}, cachedTitles(c, section.AlwaysHidden)); diff != "" {
		t.Errorf("always-hidden section (-want +got):\n%s", diff)
	}
	if got := len(c.Items(section.Hidden)); got != 0 {
		t.Errorf("hidden items = %d, want 0", got)
	}
}

func TestRefreshWithoutHiddenControl(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "A", "B")
	if err := f.m.Refresh(context.Background(), true); err == nil {
		t.Error("Refresh() succeeded without a hidden control item")
	}
	if f.m.Cache() != nil {
		t.Error("cache published without a hidden control item")
	}
}

func TestRefreshSkipsUnchangedItemSet(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "H1", hiddenCtl, "V1")
	ctx := context.Background()

	if err := f.m.Refresh(ctx, false); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	first := f.m.Cache()
	if first == nil {
		t.Fatal("first refresh did not publish")
	}

	f.drag(t, "V1", types.Point{X: f.bar.Bounds(f.ids["H1"]).MinX(), Y: 12})
	if diff := cmp.Diff([]string{"V1", "H1", hiddenCtl}, f.titles()); diff != "" {
		t.Fatalf("drag result (-want +got):\n%s", diff)
	}

	if err := f.m.Refresh(ctx, false); err != nil {
		t.Fatalf("Refresh(false) error = %v", err)
	}
	if f.m.Cache() != first {
		t.Error("unforced refresh rebuilt an unchanged item set")
	}

	if err := f.m.Refresh(ctx, true); err != nil {
		t.Fatalf("Refresh(true) error = %v", err)
	}
	if diff := cmp.Diff([]string{"V1", "H1"}, cachedTitles(f.m.Cache(), section.Hidden)); diff != "" {
		t.Errorf("hidden section after forced refresh (-want +got):\n%s", diff)
	}
}

func TestRefreshRebuildsWhenItemsChange(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "H1", hiddenCtl, "V1")
	ctx := context.Background()

	if err := f.m.Refresh(ctx, false); err != nil {
		t.Fatal(err)
	}
	f.bar.AddItem(fakebar.ItemSpec{PID: appPID, Title: "V2"})
	if err := f.m.Refresh(ctx, false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"V1", "V2"}, cachedTitles(f.m.Cache(), section.Visible)); diff != "" {
		t.Errorf("visible section (-want +got):\n%s", diff)
	}
}

func TestRefreshWaitsForMoveCooldown(t *testing.T) {
	opts := testOptions()
	opts.MoveCooldown = 100 * time.Millisecond
	f := setup(t, opts, platform.StaticSettings{}, "H1", hiddenCtl, "V1")

	start := time.Now()
	f.m.markMoved()
	if err := f.m.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < opts.MoveCooldown {
		t.Errorf("Refresh returned after %v, want at least %v", elapsed, opts.MoveCooldown)
	}
}

func TestRefreshSupersedesInFlightRebuild(t *testing.T) {
	opts := testOptions()
	opts.MoveCooldown = 200 * time.Millisecond
	f := setup(t, opts, platform.StaticSettings{}, "H1", hiddenCtl, "V1")
	ctx := context.Background()

	if err := f.m.Refresh(ctx, true); err != nil {
		t.Fatal(err)
	}
	first := f.m.Cache()
	f.drag(t, "V1", types.Point{X: f.bar.Bounds(f.ids["H1"]).MinX(), Y: 12})
	f.m.markMoved()

	errc := make(chan error, 1)
	go func() { errc <- f.m.Refresh(ctx, true) }()
	registered := eventually(t, time.Second, func() bool {
		f.m.mu.Lock()
		defer f.m.mu.Unlock()
		return f.m.buildCancel != nil
	})
	if !registered {
		t.Fatal("first refresh never started")
	}

	// The forced flag of the superseded call carries over.
	if err := f.m.Refresh(ctx, false); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("first Refresh() error = %v, want context.Canceled", err)
	}
	if f.m.Cache() == first {
		t.Fatal("superseding refresh did not rebuild")
	}
	if diff := cmp.Diff([]string{"V1", "H1"}, cachedTitles(f.m.Cache(), section.Hidden)); diff != "" {
		t.Errorf("hidden section (-want +got):\n%s", diff)
	}
}

func TestUnclassifiableItemForcesNextRebuild(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "H1", hiddenCtl, "V1")
	ctx := context.Background()

	// Park V1 mid-drag exactly over the hidden control.
	over := f.bar.Bounds(f.ids[hiddenCtl])
	down := &platform.Event{Kind: platform.KindLeftMouseDown, Point: types.Point{X: over.MidX(), Y: over.MidY()}, Flags: platform.FlagCommand, WindowID: f.ids["V1"]}
	if err := f.bar.Post(ctx, down, platform.LocationSession); err != nil {
		t.Fatal(err)
	}

	if err := f.m.Refresh(ctx, true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := len(f.m.Cache().Items(section.Visible)); got != 0 {
		t.Errorf("visible items = %d, want the unclassifiable item dropped", got)
	}
	f.m.mu.Lock()
	forced := f.m.needsForce
	f.m.mu.Unlock()
	if !forced {
		t.Fatal("needsForce not set after an unclassifiable item")
	}

	up := &platform.Event{Kind: platform.KindLeftMouseUp, Point: types.Point{X: 2000, Y: 12}, Flags: platform.FlagCommand, WindowID: f.ids["V1"]}
	if err := f.bar.Post(ctx, up, platform.LocationSession); err != nil {
		t.Fatal(err)
	}

	// Same window set, but the pending force still rebuilds.
	if err := f.m.Refresh(ctx, false); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if diff := cmp.Diff([]string{"V1"}, cachedTitles(f.m.Cache(), section.Visible)); diff != "" {
		t.Errorf("visible section (-want +got):\n%s", diff)
	}
}

func TestRunRefreshesOnSignals(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "H1", hiddenCtl, "V1")
	ctx, cancel := context.WithCancel(context.Background())

	updates, unsubscribe := f.m.Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- f.m.Run(ctx, f.bar.Signals()) }()

	next := func() *section.Cache {
		t.Helper()
		select {
		case c := <-updates:
			return c
		case <-time.After(2 * time.Second):
			t.Fatal("no cache update")
			return nil
		}
	}

	if diff := cmp.Diff([]string{"V1"}, cachedTitles(next(), section.Visible)); diff != "" {
		t.Errorf("initial visible section (-want +got):\n%s", diff)
	}

	f.ids["V2"] = f.bar.AddItem(fakebar.ItemSpec{PID: appPID, Title: "V2"})
	f.bar.Emit(platform.SignalItemsChanged)
	if diff := cmp.Diff([]string{"V1", "V2"}, cachedTitles(next(), section.Visible)); diff != "" {
		t.Errorf("visible section after item added (-want +got):\n%s", diff)
	}

	// Reordering keeps the window set, so only a forcing signal rebuilds.
	f.drag(t, "V2", types.Point{X: f.bar.Bounds(f.ids["H1"]).MinX(), Y: 12})
	f.bar.Emit(platform.SignalEditorVisible)
	if diff := cmp.Diff([]string{"V2", "H1"}, cachedTitles(next(), section.Hidden)); diff != "" {
		t.Errorf("hidden section after editor shown (-want +got):\n%s", diff)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSameWindowSet(t *testing.T) {
	tests := []struct {
		name string
		a, b map[uint32]bool
		want bool
	}{
		{"no previous", map[uint32]bool{1: true}, nil, false},
		{"equal", map[uint32]bool{1: true, 2: true}, map[uint32]bool{2: true, 1: true}, true},
		{"grown", map[uint32]bool{1: true, 2: true}, map[uint32]bool{1: true}, false},
		{"replaced", map[uint32]bool{1: true, 3: true}, map[uint32]bool{1: true, 2: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameWindowSet(tt.a, tt.b); got != tt.want {
				t.Errorf("sameWindowSet() = %v, want %v", got, tt.want)
			}
		})
	}
}
