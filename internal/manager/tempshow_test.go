package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/section"
	"github.com/yourusername/tray-cli/internal/types"
)

var showLayout = []string{"H1", "T", "H2", hiddenCtl, "V1", "V2"}

func TestTempShowRoundTrip(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	ctx := context.Background()

	if err := f.m.TempShow(ctx, appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	if diff := cmp.Diff([]string{"H1", "H2", hiddenCtl, "T", "V1", "V2"}, f.titles()); diff != "" {
		t.Errorf("order while shown (-want +got):\n%s", diff)
	}
	if !f.m.IsTemporarilyShown(appTag("T")) {
		t.Error("T is not tracked as temporarily shown")
	}
	if got := f.bar.Clicks(f.ids["T"]); got != 1 {
		t.Errorf("Clicks = %d, want 1", got)
	}

	// The cache keeps T at the slot it will return to.
	if err := f.m.Refresh(ctx, true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if diff := cmp.Diff([]string{"H1", "T", "H2"}, cachedTitles(f.m.Cache(), section.Hidden)); diff != "" {
		t.Errorf("cached hidden section (-want +got):\n%s", diff)
	}

	f.m.rehide(ctx)

	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order after rehide (-want +got):\n%s", diff)
	}
	dest := items.LeftOfItem(f.item(t, "H2"))
	if !dest.SatisfiedBy(f.bar.Bounds(f.ids["T"]), f.bar.Bounds(f.ids["H2"])) {
		t.Error("T does not satisfy its return destination after rehide")
	}
	if f.m.IsTemporarilyShown(appTag("T")) {
		t.Error("T still tracked after rehide")
	}
}

func TestTempShowRehidesOnTimer(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{Rehide: 30 * time.Millisecond}, showLayout...)

	if err := f.m.TempShow(context.Background(), appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	if !eventually(t, 3*time.Second, func() bool { return !f.m.IsTemporarilyShown(appTag("T")) }) {
		t.Fatal("item was never rehidden")
	}
	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order after timed rehide (-want +got):\n%s", diff)
	}
}

func TestRehideDefersWhileInterfaceIsFrontmost(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	f.bar.SetOpensInterface(f.ids["T"], true)
	ctx := context.Background()

	if err := f.m.TempShow(ctx, appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	shown := f.titles()

	f.m.rehide(ctx)
	if diff := cmp.Diff(shown, f.titles()); diff != "" {
		t.Errorf("item moved while its interface was open (-want +got):\n%s", diff)
	}
	if !f.m.IsTemporarilyShown(appTag("T")) {
		t.Fatal("context dropped while interface was open")
	}
	f.m.mu.Lock()
	rescheduled := f.m.rehideTimer != nil
	f.m.mu.Unlock()
	if !rescheduled {
		t.Error("rehide was not rescheduled")
	}

	windows, _ := f.bar.OnScreenWindows(ctx)
	if len(windows) != 1 {
		t.Fatalf("windows = %+v, want the item's interface", windows)
	}
	f.bar.CloseWindow(windows[0].WindowID)

	f.m.rehide(ctx)
	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order after interface closed (-want +got):\n%s", diff)
	}
}

func TestRehideIgnoresInterfaceBehindOtherWindows(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	f.bar.SetOpensInterface(f.ids["T"], true)
	ctx := context.Background()

	if err := f.m.TempShow(ctx, appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	f.bar.OpenWindow(99, types.Rect{X: 0, Y: 0, Width: 100, Height: 100})

	f.m.rehide(ctx)
	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order after rehide (-want +got):\n%s", diff)
	}
}

func TestRehideFailureParksItem(t *testing.T) {
	opts := testOptions()
	opts.MoveAttempts = 1
	opts.InitialTimeout = 10 * time.Millisecond
	opts.MinTimeout = 10 * time.Millisecond
	f := setup(t, opts, platform.StaticSettings{}, showLayout...)
	ctx := context.Background()

	if err := f.m.TempShow(ctx, appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	f.bar.SetUnresponsive(f.ids["T"], true)

	f.m.rehide(ctx)
	sc := f.m.shownFor(appTag("T"))
	if sc == nil {
		t.Fatal("failed rehide dropped the item")
	}
	f.m.mu.Lock()
	attempts := sc.rehideAttempts
	f.m.mu.Unlock()
	if attempts != opts.MaxRehideAttempts {
		t.Errorf("rehideAttempts = %d, want %d", attempts, opts.MaxRehideAttempts)
	}

	f.bar.SetUnresponsive(f.ids["T"], false)
	f.m.rehide(ctx)
	if f.m.IsTemporarilyShown(appTag("T")) {
		t.Error("item still parked after owner recovered")
	}
	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order after retry (-want +got):\n%s", diff)
	}
}

func TestTempShowWithoutReturnDestination(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "T", hiddenCtl, "V1")

	err := f.m.TempShow(context.Background(), appTag("T"))
	if !errors.Is(err, items.ErrNoReturnDestination) {
		t.Errorf("TempShow() error = %v, want ErrNoReturnDestination", err)
	}
	if got := f.bar.MaxEnabledTaps(); got != 0 {
		t.Errorf("MaxEnabledTaps = %d, want nothing moved", got)
	}
}

func TestTempShowWithoutSpaceAlerts(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	f.bar.SetMenuFrame(types.Rect{X: 0, Y: 0, Width: 990, Height: 24})

	err := f.m.TempShow(context.Background(), appTag("T"))
	if !errors.Is(err, items.ErrNoSpace) {
		t.Errorf("TempShow() error = %v, want ErrNoSpace", err)
	}
	if got := len(f.bar.Alerts()); got != 1 {
		t.Errorf("alerts = %d, want 1", got)
	}
	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order changed (-want +got):\n%s", diff)
	}
}

func TestShowAnchorSkipsItemsUnderAppMenu(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	// V1 starts at 960; with a 20 wide target only V2 leaves room past 945.
	f.bar.SetMenuFrame(types.Rect{X: 0, Y: 0, Width: 945, Height: 24})
	ctx := context.Background()

	display, list, err := f.m.fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	anchor, err := f.m.showAnchor(ctx, display, list, f.item(t, "T"))
	if err != nil {
		t.Fatal(err)
	}
	if anchor == nil || anchor.Title != "V2" {
		t.Errorf("anchor = %v, want V2", anchor)
	}
}

func TestRemoveTemporarilyShown(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	ctx := context.Background()

	if err := f.m.TempShow(ctx, appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	shown := f.titles()

	f.m.RemoveTemporarilyShown(appTag("T"))
	if f.m.IsTemporarilyShown(appTag("T")) {
		t.Error("context still present after removal")
	}
	f.m.rehide(ctx)
	if diff := cmp.Diff(shown, f.titles()); diff != "" {
		t.Errorf("removed item was moved back (-want +got):\n%s", diff)
	}
}

func TestReturnItem(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)
	ctx := context.Background()

	if err := f.m.TempShow(ctx, appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	dest, ok := f.m.ReturnDestination(appTag("T"))
	if !ok {
		t.Fatal("ReturnDestination() not found for shown item")
	}
	if dest.Anchor.Tag != appTag("H2") || dest.Side != types.LeftOf {
		t.Errorf("ReturnDestination() = %v, want left of H2", dest)
	}

	if err := f.m.ReturnItem(ctx, appTag("T"), dest); err != nil {
		t.Fatalf("ReturnItem() error = %v", err)
	}
	if diff := cmp.Diff(showLayout, f.titles()); diff != "" {
		t.Errorf("order after return (-want +got):\n%s", diff)
	}
	if f.m.IsTemporarilyShown(appTag("T")) {
		t.Error("T still tracked after ReturnItem")
	}
}

func TestReturnItemWithoutAnchor(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "H1", hiddenCtl, "V1", "T")
	ctx := context.Background()

	gone := items.LeftOfItem(items.Item{Tag: appTag("gone")})
	if err := f.m.ReturnItem(ctx, appTag("T"), gone); err != nil {
		t.Fatalf("ReturnItem() error = %v", err)
	}
	if diff := cmp.Diff([]string{"H1", "T", hiddenCtl, "V1"}, f.titles()); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	// An item that no longer exists needs no return.
	if err := f.m.ReturnItem(ctx, appTag("missing"), gone); err != nil {
		t.Errorf("ReturnItem(missing) error = %v, want nil", err)
	}
}

func cachedTitles(c *section.Cache, n section.Name) []string {
	var out []string
	for _, it := range c.Items(n) {
		out = append(out, it.Title)
	}
	return out
}

func TestTempShowReportsShownBeforeClick(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, showLayout...)

	var (
		gotTag       items.Tag
		gotDest      items.Destination
		clicksAtHook = -1
	)
	f.m.OnShown(func(tag items.Tag, dest items.Destination) {
		gotTag, gotDest = tag, dest
		clicksAtHook = f.bar.Clicks(f.ids["T"])
	})

	if err := f.m.TempShow(context.Background(), appTag("T")); err != nil {
		t.Fatalf("TempShow() error = %v", err)
	}
	if gotTag != appTag("T") {
		t.Errorf("OnShown tag = %v, want %v", gotTag, appTag("T"))
	}
	if gotDest.Side != types.LeftOf || gotDest.Anchor.Tag != appTag("H2") {
		t.Errorf("OnShown destination = %v, want left of H2", gotDest)
	}
	if clicksAtHook != 0 {
		t.Errorf("Clicks when OnShown ran = %d, want 0", clicksAtHook)
	}
	if got := f.bar.Clicks(f.ids["T"]); got != 1 {
		t.Errorf("Clicks = %d, want 1", got)
	}
}
