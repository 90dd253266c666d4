package manager

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/platform/fakebar"
	"github.com/yourusername/tray-cli/internal/types"
)

const (
	trayPID   = 1
	appPID    = 10
	systemPID = 20
	appBundle = "com.example.app"
)

// Placeholder titles for the control items in test layouts.
const (
	hiddenCtl = "HIDDEN"
	alwaysCtl = "ALWAYS"
)

func testOptions() Options {
	o := DefaultOptions()
	o.PollInterval = time.Millisecond
	o.QuiescenceTimeout = 500 * time.Millisecond
	o.SettleDelay = 0
	o.MoveCooldown = 0
	o.InterfaceRehideMin = 0
	return o
}

type fixture struct {
	bar *fakebar.Bar
	m   *Manager
	ids map[string]uint32
}

// setup lays out items left to right. Titles "Clock" and "FaceTime" belong
// to the system process; hiddenCtl and alwaysCtl become control items.
func setup(t *testing.T, opts Options, settings platform.StaticSettings, titles ...string) *fixture {
	t.Helper()
	bar := fakebar.New(1000)
	bar.AddProcess(trayPID, "com.example.tray", "tray")
	bar.AddProcess(appPID, appBundle, "App")
	bar.AddProcess(systemPID, "com.apple.controlcenter", "ControlCenter")

	ids := make(map[string]uint32)
	for _, title := range titles {
		spec := fakebar.ItemSpec{PID: appPID, Title: title, Width: 20}
		switch title {
		case hiddenCtl:
			spec = fakebar.ItemSpec{PID: trayPID, Title: items.HiddenControl.Title, Width: 20}
		case alwaysCtl:
			spec = fakebar.ItemSpec{PID: trayPID, Title: items.AlwaysHiddenControl.Title, Width: 20}
		case "Clock", "FaceTime":
			spec.PID = systemPID
		}
		ids[title] = bar.AddItem(spec)
	}

	if settings.Rehide == 0 {
		settings.Rehide = time.Hour
	}
	m := New(bar, settings, opts)
	t.Cleanup(m.Close)
	return &fixture{bar: bar, m: m, ids: ids}
}

func appTag(title string) items.Tag {
	return items.Tag{Namespace: appBundle, Title: title}
}

func tagFor(title string) items.Tag {
	switch title {
	case hiddenCtl:
		return items.HiddenControl
	case alwaysCtl:
		return items.AlwaysHiddenControl
	}
	return appTag(title)
}

// item returns a fresh snapshot of the item with title.
func (f *fixture) item(t *testing.T, title string) items.Item {
	t.Helper()
	it, err := f.m.Lookup(context.Background(), tagFor(title))
	if err != nil {
		t.Fatalf("Lookup(%s): %v", title, err)
	}
	return it
}

// titles returns the bar order using the placeholder names for controls.
func (f *fixture) titles() []string {
	out := f.bar.Titles()
	for i, title := range out {
		switch title {
		case items.HiddenControl.Title:
			out[i] = hiddenCtl
		case items.AlwaysHiddenControl.Title:
			out[i] = alwaysCtl
		}
	}
	return out
}

// drag reorders the bar directly, bypassing the manager.
func (f *fixture) drag(t *testing.T, title string, to types.Point) {
	t.Helper()
	ctx := context.Background()
	id := f.ids[title]
	down := &platform.Event{Kind: platform.KindLeftMouseDown, Point: types.Point{X: 20000, Y: 20000}, Flags: platform.FlagCommand, WindowID: id}
	up := &platform.Event{Kind: platform.KindLeftMouseUp, Point: to, Flags: platform.FlagCommand, WindowID: id}
	for _, ev := range []*platform.Event{down, up} {
		if err := f.bar.Post(ctx, ev, platform.LocationSession); err != nil {
			t.Fatal(err)
		}
	}
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestLookupUnknownTag(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{}, "A", hiddenCtl)
	if _, err := f.m.Lookup(context.Background(), appTag("Missing")); err == nil {
		t.Error("Lookup of a missing tag succeeded")
	}
}

func TestDisplayPinnedBySettings(t *testing.T) {
	f := setup(t, testOptions(), platform.StaticSettings{Display: "pinned"}, "A", hiddenCtl)
	got, err := f.m.display(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "pinned" {
		t.Errorf("display = %q, want %q", got, "pinned")
	}
}
