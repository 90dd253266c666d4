package section

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/types"
)

func rect(x, w float64) types.Rect {
	return types.Rect{X: x, Y: 0, Width: w, Height: 24}
}

func item(id uint32, ns, title string, x, w float64) items.Item {
	return items.Item{
		WindowID: id,
		Bounds:   rect(x, w),
		Title:    title,
		Tag:      items.Tag{Namespace: ns, Title: title},
	}
}

func control(id uint32, tag items.Tag, x, w float64) items.Item {
	return items.Item{WindowID: id, Bounds: rect(x, w), Title: tag.Title, Tag: tag}
}

func tags(list []items.Item) []string {
	out := make([]string, 0, len(list))
	for _, it := range list {
		out = append(out, it.Tag.Title)
	}
	return out
}

func TestClassify(t *testing.T) {
	ah := rect(100, 20)
	anchors := Anchors{Hidden: rect(140, 20), AlwaysHidden: &ah}

	tests := []struct {
		name   string
		bounds types.Rect
		want   Name
		wantOK bool
	}{
		{"right of hidden control", rect(160, 20), Visible, true},
		{"between controls", rect(120, 20), Hidden, true},
		{"left of always-hidden control", rect(80, 20), AlwaysHidden, true},
		{"overlapping hidden control", rect(150, 20), 0, false},
		{"overlapping always-hidden control", rect(110, 20), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(anchors, tt.bounds)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Classify(%v) = %v, %v; want %v, %v", tt.bounds, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClassifyWithoutAlwaysHidden(t *testing.T) {
	anchors := Anchors{Hidden: rect(140, 20)}

	if got, ok := Classify(anchors, rect(0, 20)); !ok || got != Hidden {
		t.Errorf("Classify far left = %v, %v; want hidden", got, ok)
	}
}

func TestBuildScenarioFromControlSequence(t *testing.T) {
	// [A(ctrl-hidden), B, C(ctrl-always-hidden), D]: B sits left of the
	// hidden boundary, D left of the always-hidden boundary.
	a := control(1, items.HiddenControl, 140, 20)
	b := item(2, "com.example", "B", 120, 20)
	c := control(3, items.AlwaysHiddenControl, 100, 20)
	d := item(4, "com.example", "D", 80, 20)

	res := Build(BuildInput{
		DisplayID: "main",
		Items:     []items.Item{a, b, c, d},
		Anchors:   Anchors{Hidden: a.Bounds, AlwaysHidden: &c.Bounds},
	})

	if got, ok := res.Cache.SectionOf(b.Tag); !ok || got != Hidden {
		t.Errorf("B section = %v, %v; want hidden", got, ok)
	}
	if got, ok := res.Cache.SectionOf(d.Tag); !ok || got != AlwaysHidden {
		t.Errorf("D section = %v, %v; want alwaysHidden", got, ok)
	}
	if _, _, ok := res.Cache.Find(a.Tag); ok {
		t.Error("hidden control should not be cached")
	}
	if res.NeedsForcedRebuild {
		t.Error("NeedsForcedRebuild = true, want false")
	}
}

func TestBuildExcludesItemsThatCannotBeHidden(t *testing.T) {
	hidden := control(1, items.HiddenControl, 500, 20)
	list := []items.Item{
		item(2, "com.example", "Left", 400, 20),
		hidden,
		control(3, items.VisibleControl, 520, 20),
		item(4, "com.apple.controlcenter", "FaceTime", 540, 20),
		item(5, "com.apple.controlcenter", "Clock", 560, 40),
		item(6, "com.example", "Right", 600, 20),
	}

	res := Build(BuildInput{Items: list, Anchors: Anchors{Hidden: hidden.Bounds}})

	for _, it := range res.Cache.AllItems() {
		if !it.CanBeHidden() {
			t.Errorf("cache contains %v which cannot be hidden", it.Tag)
		}
	}
	if diff := cmp.Diff([]string{items.VisibleControl.Title, "Right"}, tags(res.Cache.Items(Visible))); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Left"}, tags(res.Cache.Items(Hidden))); diff != "" {
		t.Errorf("hidden mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFlagsUnclassifiableItems(t *testing.T) {
	hidden := control(1, items.HiddenControl, 500, 20)
	straddler := item(2, "com.example", "Straddler", 510, 20)

	res := Build(BuildInput{Items: []items.Item{hidden, straddler}, Anchors: Anchors{Hidden: hidden.Bounds}})

	if !res.NeedsForcedRebuild {
		t.Error("NeedsForcedRebuild = false, want true")
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Tag != straddler.Tag {
		t.Errorf("Dropped = %v, want [Straddler]", res.Dropped)
	}
	if res.Cache.Len() != 0 {
		t.Errorf("cache Len = %d, want 0", res.Cache.Len())
	}
}

func TestBuildPlacesTemporarilyShownItemsAtReturnSlot(t *testing.T) {
	hidden := control(1, items.HiddenControl, 500, 20)
	h1 := item(2, "com.example", "H1", 460, 20)
	h2 := item(3, "com.example", "H2", 480, 20)
	// Shown is currently in the visible section, but belongs between H1 and H2.
	shown := item(4, "com.example", "Shown", 600, 20)
	v1 := item(5, "com.example", "V1", 620, 20)

	returns := map[items.Tag]items.Destination{
		shown.Tag: items.LeftOfItem(h2),
	}
	res := Build(BuildInput{
		Items:   []items.Item{h1, h2, hidden, shown, v1},
		Anchors: Anchors{Hidden: hidden.Bounds},
		ReturnDestination: func(tag items.Tag) (items.Destination, bool) {
			d, ok := returns[tag]
			return d, ok
		},
	})

	if diff := cmp.Diff([]string{"H1", "Shown", "H2"}, tags(res.Cache.Items(Hidden))); diff != "" {
		t.Errorf("hidden mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"V1"}, tags(res.Cache.Items(Visible))); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheInsert(t *testing.T) {
	base := NewCache("main")
	base.Sections[AlwaysHidden] = []items.Item{item(1, "x", "AH1", 0, 10)}
	base.Sections[Hidden] = []items.Item{item(2, "x", "H1", 0, 10), item(3, "x", "H2", 0, 10)}
	base.Sections[Visible] = []items.Item{item(4, "x", "V1", 0, 10)}

	newItem := item(9, "x", "New", 0, 10)
	hiddenCtl := control(10, items.HiddenControl, 0, 10)
	alwaysCtl := control(11, items.AlwaysHiddenControl, 0, 10)

	tests := []struct {
		name    string
		dest    items.Destination
		section Name
		want    []string
	}{
		{"left of hidden control", items.LeftOfItem(hiddenCtl), Hidden, []string{"H1", "H2", "New"}},
		{"right of hidden control", items.RightOfItem(hiddenCtl), Visible, []string{"New", "V1"}},
		{"left of always-hidden control", items.LeftOfItem(alwaysCtl), AlwaysHidden, []string{"AH1", "New"}},
		{"right of always-hidden control", items.RightOfItem(alwaysCtl), Hidden, []string{"New", "H1", "H2"}},
		{"left of cached item", items.LeftOfItem(base.Sections[Hidden][1]), Hidden, []string{"H1", "New", "H2"}},
		{"right of last cached item", items.RightOfItem(base.Sections[Visible][0]), Visible, []string{"V1", "New"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base.Clone()
			if !c.Insert(newItem, tt.dest) {
				t.Fatal("Insert returned false")
			}
			if diff := cmp.Diff(tt.want, tags(c.Items(tt.section))); diff != "" {
				t.Errorf("%v mismatch (-want +got):\n%s", tt.section, diff)
			}
			if base.Len() != 4 {
				t.Errorf("Insert on clone modified the original")
			}
		})
	}

	c := base.Clone()
	if c.Insert(newItem, items.LeftOfItem(item(99, "x", "Gone", 0, 10))) {
		t.Error("Insert with unknown anchor returned true")
	}
}

func TestCacheEqual(t *testing.T) {
	a := NewCache("main")
	a.Sections[Hidden] = []items.Item{item(1, "x", "H1", 0, 10)}
	b := a.Clone()

	if !a.Equal(b) {
		t.Error("clone should be equal")
	}
	b.Sections[Hidden][0].Bounds.X = 5
	if a.Equal(b) {
		t.Error("caches with different bounds should differ")
	}
	if a.Equal(nil) {
		t.Error("Equal(nil) = true")
	}
	var nilCache *Cache
	if !nilCache.Equal(nil) {
		t.Error("nil caches should be equal")
	}
}

func TestControlsOrderingBroken(t *testing.T) {
	hidden := control(1, items.HiddenControl, 100, 20)
	good := control(2, items.AlwaysHiddenControl, 60, 20)
	bad := control(2, items.AlwaysHiddenControl, 140, 20)

	if FindControls([]items.Item{good, hidden}).OrderingBroken() {
		t.Error("ordered controls reported broken")
	}
	if !FindControls([]items.Item{hidden, bad}).OrderingBroken() {
		t.Error("swapped controls not reported broken")
	}
	if FindControls([]items.Item{hidden}).OrderingBroken() {
		t.Error("missing always-hidden control reported broken")
	}
}
