package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/section"
	"github.com/yourusername/tray-cli/internal/types"
)

func barItem(ns, title string, x float64) items.Item {
	return items.Item{
		WindowID: uint32(x) + 1,
		Bounds:   types.Rect{X: x, Y: 0, Width: 20, Height: 24},
		Tag:      items.Tag{Namespace: ns, Title: title},
	}
}

func testCache() *section.Cache {
	c := section.NewCache("main")
	c.Sections[section.Hidden] = []items.Item{barItem("com.example", "Alpha", 0)}
	c.Sections[section.Visible] = []items.Item{
		{WindowID: 99, Bounds: types.Rect{X: 20, Width: 20, Height: 24}, Tag: items.HiddenControl},
		barItem("com.example", "Beta", 40),
	}
	return c
}

func TestCanvasDrawBox(t *testing.T) {
	c := NewCanvas(7, 3, false)
	c.DrawBox(1, 0, 5, 3, ToneNone)

	want := " +---+\n |   |\n +---+"
	if got := c.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestCanvasRenderPaintsRuns(t *testing.T) {
	c := NewCanvas(8, 1, false)
	c.DrawText(0, 0, "ab", ToneVisible)
	c.DrawText(2, 0, "cd", ToneNone)
	c.DrawText(4, 0, "ef", ToneHidden)

	got := c.Render(func(_ Tone, s string) string { return "<" + s + ">" })
	if want := "<ab>cd<ef>"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestCanvasIgnoresOutOfRange(t *testing.T) {
	c := NewCanvas(3, 1, false)
	c.Set(-1, 0, 'x', ToneNone)
	c.Set(3, 0, 'x', ToneNone)
	c.Set(0, 1, 'x', ToneNone)
	if got := c.String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
	if got := c.Get(5, 5); got != ' ' {
		t.Errorf("Get(5, 5) = %q, want blank", got)
	}
}

func TestBarScaleSpan(t *testing.T) {
	list := []items.Item{
		barItem("a", "A", 100),
		barItem("b", "B", 120),
		barItem("c", "C", 140),
	}

	tests := []struct {
		name      string
		columns   int
		rect      types.Rect
		wantCol   int
		wantWidth int
	}{
		{"one column per point", 60, list[1].Bounds, 20, 20},
		{"narrow is widened", 6, list[0].Bounds, 0, 3},
		{"clamped to the right edge", 6, list[2].Bounds, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := NewBarScale(list, tt.columns)
			col, width := bs.Span(tt.rect)
			if col != tt.wantCol || width != tt.wantWidth {
				t.Errorf("Span(%v) = (%d, %d), want (%d, %d)", tt.rect, col, width, tt.wantCol, tt.wantWidth)
			}
		})
	}
}

func TestVisualizeBar(t *testing.T) {
	canvas := VisualizeBar(testCache(), VisualizationOptions{MaxWidth: 60})
	lines := strings.Split(canvas.String(), "\n")
	if len(lines) != barRows {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), barRows, canvas)
	}

	for _, label := range []string{"Alpha", "H", "Beta"} {
		if !strings.Contains(lines[1], label) {
			t.Errorf("label row %q missing %q", lines[1], label)
		}
	}
	if strings.Index(lines[1], "Alpha") > strings.Index(lines[1], "Beta") {
		t.Errorf("label row %q not in screen order", lines[1])
	}
	for _, name := range []string{"hidden", "visible"} {
		if !strings.Contains(lines[3], name) {
			t.Errorf("section row %q missing %q", lines[3], name)
		}
	}
	if strings.Contains(lines[3], "alwaysHidden") {
		t.Errorf("section row %q names an empty section", lines[3])
	}
}

func TestPrintBar(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	PrintBar(&buf, testCache(), VisualizationOptions{MaxWidth: 60})
	out := buf.String()
	if !strings.Contains(out, "Display main") {
		t.Errorf("output missing display header:\n%s", out)
	}
	if !strings.Contains(out, "Total: 3 items (2 visible, 1 hidden, 0 always hidden)") {
		t.Errorf("output missing totals:\n%s", out)
	}

	buf.Reset()
	PrintBar(&buf, section.NewCache("main"), VisualizationOptions{MaxWidth: 60})
	if !strings.Contains(buf.String(), "no items") {
		t.Errorf("empty cache output = %q", buf.String())
	}
}

func TestPrintSectionsTable(t *testing.T) {
	var buf bytes.Buffer
	PrintSectionsTable(&buf, testCache())
	out := buf.String()
	for _, want := range []string{"com.example:Alpha", "com.example:Beta", "hidden", "visible"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestItemLabel(t *testing.T) {
	tests := []struct {
		name string
		item items.Item
		want string
	}{
		{"control", items.Item{Tag: items.AlwaysHiddenControl}, "AH"},
		{"window title wins", items.Item{Title: "Wi-Fi", Tag: items.Tag{Namespace: "x", Title: "y"}}, "Wi-Fi"},
		{"reverse dns title", items.Item{Tag: items.Tag{Namespace: "x", Title: "com.example.Battery"}}, "Battery"},
		{"plain tag title", items.Item{Tag: items.Tag{Namespace: "x", Title: "Clock"}}, "Clock"},
		{"owner name", items.Item{OwnerName: "Dropbox"}, "Dropbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemLabel(tt.item); got != tt.want {
				t.Errorf("itemLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
