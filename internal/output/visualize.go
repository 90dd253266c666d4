package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/section"
)

// barRows is the height of the item strip: box top, label, box bottom,
// and one row naming the sections.
const barRows = 4

// VisualizationOptions controls the appearance of the visualization
type VisualizationOptions struct {
	UseUnicode bool
	MaxWidth   int
}

// DefaultVisualizationOptions returns sensible defaults
func DefaultVisualizationOptions() VisualizationOptions {
	width, _ := getTerminalSize()
	return VisualizationOptions{
		UseUnicode: supportsUnicode(),
		MaxWidth:   width,
	}
}

// VisualizeBar draws the cached sections as a strip of boxes scaled to the
// terminal width, left to right as on screen.
func VisualizeBar(cache *section.Cache, opts VisualizationOptions) *Canvas {
	all := cache.AllItems()
	canvas := NewCanvas(opts.MaxWidth, barRows, opts.UseUnicode)
	if len(all) == 0 {
		return canvas
	}

	bs := NewBarScale(all, opts.MaxWidth)
	for _, name := range section.Names {
		list := cache.Items(name)
		if len(list) == 0 {
			continue
		}

		first, last := opts.MaxWidth, 0
		for _, it := range list {
			col, width := bs.Span(it.Bounds)
			tone := sectionTone(name)
			if it.IsControlItem() {
				tone = ToneControl
			}
			canvas.DrawBox(col, 0, width, 3, tone)
			canvas.DrawTextCentered(col+1, 1, width-2, itemLabel(it), tone)

			if col < first {
				first = col
			}
			if col+width > last {
				last = col + width
			}
		}
		canvas.DrawTextCentered(first, 3, last-first, name.String(), sectionTone(name))
	}

	return canvas
}

// PrintBar writes the bar visualization to w, colored unless color is
// disabled globally.
func PrintBar(w io.Writer, cache *section.Cache, opts VisualizationOptions) {
	if cache.Len() == 0 {
		fmt.Fprintln(w, "(no items cached)")
		return
	}

	canvas := VisualizeBar(cache, opts)
	var out string
	if color.NoColor {
		out = canvas.String()
	} else {
		out = canvas.Render(paintTone)
	}
	fmt.Fprintf(w, "Display %s\n%s\n", cache.DisplayID, out)
	fmt.Fprintf(w, "\nTotal: %d items (%d visible, %d hidden, %d always hidden)\n",
		cache.Len(),
		len(cache.Items(section.Visible)),
		len(cache.Items(section.Hidden)),
		len(cache.Items(section.AlwaysHidden)))
}

var tonePainters = map[Tone]*color.Color{
	ToneVisible:      color.New(color.FgGreen),
	ToneHidden:       color.New(color.FgYellow),
	ToneAlwaysHidden: color.New(color.FgRed),
	ToneControl:      color.New(color.FgCyan, color.Bold),
}

func paintTone(t Tone, s string) string {
	if c, ok := tonePainters[t]; ok {
		return c.Sprint(s)
	}
	return s
}

func sectionTone(n section.Name) Tone {
	switch n {
	case section.Visible:
		return ToneVisible
	case section.Hidden:
		return ToneHidden
	case section.AlwaysHidden:
		return ToneAlwaysHidden
	default:
		return ToneNone
	}
}

// itemLabel picks the shortest readable name for an item
func itemLabel(it items.Item) string {
	switch it.Tag {
	case items.VisibleControl:
		return "V"
	case items.HiddenControl:
		return "H"
	case items.AlwaysHiddenControl:
		return "AH"
	}
	if it.Title != "" {
		return it.Title
	}
	if it.Tag.Title != "" {
		// Reverse-DNS titles read better by their last component
		if i := strings.LastIndex(it.Tag.Title, "."); i >= 0 && i < len(it.Tag.Title)-1 {
			return it.Tag.Title[i+1:]
		}
		return it.Tag.Title
	}
	return ownerLabel(it)
}

// getTerminalSize returns the current terminal dimensions
func getTerminalSize() (width, height int) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		// Default to 80x24 if we can't detect
		return 80, 24
	}
	return int(ws.Col), int(ws.Row)
}

// supportsUnicode checks if the terminal supports Unicode
func supportsUnicode() bool {
	lang := os.Getenv("LANG")
	lcAll := os.Getenv("LC_ALL")

	return strings.Contains(lang, "UTF-8") || strings.Contains(lcAll, "UTF-8")
}
