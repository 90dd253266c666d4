package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/section"
)

// PrintSectionsTable prints the cached layout, one row per item, sections
// left to right as they appear on screen.
func PrintSectionsTable(w io.Writer, cache *section.Cache) {
	table := tablewriter.NewWriter(w)
	table.Header("Section", "#", "Tag", "App", "Window", "Bounds")

	for _, name := range section.Names {
		for i, it := range cache.Items(name) {
			table.Append(
				name.String(),
				fmt.Sprintf("%d", i),
				truncate(it.Tag.String(), 45),
				truncate(ownerLabel(it), 20),
				fmt.Sprintf("%d", it.WindowID),
				it.Bounds.String(),
			)
		}
	}

	table.Render()
}

// PrintItemsTable prints raw items as reported by the window server,
// ordered by their position on the bar.
func PrintItemsTable(w io.Writer, list []items.Item) {
	table := tablewriter.NewWriter(w)
	table.Header("Window", "Tag", "PID", "Source", "Bounds", "On Screen")

	sorted := append([]items.Item{}, list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bounds.MinX() < sorted[j].Bounds.MinX()
	})

	for _, it := range sorted {
		onScreen := ""
		if it.IsOnScreen {
			onScreen = "yes"
		}
		source := "-"
		if it.SourcePID != 0 {
			source = fmt.Sprintf("%d", it.SourcePID)
		}

		table.Append(
			fmt.Sprintf("%d", it.WindowID),
			truncate(it.Tag.String(), 45),
			fmt.Sprintf("%d", it.OwnerPID),
			source,
			it.Bounds.String(),
			onScreen,
		)
	}

	table.Render()
}

// PrintItemDetail prints everything known about a single item
func PrintItemDetail(w io.Writer, it items.Item, name section.Name, cached bool) {
	fmt.Fprintf(w, "Tag: %s\n", it.Tag)
	fmt.Fprintf(w, "Window ID: %d\n", it.WindowID)
	fmt.Fprintf(w, "Owner: %s (PID: %d)\n", ownerLabel(it), it.OwnerPID)
	if it.SourcePID != 0 {
		fmt.Fprintf(w, "Source PID: %d\n", it.SourcePID)
	}
	if it.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", it.Title)
	}
	fmt.Fprintf(w, "Bounds: %s\n", it.Bounds)
	if cached {
		fmt.Fprintf(w, "Section: %s\n", name)
	} else {
		fmt.Fprintf(w, "Section: -\n")
	}
	fmt.Fprintf(w, "Movable: %v\n", it.IsMovable())
	fmt.Fprintf(w, "Can Be Hidden: %v\n", it.CanBeHidden())
}

// Helper functions

func ownerLabel(it items.Item) string {
	if it.OwnerName != "" {
		return it.OwnerName
	}
	if it.Tag.Namespace != "" {
		return it.Tag.Namespace
	}
	return "-"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// padCenter centers s in width columns, truncating when it does not fit.
func padCenter(s string, width int) string {
	s = truncate(s, width)
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
