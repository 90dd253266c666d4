package output

import (
	"math"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/types"
)

// minBoxWidth is the narrowest box that still shows both edges and a gap
const minBoxWidth = 3

// BarScale maps menu bar x coordinates in points to terminal columns
type BarScale struct {
	// Horizontal extent of the items in points
	MinX, MaxX float64

	// Terminal columns available
	Columns int

	// Columns per point
	Scale float64
}

// NewBarScale fits the horizontal extent of list into columns
func NewBarScale(list []items.Item, columns int) *BarScale {
	if columns < minBoxWidth {
		columns = minBoxWidth
	}
	if len(list) == 0 {
		return &BarScale{Columns: columns, Scale: 1}
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, it := range list {
		minX = math.Min(minX, it.Bounds.MinX())
		maxX = math.Max(maxX, it.Bounds.MaxX())
	}

	scale := 1.0
	if span := maxX - minX; span > 0 {
		scale = float64(columns) / span
	}

	return &BarScale{
		MinX:    minX,
		MaxX:    maxX,
		Columns: columns,
		Scale:   scale,
	}
}

// Column converts an x coordinate to a terminal column
func (bs *BarScale) Column(x float64) int {
	return int(math.Floor((x - bs.MinX) * bs.Scale))
}

// Span returns the first column and width of a box drawn for r, clamped
// to the canvas and never narrower than minBoxWidth.
func (bs *BarScale) Span(r types.Rect) (col, width int) {
	col = bs.Column(r.MinX())
	end := int(math.Ceil((r.MaxX() - bs.MinX) * bs.Scale))
	width = end - col

	if width < minBoxWidth {
		width = minBoxWidth
	}
	if col < 0 {
		col = 0
	}
	if col+width > bs.Columns {
		col = bs.Columns - width
		if col < 0 {
			col, width = 0, bs.Columns
		}
	}
	return col, width
}
