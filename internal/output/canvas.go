package output

import (
	"strings"
)

// BoxStyle defines the character set for drawing boxes
type BoxStyle struct {
	TopLeft     rune
	TopRight    rune
	BottomLeft  rune
	BottomRight rune
	Horizontal  rune
	Vertical    rune
}

var (
	// ASCIIStyle uses simple ASCII characters for box drawing
	ASCIIStyle = BoxStyle{
		TopLeft:     '+',
		TopRight:    '+',
		BottomLeft:  '+',
		BottomRight: '+',
		Horizontal:  '-',
		Vertical:    '|',
	}

	// UnicodeStyle uses Unicode box drawing characters
	UnicodeStyle = BoxStyle{
		TopLeft:     '┌',
		TopRight:    '┐',
		BottomLeft:  '└',
		BottomRight: '┘',
		Horizontal:  '─',
		Vertical:    '│',
	}
)

// Tone tags cells so a renderer can color them. Zero is uncolored.
type Tone int

const (
	ToneNone Tone = iota
	ToneVisible
	ToneHidden
	ToneAlwaysHidden
	ToneControl
)

type cell struct {
	r    rune
	tone Tone
}

// Canvas is a 2D character buffer where each cell carries a tone
type Canvas struct {
	Width  int
	Height int
	cells  [][]cell
	style  BoxStyle
}

// NewCanvas creates a blank canvas with the specified dimensions
func NewCanvas(width, height int, useUnicode bool) *Canvas {
	cells := make([][]cell, height)
	for i := range cells {
		cells[i] = make([]cell, width)
		for j := range cells[i] {
			cells[i][j] = cell{r: ' '}
		}
	}

	style := ASCIIStyle
	if useUnicode {
		style = UnicodeStyle
	}

	return &Canvas{
		Width:  width,
		Height: height,
		cells:  cells,
		style:  style,
	}
}

// Set sets a character at the specified position; out of range is ignored
func (c *Canvas) Set(x, y int, r rune, tone Tone) {
	if x >= 0 && x < c.Width && y >= 0 && y < c.Height {
		c.cells[y][x] = cell{r: r, tone: tone}
	}
}

// Get returns the character at the specified position
func (c *Canvas) Get(x, y int) rune {
	if x >= 0 && x < c.Width && y >= 0 && y < c.Height {
		return c.cells[y][x].r
	}
	return ' '
}

// DrawBox draws a box outline
func (c *Canvas) DrawBox(x, y, width, height int, tone Tone) {
	if width < 2 || height < 2 {
		return
	}

	c.Set(x, y, c.style.TopLeft, tone)
	c.Set(x+width-1, y, c.style.TopRight, tone)
	c.Set(x, y+height-1, c.style.BottomLeft, tone)
	c.Set(x+width-1, y+height-1, c.style.BottomRight, tone)

	for i := 1; i < width-1; i++ {
		c.Set(x+i, y, c.style.Horizontal, tone)
		c.Set(x+i, y+height-1, c.style.Horizontal, tone)
	}
	for i := 1; i < height-1; i++ {
		c.Set(x, y+i, c.style.Vertical, tone)
		c.Set(x+width-1, y+i, c.style.Vertical, tone)
	}
}

// DrawText writes text starting at x
func (c *Canvas) DrawText(x, y int, text string, tone Tone) {
	i := 0
	for _, r := range text {
		c.Set(x+i, y, r, tone)
		i++
	}
}

// DrawTextCentered writes text centered within width columns
func (c *Canvas) DrawTextCentered(x, y, width int, text string, tone Tone) {
	if width <= 0 {
		return
	}
	c.DrawText(x, y, padCenter(text, width), tone)
}

// String renders the canvas without color
func (c *Canvas) String() string {
	return c.Render(nil)
}

// Render renders the canvas, passing each run of same-tone cells through
// paint when it is non-nil. Trailing blanks on each row are dropped.
func (c *Canvas) Render(paint func(Tone, string) string) string {
	var sb strings.Builder
	for y, row := range c.cells {
		end := len(row)
		for end > 0 && row[end-1].r == ' ' {
			end--
		}

		var run strings.Builder
		tone := ToneNone
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if paint != nil && tone != ToneNone {
				sb.WriteString(paint(tone, run.String()))
			} else {
				sb.WriteString(run.String())
			}
			run.Reset()
		}
		for _, cl := range row[:end] {
			if cl.tone != tone {
				flush()
				tone = cl.tone
			}
			run.WriteRune(cl.r)
		}
		flush()

		if y < len(c.cells)-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}
