package types

import "fmt"

// Rect represents pixel bounds on screen in global coordinates
// (origin at the top-left of the main display).
type Rect struct {
	X      float64 `json:"x"`      // Left edge
	Y      float64 `json:"y"`      // Top edge
	Width  float64 `json:"width"`  // Width in pixels
	Height float64 `json:"height"` // Height in pixels
}

// Point represents a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MinX returns the left edge
func (r Rect) MinX() float64 { return r.X }

// MaxX returns the right edge
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MidX returns the horizontal center
func (r Rect) MidX() float64 { return r.X + r.Width/2 }

// MinY returns the top edge
func (r Rect) MinY() float64 { return r.Y }

// MaxY returns the bottom edge
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// MidY returns the vertical center
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// IsEmpty reports whether the rect has no area
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the center point of a Rect
func (r Rect) Center() Point {
	return Point{
		X: r.MidX(),
		Y: r.MidY(),
	}
}

// Contains checks if a point is inside the rect
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() &&
		p.Y >= r.Y && p.Y <= r.MaxY()
}

// Intersects reports whether two rects overlap with a non-zero area
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.MaxX() && other.X < r.MaxX() &&
		r.Y < other.MaxY() && other.Y < r.MaxY()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.0f,%.0f %.0fx%.0f)", r.X, r.Y, r.Width, r.Height)
}

// Side says which side of an anchor an item should end up on
type Side int

const (
	LeftOf Side = iota
	RightOf
)

// String returns the string representation of a Side
func (s Side) String() string {
	switch s {
	case LeftOf:
		return "leftOf"
	case RightOf:
		return "rightOf"
	default:
		return "unknown"
	}
}

// ParseSide converts a string to Side
func ParseSide(s string) (Side, bool) {
	switch s {
	case "leftOf", "left-of", "left":
		return LeftOf, true
	case "rightOf", "right-of", "right":
		return RightOf, true
	default:
		return 0, false
	}
}
