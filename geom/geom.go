// Package geom provides the coordinate algebra shared by the annotation
// pipeline. Three spaces exist:
//
//   - normalized: 0–1, independent of content size
//   - design:     the content's native pixel space (full image or full
//     scrollable document size)
//   - screen:     what the viewer currently sees, after zoom and scroll
//
// A rect's numeric fields are only meaningful together with its space;
// never combine rects of different spaces without an explicit transform.
package geom

import "math"

// Space tags which coordinate system a Rect or Point lives in.
type Space string

const (
	SpaceNormalized Space = "normalized"
	SpaceDesign     Space = "design"
	SpaceScreen     Space = "screen"
)

// Point is a location in some coordinate space. The space is contextual.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in some coordinate space.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box in some coordinate space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Origin returns the rect's top-left corner.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Translate returns the rect shifted by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Scale returns the rect with all four fields multiplied by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, W: r.W * f, H: r.H * f}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
