package geom

import "errors"

// ErrDegenerateViewport is returned by Validate when the viewport cannot
// support coordinate conversions (non-positive zoom or design dimensions).
var ErrDegenerateViewport = errors.New("geom: degenerate viewport state")

// ViewportState is the single snapshot all conversions are computed against.
// Zoom must be positive and finite. Design is the full scrollable content
// size, not the visible window.
type ViewportState struct {
	Zoom     float64 `json:"zoom"`
	Scroll   Point   `json:"scroll"`   // screen px
	Viewport Size    `json:"viewport"` // visible window, screen px
	Design   Size    `json:"design"`   // full content size, design px
}

// Validate reports whether the state can support conversions. The pure
// conversion functions themselves do not guard against a degenerate state:
// dividing by a zero design dimension yields Inf/NaN, exactly as measured.
// Callers that feed states into a long-lived mapper should validate first.
func (s ViewportState) Validate() error {
	if !(s.Zoom > 0) || !finite(s.Zoom) {
		return ErrDegenerateViewport
	}
	if !(s.Design.Width > 0) || !(s.Design.Height > 0) ||
		!finite(s.Design.Width, s.Design.Height) {
		return ErrDegenerateViewport
	}
	if !finite(s.Scroll.X, s.Scroll.Y, s.Viewport.Width, s.Viewport.Height) {
		return ErrDegenerateViewport
	}
	return nil
}

// ViewportUpdate is a partial ViewportState. Nil fields keep their current
// value when merged via Mapper.UpdateViewport.
type ViewportUpdate struct {
	Zoom     *float64
	Scroll   *Point
	Viewport *Size
	Design   *Size
}

// NormalizedToDesign maps a normalized box into design space.
func (s ViewportState) NormalizedToDesign(r Rect) Rect {
	return Rect{
		X: r.X * s.Design.Width,
		Y: r.Y * s.Design.Height,
		W: r.W * s.Design.Width,
		H: r.H * s.Design.Height,
	}
}

// DesignToNormalized maps a design box into normalized space.
func (s ViewportState) DesignToNormalized(r Rect) Rect {
	return Rect{
		X: r.X / s.Design.Width,
		Y: r.Y / s.Design.Height,
		W: r.W / s.Design.Width,
		H: r.H / s.Design.Height,
	}
}

// DesignToScreen maps a design box into screen space:
// screen = design*zoom − scroll per axis; w/h scale by zoom only.
func (s ViewportState) DesignToScreen(r Rect) Rect {
	return Rect{
		X: r.X*s.Zoom - s.Scroll.X,
		Y: r.Y*s.Zoom - s.Scroll.Y,
		W: r.W * s.Zoom,
		H: r.H * s.Zoom,
	}
}

// DesignToScreenPoint maps a single design point into screen space.
func (s ViewportState) DesignToScreenPoint(p Point) Point {
	return Point{X: p.X*s.Zoom - s.Scroll.X, Y: p.Y*s.Zoom - s.Scroll.Y}
}

// ScreenToDesign maps a screen point back into design space:
// design = (screen + scroll) / zoom.
func (s ViewportState) ScreenToDesign(p Point) Point {
	return Point{
		X: (p.X + s.Scroll.X) / s.Zoom,
		Y: (p.Y + s.Scroll.Y) / s.Zoom,
	}
}

// ScreenToDesignRect maps a screen box into design space. The origin gets
// the scroll/zoom inverse; w/h are unscaled by zoom only.
func (s ViewportState) ScreenToDesignRect(r Rect) Rect {
	o := s.ScreenToDesign(Point{X: r.X, Y: r.Y})
	return Rect{X: o.X, Y: o.Y, W: r.W / s.Zoom, H: r.H / s.Zoom}
}

// ScreenToNormalized maps a screen point into normalized space.
func (s ViewportState) ScreenToNormalized(p Point) Point {
	d := s.ScreenToDesign(p)
	return Point{X: d.X / s.Design.Width, Y: d.Y / s.Design.Height}
}
