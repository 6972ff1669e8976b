package resolve

import (
	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/target"
)

// imageRegion maps a normalized region onto the rendering element, in
// container-relative screen pixels. When the rendering element has not
// been located, the container's own box stands in, letterbox-corrected
// against the design aspect ratio.
func imageRegion(r *target.Region, v ImageView) (geom.Rect, bool) {
	if r.Unit != target.UnitNormalized {
		// Document-pixel regions belong to web content.
		return geom.Rect{}, false
	}
	if r.PageIndex != nil && *r.PageIndex != v.PageIndex {
		// Annotation lives on a page this view is not showing.
		return geom.Rect{}, false
	}

	frame, ok := renderedFrame(v)
	if !ok {
		return geom.Rect{}, false
	}

	out := geom.Rect{
		X: frame.X + r.Box.X*frame.W + v.Scroll.X,
		Y: frame.Y + r.Box.Y*frame.H + v.Scroll.Y,
		W: r.Box.W * frame.W,
		H: r.Box.H * frame.H,
	}
	return out, true
}

// renderedFrame is the box normalized coordinates project onto: the
// rendering element when found, otherwise the design box aspect-fitted
// and centered inside the container.
func renderedFrame(v ImageView) (geom.Rect, bool) {
	if v.Rendered != nil {
		return *v.Rendered, true
	}
	if v.Container.W <= 0 || v.Container.H <= 0 || v.Design.Width <= 0 || v.Design.Height <= 0 {
		return geom.Rect{}, false
	}

	scale := v.Container.W / v.Design.Width
	if s := v.Container.H / v.Design.Height; s < scale {
		scale = s
	}
	w := v.Design.Width * scale
	h := v.Design.Height * scale
	return geom.Rect{
		X: (v.Container.W - w) / 2,
		Y: (v.Container.H - h) / 2,
		W: w,
		H: h,
	}, true
}
