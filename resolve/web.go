package resolve

import (
	"github.com/hazyhaar/pinmark/anchor"
	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/target"
)

// webRegion converts stored absolute document-pixel coordinates into
// wrapper-relative coordinates: subtract the wrapper's current screen
// offset, then divide by the live zoom read from the wrapper's transform.
// Only document-relative boxes can be honored here; an element- or
// page-relative box is measured against a container this path cannot
// locate, and treating it as document-relative would yield a confidently
// wrong rect.
func webRegion(r *target.Region, v WebView) (geom.Rect, bool) {
	if r.Unit != target.UnitDocumentPx {
		return geom.Rect{}, false
	}
	if r.Relative != target.RelDocument {
		return geom.Rect{}, false
	}
	if v.Wrapper == nil {
		// Embedding not yet mounted.
		return geom.Rect{}, false
	}
	zoom, ok := parseScale(v.Transform)
	if !ok {
		return geom.Rect{}, false
	}

	return geom.Rect{
		X: (r.Box.X - v.Wrapper.X) / zoom,
		Y: (r.Box.Y - v.Wrapper.Y) / zoom,
		W: r.Box.W / zoom,
		H: r.Box.H / zoom,
	}, true
}

// webElement re-anchors the element in the current document, measures its
// live page-coordinate box, and converts it like a region. Without live
// measurement (or when the anchor is gone) the stored fallback region is
// used instead; with neither, the target is unresolvable.
func webElement(el *target.Element, v WebView) (geom.Rect, bool) {
	if v.Doc != nil && v.ElementBox != nil {
		if n := anchor.ResolveElement(v.Doc, el); n != nil {
			if box, ok := v.ElementBox(n); ok {
				return webRegion(&target.Region{
					Box:      box,
					Unit:     target.UnitDocumentPx,
					Relative: target.RelDocument,
				}, v)
			}
		}
	}

	if el.Fallback != nil {
		return webRegion(el.Fallback, v)
	}
	return geom.Rect{}, false
}

// webText re-runs the quote search against the current document, measures
// the range's page-coordinate box, rescales it from the current scrollable
// size into the captured design space, and converts design→screen through
// the mapper.
func webText(t *target.Text, v WebView, m *geom.Mapper) (geom.Rect, bool) {
	if v.Doc == nil || v.RangeBox == nil {
		return geom.Rect{}, false
	}
	match := anchor.ResolveText(v.Doc, t)
	if match == nil {
		return geom.Rect{}, false
	}
	box, ok := v.RangeBox(match.Node, match.Start, match.End)
	if !ok {
		return geom.Rect{}, false
	}

	state := m.State()
	if v.ScrollSize.Width <= 0 || v.ScrollSize.Height <= 0 {
		return geom.Rect{}, false
	}
	design := geom.Rect{
		X: box.X * state.Design.Width / v.ScrollSize.Width,
		Y: box.Y * state.Design.Height / v.ScrollSize.Height,
		W: box.W * state.Design.Width / v.ScrollSize.Width,
		H: box.H * state.Design.Height / v.ScrollSize.Height,
	}
	return state.DesignToScreen(design), true
}
