// CLAUDE:SUMMARY Maps stored targets to current on-screen rectangles per content kind.
// Package resolve is the read path of the annotation pipeline: given a
// stored target and the current view state, it returns the on-screen
// rectangle to render, or reports that the target cannot currently be
// resolved (content still loading, anchor removed, embedding not mounted).
//
// Unresolvable is an expected condition and is signalled by ok=false.
// Errors are reserved for programmer mistakes: handing a view of one
// content kind a target variant that kind can never carry.
package resolve

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/target"
)

// ErrViewMismatch reports a target variant handed to a view that cannot
// resolve it. Fails loudly: this is a dispatch bug, not missing content.
var ErrViewMismatch = errors.New("resolve: target mode not valid for view")

// View is the current, measured state of one piece of rendered content.
// Implementations are plain measurement structs; livedom gathers them
// from a live page, tests construct them directly.
type View interface {
	isView()
}

// ImageView measures static raster or paginated-document content. All
// rects are in screen pixels; Rendered is relative to the container.
type ImageView struct {
	Container geom.Rect
	Scroll    geom.Point // container scroll offsets
	// Rendered is the rendering element's box relative to the container,
	// nil when no rendering element was found (content still loading).
	Rendered *geom.Rect
	// Design is the content's native size (the page's, for documents).
	Design geom.Size
	// PageIndex is the page this view currently renders (documents only).
	PageIndex int
}

// WebView measures an embedded HTML document and its wrapper.
type WebView struct {
	// Wrapper is the embedding wrapper's current screen box; nil when the
	// embedding is not yet mounted.
	Wrapper *geom.Rect
	// Transform is the wrapper's computed CSS transform; the live zoom
	// scalar is read from it at resolution time.
	Transform string
	// Doc is the embedded document's current DOM tree; nil when the
	// document element cannot be reached.
	Doc *html.Node
	// ScrollSize is the embedded document's current full scrollable size.
	ScrollSize geom.Size

	// ElementBox measures a resolved element's box in document page
	// coordinates (scroll-inclusive). Nil when live measurement is
	// unavailable; element targets then fall back to their stored region.
	ElementBox func(*html.Node) (geom.Rect, bool)
	// RangeBox measures a resolved text range's bounding box in document
	// page coordinates. Nil when live measurement is unavailable.
	RangeBox func(node *html.Node, start, end int) (geom.Rect, bool)
}

// VideoView measures video content's timeline control.
type VideoView struct {
	// Timeline is the timeline track's screen box; nil when the player is
	// not mounted.
	Timeline *geom.Rect
	// Duration of the video in seconds; 0 while metadata is loading.
	Duration float64
}

func (ImageView) isView() {}
func (WebView) isView()   {}
func (VideoView) isView() {}

// ScreenRect resolves a target against a view. The mapper supplies the
// viewport snapshot (and, for web text targets, the captured design size
// that live page coordinates are rescaled against).
func ScreenRect(t *target.Target, view View, m *geom.Mapper) (geom.Rect, bool, error) {
	if err := t.Validate(); err != nil {
		return geom.Rect{}, false, err
	}

	switch v := view.(type) {
	case ImageView:
		if t.Mode != target.ModeRegion {
			return geom.Rect{}, false, fmt.Errorf("%w: %s on image/document view", ErrViewMismatch, t.Mode)
		}
		r, ok := imageRegion(t.Region, v)
		return r, ok, nil

	case WebView:
		switch t.Mode {
		case target.ModeRegion:
			r, ok := webRegion(t.Region, v)
			return r, ok, nil
		case target.ModeElement:
			r, ok := webElement(t.Element, v)
			return r, ok, nil
		case target.ModeText:
			r, ok := webText(t.Text, v, m)
			return r, ok, nil
		default:
			return geom.Rect{}, false, fmt.Errorf("%w: %s on web view", ErrViewMismatch, t.Mode)
		}

	case VideoView:
		if t.Mode != target.ModeTimestamp {
			return geom.Rect{}, false, fmt.Errorf("%w: %s on video view", ErrViewMismatch, t.Mode)
		}
		r, ok := videoMarker(t.Timestamp, v)
		return r, ok, nil

	default:
		return geom.Rect{}, false, fmt.Errorf("resolve: unknown view type %T", view)
	}
}
