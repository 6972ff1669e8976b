// CLAUDE:SUMMARY Turns raw user interactions into durable annotation targets per content kind.
// Package capture is the write path of the annotation pipeline: it turns a
// raw user interaction (click, drag, text selection, timeline click) plus
// the current viewport state into a persistable target.
//
// Static content (images, paginated documents) is normalized at capture
// time because its design size never changes. Embedded HTML keeps raw
// document-pixel coordinates because its rendered geometry is volatile;
// the read path divides by the live scale factor instead of trusting a
// capture-time normalization.
package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/target"
)

// ErrUnsupported is returned when the interaction/annotation-type
// combination is not supported by the content kind. This signals a
// caller-side programming error, not a recoverable condition.
var ErrUnsupported = errors.New("capture: unsupported content kind / annotation type combination")

// TextSelection describes a user text selection in the embedded document.
type TextSelection struct {
	Quote  string `json:"quote"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Interaction is the raw descriptor handed in by the UI layer. Only the
// fields relevant to the content kind and annotation type need be set.
type Interaction struct {
	Point     *geom.Point // screen px
	Rect      *geom.Rect  // screen px
	PageIndex *int
	Timestamp *float64 // seconds

	// Node is the clicked element within the captured document snapshot
	// (web content only). When present, pins and boxes produce an element
	// target with the region kept as fallback.
	Node      *html.Node
	Selection *TextSelection

	// CaptureScroll is the embedded document's scroll offset at capture
	// time (web content only).
	CaptureScroll *geom.Point
}

// Options tunes the factory.
type Options struct {
	// Snippets controls whether element targets carry a sanitized
	// outer-HTML snippet. Default: true.
	Snippets *bool
	// Previews controls whether element targets carry a markdown preview
	// of the anchored block. Default: false.
	Previews bool
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Snippets == nil {
		v := true
		o.Snippets = &v
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Factory builds targets from interactions.
type Factory struct {
	opts        Options
	mdConverter *converter.Converter
}

// New creates a Factory.
func New(opts Options) *Factory {
	opts.defaults()
	return &Factory{
		opts: opts,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// CreateFromInteraction produces a persistable target, or ErrUnsupported
// when the combination makes no sense (e.g. a timestamp on an image). The
// mapper supplies the viewport snapshot the interaction happened under.
func (f *Factory) CreateFromInteraction(kind target.ContentKind, at target.AnnotationType, in Interaction, m *geom.Mapper) (*target.Target, error) {
	if !target.Supports(kind, at) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, kind, at)
	}
	state := m.State()

	var t *target.Target
	var err error
	switch kind {
	case target.KindImage, target.KindDocument:
		t, err = f.staticTarget(kind, at, in, state)
	case target.KindVideo:
		t, err = f.videoTarget(in)
	case target.KindWeb:
		t, err = f.webTarget(at, in, state)
	}
	if err != nil {
		return nil, err
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("capture: built invalid target: %w", err)
	}
	return t, nil
}

// staticTarget normalizes pins and boxes against the design size.
func (f *Factory) staticTarget(kind target.ContentKind, at target.AnnotationType, in Interaction, s geom.ViewportState) (*target.Target, error) {
	rel := target.RelDocument
	if kind == target.KindDocument {
		rel = target.RelPage
	}

	switch at {
	case target.TypePin:
		if in.Point == nil {
			return nil, fmt.Errorf("capture: %s pin requires a point", kind)
		}
		n := s.ScreenToNormalized(*in.Point)
		return &target.Target{
			Mode: target.ModeRegion,
			Region: &target.Region{
				Box:       geom.Rect{X: clamp01(n.X), Y: clamp01(n.Y)},
				Unit:      target.UnitNormalized,
				Relative:  rel,
				PageIndex: in.PageIndex,
			},
		}, nil

	case target.TypeBox:
		if in.Rect == nil {
			return nil, fmt.Errorf("capture: %s box requires a rect", kind)
		}
		o := s.ScreenToDesign(in.Rect.Origin())
		box := geom.Rect{
			X: clamp01(o.X / s.Design.Width),
			Y: clamp01(o.Y / s.Design.Height),
			W: clamp01(in.Rect.W / s.Zoom / s.Design.Width),
			H: clamp01(in.Rect.H / s.Zoom / s.Design.Height),
		}
		return &target.Target{
			Mode: target.ModeRegion,
			Region: &target.Region{
				Box:       box,
				Unit:      target.UnitNormalized,
				Relative:  rel,
				PageIndex: in.PageIndex,
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, kind, at)
}

func (f *Factory) videoTarget(in Interaction) (*target.Target, error) {
	if in.Timestamp == nil {
		return nil, errors.New("capture: video timestamp requires a time offset")
	}
	return &target.Target{
		Mode:      target.ModeTimestamp,
		Timestamp: &target.Timestamp{Seconds: *in.Timestamp},
	}, nil
}

// webTarget stores absolute document-pixel coordinates, optionally wrapped
// in an element descriptor when the clicked node is known.
func (f *Factory) webTarget(at target.AnnotationType, in Interaction, s geom.ViewportState) (*target.Target, error) {
	switch at {
	case target.TypeHighlight:
		if in.Selection == nil {
			return nil, errors.New("capture: highlight requires a text selection")
		}
		txt := &target.Text{
			Quote:  in.Selection.Quote,
			Prefix: in.Selection.Prefix,
			Suffix: in.Selection.Suffix,
		}
		if in.Selection.End > in.Selection.Start {
			start, end := in.Selection.Start, in.Selection.End
			txt.Start, txt.End = &start, &end
		}
		return &target.Target{Mode: target.ModeText, Text: txt}, nil

	case target.TypePin, target.TypeBox:
		region, err := f.webRegion(at, in, s)
		if err != nil {
			return nil, err
		}
		if in.Node == nil {
			return &target.Target{Mode: target.ModeRegion, Region: region}, nil
		}

		el, err := f.describeNode(in.Node)
		if err != nil {
			return nil, err
		}
		el.Fallback = region
		return &target.Target{Mode: target.ModeElement, Element: el}, nil
	}
	return nil, fmt.Errorf("%w: web/%s", ErrUnsupported, at)
}

func (f *Factory) webRegion(at target.AnnotationType, in Interaction, s geom.ViewportState) (*target.Region, error) {
	var box geom.Rect
	switch at {
	case target.TypePin:
		if in.Point == nil {
			return nil, errors.New("capture: web pin requires a point")
		}
		p := s.ScreenToDesign(*in.Point)
		box = geom.Rect{X: p.X, Y: p.Y}
	case target.TypeBox:
		if in.Rect == nil {
			return nil, errors.New("capture: web box requires a rect")
		}
		box = s.ScreenToDesignRect(*in.Rect)
	}
	return &target.Region{
		Box:           box,
		Unit:          target.UnitDocumentPx,
		Relative:      target.RelDocument,
		CaptureScroll: in.CaptureScroll,
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
