package resolve

import (
	"errors"
	"math"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/target"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func approxRect(a, b geom.Rect) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.W, b.W) && approx(a.H, b.H)
}

func normRegion(box geom.Rect) *target.Target {
	return &target.Target{
		Mode: target.ModeRegion,
		Region: &target.Region{
			Box:      box,
			Unit:     target.UnitNormalized,
			Relative: target.RelDocument,
		},
	}
}

func docRegion(box geom.Rect) *target.Target {
	return &target.Target{
		Mode: target.ModeRegion,
		Region: &target.Region{
			Box:      box,
			Unit:     target.UnitDocumentPx,
			Relative: target.RelDocument,
		},
	}
}

func TestImageRegionOnRenderedElement(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1000, Height: 800}})
	v := ImageView{
		Container: geom.Rect{X: 0, Y: 0, W: 900, H: 700},
		Scroll:    geom.Point{X: 10, Y: 20},
		Rendered:  &geom.Rect{X: 50, Y: 30, W: 500, H: 400},
		Design:    geom.Size{Width: 1000, Height: 800},
	}

	r, ok, err := ScreenRect(normRegion(geom.Rect{X: 0.5, Y: 0.375, W: 0.1, H: 0.05}), v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := geom.Rect{X: 50 + 250 + 10, Y: 30 + 150 + 20, W: 50, H: 20}
	if !approxRect(r, want) {
		t.Errorf("got %+v, want %+v", r, want)
	}
}

func TestImageRegionLetterboxFallback(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1000, Height: 800}})
	// Container is wider than the design aspect: height constrains, the
	// fitted frame is centered horizontally.
	v := ImageView{
		Container: geom.Rect{W: 1000, H: 400},
		Design:    geom.Size{Width: 1000, Height: 800},
	}

	r, ok, err := ScreenRect(normRegion(geom.Rect{X: 0, Y: 0, W: 1, H: 1}), v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	// scale = min(1000/1000, 400/800) = 0.5 → frame 500x400 at x=250.
	want := geom.Rect{X: 250, Y: 0, W: 500, H: 400}
	if !approxRect(r, want) {
		t.Errorf("got %+v, want %+v", r, want)
	}
}

func TestImageRegionWrongPageUnresolvable(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 100, Height: 100}})
	page := 2
	tgt := normRegion(geom.Rect{X: 0.5, Y: 0.5})
	tgt.Region.Relative = target.RelPage
	tgt.Region.PageIndex = &page

	v := ImageView{
		Container: geom.Rect{W: 100, H: 100},
		Rendered:  &geom.Rect{W: 100, H: 100},
		Design:    geom.Size{Width: 100, Height: 100},
		PageIndex: 1,
	}
	if _, ok, err := ScreenRect(tgt, v, m); err != nil || ok {
		t.Errorf("annotation on page 2 resolved against page 1 (ok=%v err=%v)", ok, err)
	}
}

// Captured document size 1440x5000, live zoom 0.8: a captured rect
// {100,4800,200,50} resolves to wrapper-relative
// {(100−wx)/0.8, (4800−wy)/0.8, 250, 62.5}.
func TestWebRegionScenario(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 0.8, Design: geom.Size{Width: 1440, Height: 5000}})
	v := WebView{
		Wrapper:    &geom.Rect{X: 40, Y: 16, W: 1152, H: 4800},
		Transform:  "matrix(0.8, 0, 0, 0.8, 0, 0)",
		ScrollSize: geom.Size{Width: 1440, Height: 6000},
	}

	r, ok, err := ScreenRect(docRegion(geom.Rect{X: 100, Y: 4800, W: 200, H: 50}), v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := geom.Rect{X: (100 - 40) / 0.8, Y: (4800 - 16) / 0.8, W: 250, H: 62.5}
	if !approxRect(r, want) {
		t.Errorf("got %+v, want %+v", r, want)
	}
}

func TestWebRegionRefusesNonDocumentRelativity(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 100, Height: 100}})
	v := WebView{Wrapper: &geom.Rect{}, Transform: "none"}

	tgt := docRegion(geom.Rect{X: 10, Y: 10, W: 5, H: 5})
	tgt.Region.Relative = target.RelElement

	// An element-relative box is measured against a container this view
	// cannot locate; resolving it document-relative would be silently wrong.
	if _, ok, err := ScreenRect(tgt, v, m); err != nil || ok {
		t.Errorf("element-relative box resolved document-relative (ok=%v err=%v)", ok, err)
	}
}

func TestWebRegionUnmountedWrapper(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 100, Height: 100}})
	v := WebView{Wrapper: nil}

	if _, ok, err := ScreenRect(docRegion(geom.Rect{X: 1, Y: 1}), v, m); err != nil || ok {
		t.Errorf("unmounted wrapper resolved (ok=%v err=%v)", ok, err)
	}
}

func TestWebRegionUnreadableTransform(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 100, Height: 100}})
	v := WebView{Wrapper: &geom.Rect{}, Transform: "rotate(45deg)"}

	if _, ok, err := ScreenRect(docRegion(geom.Rect{X: 1, Y: 1}), v, m); err != nil || ok {
		t.Errorf("unreadable transform resolved (ok=%v err=%v)", ok, err)
	}
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestWebElementLiveMeasurement(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1440, Height: 5000}})
	doc := parse(t, `<html><body><div data-stable-id="sid-9">hello</div></body></html>`)

	v := WebView{
		Wrapper:    &geom.Rect{X: 10, Y: 10},
		Transform:  "scale(2)",
		Doc:        doc,
		ScrollSize: geom.Size{Width: 1440, Height: 5000},
		ElementBox: func(n *html.Node) (geom.Rect, bool) {
			return geom.Rect{X: 110, Y: 210, W: 50, H: 40}, true
		},
	}
	tgt := &target.Target{Mode: target.ModeElement, Element: &target.Element{StableID: "sid-9"}}

	r, ok, err := ScreenRect(tgt, v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := geom.Rect{X: 50, Y: 100, W: 25, H: 20}
	if !approxRect(r, want) {
		t.Errorf("got %+v, want %+v", r, want)
	}
}

func TestWebElementFallsBackToStoredRegion(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1440, Height: 5000}})
	doc := parse(t, `<html><body><p>anchor is gone</p></body></html>`)

	tgt := &target.Target{Mode: target.ModeElement, Element: &target.Element{
		StableID: "sid-gone",
		Fallback: &target.Region{
			Box:      geom.Rect{X: 100, Y: 200, W: 80, H: 40},
			Unit:     target.UnitDocumentPx,
			Relative: target.RelDocument,
		},
	}}
	v := WebView{
		Wrapper:    &geom.Rect{X: 0, Y: 0},
		Transform:  "none",
		Doc:        doc,
		ElementBox: func(n *html.Node) (geom.Rect, bool) { return geom.Rect{}, false },
	}

	r, ok, err := ScreenRect(tgt, v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !approxRect(r, geom.Rect{X: 100, Y: 200, W: 80, H: 40}) {
		t.Errorf("fallback region not used: %+v", r)
	}
}

func TestWebElementNoAnchorNoFallback(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 100, Height: 100}})
	doc := parse(t, `<html><body></body></html>`)

	tgt := &target.Target{Mode: target.ModeElement, Element: &target.Element{CSS: "section.gone"}}
	v := WebView{Wrapper: &geom.Rect{}, Transform: "none", Doc: doc}

	if _, ok, err := ScreenRect(tgt, v, m); err != nil || ok {
		t.Errorf("expected unresolvable, got ok=%v err=%v", ok, err)
	}
}

func TestWebTextRescalesGrownDocument(t *testing.T) {
	// Captured at 1440x5000; document has since grown to 1440x6000.
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1440, Height: 5000}})
	doc := parse(t, `<html><body><p>find this quote here</p></body></html>`)

	v := WebView{
		Wrapper:    &geom.Rect{},
		Transform:  "none",
		Doc:        doc,
		ScrollSize: geom.Size{Width: 1440, Height: 6000},
		RangeBox: func(n *html.Node, start, end int) (geom.Rect, bool) {
			return geom.Rect{X: 144, Y: 3000, W: 288, H: 24}, true
		},
	}
	tgt := &target.Target{Mode: target.ModeText, Text: &target.Text{Quote: "this quote"}}

	r, ok, err := ScreenRect(tgt, v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	// Y shrinks by 5000/6000; X/W unchanged (width ratio 1); zoom 1, no scroll.
	want := geom.Rect{X: 144, Y: 2500, W: 288, H: 20}
	if !approxRect(r, want) {
		t.Errorf("got %+v, want %+v", r, want)
	}
}

func TestWebTextQuoteGone(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 100, Height: 100}})
	doc := parse(t, `<html><body><p>other text</p></body></html>`)
	v := WebView{
		Wrapper: &geom.Rect{}, Transform: "none", Doc: doc,
		ScrollSize: geom.Size{Width: 100, Height: 100},
		RangeBox:   func(n *html.Node, start, end int) (geom.Rect, bool) { return geom.Rect{}, true },
	}
	tgt := &target.Target{Mode: target.ModeText, Text: &target.Text{Quote: "vanished"}}

	if _, ok, err := ScreenRect(tgt, v, m); err != nil || ok {
		t.Errorf("expected unresolvable, got ok=%v err=%v", ok, err)
	}
}

func TestVideoMarker(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1, Height: 1}})
	v := VideoView{Timeline: &geom.Rect{X: 100, Y: 500, W: 600, H: 8}, Duration: 200}
	tgt := &target.Target{Mode: target.ModeTimestamp, Timestamp: &target.Timestamp{Seconds: 50}}

	r, ok, err := ScreenRect(tgt, v, m)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := geom.Rect{X: 250, Y: 500, W: 0, H: 8}
	if !approxRect(r, want) {
		t.Errorf("got %+v, want %+v", r, want)
	}
}

func TestVideoMarkerWithoutMetadata(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1, Height: 1}})
	tgt := &target.Target{Mode: target.ModeTimestamp, Timestamp: &target.Timestamp{Seconds: 5}}

	if _, ok, _ := ScreenRect(tgt, VideoView{Timeline: &geom.Rect{W: 100}}, m); ok {
		t.Error("resolved with zero duration")
	}
	if _, ok, _ := ScreenRect(tgt, VideoView{Duration: 100}, m); ok {
		t.Error("resolved without a timeline")
	}
}

func TestViewMismatchIsAnError(t *testing.T) {
	m := geom.NewMapper(geom.ViewportState{Zoom: 1, Design: geom.Size{Width: 1, Height: 1}})
	tgt := &target.Target{Mode: target.ModeTimestamp, Timestamp: &target.Timestamp{Seconds: 5}}

	_, _, err := ScreenRect(tgt, ImageView{}, m)
	if !errors.Is(err, ErrViewMismatch) {
		t.Errorf("got %v, want ErrViewMismatch", err)
	}
}

func TestParseScale(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"", 1, true},
		{"none", 1, true},
		{"matrix(0.8, 0, 0, 0.8, 0, 0)", 0.8, true},
		{"matrix3d(0.5, 0, 0, 0, 0, 0.5, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1)", 0.5, true},
		{"scale(1.25)", 1.25, true},
		{"scale(1.25, 2)", 1.25, true},
		{"rotate(45deg)", 0, false},
		{"matrix(garbage)", 0, false},
		{"matrix(-1, 0, 0, 1, 0, 0)", 0, false},
	}
	for _, c := range cases {
		got, ok := parseScale(c.in)
		if ok != c.ok || (ok && !approx(got, c.want)) {
			t.Errorf("parseScale(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}
