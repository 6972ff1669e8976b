package livedom

import (
	"context"
	"time"

	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/viewtrack"
)

// pageMetricsJS reads everything a viewport update needs in one eval.
const pageMetricsJS = `() => ({
	vw: window.innerWidth, vh: window.innerHeight,
	sx: window.scrollX, sy: window.scrollY,
	dw: document.documentElement.scrollWidth,
	dh: document.documentElement.scrollHeight,
	zoom: window.devicePixelRatio
})`

type pageMetrics struct {
	viewport geom.Size
	scroll   geom.Point
	design   geom.Size
	zoom     float64
}

func (p *Page) metrics(ctx context.Context) (pageMetrics, error) {
	res, err := p.p.Context(ctx).Eval(pageMetricsJS)
	if err != nil {
		return pageMetrics{}, err
	}
	v := res.Value
	return pageMetrics{
		viewport: geom.Size{Width: v.Get("vw").Num(), Height: v.Get("vh").Num()},
		scroll:   geom.Point{X: v.Get("sx").Num(), Y: v.Get("sy").Num()},
		design:   geom.Size{Width: v.Get("dw").Num(), Height: v.Get("dh").Num()},
		zoom:     v.Get("zoom").Num(),
	}, nil
}

// ObserveInto polls the page's viewport metrics and feeds changes to the
// tracker as resize/scroll/zoom events until ctx is cancelled. The tracker
// debounces; this loop only detects.
func (p *Page) ObserveInto(ctx context.Context, tracker *viewtrack.Tracker, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var prev pageMetrics
	havePrev := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur, err := p.metrics(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Debug("livedom: metrics poll failed", "error", err)
				continue
			}
			if !havePrev {
				prev = cur
				havePrev = true
				tracker.Observe(viewtrack.Event{
					Kind:     viewtrack.EventResize,
					Viewport: &cur.viewport,
					Design:   &cur.design,
					Scroll:   &cur.scroll,
					Zoom:     &cur.zoom,
				})
				continue
			}

			if cur.viewport != prev.viewport || cur.design != prev.design {
				tracker.Observe(viewtrack.Event{
					Kind:     viewtrack.EventResize,
					Viewport: &cur.viewport,
					Design:   &cur.design,
				})
			}
			if cur.scroll != prev.scroll {
				tracker.Observe(viewtrack.Event{Kind: viewtrack.EventScroll, Scroll: &cur.scroll})
			}
			if cur.zoom != prev.zoom {
				tracker.Observe(viewtrack.Event{Kind: viewtrack.EventZoom, Zoom: &cur.zoom})
			}
			prev = cur
		}
	}
}
