package livedom

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/anchor"
	"github.com/hazyhaar/pinmark/geom"
	"github.com/hazyhaar/pinmark/resolve"
)

// selectorBox measures one element's box in page coordinates
// (scroll-inclusive). ok=false when the selector matches nothing.
const selectorBoxJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return {ok: false};
	const b = el.getBoundingClientRect();
	return {ok: true,
		x: b.x + window.scrollX, y: b.y + window.scrollY,
		w: b.width, h: b.height,
		transform: getComputedStyle(el).transform};
}`

type elementProbe struct {
	ok        bool
	box       geom.Rect
	transform string
}

func (p *Page) probeSelector(ctx context.Context, sel string) (elementProbe, error) {
	res, err := p.p.Context(ctx).Eval(selectorBoxJS, sel)
	if err != nil {
		return elementProbe{}, fmt.Errorf("livedom: probe %q: %w", sel, err)
	}
	v := res.Value
	if !v.Get("ok").Bool() {
		return elementProbe{}, nil
	}
	return elementProbe{
		ok: true,
		box: geom.Rect{
			X: v.Get("x").Num(), Y: v.Get("y").Num(),
			W: v.Get("w").Num(), H: v.Get("h").Num(),
		},
		transform: v.Get("transform").Str(),
	}, nil
}

// GatherWebView snapshots everything web-target resolution needs: the
// wrapper's page box and transform, the document's scrollable size, the
// parsed DOM, and measurement callbacks bound to this page.
func (p *Page) GatherWebView(ctx context.Context, wrapperSelector string) (resolve.WebView, error) {
	v := resolve.WebView{
		ElementBox: p.elementBox(ctx),
		RangeBox:   p.rangeBox(ctx),
	}

	probe, err := p.probeSelector(ctx, wrapperSelector)
	if err != nil {
		return v, err
	}
	if probe.ok {
		box := probe.box
		v.Wrapper = &box
		v.Transform = probe.transform
	}

	res, err := p.p.Context(ctx).Eval(`() => {
		const d = document.documentElement;
		return {w: d.scrollWidth, h: d.scrollHeight};
	}`)
	if err != nil {
		return v, fmt.Errorf("livedom: scroll size: %w", err)
	}
	v.ScrollSize = geom.Size{
		Width:  res.Value.Get("w").Num(),
		Height: res.Value.Get("h").Num(),
	}

	doc, err := p.DOM(ctx)
	if err != nil {
		return v, err
	}
	v.Doc = doc
	return v, nil
}

// elementBox returns a callback that re-locates a tree node in the live
// page by its positional XPath and measures it in page coordinates.
func (p *Page) elementBox(ctx context.Context) func(*html.Node) (geom.Rect, bool) {
	return func(n *html.Node) (geom.Rect, bool) {
		xp := anchor.NodeXPath(n)
		if xp == "" {
			return geom.Rect{}, false
		}
		res, err := p.p.Context(ctx).Eval(`(xp) => {
			const el = document.evaluate(xp, document, null,
				XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
			if (!el || !el.getBoundingClientRect) return {ok: false};
			const b = el.getBoundingClientRect();
			return {ok: true,
				x: b.x + window.scrollX, y: b.y + window.scrollY,
				w: b.width, h: b.height};
		}`, xp)
		if err != nil {
			p.log.Debug("livedom: element measure failed", "xpath", xp, "error", err)
			return geom.Rect{}, false
		}
		v := res.Value
		if !v.Get("ok").Bool() {
			return geom.Rect{}, false
		}
		return geom.Rect{
			X: v.Get("x").Num(), Y: v.Get("y").Num(),
			W: v.Get("w").Num(), H: v.Get("h").Num(),
		}, true
	}
}

// rangeBox returns a callback measuring a character range inside a text
// node. The text node is addressed by its parent element's XPath plus the
// node's index among the parent's text children.
func (p *Page) rangeBox(ctx context.Context) func(*html.Node, int, int) (geom.Rect, bool) {
	return func(n *html.Node, start, end int) (geom.Rect, bool) {
		if n.Type != html.TextNode || n.Parent == nil {
			return geom.Rect{}, false
		}
		xp := anchor.NodeXPath(n.Parent)
		if xp == "" {
			return geom.Rect{}, false
		}
		idx := textChildIndex(n)

		res, err := p.p.Context(ctx).Eval(`(xp, ti, start, end) => {
			const el = document.evaluate(xp, document, null,
				XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
			if (!el) return {ok: false};
			let i = -1, node = null;
			for (const c of el.childNodes) {
				if (c.nodeType === Node.TEXT_NODE && ++i === ti) { node = c; break; }
			}
			if (!node) return {ok: false};
			const r = document.createRange();
			r.setStart(node, Math.min(start, node.length));
			r.setEnd(node, Math.min(end, node.length));
			const b = r.getBoundingClientRect();
			return {ok: true,
				x: b.x + window.scrollX, y: b.y + window.scrollY,
				w: b.width, h: b.height};
		}`, xp, idx, start, end)
		if err != nil {
			p.log.Debug("livedom: range measure failed", "xpath", xp, "error", err)
			return geom.Rect{}, false
		}
		v := res.Value
		if !v.Get("ok").Bool() {
			return geom.Rect{}, false
		}
		return geom.Rect{
			X: v.Get("x").Num(), Y: v.Get("y").Num(),
			W: v.Get("w").Num(), H: v.Get("h").Num(),
		}, true
	}
}

// textChildIndex counts text-node siblings preceding n under its parent.
func textChildIndex(n *html.Node) int {
	idx := 0
	for s := n.Parent.FirstChild; s != nil && s != n; s = s.NextSibling {
		if s.Type == html.TextNode {
			idx++
		}
	}
	return idx
}

// GatherImageView snapshots static-content geometry: the container's box
// and scroll, and the first matching rendering-element candidate relative
// to the container. design and pageIndex come from content metadata.
func (p *Page) GatherImageView(ctx context.Context, containerSelector string, candidates []string, design geom.Size, pageIndex int) (resolve.ImageView, error) {
	v := resolve.ImageView{Design: design, PageIndex: pageIndex}

	container, err := p.probeSelector(ctx, containerSelector)
	if err != nil {
		return v, err
	}
	if !container.ok {
		return v, fmt.Errorf("livedom: container %q not found", containerSelector)
	}
	v.Container = container.box

	res, err := p.p.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? {x: el.scrollLeft, y: el.scrollTop} : {x: 0, y: 0};
	}`, containerSelector)
	if err != nil {
		return v, fmt.Errorf("livedom: container scroll: %w", err)
	}
	v.Scroll = geom.Point{X: res.Value.Get("x").Num(), Y: res.Value.Get("y").Num()}

	for _, sel := range candidates {
		probe, err := p.probeSelector(ctx, sel)
		if err != nil {
			return v, err
		}
		if probe.ok {
			rendered := geom.Rect{
				X: probe.box.X - container.box.X,
				Y: probe.box.Y - container.box.Y,
				W: probe.box.W,
				H: probe.box.H,
			}
			v.Rendered = &rendered
			break
		}
	}
	return v, nil
}

// GatherVideoView snapshots the player's timeline box and the video's
// duration. Duration stays 0 while metadata is loading; resolution treats
// that as not-yet-resolvable.
func (p *Page) GatherVideoView(ctx context.Context, videoSelector, timelineSelector string) (resolve.VideoView, error) {
	var v resolve.VideoView

	timeline, err := p.probeSelector(ctx, timelineSelector)
	if err != nil {
		return v, err
	}
	if timeline.ok {
		box := timeline.box
		v.Timeline = &box
	}

	res, err := p.p.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el && isFinite(el.duration) ? el.duration : 0;
	}`, videoSelector)
	if err != nil {
		return v, fmt.Errorf("livedom: video duration: %w", err)
	}
	v.Duration = res.Value.Num()
	return v, nil
}
