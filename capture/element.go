package capture

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/anchor"
	"github.com/hazyhaar/pinmark/idgen"
	"github.com/hazyhaar/pinmark/target"
)

var snippetPolicy = bluemonday.UGCPolicy()

// describeNode builds the full element descriptor for a node in the
// captured snapshot: stable ID (injected here, into the snapshot only —
// the live document is never touched), CSS selector + nth, XPath, and an
// attribute map. Snippet and preview are display aids added per Options.
func (f *Factory) describeNode(n *html.Node) (*target.Element, error) {
	if n == nil || n.Type != html.ElementNode {
		return nil, fmt.Errorf("capture: describe: not an element node")
	}

	el := &target.Element{
		StableID: InjectStableID(n),
		XPath:    anchor.NodeXPath(n),
		Attrs:    collectAttrs(n),
	}
	el.CSS, el.Nth = selectorFor(n)

	if *f.opts.Snippets {
		el.Snippet = snippetPolicy.Sanitize(renderNode(n))
	}
	if f.opts.Previews {
		md, err := f.mdConverter.ConvertString(renderNode(n))
		if err != nil {
			f.opts.Logger.Warn("capture: markdown preview failed", "error", err)
		} else {
			el.Preview = strings.TrimSpace(md)
		}
	}
	return el, nil
}

// InjectStableID ensures the node carries the stable-ID attribute and
// returns its value. An existing ID is reused so repeated captures of the
// same element converge on one identifier.
func InjectStableID(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == anchor.StableIDAttr {
			return a.Val
		}
	}
	id := idgen.New()
	n.Attr = append(n.Attr, html.Attribute{Key: anchor.StableIDAttr, Val: id})
	return id
}

// selectorFor builds a CSS path for the node and the node's index among
// the elements that path matches, so "selector + nth" round-trips even
// when the path alone is ambiguous.
func selectorFor(n *html.Node) (string, int) {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		step := cur.Data
		if id := attrVal(cur, "id"); id != "" && validCSSIdent(id) {
			parts = append(parts, step+"#"+id)
			break
		}
		if cls := firstClass(cur); cls != "" {
			step += "." + cls
		}
		parts = append(parts, step)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	selector := strings.Join(parts, " > ")

	nth := 0
	if sel, err := cascadia.Parse(selector); err == nil {
		for i, m := range cascadia.QueryAll(rootOf(n), sel) {
			if m == n {
				nth = i
				break
			}
		}
	}
	return selector, nth
}

// collectAttrs keeps the attributes worth matching on later: identity and
// data attributes, not presentation.
func collectAttrs(n *html.Node) map[string]string {
	attrs := make(map[string]string)
	for _, a := range n.Attr {
		switch {
		case a.Key == "id", a.Key == "name", a.Key == "href", a.Key == "src",
			a.Key == "role", a.Key == "title":
			if a.Val != "" {
				attrs[a.Key] = a.Val
			}
		case strings.HasPrefix(a.Key, "data-") && a.Key != anchor.StableIDAttr:
			if a.Val != "" {
				attrs[a.Key] = a.Val
			}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func rootOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstClass(n *html.Node) string {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if validCSSIdent(c) {
			return c
		}
	}
	return ""
}

// validCSSIdent accepts the identifier characters safe to splice into a
// selector without escaping.
func validCSSIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
