// CLAUDE:SUMMARY Resolves element and text targets against a live DOM tree via a prioritized fallback chain.
// Package anchor maps durable targets back onto a live, possibly-mutated
// HTML document. Element resolution tries strategies in priority order:
//
//  1. Stable ID — an attribute injected into the captured content
//     specifically to survive re-rendering. Immune to content drift.
//  2. CSS selector + nth index — human-fragile under markup changes.
//  3. XPath — same fragility, same non-throwing fallback discipline.
//  4. Attribute map — a last, broad net.
//
// A syntactically invalid selector at any tier is treated as a failed
// attempt at that tier, never an error to the caller. Absence of a match
// is an expected condition and is signalled by a nil result.
package anchor

import (
	"sort"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/target"
)

// StableIDAttr is the attribute injected at capture time and looked up
// first during resolution.
const StableIDAttr = "data-stable-id"

// ResolveElement returns the best-matching live element for an element
// target, or nil when no strategy yields a node. Each strategy is tried
// only if the previous is absent from the target or matched nothing.
func ResolveElement(doc *html.Node, el *target.Element) *html.Node {
	if doc == nil || el == nil {
		return nil
	}

	if el.StableID != "" {
		if n := byAttr(doc, StableIDAttr, el.StableID); n != nil {
			return n
		}
	}

	if el.CSS != "" {
		if n := byCSS(doc, el.CSS, el.Nth); n != nil {
			return n
		}
	}

	if el.XPath != "" {
		if matches := evalXPath(doc, el.XPath); len(matches) > 0 {
			return matches[0]
		}
	}

	if len(el.Attrs) > 0 {
		if n := byAttrMap(doc, el.Attrs); n != nil {
			return n
		}
	}

	return nil
}

// byCSS matches a CSS selector and picks the nth result (0-based).
// Invalid selector syntax falls through by returning nil.
func byCSS(doc *html.Node, selector string, nth int) *html.Node {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil
	}
	matches := cascadia.QueryAll(doc, sel)
	if nth < 0 || nth >= len(matches) {
		return nil
	}
	return matches[nth]
}

// byAttr finds the first element in document order carrying key=value.
func byAttr(doc *html.Node, key, value string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && getAttr(n, key) == value {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// byAttrMap tries each attribute pair in sorted key order; the first pair
// that matches any element wins. Map iteration order is not stable in Go,
// so the keys are sorted to keep resolution deterministic.
func byAttrMap(doc *html.Node, attrs map[string]string) *html.Node {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if n := byAttr(doc, k, attrs[k]); n != nil {
			return n
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
