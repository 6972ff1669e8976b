package anchor

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/pinmark/target"
)

// TextMatch is a resolved text range: the text node holding the quote's
// first character, the quote's offsets within that node's data, and the
// global offset into the document's flattened text.
type TextMatch struct {
	Node      *html.Node
	Start     int // offset within Node.Data
	End       int // offset within Node.Data (may exceed the node for ranges spanning nodes)
	DocOffset int // offset into the flattened document text

	// Ambiguous is set when multiple candidates existed and prefix/suffix
	// failed to single one out; the first occurrence in document order was
	// chosen. Deterministic, not necessarily correct.
	Ambiguous bool
}

// textSpan records where one text node's data sits in the flattened text.
type textSpan struct {
	node  *html.Node
	start int // global offset of node.Data[0]
}

// textIndex flattens all text nodes under the body (script, style and
// noscript excluded) preserving raw node data, so quote offsets map back
// to nodes exactly.
type textIndex struct {
	text  string
	spans []textSpan
}

func buildTextIndex(doc *html.Node) *textIndex {
	root := findBody(doc)
	if root == nil {
		root = doc
	}

	idx := &textIndex{}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && n.Data != "" {
			idx.spans = append(idx.spans, textSpan{node: n, start: sb.Len()})
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	idx.text = sb.String()
	return idx
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// spanAt returns the text span covering global offset off.
func (idx *textIndex) spanAt(off int) *textSpan {
	for i := len(idx.spans) - 1; i >= 0; i-- {
		if idx.spans[i].start <= off {
			return &idx.spans[i]
		}
	}
	return nil
}

// ResolveText finds the text target's quote in the document. Candidates are
// text nodes whose own data contains the quote. With zero candidates the
// result is nil. With several, prefix/suffix narrow the choice: the first
// candidate whose preceding document text ends with the prefix (when
// present) and whose following text starts with the suffix (when present)
// wins. When neither constraint singles one out, the first candidate in
// document order is returned with Ambiguous set.
func ResolveText(doc *html.Node, t *target.Text) *TextMatch {
	if doc == nil || t == nil || t.Quote == "" {
		return nil
	}

	idx := buildTextIndex(doc)

	// Collect candidate occurrences: one per text node containing the
	// quote, at the first occurrence within that node.
	var cands []TextMatch
	for _, sp := range idx.spans {
		rel := strings.Index(sp.node.Data, t.Quote)
		if rel < 0 {
			continue
		}
		cands = append(cands, TextMatch{
			Node:      sp.node,
			Start:     rel,
			End:       rel + len(t.Quote),
			DocOffset: sp.start + rel,
		})
	}

	switch len(cands) {
	case 0:
		return nil
	case 1:
		m := cands[0]
		return &m
	}

	for _, c := range cands {
		if idx.contextMatches(c.DocOffset, len(t.Quote), t.Prefix, t.Suffix) {
			m := c
			return &m
		}
	}

	m := cands[0]
	m.Ambiguous = true
	return &m
}

// contextMatches checks prefix/suffix against the flattened document text
// around an occurrence. Empty constraints always pass.
func (idx *textIndex) contextMatches(off, quoteLen int, prefix, suffix string) bool {
	if prefix != "" && !strings.HasSuffix(idx.text[:off], prefix) {
		return false
	}
	if suffix != "" && !strings.HasPrefix(idx.text[off+quoteLen:], suffix) {
		return false
	}
	return true
}
