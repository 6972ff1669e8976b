package anchor

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// NodeXPath builds an absolute XPath for an element, with a positional
// predicate on every step ("/html/body/div[2]/p[1]"). The produced
// expression is within the subset evalXPath understands, so a path built
// at capture time resolves against an unchanged tree.
func NodeXPath(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}

	var steps []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		steps = append(steps, fmt.Sprintf("%s[%d]", cur.Data, siblingIndex(cur)))
	}

	// Reverse: steps were collected leaf-first.
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}

// siblingIndex is the node's 1-based position among same-tag siblings.
func siblingIndex(n *html.Node) int {
	if n.Parent == nil {
		return 1
	}
	pos := 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			pos++
			if s == n {
				return pos
			}
		}
	}
	return 1
}
