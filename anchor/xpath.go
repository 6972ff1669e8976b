package anchor

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// evalXPath evaluates a practical XPath subset against the tree:
//
//	/html/body/div        absolute child steps
//	//article             descendant-or-self anywhere
//	//div[@class='x']     attribute predicate (with or without value)
//	//div[2]              positional predicate, 1-based among same-tag siblings
//	//section//p          descendant step mid-path
//	*                     wildcard tag
//
// Anything the parser cannot make sense of yields no matches; stored
// expressions come from capture or manual edits and must never take the
// resolver down.
func evalXPath(doc *html.Node, expr string) []*html.Node {
	steps, ok := parseXPath(expr)
	if !ok || len(steps) == 0 {
		return nil
	}

	current := []*html.Node{doc}
	for _, st := range steps {
		var next []*html.Node
		seen := map[*html.Node]bool{}
		for _, n := range current {
			for _, m := range st.apply(n) {
				if !seen[m] {
					seen[m] = true
					next = append(next, m)
				}
			}
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

type xstep struct {
	tag  string
	pred *xpred
	deep bool // descendant-or-self axis (came after //)
}

type xpred struct {
	attr     string
	attrVal  string
	hasVal   bool
	position int // 1-based; 0 means unset
}

// parseXPath splits an expression into steps. Returns ok=false on syntax
// it does not understand.
func parseXPath(expr string) ([]xstep, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, false
	}

	// A bare expression is treated as a descendant search.
	deep := true
	if strings.HasPrefix(expr, "//") {
		expr = expr[2:]
	} else if strings.HasPrefix(expr, "/") {
		deep = false
		expr = expr[1:]
	}

	var steps []xstep
	for expr != "" {
		// "//" between steps flips the next step to the descendant axis.
		nextDeep := deep
		deep = false
		if strings.HasPrefix(expr, "/") {
			nextDeep = true
			expr = strings.TrimPrefix(expr, "/")
			if expr == "" {
				return nil, false
			}
		}

		var raw string
		if i := strings.IndexByte(expr, '/'); i >= 0 {
			raw, expr = expr[:i], expr[i+1:]
		} else {
			raw, expr = expr, ""
		}
		if raw == "" {
			return nil, false
		}

		st, ok := parseStep(raw)
		if !ok {
			return nil, false
		}
		st.deep = nextDeep
		steps = append(steps, st)
	}
	return steps, true
}

// parseStep parses "div", "div[@class='x']", "div[2]", "*".
func parseStep(raw string) (xstep, bool) {
	open := strings.IndexByte(raw, '[')
	if open < 0 {
		if !validTag(raw) {
			return xstep{}, false
		}
		return xstep{tag: raw}, true
	}
	if !strings.HasSuffix(raw, "]") {
		return xstep{}, false
	}

	tag := raw[:open]
	if !validTag(tag) {
		return xstep{}, false
	}
	inner := raw[open+1 : len(raw)-1]
	if inner == "" {
		return xstep{}, false
	}

	pred := &xpred{}
	if n, err := strconv.Atoi(inner); err == nil {
		if n < 1 {
			return xstep{}, false
		}
		pred.position = n
		return xstep{tag: tag, pred: pred}, true
	}

	if !strings.HasPrefix(inner, "@") {
		return xstep{}, false
	}
	attrExpr := inner[1:]
	if eq := strings.IndexByte(attrExpr, '='); eq >= 0 {
		pred.attr = attrExpr[:eq]
		pred.attrVal = strings.Trim(attrExpr[eq+1:], `'"`)
		pred.hasVal = true
	} else {
		pred.attr = attrExpr
	}
	if pred.attr == "" {
		return xstep{}, false
	}
	return xstep{tag: tag, pred: pred}, true
}

func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	if tag == "*" {
		return true
	}
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// apply evaluates one step from a context node.
func (st xstep) apply(ctx *html.Node) []*html.Node {
	var out []*html.Node
	if st.deep {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			if st.matches(n) {
				out = append(out, n)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(ctx)
		return out
	}

	for c := ctx.FirstChild; c != nil; c = c.NextSibling {
		if st.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (st xstep) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if st.tag != "*" && n.Data != st.tag {
		return false
	}
	p := st.pred
	if p == nil {
		return true
	}

	if p.attr != "" {
		if p.hasVal {
			return getAttr(n, p.attr) == p.attrVal
		}
		return hasAttr(n, p.attr)
	}

	if p.position > 0 {
		if n.Parent == nil {
			return p.position == 1
		}
		pos := 0
		for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode && s.Data == n.Data {
				pos++
				if s == n {
					return pos == p.position
				}
			}
		}
		return false
	}

	return true
}
