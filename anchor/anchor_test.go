package anchor

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/pinmark/target"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

const page = `<html><body>
<main>
  <div id="intro" class="lead" data-stable-id="sid-1"><p>first paragraph</p></div>
  <div class="lead"><p>second paragraph</p></div>
  <article data-role="content"><p>third paragraph</p></article>
</main>
</body></html>`

func TestStableIDWinsOverCSS(t *testing.T) {
	doc := parse(t, page)

	// The CSS selector resolves to a different element than the stable ID.
	el := &target.Element{
		StableID: "sid-1",
		CSS:      "article",
	}
	n := ResolveElement(doc, el)
	if n == nil {
		t.Fatal("no match")
	}
	if getAttr(n, "id") != "intro" {
		t.Errorf("stable ID did not win: matched <%s id=%q>", n.Data, getAttr(n, "id"))
	}
}

func TestInvalidCSSFallsThroughToXPath(t *testing.T) {
	doc := parse(t, page)

	el := &target.Element{
		CSS:   "div[[[", // syntactically invalid, must not panic or error
		XPath: "//article",
	}
	n := ResolveElement(doc, el)
	if n == nil {
		t.Fatal("no match")
	}
	if n.Data != "article" {
		t.Errorf("got <%s>, want <article>", n.Data)
	}
}

func TestCSSNthIndex(t *testing.T) {
	doc := parse(t, page)

	el := &target.Element{CSS: "div.lead", Nth: 1}
	n := ResolveElement(doc, el)
	if n == nil {
		t.Fatal("no match")
	}
	if getAttr(n, "id") == "intro" {
		t.Error("nth=1 returned the first match")
	}
}

func TestAttributeMapIsLastResort(t *testing.T) {
	doc := parse(t, page)

	el := &target.Element{
		CSS:   "section.missing",
		XPath: "//aside",
		Attrs: map[string]string{"data-role": "content"},
	}
	n := ResolveElement(doc, el)
	if n == nil {
		t.Fatal("no match")
	}
	if n.Data != "article" {
		t.Errorf("got <%s>, want <article>", n.Data)
	}
}

func TestUnresolvableReturnsNil(t *testing.T) {
	doc := parse(t, page)

	el := &target.Element{CSS: "section.missing"}
	if n := ResolveElement(doc, el); n != nil {
		t.Errorf("expected nil, got <%s>", n.Data)
	}
}

func TestXPathSubset(t *testing.T) {
	doc := parse(t, page)

	cases := []struct {
		expr string
		want string // id or tag of expected first match; "" for no match
	}{
		{"/html/body/main/div", "intro"},
		{"//div[2]", "lead2"},
		{"//div[@class='lead']", "intro"},
		{"//article/p", "p"},
		{"//main//p", "p"},
		{"//*[@data-role]", "article"},
		{"//nav", ""},
		{"///", ""},
		{"//div[0]", ""},
	}
	for _, c := range cases {
		matches := evalXPath(doc, c.expr)
		if c.want == "" {
			if len(matches) != 0 {
				t.Errorf("%q: expected no match, got %d", c.expr, len(matches))
			}
			continue
		}
		if len(matches) == 0 {
			t.Errorf("%q: no match", c.expr)
			continue
		}
		n := matches[0]
		switch c.want {
		case "intro":
			if getAttr(n, "id") != "intro" {
				t.Errorf("%q: got <%s id=%q>", c.expr, n.Data, getAttr(n, "id"))
			}
		case "lead2":
			if n.Data != "div" || getAttr(n, "id") == "intro" {
				t.Errorf("%q: got <%s id=%q>", c.expr, n.Data, getAttr(n, "id"))
			}
		default:
			if n.Data != c.want {
				t.Errorf("%q: got <%s>, want <%s>", c.expr, n.Data, c.want)
			}
		}
	}
}

func TestNodeXPathRoundTrip(t *testing.T) {
	doc := parse(t, page)

	el := &target.Element{CSS: "div.lead", Nth: 1}
	n := ResolveElement(doc, el)
	if n == nil {
		t.Fatal("setup: no match")
	}

	xp := NodeXPath(n)
	matches := evalXPath(doc, xp)
	if len(matches) != 1 || matches[0] != n {
		t.Errorf("NodeXPath %q did not resolve back to the same node (%d matches)", xp, len(matches))
	}
}

const quotedPage = `<html><body>
<p>the quick brown fox</p>
<p>before the quick brown fox after</p>
<p>unrelated text</p>
</body></html>`

func TestTextSingleMatch(t *testing.T) {
	doc := parse(t, quotedPage)

	m := ResolveText(doc, &target.Text{Quote: "unrelated"})
	if m == nil {
		t.Fatal("no match")
	}
	if m.Ambiguous {
		t.Error("single match flagged ambiguous")
	}
	if got := m.Node.Data[m.Start:m.End]; got != "unrelated" {
		t.Errorf("range covers %q", got)
	}
}

func TestTextDisambiguationByPrefixSuffix(t *testing.T) {
	doc := parse(t, quotedPage)

	m := ResolveText(doc, &target.Text{
		Quote:  "the quick brown fox",
		Prefix: "before ",
		Suffix: " after",
	})
	if m == nil {
		t.Fatal("no match")
	}
	if m.Ambiguous {
		t.Error("disambiguated match flagged ambiguous")
	}
	if !strings.Contains(m.Node.Data, "before") {
		t.Errorf("matched the wrong occurrence: node text %q", m.Node.Data)
	}
}

func TestTextAmbiguousFallsBackToFirst(t *testing.T) {
	doc := parse(t, quotedPage)

	m := ResolveText(doc, &target.Text{
		Quote:  "the quick brown fox",
		Prefix: "no such prefix",
	})
	if m == nil {
		t.Fatal("no match")
	}
	if !m.Ambiguous {
		t.Error("fallback match not flagged ambiguous")
	}
	if strings.Contains(m.Node.Data, "before") {
		t.Errorf("fallback did not pick first occurrence: node text %q", m.Node.Data)
	}
}

func TestTextNotFoundReturnsNil(t *testing.T) {
	doc := parse(t, quotedPage)
	if m := ResolveText(doc, &target.Text{Quote: "absent quote"}); m != nil {
		t.Errorf("expected nil, got %+v", m)
	}
}

func TestTextSkipsScriptAndStyle(t *testing.T) {
	doc := parse(t, `<html><body><script>var hidden = "needle";</script><p>needle</p></body></html>`)
	m := ResolveText(doc, &target.Text{Quote: "needle"})
	if m == nil {
		t.Fatal("no match")
	}
	if m.Node.Parent.Data != "p" {
		t.Errorf("matched inside <%s>", m.Node.Parent.Data)
	}
	if m.Ambiguous {
		t.Error("script text counted as a candidate")
	}
}
