package selector

import (
	"strings"
	"testing"

	"github.com/hazyhaar/devlens/dom"
)

func mustParse(t *testing.T, src string) *dom.Element {
	t.Helper()
	root, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return root
}

func findByTag(root *dom.Element, tag string) *dom.Element {
	var found *dom.Element
	root.Walk(func(n *dom.Element) bool {
		if n.Tag == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

func TestGenerate_IDWinsRegardlessOfAncestry(t *testing.T) {
	root := mustParse(t, `<html><body><div class="wrap"><section><button id="submit-btn" class="primary">Go</button></section></div></body></html>`)
	btn := findByTag(root, "button")
	if btn == nil {
		t.Fatal("button not found")
	}
	got := Generate(btn)
	if got != "#submit-btn" {
		t.Errorf("Generate: got %q, want %q", got, "#submit-btn")
	}
}

func TestGenerate_TestIDBeforeDebugComment(t *testing.T) {
	root := mustParse(t, `<html><body><span data-testid="price" data-debug-comment="check rounding">9.99</span></body></html>`)
	span := findByTag(root, "span")
	got := Generate(span)
	want := `[data-testid="price"]`
	if got != want {
		t.Errorf("Generate: got %q, want %q", got, want)
	}
}

func TestGenerate_DebugCommentAttr(t *testing.T) {
	root := mustParse(t, `<html><body><span data-debug-comment="check rounding">9.99</span></body></html>`)
	span := findByTag(root, "span")
	got := Generate(span)
	want := `[data-debug-comment="check rounding"]`
	if got != want {
		t.Errorf("Generate: got %q, want %q", got, want)
	}
}

func TestGenerate_AncestorWalk(t *testing.T) {
	root := mustParse(t, `<html><body><div class="outer extra third"><p><em>hi</em></p></div></body></html>`)
	em := findByTag(root, "em")
	got := Generate(em)
	want := "div.outer.extra:nth-child(1) > p:nth-child(1) > em:nth-child(1)"
	if got != want {
		t.Errorf("Generate: got %q, want %q", got, want)
	}
}

func TestGenerate_IdentifiedAncestorAnchorsPath(t *testing.T) {
	root := mustParse(t, `<html><body><main id="app"><ul><li>a</li><li>b</li></ul></main></body></html>`)
	var second *dom.Element
	root.Walk(func(n *dom.Element) bool {
		if n.Tag == "li" && n.IndexInParent() == 2 {
			second = n
			return false
		}
		return true
	})
	if second == nil {
		t.Fatal("second li not found")
	}
	got := Generate(second)
	want := "#app > ul:nth-child(1) > li:nth-child(2)"
	if got != want {
		t.Errorf("Generate: got %q, want %q", got, want)
	}
}

func TestGenerate_NestedDivsDifferOnlyInTrailingSegment(t *testing.T) {
	root := mustParse(t, `<html><body><div class="a"><div class="b"><div class="c">x</div></div></div></body></html>`)
	var sels []string
	root.Walk(func(n *dom.Element) bool {
		if n.Tag == "div" {
			sels = append(sels, Generate(n))
		}
		return true
	})
	if len(sels) != 3 {
		t.Fatalf("got %d selectors, want 3", len(sels))
	}
	// Each deeper selector extends the previous by exactly one segment.
	for i := 1; i < len(sels); i++ {
		if !strings.HasPrefix(sels[i], sels[i-1]+" > ") {
			t.Errorf("selector %d (%q) does not extend %q", i, sels[i], sels[i-1])
		}
	}
	if !strings.HasSuffix(sels[2], "div.c:nth-child(1)") {
		t.Errorf("deepest selector: got %q, want trailing div.c segment", sels[2])
	}
}

func TestGenerate_DepthBounded(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 15; i++ {
		b.WriteString("<div>")
	}
	b.WriteString("<span>deep</span>")
	for i := 0; i < 15; i++ {
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")

	root := mustParse(t, b.String())
	span := findByTag(root, "span")
	got := Generate(span)
	if n := strings.Count(got, " > ") + 1; n != 10 {
		t.Errorf("path depth: got %d segments, want 10", n)
	}
}

func TestGenerate_Soundness(t *testing.T) {
	// Elements lacking id/test-id/debug-comment: the generated selector must
	// re-locate the original element when matched against the document.
	root := mustParse(t, `<html><body>
		<div class="grid">
			<div class="row"><span>one</span><span>two</span></div>
			<div class="row"><span>three</span><span>four</span></div>
		</div>
	</body></html>`)

	var elems []*dom.Element
	root.Walk(func(n *dom.Element) bool {
		if n.Tag == "span" || n.Tag == "div" {
			elems = append(elems, n)
		}
		return true
	})
	if len(elems) == 0 {
		t.Fatal("no candidate elements")
	}

	for _, el := range elems {
		sel := Generate(el)
		found := false
		for _, m := range Match(root, sel) {
			if m == el {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("selector %q does not match back its element <%s>", sel, el.Tag)
		}
	}
}

func TestMatch_Forms(t *testing.T) {
	root := mustParse(t, `<html><body>
		<div id="main" class="content box">
			<a href="/x" data-role="nav">link</a>
			<a href="/y">other</a>
		</div>
	</body></html>`)

	tests := []struct {
		sel  string
		want int
	}{
		{"a", 2},
		{"#main", 1},
		{".content", 1},
		{"div.content.box", 1},
		{"[data-role]", 1},
		{`[data-role="nav"]`, 1},
		{"div a", 2},
		{"div > a", 2},
		{"body > a", 0},
		{"a:nth-child(2)", 1},
		{"p", 0},
	}
	for _, tt := range tests {
		got := Match(root, tt.sel)
		if len(got) != tt.want {
			t.Errorf("Match(%q): got %d, want %d", tt.sel, len(got), tt.want)
		}
	}
}

func TestMatch_SpacedAttributeValue(t *testing.T) {
	root := mustParse(t, `<html><body><main><span data-debug-comment="check rounding">9.99</span></main></body></html>`)
	span := findByTag(root, "span")

	sel := Generate(span)
	want := `[data-debug-comment="check rounding"]`
	if sel != want {
		t.Fatalf("Generate: got %q, want %q", sel, want)
	}

	got := Match(root, sel)
	if len(got) != 1 || got[0] != span {
		t.Fatalf("Match(%q): got %d matches, want the original span", sel, len(got))
	}

	// Spaced value inside a compound selector: brackets stay atomic, the
	// space outside them is still a descendant combinator.
	got = Match(root, `main [data-debug-comment="check rounding"]`)
	if len(got) != 1 || got[0] != span {
		t.Fatalf("compound match: got %d matches, want 1", len(got))
	}
}

func TestGenerate_BodyYieldsBareTag(t *testing.T) {
	root := mustParse(t, `<html><body><p>x</p></body></html>`)
	body := findByTag(root, "body")
	if got := Generate(body); got != "body" {
		t.Errorf("Generate(body): got %q, want %q", got, "body")
	}
	if got := Match(root, "body"); len(got) != 1 {
		t.Errorf("Match(body): got %d matches, want 1", len(got))
	}
}
