package selector

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/devlens/dom"
)

// Match returns all elements under root (inclusive) matching a selector.
// Supported grammar is the subset Generate emits plus the common simple
// forms:
//
//   - tag, .class, #id, tag.class, tag#id
//   - [attr], [attr=val], [attr="val"], tag[attr=val]
//   - :nth-child(i) suffix on any simple selector
//   - descendant combinator (space) and child combinator (>)
func Match(root *dom.Element, sel string) []*dom.Element {
	parts := tokenize(sel)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSubtree(root, parts[0].sel)
	for i := 1; i < len(parts); i++ {
		var next []*dom.Element
		seen := make(map[*dom.Element]bool)
		for _, parent := range matches {
			var cands []*dom.Element
			if parts[i].child {
				cands = matchChildren(parent, parts[i].sel)
			} else {
				cands = matchDescendants(parent, parts[i].sel)
			}
			for _, c := range cands {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		matches = next
	}
	return matches
}

type part struct {
	sel   string
	child bool // true when joined by ">" to the previous part
}

// tokenize splits a selector on combinators. Whitespace inside a bracketed
// attribute segment is part of the value, not a descendant combinator.
func tokenize(sel string) []part {
	var parts []part
	var buf strings.Builder
	child := false
	depth := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		tok := buf.String()
		buf.Reset()
		if tok == ">" {
			child = true
			return
		}
		parts = append(parts, part{sel: tok, child: child})
		child = false
	}

	for _, r := range sel {
		switch {
		case r == '[':
			depth++
			buf.WriteRune(r)
		case r == ']':
			if depth > 0 {
				depth--
			}
			buf.WriteRune(r)
		case depth == 0 && (r == ' ' || r == '\t'):
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return parts
}

func matchSubtree(root *dom.Element, sel string) []*dom.Element {
	m := parseSimple(sel)
	var out []*dom.Element
	root.Walk(func(n *dom.Element) bool {
		if matchesSimple(n, m) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func matchDescendants(root *dom.Element, sel string) []*dom.Element {
	m := parseSimple(sel)
	var out []*dom.Element
	root.Walk(func(n *dom.Element) bool {
		if n != root && matchesSimple(n, m) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func matchChildren(parent *dom.Element, sel string) []*dom.Element {
	m := parseSimple(sel)
	var out []*dom.Element
	for _, c := range parent.Children {
		if matchesSimple(c, m) {
			out = append(out, c)
		}
	}
	return out
}

type simple struct {
	tag      string
	id       string
	classes  []string
	attrKey  string
	attrVal  string
	nthChild int // 0 = not constrained
}

func parseSimple(sel string) simple {
	var s simple

	// :nth-child(i) suffix.
	if idx := strings.Index(sel, ":nth-child("); idx >= 0 {
		arg := sel[idx+len(":nth-child("):]
		arg = strings.TrimSuffix(arg, ")")
		s.nthChild, _ = strconv.Atoi(arg)
		sel = sel[:idx]
	}

	// [attr] or [attr=val].
	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eq := strings.IndexByte(attrPart, '='); eq >= 0 {
			s.attrKey = attrPart[:eq]
			s.attrVal = strings.Trim(attrPart[eq+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	// #id.
	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	// .class list (possibly several).
	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.classes = strings.Split(sel[idx+1:], ".")
		sel = sel[:idx]
	}

	s.tag = strings.ToLower(sel)
	return s
}

func matchesSimple(n *dom.Element, s simple) bool {
	if s.tag != "" && s.tag != "*" && strings.ToLower(n.Tag) != s.tag {
		return false
	}
	if s.id != "" && n.ID() != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := make(map[string]bool)
		for _, c := range n.Classes() {
			have[c] = true
		}
		for _, c := range s.classes {
			if !have[c] {
				return false
			}
		}
	}
	if s.attrKey != "" {
		if s.attrVal != "" {
			if n.Attr(s.attrKey) != s.attrVal {
				return false
			}
		} else if !n.HasAttr(s.attrKey) {
			return false
		}
	}
	if s.nthChild > 0 && n.IndexInParent() != s.nthChild {
		return false
	}
	return true
}
