// Package dom provides a lightweight element-snapshot model over which the
// selector and inspection logic runs. Snapshots arrive either from the
// injected page agent (JSON) or from parsed HTML (tests, one-shot CLI use).
//
// An Element snapshot is a point-in-time copy: it does not track the live
// page and becomes stale as soon as the page mutates.
package dom

import (
	"sort"
	"strings"
)

// Rect is an element's bounding box in viewport coordinates (CSS pixels).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one node of a snapshot tree. Parent/Children links preserve
// document order so positional selectors (nth-child) stay computable.
type Element struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Rect     Rect              `json:"rect"`
	Text     string            `json:"text,omitempty"` // own text, children excluded
	Parent   *Element          `json:"-"`
	Children []*Element        `json:"children,omitempty"`

	// Ordinal is the 1-based position among the parent's element children,
	// set explicitly when the snapshot carries only an ancestor spine and
	// sibling lists are unavailable. Zero means derive from Parent.Children.
	Ordinal int `json:"ordinal,omitempty"`
}

// Attr returns the value of an attribute, or "" if absent.
func (e *Element) Attr(key string) string {
	if e == nil || e.Attrs == nil {
		return ""
	}
	return e.Attrs[key]
}

// HasAttr reports whether the attribute is present, even if empty.
func (e *Element) HasAttr(key string) bool {
	if e == nil || e.Attrs == nil {
		return false
	}
	_, ok := e.Attrs[key]
	return ok
}

// ID returns the element's id attribute.
func (e *Element) ID() string { return e.Attr("id") }

// Classes returns the class list in document order.
func (e *Element) Classes() []string {
	return strings.Fields(e.Attr("class"))
}

// IndexInParent returns the 1-based position of the element among its
// parent's element children. Root elements report 1.
func (e *Element) IndexInParent() int {
	if e.Ordinal > 0 {
		return e.Ordinal
	}
	if e.Parent == nil {
		return 1
	}
	for i, c := range e.Parent.Children {
		if c == e {
			return i + 1
		}
	}
	return 1
}

// Ancestors returns the chain from the element's parent upward, nearest
// first, at most limit entries. limit <= 0 means unbounded.
func (e *Element) Ancestors(limit int) []*Element {
	var out []*Element
	for p := e.Parent; p != nil; p = p.Parent {
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// IsRoot reports whether the element is the document root (html).
func (e *Element) IsRoot() bool { return strings.EqualFold(e.Tag, "html") }

// IsBody reports whether the element is the document body.
func (e *Element) IsBody() bool { return strings.EqualFold(e.Tag, "body") }

// TextContent returns the element's own text plus all descendant text,
// in document order, whitespace-collapsed.
func (e *Element) TextContent() string {
	var b strings.Builder
	var walk func(*Element)
	walk = func(n *Element) {
		if t := strings.TrimSpace(n.Text); t != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(e)
	return b.String()
}

// Walk visits the element and every descendant in document order. Returning
// false from fn stops the walk.
func (e *Element) Walk(fn func(*Element) bool) {
	var walk func(*Element) bool
	walk = func(n *Element) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.Children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(e)
}

// AppendChild attaches a child and sets its Parent link.
func (e *Element) AppendChild(c *Element) *Element {
	c.Parent = e
	e.Children = append(e.Children, c)
	return c
}

// SortedAttrKeys returns attribute keys in deterministic order, for stable
// serialisation and test output.
func (e *Element) SortedAttrKeys() []string {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
