// Package inspect resolves hovered page elements into descriptors and
// drives the armed/disabled pointer-tracking state machine.
//
// inspect describes, it does not watch: a descriptor is a point-in-time
// snapshot and becomes stale if the element mutates without the cursor
// moving.
package inspect

import (
	"fmt"
	"math"
	"strings"

	"github.com/hazyhaar/devlens/dom"
	"github.com/hazyhaar/devlens/selector"
)

const (
	maxTextLen          = 50
	maxAncestorPath     = 8
	maxCommentAncestors = 3
)

// Descriptor is a point-in-time record of an element's observable
// properties, computed fresh on every hover-target change.
type Descriptor struct {
	Tag           string   `json:"tag"`
	ID            string   `json:"id,omitempty"`
	Classes       []string `json:"classes,omitempty"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	X             int      `json:"x"`
	Y             int      `json:"y"`
	ComponentName string   `json:"component_name,omitempty"`
	DebugComment  string   `json:"debug_comment,omitempty"`
	Selector      string   `json:"selector"`
	AncestorPath  []string `json:"ancestor_path,omitempty"`
	AriaLabel     string   `json:"aria_label,omitempty"`
	Text          string   `json:"text,omitempty"`
	Role          string   `json:"role,omitempty"`
	TestID        string   `json:"test_id,omitempty"`
}

// ComponentNameResolver maps an element to the name of its owning UI
// component. The hosting framework injects one; nil means the field stays
// empty. Implementations may inspect framework-private structures, so any
// error or panic is recovered and treated as "name unavailable".
type ComponentNameResolver func(el *dom.Element) (string, error)

// AttributeResolver returns a resolver that reads a component name from an
// attribute on the element or its ancestors, skipping private names
// (leading underscore) and bare container tags.
func AttributeResolver(attr string) ComponentNameResolver {
	return func(el *dom.Element) (string, error) {
		for cur := el; cur != nil; cur = cur.Parent {
			name := cur.Attr(attr)
			if name == "" || strings.HasPrefix(name, "_") || isContainerTag(name) {
				continue
			}
			return name, nil
		}
		return "", nil
	}
}

func isContainerTag(name string) bool {
	switch strings.ToLower(name) {
	case "div", "span", "section", "article", "main", "fragment":
		return true
	}
	return false
}

// Describe computes a Descriptor for el. Pure read of the snapshot; the
// resolver may be nil.
func Describe(el *dom.Element, resolver ComponentNameResolver) *Descriptor {
	if el == nil {
		return nil
	}
	d := &Descriptor{
		Tag:       strings.ToLower(el.Tag),
		ID:        el.ID(),
		Classes:   el.Classes(),
		Width:     int(math.Round(el.Rect.Width)),
		Height:    int(math.Round(el.Rect.Height)),
		X:         int(math.Round(el.Rect.X)),
		Y:         int(math.Round(el.Rect.Y)),
		Selector:  selector.Generate(el),
		AriaLabel: el.Attr("aria-label"),
		Role:      el.Attr("role"),
		TestID:    el.Attr(selector.TestIDAttr),
	}
	d.ComponentName = resolveComponentName(el, resolver)
	d.DebugComment = findDebugComment(el)
	d.Text = truncate(el.TextContent(), maxTextLen)
	d.AncestorPath = ancestorPath(el)
	return d
}

// resolveComponentName invokes the resolver, recovering any internal
// structure mismatch as "name unavailable".
func resolveComponentName(el *dom.Element, resolver ComponentNameResolver) (name string) {
	if resolver == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			name = ""
		}
	}()
	name, err := resolver(el)
	if err != nil {
		return ""
	}
	return name
}

// findDebugComment searches the element then up to 3 ancestor levels for
// the debug-comment attribute.
func findDebugComment(el *dom.Element) string {
	cur := el
	for i := 0; cur != nil && i <= maxCommentAncestors; i++ {
		if v := cur.Attr(selector.DebugCommentAttr); v != "" {
			return v
		}
		cur = cur.Parent
	}
	return ""
}

// ancestorPath walks upward collecting `tag[#id]` entries, nearest first,
// bounded to 8 levels.
func ancestorPath(el *dom.Element) []string {
	var path []string
	for _, a := range el.Ancestors(maxAncestorPath) {
		entry := strings.ToLower(a.Tag)
		if id := a.ID(); id != "" {
			entry = fmt.Sprintf("%s#%s", entry, id)
		}
		path = append(path, entry)
	}
	return path
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
