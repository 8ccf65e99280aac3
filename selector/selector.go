// Package selector generates and matches CSS selectors over dom snapshots.
//
// Generate is a bounded, deterministic heuristic: it prefers stable hooks
// (id, test id, debug-comment attribute) and falls back to an ancestor walk
// with class and nth-child qualifiers. No uniqueness validation is
// performed; collisions are possible and accepted.
package selector

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/devlens/dom"
)

const (
	// TestIDAttr is the designated test-identifier attribute.
	TestIDAttr = "data-testid"
	// DebugCommentAttr is the designated debug-comment data attribute.
	DebugCommentAttr = "data-debug-comment"

	// maxDepth caps the ancestor walk in Generate.
	maxDepth = 10
	// maxClasses caps the class qualifiers per path level.
	maxClasses = 2
)

// Generate returns a selector string identifying el with high (not
// guaranteed) specificity.
func Generate(el *dom.Element) string {
	if el == nil {
		return ""
	}
	if id := el.ID(); id != "" {
		return "#" + id
	}
	if v := el.Attr(TestIDAttr); v != "" {
		return fmt.Sprintf("[%s=%q]", TestIDAttr, v)
	}
	if v := el.Attr(DebugCommentAttr); v != "" {
		return fmt.Sprintf("[%s=%q]", DebugCommentAttr, v)
	}

	var path []string
	cur := el
	for depth := 0; cur != nil && depth < maxDepth; depth++ {
		if cur.IsBody() {
			break
		}
		if id := cur.ID(); id != "" && cur != el {
			// An identified ancestor anchors the path; no need to climb on.
			path = append([]string{"#" + id}, path...)
			break
		}
		path = append([]string{segment(cur)}, path...)
		cur = cur.Parent
	}
	if len(path) == 0 {
		// body (and anything the walk cannot qualify) still gets a selector.
		return strings.ToLower(el.Tag)
	}
	return strings.Join(path, " > ")
}

// segment builds one path level: tag[.class1[.class2]][:nth-child(i)].
func segment(el *dom.Element) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(el.Tag))
	for i, c := range el.Classes() {
		if i >= maxClasses {
			break
		}
		b.WriteByte('.')
		b.WriteString(c)
	}
	fmt.Fprintf(&b, ":nth-child(%d)", el.IndexInParent())
	return b.String()
}
