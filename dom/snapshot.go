package dom

import (
	"encoding/json"
	"fmt"
)

// SpineNode is the wire shape the page agent uses for one element of an
// ancestor spine: the element itself plus just enough positional context
// to generate selectors without shipping the whole sibling list.
type SpineNode struct {
	Tag     string            `json:"tag"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Rect    Rect              `json:"rect"`
	Text    string            `json:"text,omitempty"`
	Ordinal int               `json:"nth,omitempty"`
}

// DecodeSpine converts an agent spine (element first, ancestors toward the
// document root) into a linked Element chain and returns the leaf element.
func DecodeSpine(spine []SpineNode) (*Element, error) {
	if len(spine) == 0 {
		return nil, fmt.Errorf("dom: empty spine")
	}
	var leaf, child *Element
	for i, n := range spine {
		el := &Element{
			Tag:     n.Tag,
			Attrs:   n.Attrs,
			Rect:    n.Rect,
			Text:    n.Text,
			Ordinal: n.Ordinal,
		}
		if i == 0 {
			leaf = el
		} else {
			child.Parent = el
			el.Children = []*Element{child}
		}
		child = el
	}
	return leaf, nil
}

// DecodeSpineJSON decodes a JSON-encoded spine payload.
func DecodeSpineJSON(data []byte) (*Element, error) {
	var spine []SpineNode
	if err := json.Unmarshal(data, &spine); err != nil {
		return nil, fmt.Errorf("dom: decode spine: %w", err)
	}
	return DecodeSpine(spine)
}
