package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse reads an HTML document and converts it into a snapshot tree rooted
// at the html element. Text nodes are folded into their parent's Text field;
// comments and processing instructions are dropped. Parsed snapshots carry
// no layout, so Rect stays zero.
func Parse(r io.Reader) (*Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	root := convertFirstElement(doc)
	if root == nil {
		return nil, fmt.Errorf("dom: parse: no element nodes in document")
	}
	return root, nil
}

// ParseString is Parse over a string, convenient in tests.
func ParseString(s string) (*Element, error) {
	return Parse(strings.NewReader(s))
}

func convertFirstElement(n *html.Node) *Element {
	for c := n; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return convert(c, nil)
		}
		if c.Type == html.DocumentNode {
			if el := convertFirstElement(c.FirstChild); el != nil {
				return el
			}
		}
	}
	return nil
}

func convert(n *html.Node, parent *Element) *Element {
	el := &Element{Tag: strings.ToLower(n.Data), Parent: parent}
	if len(n.Attr) > 0 {
		el.Attrs = make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			el.Attrs[strings.ToLower(a.Key)] = a.Val
		}
	}

	var ownText strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			el.Children = append(el.Children, convert(c, el))
		case html.TextNode:
			ownText.WriteString(c.Data)
		}
	}
	el.Text = strings.Join(strings.Fields(ownText.String()), " ")
	return el
}
