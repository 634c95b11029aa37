// Package dom wraps golang.org/x/net/html with the tree operations component
// rendering needs: lenient document and fragment parsing under a synthetic
// root, serialization, attribute access, deep cloning and node surgery.
package dom

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// documentStart detects input which has to be parsed as a complete document
// rather than as a body fragment.
var documentStart = regexp.MustCompile(`(?is)^(?:\s|<!--.*?-->)*<(?:!doctype|html[\s>]|head[\s>]|body[\s>])`)

// IsDocument reports whether markup looks like a complete HTML document.
func IsDocument(markup string) bool {
	return documentStart.MatchString(markup)
}

// Parse parses markup and returns the document root. Complete documents are
// parsed with the full HTML5 algorithm, anything else is parsed as a body
// fragment and attached to a synthetic document node so that top level
// siblings share a common parent and serialize without wrappers.
func Parse(markup string) (*html.Node, error) {
	if IsDocument(markup) {
		return html.Parse(strings.NewReader(markup))
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), bodyContext())
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	AppendChildren(root, nodes...)
	return root, nil
}

// ParseFragment parses markup as children of context. When context is nil or
// not an element, a body element is used.
func ParseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = bodyContext()
	}
	return html.ParseFragment(strings.NewReader(markup), context)
}

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// OuterHTML returns serialized n including n itself. Document nodes serialize
// as their children.
func OuterHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InnerHTML returns serialized children of n.
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// IsElement reports whether n is an element with the given (lower case) tag
// name. Empty tag matches any element.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && (tag == "" || n.Data == tag)
}

// Attr returns value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets attribute key to val, appending it when absent.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr removes every occurrence of attribute key and reports whether
// anything was removed.
func RemoveAttr(n *html.Node, key string) bool {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	removed := len(kept) != len(n.Attr)
	n.Attr = kept
	return removed
}

// Children returns a snapshot of n's children, safe to iterate while the tree
// is modified.
func Children(n *html.Node) []*html.Node {
	var nodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes
}

// FindAll returns descendants of n (n itself excluded) matching pred in
// document order. The result is a snapshot.
func FindAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				found = append(found, c)
			}
			walk(c)
		}
	}
	walk(n)
	return found
}

// FindFirst returns the first descendant of n matching pred or nil.
func FindFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if found := FindFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// ElementsByTag returns descendant elements with the given tag name.
func ElementsByTag(n *html.Node, tag string) []*html.Node {
	return FindAll(n, func(c *html.Node) bool { return IsElement(c, tag) })
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of n which is not attached to any tree.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(Clone(ch))
	}
	return c
}

// Detach removes n from its parent if it has one.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren detaches all children of n and returns them.
func RemoveChildren(n *html.Node) []*html.Node {
	nodes := Children(n)
	for _, c := range nodes {
		n.RemoveChild(c)
	}
	return nodes
}

// AppendChildren appends nodes to n, detaching them from previous parents.
func AppendChildren(n *html.Node, nodes ...*html.Node) {
	for _, c := range nodes {
		Detach(c)
		n.AppendChild(c)
	}
}

// PrependChildren inserts nodes before the first child of n keeping their
// order.
func PrependChildren(n *html.Node, nodes ...*html.Node) {
	first := n.FirstChild
	for _, c := range nodes {
		Detach(c)
		n.InsertBefore(c, first)
	}
}

// ReplaceWith puts nodes in place of n and detaches n. n must have a parent.
func ReplaceWith(n *html.Node, nodes ...*html.Node) {
	parent := n.Parent
	for _, c := range nodes {
		Detach(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

// TextContent returns concatenated text of all descendant text nodes.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// NewElement creates a detached element with optional text content.
func NewElement(tag, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
