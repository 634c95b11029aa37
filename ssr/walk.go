package ssr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"compssr/dom"
)

// pass keeps state of a single render call.
type pass struct {
	r        *Renderer
	index    map[string]int
	registry *registry
	tags     []string
	count    int
}

func newPass(r *Renderer) *pass {
	index := make(map[string]int, len(r.templates))
	for i, t := range r.templates {
		index[t.Tag] = i
	}
	return &pass{r: r, index: index, registry: newRegistry()}
}

// item is a component instance waiting to be rendered.
type item struct {
	node *html.Node
	tpl  int
}

// collect returns component instances under root ordered by template order
// first and document order second.
func (p *pass) collect(root *html.Node) []item {
	var items []item
	for _, n := range dom.FindAll(root, func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		if i, ok := p.index[n.Data]; ok {
			items = append(items, item{node: n, tpl: i})
		}
	}
	// stable sort keeps document order within a tag
	slices.SortStableFunc(items, func(a, b item) int { return a.tpl - b.tpl })
	return items
}

// walk renders every component under root. Rendering of a component is
// followed by walking its new content, so nested components are done before
// the next sibling instance is touched.
func (p *pass) walk(root *html.Node, depth int) error {
	for _, it := range p.collect(root) {
		// earlier items may have rendered or dropped this one
		if dom.HasAttr(it.node, AttrRendered) || !dom.Contains(root, it.node) {
			continue
		}
		if err := p.render(it.node, p.r.templates[it.tpl], depth); err != nil {
			return err
		}
		if err := p.walk(it.node, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// render replaces content of a single component element with its template
// output.
func (p *pass) render(n *html.Node, t Template, depth int) error {
	if depth >= p.r.maxDepth {
		return &ComponentError{Tag: t.Tag, Depth: depth, Err: fmt.Errorf("%w: limit %d", ErrDepthExceeded, p.r.maxDepth)}
	}
	p.r.log.Debug("Rendering component", zap.String("tag", t.Tag), zap.Int("depth", depth))

	markup, err := p.r.engine.Render(t.ID, attrContext(n))
	if err != nil {
		return &ComponentError{Tag: t.Tag, Depth: depth, Err: err}
	}

	if err := preserve(n); err != nil {
		return &ComponentError{Tag: t.Tag, Depth: depth, Err: err}
	}
	original := dom.Clone(n)
	dom.RemoveChildren(n)

	fragment, err := dom.ParseFragment(markup, n)
	if err != nil {
		return &ComponentError{Tag: t.Tag, Depth: depth, Err: fmt.Errorf("unable to parse template output: %w", err)}
	}
	dom.AppendChildren(n, fragment...)

	// only stylesheets coming from the template are component styles
	var sheets []*html.Node
	for _, f := range fragment {
		if dom.IsElement(f, "style") {
			sheets = append(sheets, f)
		}
		sheets = append(sheets, dom.ElementsByTag(f, "style")...)
	}

	reconcileSlots(n, original)

	if err := p.hoistStyles(n, t.Tag, sheets); err != nil {
		return &ComponentError{Tag: t.Tag, Depth: depth, Err: err}
	}

	dom.SetAttr(n, AttrRendered, "true")
	p.count++
	if !slices.Contains(p.tags, t.Tag) {
		p.tags = append(p.tags, t.Tag)
	}
	return nil
}

// attrContext builds template data from element attributes. Dashes in names
// become underscores, when two attributes end up with the same key the last
// one wins.
func attrContext(n *html.Node) map[string]string {
	ctx := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		ctx[strings.ReplaceAll(a.Key, "-", "_")] = a.Val
	}
	return ctx
}

// preserve stores JSON encoded markup of current children of n in a reserved
// attribute. Element without children gets an encoded empty string.
func preserve(n *html.Node) error {
	inner, err := dom.InnerHTML(n)
	if err != nil {
		return fmt.Errorf("unable to serialize children: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inner); err != nil {
		return fmt.Errorf("unable to encode children: %w", err)
	}
	dom.SetAttr(n, AttrContent, strings.TrimSuffix(buf.String(), "\n"))
	return nil
}

// stripSnapshots drops children snapshots from elements which were not
// rendered, input must not be able to forge them.
func stripSnapshots(root *html.Node) {
	for _, n := range dom.FindAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && !dom.HasAttr(n, AttrRendered)
	}) {
		dom.RemoveAttr(n, AttrContent)
	}
}
