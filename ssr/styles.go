package ssr

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"compssr/css"
	"compssr/dom"
)

// registry collects scoped component styles of a render call. The first
// registration for a tag wins.
type registry struct {
	order []string
	text  map[string]string
}

func newRegistry() *registry {
	return &registry{text: make(map[string]string)}
}

// add registers text for tag and reports whether it was stored.
func (r *registry) add(tag, text string) bool {
	if text == "" {
		return false
	}
	if _, ok := r.text[tag]; ok {
		return false
	}
	r.order = append(r.order, tag)
	r.text[tag] = text
	return true
}

// Tags returns registered tags in registration order.
func (r *registry) Tags() []string {
	return append([]string(nil), r.order...)
}

// String returns all registered styles in registration order.
func (r *registry) String() string {
	parts := make([]string, 0, len(r.order))
	for _, tag := range r.order {
		parts = append(parts, r.text[tag])
	}
	return strings.Join(parts, "\n")
}

// hoistStyles scopes stylesheets a template produced for host, removes them
// from the tree and registers the result for tag.
func (p *pass) hoistStyles(host *html.Node, tag string, sheets []*html.Node) error {
	var blocks []string
	for _, s := range sheets {
		// dropped together with unused slot fallback content
		if !dom.Contains(host, s) {
			continue
		}
		sheet, err := p.r.styles.Parse([]byte(dom.TextContent(s)), "<"+tag+">")
		if err != nil {
			return fmt.Errorf("unable to parse component styles: %w", err)
		}
		dom.Detach(s)
		for _, w := range sheet.Warnings {
			p.r.log.Warn("Component styles partially ignored", zap.String("tag", tag), zap.String("reason", w))
		}
		if sheet.Empty() {
			continue
		}

		scopeStylesheet(sheet, tag)
		blocks = append(blocks, sheet.String())
	}
	if p.registry.add(tag, strings.Join(blocks, "\n")) {
		p.r.log.Debug("Styles registered", zap.String("tag", tag), zap.Int("blocks", len(blocks)))
	}
	return nil
}

// scopeStylesheet rewrites every rule of sheet, including rules nested in
// @media blocks, so it applies to tag only and overrides document styles.
func scopeStylesheet(sheet *css.Stylesheet, tag string) {
	sheet.EachRule(func(rule *css.Rule) {
		for i := range rule.Declarations {
			rule.Declarations[i].Important = true
		}
		for i, sel := range rule.Selectors {
			rule.Selectors[i] = ScopeSelector(tag, sel)
		}
	})
}

// ScopeSelector rewrites a single selector for component tag. Host selectors
// (":host", ":host(sel)", optionally followed by more) address the tag itself,
// anything else becomes a descendant of the tag.
func ScopeSelector(tag, selector string) string {
	selector = strings.TrimSpace(selector)
	if rest, ok := cutHost(selector); ok {
		if strings.HasPrefix(rest, "(") {
			if arg, tail, ok := cutParens(rest); ok {
				return tag + strings.TrimSpace(arg) + tail
			}
		} else {
			return tag + rest
		}
	}
	return tag + " " + selector
}

// cutHost strips leading ":host" pseudo class. ":host-context" and similar
// longer identifiers are not host selectors.
func cutHost(selector string) (string, bool) {
	const host = ":host"
	if len(selector) < len(host) || !strings.EqualFold(selector[:len(host)], host) {
		return "", false
	}
	rest := selector[len(host):]
	if rest != "" && isIdentByte(rest[0]) {
		return "", false
	}
	return rest, true
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// cutParens splits "(arg)tail" on the parenthesis matching the first one.
func cutParens(s string) (string, string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// injectStyles puts a stylesheet with text at the start of head, body or the
// document itself, whichever is found first, and reports where it went.
func injectStyles(root *html.Node, text string) string {
	style := dom.NewElement("style", text)
	for _, target := range []string{"head", "body"} {
		if n := dom.FindFirst(root, func(n *html.Node) bool { return dom.IsElement(n, target) }); n != nil {
			dom.PrependChildren(n, style)
			return target
		}
	}
	dom.PrependChildren(root, style)
	return "document"
}
