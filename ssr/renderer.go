// Package ssr renders custom element components on the server. Every
// registered tag found in a document gets its content replaced with the output
// of its template, original children are distributed into template slots and
// component styles are scoped to the tag and hoisted into a single document
// level stylesheet.
package ssr

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"compssr/css"
	"compssr/dom"
	"compssr/tmpl"
)

// Reserved attributes set on rendered components. Slot attributes belong to
// the template authoring contract.
const (
	AttrRendered = "data-ssr"
	AttrContent  = "data-ssr-content"
	AttrSlot     = "slot"
	AttrSlotName = "name"

	DefaultMaxDepth = 64
)

// Engine renders template id with a flat attribute context.
type Engine interface {
	Render(id string, data map[string]string) (string, error)
}

// StyleParser turns inline stylesheet text into rule blocks.
type StyleParser interface {
	Parse(data []byte, source ...string) (*css.Stylesheet, error)
}

// Template binds a component tag name to a template identifier.
type Template struct {
	Tag string
	ID  string
}

// Result is the outcome of a single render call.
type Result struct {
	HTML   string
	Tags   []string // distinct component tags rendered, in first render order
	Styles string   // hoisted stylesheet text, empty when nothing was hoisted
}

// Renderer holds immutable rendering setup and may be used from several
// goroutines at once.
type Renderer struct {
	templates []Template
	engine    Engine
	styles    StyleParser
	log       *zap.Logger
	maxDepth  int
}

// Option configures Renderer.
type Option func(*Renderer)

// WithEngine sets template engine. Without it template identifiers are used as
// template bodies.
func WithEngine(e Engine) Option {
	return func(r *Renderer) {
		r.engine = e
	}
}

// WithStyleParser replaces default CSS parser.
func WithStyleParser(p StyleParser) Option {
	return func(r *Renderer) {
		r.styles = p
	}
}

// WithLogger sets logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMaxDepth limits component nesting. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(r *Renderer) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// New creates renderer for templates. Template order defines the order in
// which tags are looked for on every nesting level.
func New(templates []Template, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		log:      zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("ssr")

	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if err := validateTag(t.Tag); err != nil {
			return nil, err
		}
		if t.ID == "" {
			return nil, fmt.Errorf("empty template identifier for tag <%s>", t.Tag)
		}
		if seen[t.Tag] {
			return nil, fmt.Errorf("duplicate template for tag <%s>", t.Tag)
		}
		seen[t.Tag] = true
	}
	r.templates = append([]Template(nil), templates...)

	if r.engine == nil {
		bodies := make(map[string]string, len(templates))
		for _, t := range templates {
			bodies[t.ID] = t.ID
		}
		m, err := tmpl.NewMemory(r.log, bodies)
		if err != nil {
			return nil, fmt.Errorf("unable to prepare embedded templates: %w", err)
		}
		r.engine = m
	}
	if r.styles == nil {
		r.styles = css.NewParser(r.log)
	}
	return r, nil
}

// validateTag checks that tag can be matched against parsed HTML where element
// names are always lower case.
func validateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("empty tag name")
	}
	if tag != strings.ToLower(tag) {
		return fmt.Errorf("tag name must be lower case: %q", tag)
	}
	if strings.ContainsAny(tag, " \t\r\n\f/<>=\"'") {
		return fmt.Errorf("invalid tag name: %q", tag)
	}
	return nil
}

// Tags returns registered tag names in lookup order.
func (r *Renderer) Tags() []string {
	tags := make([]string, 0, len(r.templates))
	for _, t := range r.templates {
		tags = append(tags, t.Tag)
	}
	return tags
}

// Render renders all components in markup and returns resulting HTML.
func (r *Renderer) Render(markup string) (string, error) {
	res, err := r.RenderResult(markup)
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}

// RenderResult renders all components in markup and reports what was done.
func (r *Renderer) RenderResult(markup string) (*Result, error) {
	start := time.Now()
	r.log.Debug("Render started", zap.Int("bytes", len(markup)))

	root, err := dom.Parse(markup)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}

	p := newPass(r)
	stripSnapshots(root)
	if err := p.walk(root, 0); err != nil {
		return nil, err
	}

	styles := p.registry.String()
	if styles != "" {
		where := injectStyles(root, styles)
		r.log.Debug("Styles injected", zap.String("target", where), zap.Strings("tags", p.registry.Tags()))
	}

	out, err := dom.OuterHTML(root)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize document: %w", err)
	}

	res := &Result{
		HTML:   strings.TrimSpace(out),
		Tags:   p.tags,
		Styles: styles,
	}
	r.log.Debug("Render finished",
		zap.Int("bytes", len(res.HTML)),
		zap.Int("components", p.count),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}
