// Package tmpl provides template stores used to render component markup.
// Templates are html/template bodies with slim-sprig functions available;
// rendering data is the flat attribute context of a component instance.
package tmpl

import (
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a template name is not known to a store.
var ErrNotFound = errors.New("template not found")

// Memory is a template store holding all templates in a single parsed set, so
// templates can include each other by name.
type Memory struct {
	set   *template.Template
	names []string
	log   *zap.Logger
}

// NewMemory parses bodies (keyed by template name) and returns a ready store.
func NewMemory(log *zap.Logger, bodies map[string]string) (*Memory, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("templates")

	names := make([]string, 0, len(bodies))
	for name := range bodies {
		names = append(names, name)
	}
	// parse in stable order so errors are reproducible
	sort.Sort(natural.StringSlice(names))

	set := newSet()
	for _, name := range names {
		if _, err := set.New(name).Parse(bodies[name]); err != nil {
			return nil, fmt.Errorf("unable to parse template %q: %w", shorten(name), err)
		}
	}
	log.Debug("Templates loaded", zap.Int("count", len(names)))
	return &Memory{set: set, names: names, log: log}, nil
}

func newSet() *template.Template {
	return template.New("").Funcs(sprig.FuncMap()).Option("missingkey=zero")
}

// Names returns names of all templates in the store in natural order.
func (m *Memory) Names() []string {
	return append([]string(nil), m.names...)
}

// Render executes template name with data and returns produced markup.
func (m *Memory) Render(name string, data map[string]string) (string, error) {
	t := m.set.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, shorten(name))
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("unable to execute template %q: %w", shorten(name), err)
	}
	return sb.String(), nil
}

// shorten keeps error messages readable when template names are bodies.
func shorten(name string) string {
	const limit = 48
	if len(name) <= limit {
		return name
	}
	return name[:limit] + "..."
}
