package state

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"compssr/config"
	"compssr/ssr"
	"compssr/tmpl"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

// BuildRenderer prepares Renderer from configured components followed by
// extra ones. Component template is a name of a file found under configured
// template paths or, when there is no such file, the template body itself. An
// extra component replaces configured one with the same tag keeping its
// position.
func (e *LocalEnv) BuildRenderer(extra ...config.ComponentConfig) error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	bodies, err := tmpl.ReadDirs(log, e.Cfg.Templates.Paths...)
	if err != nil {
		return fmt.Errorf("unable to read templates: %w", err)
	}
	for i, p := range e.Cfg.Templates.Paths {
		e.Rpt.Store(fmt.Sprintf("templates/%d", i), p)
	}

	var (
		templates []ssr.Template
		position  = make(map[string]int)
	)
	for _, c := range append(append([]config.ComponentConfig(nil), e.Cfg.Templates.Components...), extra...) {
		if _, ok := bodies[c.Template]; !ok {
			bodies[c.Template] = c.Template
		}
		if i, ok := position[c.Tag]; ok {
			log.Debug("Component template replaced", zap.String("tag", c.Tag))
			templates[i].ID = c.Template
			continue
		}
		position[c.Tag] = len(templates)
		templates = append(templates, ssr.Template{Tag: c.Tag, ID: c.Template})
	}

	engine, err := tmpl.NewMemory(log, bodies)
	if err != nil {
		return fmt.Errorf("unable to prepare templates: %w", err)
	}
	e.Renderer, err = ssr.New(templates,
		ssr.WithEngine(engine),
		ssr.WithLogger(log),
		ssr.WithMaxDepth(e.Cfg.Renderer.MaxDepth))
	if err != nil {
		return fmt.Errorf("unable to prepare renderer: %w", err)
	}
	log.Debug("Renderer ready", zap.Strings("tags", e.Renderer.Tags()), zap.Int("templates", len(engine.Names())))
	return nil
}
