package ssr

import (
	"errors"
	"fmt"

	"compssr/tmpl"
)

var (
	// ErrDepthExceeded is returned when components keep producing nested
	// components past the configured depth limit, usually because a template
	// renders its own tag.
	ErrDepthExceeded = errors.New("render depth exceeded")

	// ErrNoTemplate is reported when the template engine does not know the
	// identifier bound to a tag.
	ErrNoTemplate = tmpl.ErrNotFound
)

// ComponentError describes failure to render a single component instance.
type ComponentError struct {
	Tag   string
	Depth int
	Err   error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component <%s> at depth %d: %v", e.Tag, e.Depth, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}
