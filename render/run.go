// Package render implements "render" command: expands components in HTML
// files, directory trees or STDIN.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"compssr/config"
	"compssr/state"
)

// StdioName is used as SOURCE to read from STDIN.
const StdioName = "-"

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("render")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src != StdioName {
		if src, err = filepath.Abs(src); err != nil {
			return err
		}
	}

	dst := cmd.Args().Get(1)
	if len(dst) > 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	extra := make([]config.ComponentConfig, 0, len(cmd.StringSlice("template")))
	for _, spec := range cmd.StringSlice("template") {
		c, err := parseTemplateFlag(spec)
		if err != nil {
			return err
		}
		extra = append(extra, c)
	}
	if err := env.BuildRenderer(extra...); err != nil {
		return err
	}
	if len(env.Renderer.Tags()) == 0 {
		log.Warn("No components defined, markup will be passed through")
	}

	env.Overwrite = cmd.Bool("overwrite")

	// input is decoded from detected character set unless told otherwise
	if cs := cmd.String("charset"); len(cs) > 0 {
		env.Charset, err = ianaindex.IANA.Encoding(cs)
		if err != nil || env.Charset == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cs), zap.Error(err))
			env.Charset = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.Charset)
			log.Debug("Forcefully decoding input", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	root := cmd.Root()
	return process(ctx, src, dst, root.Reader, root.Writer, log)
}

// parseTemplateFlag splits "tag=FILE|BODY". When FILE names existing file its
// content becomes template body.
func parseTemplateFlag(spec string) (config.ComponentConfig, error) {
	tag, body, ok := strings.Cut(spec, "=")
	tag = strings.TrimSpace(tag)
	if !ok || len(tag) == 0 || len(body) == 0 {
		return config.ComponentConfig{}, fmt.Errorf("malformed template specification %q, expecting tag=FILE or tag=BODY", spec)
	}
	if fi, err := os.Stat(body); err == nil && fi.Mode().IsRegular() {
		data, err := os.ReadFile(body)
		if err != nil {
			return config.ComponentConfig{}, fmt.Errorf("unable to read template for %s: %w", tag, err)
		}
		body = string(data)
	}
	return config.ComponentConfig{Tag: strings.ToLower(tag), Template: body}, nil
}

// readAll is used for STDIN, files are read directly.
func readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, errors.New("no input stream")
	}
	return io.ReadAll(r)
}
