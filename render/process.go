package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"compssr/archive"
	"compssr/config"
	"compssr/dom"
	"compssr/state"
)

// process determines source type (STDIN, directory or file) and renders
// accordingly. Empty dst means output goes to out.
func process(ctx context.Context, src, dst string, in io.Reader, out io.Writer, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if src == StdioName {
		data, err := readAll(in)
		if err != nil {
			return fmt.Errorf("unable to read input: %w", err)
		}
		name, err := outputName(dst, "stdin.html")
		if err != nil {
			return err
		}
		state.EnvFromContext(ctx).Rpt.StoreData("input/stdin.html", data)
		return renderData(ctx, data, "stdin.html", name, out, log)
	}

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	if fi.IsDir() {
		if len(dst) == 0 {
			return errors.New("destination directory is required when source is a directory")
		}
		return processDir(ctx, src, dst, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	if archive.IsArchive(src) {
		if len(dst) == 0 {
			return errors.New("destination directory is required when source is an archive")
		}
		return processArchive(ctx, src, dst, log)
	}

	name, err := outputName(dst, filepath.Base(src))
	if err != nil {
		return err
	}
	return renderFile(ctx, src, filepath.Base(src), name, out, log)
}

// outputName resolves destination for a single input: existing directory
// receives file with base name, anything else is used as is.
func outputName(dst, base string) (string, error) {
	if len(dst) == 0 {
		return "", nil
	}
	fi, err := os.Stat(dst)
	if err == nil && fi.IsDir() {
		return filepath.Join(dst, base), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

// processDir renders all HTML files under dir mirroring directory structure
// under dst. Failures on individual files do not stop processing, they are
// logged and returned together at the end.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	if fi, er := os.Stat(dst); er == nil && !fi.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", dst)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !dom.IsHTMLName(path) {
			log.Debug("Skipping file, not recognized as HTML", zap.String("file", path))
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}
	sort.Sort(natural.StringSlice(files))

	failed := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if er := renderFile(ctx, filepath.Join(dir, rel), filepath.ToSlash(rel), filepath.Join(dst, rel), nil, log); er != nil {
			log.Error("Unable to process file", zap.String("file", rel), zap.Error(er))
			err = multierr.Append(err, er)
			failed++
		}
	}
	log.Debug("Directory processed", zap.Int("files", len(files)), zap.Int("failed", failed))
	return err
}

// processArchive renders all HTML files in zip archive mirroring archive
// structure under dst.
func processArchive(ctx context.Context, src, dst string, log *zap.Logger) (err error) {
	if fi, er := os.Stat(dst); er == nil && !fi.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", dst)
	}

	rpt := state.EnvFromContext(ctx).Rpt
	count, failed := 0, 0
	er := archive.Walk(ctx, src, dom.IsHTMLName, func(name string, r io.Reader) error {
		count++
		data, e := io.ReadAll(r)
		if e == nil {
			rpt.StoreData("input/"+filepath.Base(src)+"/"+name, data)
			e = renderData(ctx, data, name, filepath.Join(dst, filepath.FromSlash(name)), nil, log)
		}
		if e != nil {
			log.Error("Unable to process file in archive", zap.String("archive", src), zap.String("file", name), zap.Error(e))
			err = multierr.Append(err, e)
			failed++
		}
		return nil
	})
	if er != nil {
		return fmt.Errorf("unable to process archive: %w", er)
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("archive", src))
	}
	log.Debug("Archive processed", zap.Int("files", count), zap.Int("failed", failed))
	return err
}

func renderFile(ctx context.Context, path, rel, name string, out io.Writer, log *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read input: %w", err)
	}
	state.EnvFromContext(ctx).Rpt.Store("input/"+rel, path)
	return renderData(ctx, data, rel, name, out, log)
}

// renderData decodes and renders single input. Result is written to file
// name, or to out when name is empty.
func renderData(ctx context.Context, data []byte, src, name string, out io.Writer, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	log.Debug("Rendering starting", zap.String("from", src))
	start := time.Now()

	markup, cs, err := dom.Decode(data, env.Charset)
	if err != nil {
		return fmt.Errorf("unable to decode input (%s): %w", src, err)
	}
	res, err := env.Renderer.RenderResult(markup)
	if err != nil {
		return fmt.Errorf("unable to render (%s): %w", src, err)
	}

	if len(name) == 0 {
		if out == nil {
			return errors.New("no output destination")
		}
		if _, err := io.WriteString(out, res.HTML); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
		env.Rpt.StoreData("output/stdout.html", []byte(res.HTML))
	} else {
		if err := prepareOutput(name, env.Overwrite, log); err != nil {
			return err
		}
		if err := os.WriteFile(name, []byte(res.HTML), 0644); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
		env.Rpt.Store("output/"+src, name)
	}

	storeTree(env.Rpt, src, res.HTML)

	log.Debug("Rendering completed", zap.String("from", src), zap.String("charset", cs),
		zap.Strings("tags", res.Tags), zap.Bool("styles", len(res.Styles) > 0), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// storeTree puts outline of the result into report, it shows where slotted
// content ended up. Nothing is parsed when report is not collected.
func storeTree(rpt *config.Report, src, markup string) {
	if rpt == nil {
		return
	}
	if root, err := dom.Parse(markup); err == nil {
		rpt.StoreData("tree/"+src+".txt", []byte(dom.Tree(root)))
	}
}

// prepareOutput checks whether output file already exists and creates
// missing directories.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
