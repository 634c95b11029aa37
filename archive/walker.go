// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// WalkFunc is called for every matching file in archive. The name argument
// is slash separated path of the file inside archive, r is its content which
// is valid only during the call. If an error is returned, processing stops.
type WalkFunc func(name string, r io.Reader) error

// IsArchive reports whether file name looks like zip archive.
func IsArchive(name string) bool {
	return strings.EqualFold(path.Ext(strings.ReplaceAll(name, `\`, "/")), ".zip")
}

// Walk visits all regular files in archive for which match returns true (nil
// match selects everything), in archive order. Entries with absolute paths or
// ".." components fail the walk before anything is visited.
func Walk(ctx context.Context, archive string, match func(name string) bool, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !f.Mode().IsRegular() || (match != nil && !match(f.Name)) {
			continue
		}
		if err := visit(f, walkFn); err != nil {
			return err
		}
	}
	return nil
}

func visit(f *zip.File, walkFn WalkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("zip entry %q: %w", f.Name, err)
	}
	defer rc.Close()
	return walkFn(f.Name, rc)
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || (len(name) > 1 && name[1] == ':') {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
