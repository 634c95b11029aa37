package tmpl

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Extensions lists file name extensions recognized as templates.
var Extensions = []string{".html", ".gohtml", ".tmpl"}

// NewDirs walks search paths and loads every template file into a Memory
// store.
func NewDirs(log *zap.Logger, paths ...string) (*Memory, error) {
	bodies, err := ReadDirs(log, paths...)
	if err != nil {
		return nil, err
	}
	return NewMemory(log, bodies)
}

// ReadDirs returns bodies of template files found under search paths keyed by
// template name. Names are slash separated paths relative to the search path
// root ("cards/user.html"). When the same name exists under several paths the
// first path wins.
func ReadDirs(log *zap.Logger, paths ...string) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	bodies := make(map[string]string)
	for _, root := range paths {
		if root == "" {
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("unable to access templates path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("templates path is not a directory: %s", root)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if _, exists := bodies[name]; exists {
				log.Debug("Template shadowed by earlier path", zap.String("name", name), zap.String("file", path))
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			bodies[name] = string(data)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("unable to load templates from %s: %w", root, err)
		}
	}
	return bodies, nil
}
