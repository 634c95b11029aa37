package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/maruel/natural"

	"compssr/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty debug report. When destination cannot be created
// report goes to a temporary file.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	r := &Report{entries: make(map[string]entry)}

	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	r.file = f
	return r, nil
}

type entry struct {
	path  string // file or directory to archive, empty for data entries
	data  []byte
	stamp time.Time
}

// Report collects files and data (configuration, inputs, rendered pages,
// logs) into a zip archive to help troubleshooting. All methods are no-ops on
// nil Report, so callers do not have to check whether report was requested.
type Report struct {
	mu      sync.Mutex
	entries map[string]entry
	file    *os.File
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file or directory to be archived under name when report
// is closed. Storing the same name again replaces previous entry.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{path: path}
}

// StoreData keeps copy of data to be archived as a file under name. Names
// already taken get a time stamp suffix.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	e := entry{data: bytes.Clone(data), stamp: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		name = fmt.Sprintf("%s-%d", name, e.stamp.UnixNano())
	}
	r.entries[name] = e
}

// Close writes the archive.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalize()
}

func (r *Report) names() []string {
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

func (r *Report) finalize() (err error) {
	arc := zip.NewWriter(r.file)
	defer func() {
		if cerr := arc.Close(); err == nil {
			err = cerr
		}
	}()

	now := time.Now()
	names := r.names()

	var manifest bytes.Buffer
	for _, name := range names {
		e := r.entries[name]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(&manifest, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), name, e.path)
	}
	if err := addFile(arc, "MANIFEST", now, &manifest); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if e.path == "" {
			if err := addFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		info, err := os.Stat(e.path)
		if err != nil {
			// absent files are listed in manifest only
			continue
		}
		if info.IsDir() {
			err = addDir(arc, name, e.path)
		} else if info.Mode().IsRegular() {
			err = addPath(arc, name, e.path, info.ModTime())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func addFile(arc *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func addPath(arc *zip.Writer, name, path string, t time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addFile(arc, name, t, f)
}

func addDir(arc *zip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addPath(arc, filepath.ToSlash(filepath.Join(name, rel)), path, info.ModTime())
	})
}
