package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createZip(t *testing.T, files ...string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "test.zip")
	out, err := os.Create(name)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, f := range files {
		fw, err := w.Create(f)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", f, err)
		}
		if !strings.HasSuffix(f, "/") {
			if _, err := io.WriteString(fw, "content of "+f); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestWalk(t *testing.T) {
	name := createZip(t, "site/", "site/index.html", "site/docs/page.htm", "site/style.css", "readme.txt")

	tests := []struct {
		name  string
		match func(string) bool
		want  string
	}{
		{"all", nil, "site/index.html,site/docs/page.htm,site/style.css,readme.txt"},
		{"html only", func(n string) bool { return strings.HasSuffix(n, ".html") || strings.HasSuffix(n, ".htm") },
			"site/index.html,site/docs/page.htm"},
		{"nothing", func(string) bool { return false }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(context.Background(), name, tt.match, func(n string, r io.Reader) error {
				data, err := io.ReadAll(r)
				if err != nil {
					return err
				}
				if string(data) != "content of "+n {
					t.Errorf("content of %s = %q", n, data)
				}
				visited = append(visited, n)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if got := strings.Join(visited, ","); got != tt.want {
				t.Errorf("visited %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWalk_StopsOnError(t *testing.T) {
	name := createZip(t, "a.html", "b.html")
	stop := errors.New("stop")

	count := 0
	err := Walk(context.Background(), name, nil, func(string, io.Reader) error {
		count++
		return stop
	})
	if !errors.Is(err, stop) || count != 1 {
		t.Errorf("Walk() error = %v after %d files", err, count)
	}
}

func TestWalk_CancelledContext(t *testing.T) {
	name := createZip(t, "a.html")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Walk(ctx, name, nil, func(string, io.Reader) error {
		t.Error("nothing must be visited")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v", err)
	}
}

func TestWalk_UnsafeEntries(t *testing.T) {
	for _, entry := range []string{"../evil.html", "dir/../../evil.html", "/abs.html", `\win.html`, `C:\x.html`} {
		t.Run(entry, func(t *testing.T) {
			name := createZip(t, "good.html", entry)
			visited := 0
			err := Walk(context.Background(), name, nil, func(string, io.Reader) error {
				visited++
				return nil
			})
			if err == nil || !strings.Contains(err.Error(), "unsafe path") {
				t.Errorf("Walk() error = %v", err)
			}
			if visited != 0 {
				t.Error("unsafe archive must not be processed at all")
			}
		})
	}
}

func TestWalk_NotArchive(t *testing.T) {
	name := filepath.Join(t.TempDir(), "plain.zip")
	if err := os.WriteFile(name, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Walk(context.Background(), name, nil, func(string, io.Reader) error { return nil }); err == nil {
		t.Error("expected error for invalid archive")
	}
	if err := Walk(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), nil, nil); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestIsArchive(t *testing.T) {
	for name, want := range map[string]bool{
		"site.zip":       true,
		"dir/SITE.ZIP":   true,
		`dir\site.zip`:   true,
		"site.zip.html":  false,
		"zip":            false,
		"archive.tar.gz": false,
	} {
		if got := IsArchive(name); got != want {
			t.Errorf("IsArchive(%q) = %v, want %v", name, got, want)
		}
	}
}
