package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/trackinit/internal/fsutil"
	"github.com/banshee-data/trackinit/internal/security"
	"github.com/banshee-data/trackinit/internal/tracker"
)

// WriteBundle writes every rendering of res into dir as name.txt,
// name.json, name.png and name.html, creating dir if needed. name is
// sanitized first. It returns the paths written.
func WriteBundle(fsys fsutil.FileSystem, dir, name string, res tracker.Result) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	base := filepath.Join(dir, security.SanitizeFilename(name))

	renderers := []struct {
		ext    string
		render func(io.Writer, tracker.Result) error
	}{
		{".txt", WriteTable},
		{".json", writeJSON},
		{".png", WritePNG},
		{".html", RenderHTML},
	}

	paths := make([]string, 0, len(renderers))
	for _, r := range renderers {
		path := base + r.ext
		if err := writeFile(fsys, path, res, r.render); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeJSON(w io.Writer, res tracker.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeFile(fsys fsutil.FileSystem, path string, res tracker.Result, render func(io.Writer, tracker.Result) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
