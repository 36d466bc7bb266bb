// Package security confines file paths supplied over the API to the
// directories the daemon was started with.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned when a path resolves outside its allowed
// directory.
var ErrOutsideDirectory = errors.New("path escapes allowed directory")

// canonical resolves symlinks in path. For a path that does not exist yet it
// resolves the nearest existing parent and re-appends the remainder, so a
// symlinked parent cannot be used to escape.
func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, path)
			return filepath.Join(resolved, rel)
		}
		if dir == filepath.Dir(dir) {
			return path
		}
	}
}

// ValidatePathWithinDirectory reports an error wrapping ErrOutsideDirectory
// if filePath, after cleaning and symlink resolution, is not inside safeDir.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}
	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalSafeDir, canonical(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is not within %s", ErrOutsideDirectory, filePath, safeDir)
	}
	return nil
}

// ResolveDataFile joins a client-supplied relative name onto dataDir and
// checks that the result stays inside dataDir and is a regular file.
func ResolveDataFile(dataDir, name string) (string, error) {
	if dataDir == "" {
		return "", errors.New("no data directory configured")
	}
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q must be a relative file name", ErrOutsideDirectory, name)
	}
	path := filepath.Join(dataDir, name)
	if err := ValidatePathWithinDirectory(path, dataDir); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", name)
	}
	return path, nil
}

// SanitizeFilename makes a safe download name from an arbitrary string.
// Characters other than ASCII letters, digits, dot, underscore and dash
// become a single underscore. The result is at most 128 bytes and never
// empty.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
