package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDirs(t *testing.T) (safeDir, symlinkPath string) {
	t.Helper()
	tmpDir := t.TempDir()
	safeDir = filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(filepath.Join(safeDir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(unsafeDir, "secret.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(safeDir, "sub", "run.csv"), []byte("x"), 0o644))

	symlinkPath = filepath.Join(safeDir, "evil-symlink")
	require.NoError(t, os.Symlink(unsafeDir, symlinkPath))
	return safeDir, symlinkPath
}

func TestValidatePathWithinDirectory(t *testing.T) {
	t.Parallel()
	safeDir, symlinkPath := setupDirs(t)

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"file in directory", filepath.Join(safeDir, "file.csv"), false},
		{"nested file", filepath.Join(safeDir, "sub", "run.csv"), false},
		{"new nested file", filepath.Join(safeDir, "new", "file.csv"), false},
		{"dot dot escape", filepath.Join(safeDir, "..", "file.csv"), true},
		{"relative escape", "../../../etc/passwd", true},
		{"absolute outside", "/etc/passwd", true},
		{"through symlink", filepath.Join(symlinkPath, "secret.csv"), true},
		{"symlink itself", symlinkPath, true},
		{"new file under symlink", filepath.Join(symlinkPath, "new.csv"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrOutsideDirectory)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveDataFile(t *testing.T) {
	t.Parallel()
	safeDir, _ := setupDirs(t)

	path, err := ResolveDataFile(safeDir, "sub/run.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(safeDir, "sub", "run.csv"), path)

	_, err = ResolveDataFile(safeDir, "../unsafe/secret.csv")
	assert.ErrorIs(t, err, ErrOutsideDirectory)

	_, err = ResolveDataFile(safeDir, "evil-symlink/secret.csv")
	assert.ErrorIs(t, err, ErrOutsideDirectory)

	_, err = ResolveDataFile(safeDir, "/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideDirectory)

	_, err = ResolveDataFile(safeDir, "missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ResolveDataFile(safeDir, "sub")
	assert.Error(t, err)

	_, err = ResolveDataFile("", "run.csv")
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":                    "unknown",
		"run-01.csv":          "run-01.csv",
		"../../etc/passwd":    "etc_passwd",
		"north feed / 2":      "north_feed_2",
		"...":                 "unknown",
		"radar@site#1.pcap":   "radar_site_1.pcap",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}
