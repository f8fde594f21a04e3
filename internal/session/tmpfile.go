package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// tempFile is a reconstruction in progress, created next to its destination
// so the final rename stays on one filesystem.
type tempFile struct {
	f         *os.File
	path      string
	dst       string
	installed bool
}

func tempPath(dst string) string {
	return filepath.Join(filepath.Dir(dst),
		fmt.Sprintf(".%s.%s.deltasync-tmp", filepath.Base(dst), uuid.New().String()[:8]))
}

func createTemp(dst string, mode fs.FileMode) (*tempFile, error) {
	path := tempPath(dst)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return nil, fmt.Errorf("create tmp %s: %w", path, err)
	}
	// OpenFile's mode is filtered by the umask; the basis mode is not.
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()       //nolint:errcheck // already failing
		_ = os.Remove(path) //nolint:errcheck // best effort
		return nil, fmt.Errorf("chmod tmp %s: %w", path, err)
	}
	return &tempFile{f: f, path: path, dst: dst}, nil
}

// install closes the temporary file and renames it over the destination.
// With backup set and an existing destination, the destination is first
// renamed to dst+suffix; the backup path is returned.
func (t *tempFile) install(backup bool, suffix string, exists bool) (string, error) {
	if err := t.f.Close(); err != nil {
		return "", fmt.Errorf("close tmp %s: %w", t.path, err)
	}

	var backupPath string
	if backup && exists {
		backupPath = t.dst + suffix
		if err := os.Rename(t.dst, backupPath); err != nil {
			return "", fmt.Errorf("backup %s -> %s: %w", t.dst, backupPath, err)
		}
	}

	if err := os.Rename(t.path, t.dst); err != nil {
		return "", fmt.Errorf("rename %s -> %s: %w", t.path, t.dst, err)
	}
	t.installed = true
	return backupPath, nil
}

// discard removes the temporary file unless it was installed.
func (t *tempFile) discard() {
	if t.installed {
		return
	}
	_ = t.f.Close()       //nolint:errcheck // may already be closed
	_ = os.Remove(t.path) //nolint:errcheck // best effort
}
