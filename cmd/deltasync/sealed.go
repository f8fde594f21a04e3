package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bamsammich/deltasync/internal/wire"
)

// writeSealed writes a sealed file at path through fn. The file appears
// under path only once it is complete.
func writeSealed(path string, fn func(w *wire.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.deltasync-tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()           //nolint:errcheck // already failing
			_ = os.Remove(f.Name()) //nolint:errcheck // best effort
		}
	}()

	if err := f.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", f.Name(), err)
	}

	sw := wire.NewSealWriter(f)
	w := wire.NewWriter(sw)
	if err := fn(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := sw.Seal(); err != nil {
		return fmt.Errorf("seal %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(f.Name(), path)
}

// openSealed verifies the sealed file at path and returns a reader over its
// body. The caller closes the returned closer.
func openSealed(path string) (*wire.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close() //nolint:errcheck // read-only
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	body, err := wire.OpenSealed(f, fi.Size())
	if err != nil {
		_ = f.Close() //nolint:errcheck // read-only
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return wire.NewReader(bufio.NewReader(body)), f, nil
}
