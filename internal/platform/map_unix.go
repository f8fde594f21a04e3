//go:build linux || darwin

package platform

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps path read-only. Empty files yield an empty mapping without a
// system mapping behind it.
func Map(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("map %s: not a regular file", path)
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("map %s: file too large (%d bytes)", path, size)
	}

	//nolint:gosec // G115: fd values are small non-negative integers
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	//nolint:errcheck // madvise is advisory
	unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &Mapping{data: data, unmap: unix.Munmap}, nil
}
