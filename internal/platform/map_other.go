//go:build !linux && !darwin

package platform

import (
	"fmt"
	"os"
)

// Map reads path into memory on platforms without mmap support here.
func Map(path string) (*Mapping, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("map %s: not a regular file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}
