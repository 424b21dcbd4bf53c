//go:build !unix && !windows

package filesize

import (
	"fmt"
	"io/fs"
	"os"
)

// No allocation primitive is assumed here; both variants report the logical
// size instead.

func sizeOnDisk(path string) (uint64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}

	return uint64(info.Size()), nil //nolint:gosec
}

func sizeOnDiskFast(path string, info fs.FileInfo) (uint64, error) {
	if info == nil {
		return 0, fmt.Errorf("%w: nil file info for %s", ErrUnsupportedMetadata, path)
	}

	return uint64(info.Size()), nil //nolint:gosec
}
