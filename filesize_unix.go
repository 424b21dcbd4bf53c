//go:build unix

package filesize

import (
	"fmt"
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

// statBlockSize is the unit of st_blocks. It is fixed at 512 by convention
// and has nothing to do with the filesystem block size.
const statBlockSize = 512

func sizeOnDisk(path string) (uint64, error) {
	var st unix.Stat_t
	if err := lstat(path, &st); err != nil {
		return 0, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}

	return uint64(st.Blocks) * statBlockSize, nil //nolint:gosec
}

func sizeOnDiskFast(path string, info fs.FileInfo) (uint64, error) {
	if info == nil {
		return 0, fmt.Errorf("%w: nil file info for %s", ErrUnsupportedMetadata, path)
	}

	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedMetadata, info.Sys())
	}

	return uint64(st.Blocks) * statBlockSize, nil //nolint:gosec
}

func lstat(path string, st *unix.Stat_t) error {
	for {
		err := unix.Lstat(path, st)
		if err != unix.EINTR {
			return err
		}
	}
}
