// Package filesize reports the space a file actually occupies on disk, as
// opposed to its logical length, taking filesystem compression and sparse
// allocation into account.
//
// On Unix-like systems the result is the stat block count multiplied by 512.
// On Windows it comes from GetCompressedFileSizeW. Elsewhere the logical size
// is returned, since no allocation primitive is assumed to exist.
//
// Values are not comparable across operating systems or filesystem types.
package filesize

import (
	"errors"
	"io/fs"
)

// ErrUnsupportedMetadata is returned by the fast variants when the supplied
// fs.FileInfo does not carry the platform stat structure they need.
var ErrUnsupportedMetadata = errors.New("filesize: unsupported file metadata")

// SizeOnDisk returns the number of bytes allocated on disk for path.
// Symbolic links are not followed on platforms that query file status.
func SizeOnDisk(path string) (uint64, error) {
	return sizeOnDisk(path)
}

// SizeOnDiskFast is like SizeOnDisk but uses info, as returned by os.Lstat
// for the same path, where the platform allows it. On Unix the path is
// ignored. On Windows info is ignored and the path is queried again.
//
// info is only read for the duration of the call. Where info is read, a nil
// or foreign info fails with ErrUnsupportedMetadata.
func SizeOnDiskFast(path string, info fs.FileInfo) (uint64, error) {
	return sizeOnDiskFast(path, info)
}

// Path is a filesystem path with size-on-disk methods attached.
type Path string

// SizeOnDisk is SizeOnDisk(string(p)).
func (p Path) SizeOnDisk() (uint64, error) {
	return SizeOnDisk(string(p))
}

// SizeOnDiskFast is SizeOnDiskFast(string(p), info).
func (p Path) SizeOnDiskFast(info fs.FileInfo) (uint64, error) {
	return SizeOnDiskFast(string(p), info)
}

func (p Path) String() string {
	return string(p)
}
