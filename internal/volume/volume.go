// Package volume describes the filesystem a file lives on: its allocation
// unit, capacity and, where the partition table allows, its type.
//
// Size-on-disk numbers only mean something relative to the filesystem that
// produced them, so reports can carry this alongside each file.
package volume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/timfallmk/filesize/internal/logging"
)

// ErrUnsupported is returned where the platform has no volume query.
var ErrUnsupported = errors.New("volume: not supported on this platform")

// Info describes the volume holding a path.
type Info struct {
	Mountpoint string `json:"mountpoint,omitempty"`
	Device     string `json:"device,omitempty"`
	FSType     string `json:"fstype,omitempty"`
	BlockSize  uint64 `json:"block_size"`
	Total      uint64 `json:"total"`
	Free       uint64 `json:"free"`
}

// partitionLister is swapped out in tests.
var partitionLister = func() ([]disk.PartitionStat, error) {
	return disk.Partitions(true)
}

// Inspect returns volume information for path. The block size and capacity
// come from the OS and are required; mount and filesystem type come from the
// partition table and are left empty if it cannot be read.
func Inspect(path string) (Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	// statfs needs an existing path; a file that is not there yet is
	// described by its directory.
	target := abs
	if _, err := os.Lstat(target); err != nil {
		target = filepath.Dir(abs)
	}

	blockSize, total, free, err := statVolume(target)
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat volume for %s: %w", path, err)
	}

	info := Info{
		BlockSize: blockSize,
		Total:     total,
		Free:      free,
	}

	parts, err := partitionLister()
	if err != nil {
		logging.WithComponent("volume").Debug("partition list unavailable", "path", path, "error", err)
		return info, nil
	}

	if p, ok := matchPartition(parts, abs); ok {
		info.Mountpoint = p.Mountpoint
		info.Device = p.Device
		info.FSType = p.Fstype
	}

	return info, nil
}

// matchPartition picks the partition whose mountpoint is the longest prefix
// of path.
func matchPartition(parts []disk.PartitionStat, path string) (disk.PartitionStat, bool) {
	var (
		best  disk.PartitionStat
		found bool
	)

	for _, p := range parts {
		if p.Mountpoint == "" || !underMount(path, p.Mountpoint) {
			continue
		}
		if !found || len(p.Mountpoint) > len(best.Mountpoint) {
			best, found = p, true
		}
	}

	return best, found
}

func underMount(path, mountpoint string) bool {
	if runtime.GOOS == "windows" {
		path, mountpoint = strings.ToLower(path), strings.ToLower(mountpoint)
	}

	if path == mountpoint {
		return true
	}

	sep := string(filepath.Separator)
	if !strings.HasSuffix(mountpoint, sep) {
		mountpoint += sep
	}

	return strings.HasPrefix(path, mountpoint)
}

// RoundUp returns the smallest multiple of unit that is >= n. A zero unit
// returns n unchanged.
func RoundUp(n, unit uint64) uint64 {
	if unit == 0 {
		return n
	}
	if rem := n % unit; rem != 0 {
		return n + unit - rem
	}
	return n
}
