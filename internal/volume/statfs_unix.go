//go:build linux || darwin || freebsd || dragonfly

package volume

import "golang.org/x/sys/unix"

func statVolume(path string) (blockSize, total, free uint64, err error) {
	var st unix.Statfs_t
	if err = unix.Statfs(path, &st); err != nil {
		return 0, 0, 0, err
	}

	blockSize = uint64(st.Bsize) //nolint:gosec
	total = uint64(st.Blocks) * blockSize
	free = uint64(st.Bavail) * blockSize //nolint:gosec

	return blockSize, total, free, nil
}
