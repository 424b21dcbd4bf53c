//go:build !linux && !darwin && !freebsd && !dragonfly && !windows

package volume

func statVolume(string) (blockSize, total, free uint64, err error) {
	return 0, 0, 0, ErrUnsupported
}
