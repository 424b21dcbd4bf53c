package filesize

// invalidFileSize is INVALID_FILE_SIZE, the low word GetCompressedFileSizeW
// returns on failure. It is also a valid low word for a successful call.
const invalidFileSize = 0xFFFFFFFF

// joinCompressedSize recombines the high and low words of a
// GetCompressedFileSizeW result. errno is the thread's last error after the
// call; it only decides failure when low is the INVALID_FILE_SIZE sentinel.
func joinCompressedSize(high, low, errno uint32) (size uint64, failed bool) {
	if low == invalidFileSize && errno != 0 {
		return 0, true
	}

	return uint64(high)<<32 | uint64(low), false
}
