//go:build windows

package volume

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procGetDiskFreeSpace = modkernel32.NewProc("GetDiskFreeSpaceW")
)

func statVolume(path string) (blockSize, total, free uint64, err error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, 0, err
	}

	root := make([]uint16, windows.MAX_PATH+1)
	if err = windows.GetVolumePathName(p, &root[0], uint32(len(root))); err != nil {
		return 0, 0, 0, err
	}

	var freeBytesAvailable, totalNumberOfBytes, totalNumberOfFreeBytes uint64
	err = windows.GetDiskFreeSpaceEx(&root[0], &freeBytesAvailable, &totalNumberOfBytes, &totalNumberOfFreeBytes)
	if err != nil {
		return 0, 0, 0, err
	}

	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	ret, _, callErr := procGetDiskFreeSpace.Call(
		uintptr(unsafe.Pointer(&root[0])),
		uintptr(unsafe.Pointer(&sectorsPerCluster)),
		uintptr(unsafe.Pointer(&bytesPerSector)),
		uintptr(unsafe.Pointer(&freeClusters)),
		uintptr(unsafe.Pointer(&totalClusters)),
	)
	if ret == 0 {
		return 0, 0, 0, callErr
	}

	return uint64(sectorsPerCluster) * uint64(bytesPerSector), totalNumberOfBytes, freeBytesAvailable, nil
}
