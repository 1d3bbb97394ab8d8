//go:build windows

package assets

import "golang.org/x/sys/windows"

// availableDiskSpace returns the bytes available to the caller on the
// volume holding path.
func availableDiskSpace(path string) (int64, error) {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &available, &total, &free); err != nil {
		return 0, err
	}
	return int64(available), nil
}
