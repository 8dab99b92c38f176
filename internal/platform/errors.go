package platform

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsCrossDevice reports whether err is the rename(2) failure raised when the
// source and destination live on different filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// isFallbackErr returns true if err should trigger a fallback to the next copy strategy.
func isFallbackErr(err error) bool {
	for _, errno := range []unix.Errno{unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP, unix.EOPNOTSUPP} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
