//go:build linux

package cas

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// publish moves tmp to dst and fails with fs.ErrExist instead of replacing an
// entry that is already there.
func publish(tmp, dst string) error {
	err := unix.Renameat2(unix.AT_FDCWD, tmp, unix.AT_FDCWD, dst, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EEXIST):
		return fs.ErrExist
	case errors.Is(err, unix.ENOSYS), errors.Is(err, unix.EINVAL):
		// Filesystems without RENAME_NOREPLACE support.
		return publishFallback(tmp, dst)
	default:
		return err
	}
}
