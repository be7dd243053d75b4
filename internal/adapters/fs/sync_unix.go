//go:build unix

package fs

import (
	"fmt"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

// SyncDir flushes directory metadata so that a preceding rename survives a crash.
func SyncDir(path string) error {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	defer unix.Close(fd) //nolint:errcheck // Read-only descriptor

	if err := unix.Fsync(fd); err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	return nil
}
