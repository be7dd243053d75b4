package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter hashes installed trees with xxhash.
type Fingerprinter struct {
	walker *Walker
}

// NewFingerprinter creates a new Fingerprinter.
func NewFingerprinter(walker *Walker) *Fingerprinter {
	return &Fingerprinter{walker: walker}
}

// Fingerprint returns a hash over the relative path and content of every file
// below dir. Two trees with the same files produce the same fingerprint
// regardless of where they live.
func (f *Fingerprinter) Fingerprint(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", dir)
	}
	if !info.IsDir() {
		return "", zerr.With(fmt.Errorf("%w: not a directory", domain.ErrIO), "path", dir)
	}

	hasher := xxhash.New()
	for path := range f.walker.WalkFiles(dir) {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return "", zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
		}
		_, _ = hasher.WriteString(filepath.ToSlash(rel))
		_, _ = hasher.Write([]byte{0})

		sum, err := fileHash(path)
		if err != nil {
			return "", err
		}
		_ = binary.Write(hasher, binary.LittleEndian, sum)
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// fileHash computes the xxhash of a file's content. Symlinks hash their target
// path so that dangling links are still accounted for.
func fileHash(path string) (uint64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return 0, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
		}
		return xxhash.Sum64String(target), nil
	}

	file, err := os.Open(path) //nolint:gosec // Path comes from walking a trusted root
	if err != nil {
		return 0, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return 0, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	return hasher.Sum64(), nil
}
