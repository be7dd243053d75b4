// Package cas implements the content-addressed archive cache.
package cas

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ContentCache = (*Store)(nil)

// Store implements ports.ContentCache with one file per digest. Entries are
// written once and never modified.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The directory is
// created on the first Store call.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// PathFor returns the entry path of the digest.
func (s *Store) PathFor(digest domain.Digest) string {
	return filepath.Join(s.root, digest.String()+domain.ArchiveExt)
}

// Has reports whether a published entry exists for the digest.
func (s *Store) Has(digest domain.Digest) bool {
	if !digest.Valid() {
		return false
	}
	info, err := os.Stat(s.PathFor(digest))
	return err == nil && info.Mode().IsRegular()
}

// Store copies sourcePath into the cache under digest. The copy is staged in
// a temporary file inside the cache root, flushed, and published with a
// rename that never replaces an existing entry.
func (s *Store) Store(digest domain.Digest, sourcePath string) (err error) {
	if !digest.Valid() {
		return zerr.With(zerr.Wrap(domain.ErrInvalidDigest, ""), "digest", string(digest))
	}
	dst := s.PathFor(digest)
	if s.Has(digest) {
		return nil
	}

	if err := os.MkdirAll(s.root, domain.DirPerm); err != nil {
		return s.ioError(err, s.root)
	}

	src, err := os.Open(sourcePath) //nolint:gosec // Path is produced by the installer
	if err != nil {
		return s.ioError(err, sourcePath)
	}
	defer src.Close() //nolint:errcheck // Read-only handle

	tmp, err := os.CreateTemp(s.root, ".entry-*"+domain.StagingSuffix)
	if err != nil {
		return s.ioError(err, s.root)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return s.ioError(err, tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return s.ioError(err, tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return s.ioError(err, tmpPath)
	}
	if err := os.Chmod(tmpPath, domain.FilePerm); err != nil {
		return s.ioError(err, tmpPath)
	}

	if err := publish(tmpPath, dst); err != nil {
		if errors.Is(err, iofs.ErrExist) {
			// Another writer published the same content first.
			return nil
		}
		return s.ioError(err, dst)
	}
	published = true

	return fs.SyncDir(s.root)
}

func (s *Store) ioError(err error, path string) error {
	return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
}
