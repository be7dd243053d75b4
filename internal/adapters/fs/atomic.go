package fs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

var syncDir = SyncDir

// ReplaceFile rewrites path through <path>.tmp: write fills the staging file,
// which is flushed, renamed over path, and followed by a parent directory
// sync. Readers observe either the old or the new content.
//
// Once the rename has landed the new content is committed. A failing
// directory sync after that point is reported as domain.ErrNotDurable.
func ReplaceFile(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return ioError(err, dir)
	}

	tmpPath := path + domain.StagingSuffix
	//nolint:gosec // Path is derived from configured locations
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return ioError(err, tmpPath)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return ioError(err, tmpPath)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return ioError(err, tmpPath)
	}
	if err := f.Close(); err != nil {
		return ioError(err, tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	if err := syncDir(dir); err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrNotDurable, err), "path", dir)
	}
	return nil
}
