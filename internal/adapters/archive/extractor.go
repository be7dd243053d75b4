package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Extractor = (*Extractor)(nil)

// Extractor implements ports.Extractor for zip containers. The container
// directory is read with klauspost/compress; member bytes go through this
// package's decoder.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract decodes every entry of the zip at archivePath into destDir.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	// Insecure names are rejected per member by CheckMember.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrDecode, err), "path", archivePath)
	}
	defer r.Close() //nolint:errcheck // Read-only handle

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.extractEntry(f, destDir); err != nil {
			return zerr.With(err, "archive", archivePath)
		}
	}
	return nil
}

func (e *Extractor) extractEntry(f *zip.File, destDir string) error {
	if strings.HasSuffix(f.Name, "/") {
		return e.extractDir(f, destDir)
	}

	m := Member{
		Name:             f.Name,
		Method:           f.Method,
		CompressedSize:   f.CompressedSize64,
		UncompressedSize: f.UncompressedSize64,
		CRC32:            f.CRC32,
	}
	// Gate before touching the member bytes.
	if err := CheckMember(m); err != nil {
		return err
	}

	raw, err := f.OpenRaw()
	if err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrDecode, err), "member", f.Name)
	}
	return DecodeMember(raw, destDir, m)
}

func (e *Extractor) extractDir(f *zip.File, destDir string) error {
	name := strings.TrimSuffix(f.Name, "/")
	if name == "" {
		return nil
	}
	if reason := unsafePath(name); reason != "" {
		return rejectMember(Member{Name: f.Name}, reason)
	}
	path := filepath.Join(destDir, filepath.FromSlash(name))
	if err := os.MkdirAll(path, domain.DirPerm); err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	return nil
}
