// Package archive extracts zip containers of Deflate members with a
// hand-written decoder that enforces size, ratio and path safety gates.
package archive

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// MaxUncompressedSize is the largest declared member size accepted.
	MaxUncompressedSize = 1 << 30

	// MaxCompressedSize is the largest compressed member size accepted.
	MaxCompressedSize = 16 << 20

	// MaxPathLen bounds the destination path of a member.
	MaxPathLen = 256

	readBufferSize = 32 << 10
)

// Compression methods understood by the decoder, as numbered in zip headers.
const (
	MethodStore   uint16 = 0
	MethodDeflate uint16 = 8
)

// Member describes one compressed entry of a container.
type Member struct {
	// Name is the destination path, relative to the extraction root, using
	// forward slashes.
	Name             string
	Method           uint16
	CompressedSize   uint64
	UncompressedSize uint64
	CRC32            uint32
}

// CheckMember applies the safety gates that must pass before any byte of a
// member is decoded or written.
func CheckMember(m Member) error {
	if m.UncompressedSize > MaxUncompressedSize {
		return rejectMember(m, "declared size "+humanize.IBytes(m.UncompressedSize)+" exceeds "+humanize.IBytes(MaxUncompressedSize))
	}
	if m.CompressedSize > MaxCompressedSize {
		return rejectMember(m, "compressed size "+humanize.IBytes(m.CompressedSize)+" exceeds "+humanize.IBytes(MaxCompressedSize))
	}
	if reason := unsafePath(m.Name); reason != "" {
		return rejectMember(m, reason)
	}
	return nil
}

func rejectMember(m Member, reason string) error {
	return zerr.With(fmt.Errorf("%w: %s", domain.ErrUnsafeArchive, reason), "member", m.Name)
}

// unsafePath returns why name cannot be used as a destination, or "".
func unsafePath(name string) string {
	switch {
	case name == "":
		return "empty path"
	case len(name) >= MaxPathLen:
		return "path too long"
	case strings.ContainsAny(name, "\\\x00"):
		return "path contains backslash or NUL"
	case strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return "absolute path"
	}
	for seg := range strings.SplitSeq(name, "/") {
		switch seg {
		case "..":
			return "parent directory segment"
		case ".", "":
			return "empty or current directory segment"
		}
	}
	return ""
}

// DecodeMember writes member m, read from src positioned at its first
// compressed byte, to root/m.Name. On any failure the output file is removed.
func DecodeMember(src io.Reader, root string, m Member) (err error) {
	if err := CheckMember(m); err != nil {
		return err
	}
	if m.Method != MethodStore && m.Method != MethodDeflate {
		return zerr.With(fmt.Errorf("%w: method %d", domain.ErrUnsupportedMethod, m.Method), "member", m.Name)
	}

	dest := filepath.Join(root, filepath.FromSlash(m.Name))
	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", dest)
	}

	//nolint:gosec // dest passed CheckMember
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", dest)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", domain.ErrIO, cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
			err = zerr.With(err, "member", m.Name)
		}
	}()

	w := bufio.NewWriterSize(f, readBufferSize)
	r := bufio.NewReaderSize(src, readBufferSize)
	if m.Method == MethodStore {
		err = copyStored(r, w, m)
	} else {
		err = Inflate(r, w, m.CompressedSize, m.UncompressedSize, m.CRC32)
	}
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	return nil
}

// copyStored copies an uncompressed member, checking its size and CRC-32.
func copyStored(r io.Reader, w io.Writer, m Member) error {
	if m.CompressedSize != m.UncompressedSize {
		return fmt.Errorf("%w: stored member sizes differ", domain.ErrSizeMismatch)
	}
	crc := crc32.NewIEEE()
	n, err := io.Copy(io.MultiWriter(w, crc), io.LimitReader(r, int64(m.UncompressedSize))) //nolint:gosec // Bounded by CheckMember
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return errTruncated
		}
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	return verify(uint64(n), m.UncompressedSize, crc.Sum32(), m.CRC32) //nolint:gosec // n is non-negative
}
