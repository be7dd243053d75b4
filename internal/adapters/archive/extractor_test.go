package archive_test

import (
	"bytes"
	"context"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/archive"
	"go.trai.ch/forge/internal/core/domain"
)

type zipEntry struct {
	name   string
	body   string
	method uint16
}

func writeZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "pkg.zip")
	big := strings.Repeat("deflate me please ", 10_000)
	writeZip(t, zipPath, []zipEntry{
		{name: "include/", method: zip.Store},
		{name: "include/pkg.h", body: "#pragma once\n", method: zip.Deflate},
		{name: "src/lib/pkg.c", body: big, method: zip.Deflate},
		{name: "README", body: "stored as is", method: zip.Store},
		{name: "empty.txt", body: "", method: zip.Deflate},
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, archive.NewExtractor().Extract(context.Background(), zipPath, dest))

	read := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "#pragma once\n", read("include/pkg.h"))
	assert.Equal(t, big, read("src/lib/pkg.c"))
	assert.Equal(t, "stored as is", read("README"))
	assert.Empty(t, read("empty.txt"))
}

func TestExtractor_RejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, []zipEntry{
		{name: "../escape.txt", body: "pwned", method: zip.Deflate},
	})

	dest := filepath.Join(dir, "nested", "out")
	err := archive.NewExtractor().Extract(context.Background(), zipPath, dest)
	require.ErrorIs(t, err, domain.ErrUnsafeArchive)
	assert.NoFileExists(t, filepath.Join(dir, "nested", "escape.txt"))
}

func TestExtractor_UnsupportedMethod(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bzip.zip")

	body := []byte("not really bzip2")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "data.bin",
		Method:             12,
		CRC32:              crc32.ChecksumIEEE(body),
		CompressedSize64:   uint64(len(body)),
		UncompressedSize64: uint64(len(body)),
	})
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0o600))

	err = archive.NewExtractor().Extract(context.Background(), zipPath, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, domain.ErrUnsupportedMethod)
	assert.NoFileExists(t, filepath.Join(dir, "out", "data.bin"))
}

func TestExtractor_NotAZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "junk.zip")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o600))

	err := archive.NewExtractor().Extract(context.Background(), path, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestDecodeMember_Gates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member archive.Member
	}{
		{"bomb", archive.Member{Name: "a.bin", Method: archive.MethodDeflate, UncompressedSize: archive.MaxUncompressedSize + 1}},
		{"oversized input", archive.Member{Name: "a.bin", Method: archive.MethodDeflate, CompressedSize: archive.MaxCompressedSize + 1}},
		{"parent segment", archive.Member{Name: "x/../../a.bin", Method: archive.MethodDeflate}},
		{"leading parent", archive.Member{Name: "../a.bin", Method: archive.MethodDeflate}},
		{"absolute", archive.Member{Name: "/etc/passwd", Method: archive.MethodDeflate}},
		{"backslash", archive.Member{Name: `..\a.bin`, Method: archive.MethodDeflate}},
		{"too long", archive.Member{Name: strings.Repeat("a", archive.MaxPathLen), Method: archive.MethodDeflate}},
		{"empty", archive.Member{Name: "", Method: archive.MethodDeflate}},
		{"current directory", archive.Member{Name: ".", Method: archive.MethodDeflate}},
		{"current directory segment", archive.Member{Name: "a/./b.txt", Method: archive.MethodDeflate}},
		{"empty segment", archive.Member{Name: "a//b.txt", Method: archive.MethodDeflate}},
		{"trailing slash", archive.Member{Name: "dir/", Method: archive.MethodDeflate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()

			err := archive.DecodeMember(bytes.NewReader(nil), root, tt.member)
			require.ErrorIs(t, err, domain.ErrUnsafeArchive)

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing may be written before the gates pass")
		})
	}
}

func TestDecodeMember_RemovesOutputOnFailure(t *testing.T) {
	t.Parallel()

	payload := []byte(strings.Repeat("abc", 1000))
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, _ = w.Write(payload)
	require.NoError(t, w.Close())

	root := t.TempDir()
	m := archive.Member{
		Name:             "dir/out.txt",
		Method:           archive.MethodDeflate,
		CompressedSize:   uint64(buf.Len()),
		UncompressedSize: uint64(len(payload)),
		CRC32:            crc32.ChecksumIEEE(payload) ^ 0xffff,
	}

	err = archive.DecodeMember(bytes.NewReader(buf.Bytes()), root, m)
	require.ErrorIs(t, err, domain.ErrChecksumMismatch)
	assert.NoFileExists(t, filepath.Join(root, "dir", "out.txt"))

	m.CRC32 = crc32.ChecksumIEEE(payload)
	require.NoError(t, archive.DecodeMember(bytes.NewReader(buf.Bytes()), root, m))
	data, err := os.ReadFile(filepath.Join(root, "dir", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDecodeMember_StoredSizeMismatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	m := archive.Member{
		Name:             "s.txt",
		Method:           archive.MethodStore,
		CompressedSize:   3,
		UncompressedSize: 3,
		CRC32:            crc32.ChecksumIEEE([]byte("abc")),
	}
	err := archive.DecodeMember(bytes.NewReader([]byte("ab")), root, m)
	require.ErrorIs(t, err, domain.ErrSizeMismatch)
	assert.NoFileExists(t, filepath.Join(root, "s.txt"))
}
