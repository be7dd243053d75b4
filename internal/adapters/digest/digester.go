package digest

import (
	"fmt"
	"io"
	"os"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// chunkSize is the read granularity when streaming input.
const chunkSize = 32 << 10

var _ ports.Digester = (*Digester)(nil)

// FromReader streams r through SHA-256 in fixed-size chunks.
func FromReader(r io.Reader) (Sum, error) {
	d := New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = d.Write(buf[:n])
		}
		if err == io.EOF {
			return d.Checksum(), nil
		}
		if err != nil {
			return Sum{}, fmt.Errorf("%w: %w", domain.ErrDigestRead, err)
		}
	}
}

// FromFile streams the file at path through SHA-256.
func FromFile(path string) (Sum, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return Sum{}, zerr.With(fmt.Errorf("%w: %w", domain.ErrDigestRead, err), "path", path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	sum, err := FromReader(f)
	if err != nil {
		return Sum{}, zerr.With(err, "path", path)
	}
	return sum, nil
}

// Digester implements ports.Digester.
type Digester struct{}

// NewDigester creates a new Digester.
func NewDigester() *Digester {
	return &Digester{}
}

// DigestFile returns the hex SHA-256 digest of the file at path.
func (*Digester) DigestFile(path string) (domain.Digest, error) {
	sum, err := FromFile(path)
	if err != nil {
		return "", err
	}
	return domain.Digest(sum.Hex()), nil
}
