package archive

import (
	"errors"
	"fmt"
	"io"

	"go.trai.ch/forge/internal/core/domain"
)

// maxReadBits is the widest single ReadBits call.
const maxReadBits = 24

var (
	errCompressedOverrun = fmt.Errorf("%w: read past compressed length", domain.ErrDecode)
	errTruncated         = fmt.Errorf("%w: unexpected end of compressed data", domain.ErrDecode)
)

// bitReader reads a Deflate stream least-significant bit first, never
// consuming more than budget bytes from the source.
type bitReader struct {
	r      io.ByteReader
	budget uint64
	bits   uint32
	nbits  uint
}

func newBitReader(r io.ByteReader, budget uint64) *bitReader {
	return &bitReader{r: r, budget: budget}
}

func (br *bitReader) readByte() (byte, error) {
	if br.budget == 0 {
		return 0, errCompressedOverrun
	}
	b, err := br.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errTruncated
		}
		return 0, fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	br.budget--
	return b, nil
}

// need buffers at least n bits. n must not exceed maxReadBits.
func (br *bitReader) need(n uint) error {
	for br.nbits < n {
		b, err := br.readByte()
		if err != nil {
			return err
		}
		br.bits |= uint32(b) << br.nbits
		br.nbits += 8
	}
	return nil
}

// fill buffers up to n bits, stopping quietly when the budget or the source
// runs out. Only source failures other than EOF are reported.
func (br *bitReader) fill(n uint) error {
	for br.nbits < n && br.budget > 0 {
		b, err := br.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
		br.budget--
		br.bits |= uint32(b) << br.nbits
		br.nbits += 8
	}
	return nil
}

// ReadBits returns the next n bits, first bit in the lowest position.
func (br *bitReader) ReadBits(n uint) (uint32, error) {
	if n > maxReadBits {
		return 0, fmt.Errorf("%w: read of %d bits", domain.ErrDecode, n)
	}
	if err := br.need(n); err != nil {
		return 0, err
	}
	v := br.bits & (1<<n - 1)
	br.consume(n)
	return v, nil
}

// AlignToByte discards the bits remaining in the current byte.
func (br *bitReader) AlignToByte() {
	br.consume(br.nbits % 8)
}

// alignedByte returns the next whole byte. The reader must be byte aligned.
func (br *bitReader) alignedByte() (byte, error) {
	if br.nbits >= 8 {
		b := byte(br.bits)
		br.consume(8)
		return b, nil
	}
	return br.readByte()
}

func (br *bitReader) consume(n uint) {
	br.bits >>= n
	br.nbits -= n
}
