package archive

import (
	"fmt"
	"hash/crc32"
	"io"

	"go.trai.ch/forge/internal/core/domain"
)

const (
	windowSize = 32 << 10
	windowMask = windowSize - 1

	endOfBlock   = 256
	maxLitLen    = 286
	maxDistCodes = 30
	numCLCodes   = 19

	flushSize = 4 << 10
)

var (
	lengthBase  = [29]uint16{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
	lengthExtra = [29]uint8{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}
	distBase    = [30]uint16{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
	distExtra   = [30]uint8{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}

	// codeLengthOrder is the transmission order of code-length code lengths.
	codeLengthOrder = [numCLCodes]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

// inflater holds all state for decoding one member. It is never shared.
type inflater struct {
	br      *bitReader
	dst     io.Writer
	crc     uint32
	total   uint64
	limit   uint64
	window  [windowSize]byte
	wpos    int
	pending []byte
	lit     huffman
	dist    huffman
}

// Inflate decodes a raw Deflate stream of compressedSize bytes from src into
// dst. It fails unless exactly uncompressedSize bytes come out and their
// CRC-32 equals expectedCRC. Callers are expected to have applied CheckMember.
func Inflate(src io.ByteReader, dst io.Writer, compressedSize, uncompressedSize uint64, expectedCRC uint32) error {
	f := &inflater{
		br:      newBitReader(src, compressedSize),
		dst:     dst,
		limit:   uncompressedSize,
		pending: make([]byte, 0, flushSize),
	}
	if err := f.run(); err != nil {
		return err
	}
	return verify(f.total, uncompressedSize, f.crc, expectedCRC)
}

func verify(total, declared uint64, crc, expected uint32) error {
	if total != declared {
		return fmt.Errorf("%w: produced %d bytes, declared %d", domain.ErrSizeMismatch, total, declared)
	}
	if crc != expected {
		return fmt.Errorf("%w: got %08x, expected %08x", domain.ErrChecksumMismatch, crc, expected)
	}
	return nil
}

func (f *inflater) run() error {
	for f.total < f.limit {
		header, err := f.br.ReadBits(3)
		if err != nil {
			return err
		}
		final := header&1 == 1

		switch header >> 1 {
		case 0:
			err = f.stored()
		case 1:
			err = f.fixed()
		case 2:
			err = f.dynamic()
		default:
			err = fmt.Errorf("%w: reserved block type", domain.ErrDecode)
		}
		if err != nil {
			return err
		}
		if final {
			break
		}
	}
	return f.flush()
}

func (f *inflater) stored() error {
	f.br.AlignToByte()
	n, err := f.br.ReadBits(16)
	if err != nil {
		return err
	}
	check, err := f.br.ReadBits(16)
	if err != nil {
		return err
	}
	if n != ^check&0xffff {
		return fmt.Errorf("%w: stored block length check failed", domain.ErrDecode)
	}
	for range n {
		b, err := f.br.alignedByte()
		if err != nil {
			return err
		}
		if err := f.emit(b); err != nil {
			return err
		}
	}
	return nil
}

func (f *inflater) fixed() error {
	var lengths [maxLitLen + 2]uint8
	for i := range lengths {
		switch {
		case i < 144:
			lengths[i] = 8
		case i < 256:
			lengths[i] = 9
		case i < 280:
			lengths[i] = 7
		default:
			lengths[i] = 8
		}
	}
	if err := f.lit.build(lengths[:]); err != nil {
		return err
	}

	var dl [32]uint8
	for i := range dl {
		dl[i] = 5
	}
	if err := f.dist.build(dl[:]); err != nil {
		return err
	}
	return f.codes()
}

func (f *inflater) dynamic() error {
	hlit, err := f.br.ReadBits(5)
	if err != nil {
		return err
	}
	hdist, err := f.br.ReadBits(5)
	if err != nil {
		return err
	}
	hclen, err := f.br.ReadBits(4)
	if err != nil {
		return err
	}
	nlit, ndist, ncl := int(hlit)+257, int(hdist)+1, int(hclen)+4
	if nlit > maxLitLen || ndist > maxDistCodes {
		return fmt.Errorf("%w: too many codes (%d literal, %d distance)", domain.ErrDecode, nlit, ndist)
	}

	var clLengths [numCLCodes]uint8
	for i := range ncl {
		v, err := f.br.ReadBits(3)
		if err != nil {
			return err
		}
		clLengths[codeLengthOrder[i]] = uint8(v)
	}
	// The code-length code reuses the literal table storage.
	if err := f.lit.build(clLengths[:]); err != nil {
		return err
	}

	lengths := make([]uint8, nlit+ndist)
	for i := 0; i < len(lengths); {
		sym, err := f.br.decodeSymbol(&f.lit)
		if err != nil {
			return err
		}

		var repeat uint32
		var value uint8
		switch {
		case sym < 16:
			lengths[i] = uint8(sym)
			i++
			continue
		case sym == 16:
			if i == 0 {
				return fmt.Errorf("%w: repeat with no previous length", domain.ErrDecode)
			}
			value = lengths[i-1]
			repeat, err = f.br.ReadBits(2)
			repeat += 3
		case sym == 17:
			repeat, err = f.br.ReadBits(3)
			repeat += 3
		default:
			repeat, err = f.br.ReadBits(7)
			repeat += 11
		}
		if err != nil {
			return err
		}
		if i+int(repeat) > len(lengths) {
			return fmt.Errorf("%w: code lengths overflow", domain.ErrDecode)
		}
		for range repeat {
			lengths[i] = value
			i++
		}
	}

	if lengths[endOfBlock] == 0 {
		return fmt.Errorf("%w: missing end-of-block code", domain.ErrDecode)
	}
	if err := f.lit.build(lengths[:nlit]); err != nil {
		return err
	}
	if err := f.dist.build(lengths[nlit:]); err != nil {
		return err
	}
	return f.codes()
}

// codes decodes literal/length and distance symbols until end of block.
func (f *inflater) codes() error {
	for {
		sym, err := f.br.decodeSymbol(&f.lit)
		if err != nil {
			return err
		}

		switch {
		case sym < endOfBlock:
			if err := f.emit(byte(sym)); err != nil {
				return err
			}
			continue
		case sym == endOfBlock:
			return nil
		case sym >= endOfBlock+1+len(lengthBase):
			return fmt.Errorf("%w: invalid length symbol %d", domain.ErrDecode, sym)
		}

		li := sym - endOfBlock - 1
		extra, err := f.br.ReadBits(uint(lengthExtra[li]))
		if err != nil {
			return err
		}
		length := int(lengthBase[li]) + int(extra)

		dsym, err := f.br.decodeSymbol(&f.dist)
		if err != nil {
			return err
		}
		if dsym >= maxDistCodes {
			return fmt.Errorf("%w: invalid distance symbol %d", domain.ErrDecode, dsym)
		}
		extra, err = f.br.ReadBits(uint(distExtra[dsym]))
		if err != nil {
			return err
		}
		distance := int(distBase[dsym]) + int(extra)

		if distance > windowSize || uint64(distance) > f.total {
			return fmt.Errorf("%w: distance %d beyond window", domain.ErrDecode, distance)
		}

		src := (f.wpos - distance) & windowMask
		for range length {
			if err := f.emit(f.window[src]); err != nil {
				return err
			}
			src = (src + 1) & windowMask
		}
	}
}

// emit appends one byte to the output, the window and the checksum.
func (f *inflater) emit(b byte) error {
	if f.total >= f.limit {
		return fmt.Errorf("%w: output exceeds declared size %d", domain.ErrSizeMismatch, f.limit)
	}
	f.window[f.wpos] = b
	f.wpos = (f.wpos + 1) & windowMask
	f.total++

	f.pending = append(f.pending, b)
	if len(f.pending) == cap(f.pending) {
		return f.flush()
	}
	return nil
}

func (f *inflater) flush() error {
	if len(f.pending) == 0 {
		return nil
	}
	f.crc = crc32.Update(f.crc, crc32.IEEETable, f.pending)
	if _, err := f.dst.Write(f.pending); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	f.pending = f.pending[:0]
	return nil
}
