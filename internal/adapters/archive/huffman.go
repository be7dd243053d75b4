package archive

import (
	"fmt"
	"math/bits"

	"go.trai.ch/forge/internal/core/domain"
)

const (
	// maxCodeBits is the longest Deflate code and the lookup table index width.
	maxCodeBits = 15

	// minProbeBits is the first width tried when decoding; most literals fit.
	minProbeBits = 7
)

type huffEntry struct {
	sym uint16
	len uint8
}

// huffman is a canonical Huffman code expanded into a flat lookup table.
// Entry i holds the code whose bit-reversed value equals the low bits of i.
type huffman struct {
	table [1 << maxCodeBits]huffEntry
}

// build assigns canonical codes to lengths (0 means unused) and fills the
// table. Over-subscribed length sets are rejected; incomplete ones are
// accepted because a single distance code is legal.
func (h *huffman) build(lengths []uint8) error {
	var count [maxCodeBits + 1]int
	for _, l := range lengths {
		if l > maxCodeBits {
			return fmt.Errorf("%w: code length %d", domain.ErrDecode, l)
		}
		count[l]++
	}
	count[0] = 0

	left := 1
	for l := 1; l <= maxCodeBits; l++ {
		left <<= 1
		left -= count[l]
		if left < 0 {
			return fmt.Errorf("%w: over-subscribed code lengths", domain.ErrDecode)
		}
	}

	var next [maxCodeBits + 1]int
	code := 0
	for l := 1; l <= maxCodeBits; l++ {
		code = (code + count[l-1]) << 1
		next[l] = code
	}

	clear(h.table[:])
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := next[l]
		next[l]++
		rev := int(bits.Reverse16(uint16(c)) >> (16 - l))
		for i := rev; i < len(h.table); i += 1 << l {
			h.table[i] = huffEntry{sym: uint16(sym), len: l}
		}
	}
	return nil
}

// decodeSymbol probes the table at widths minProbeBits..maxCodeBits until an
// entry whose code fits the probed width is found.
func (br *bitReader) decodeSymbol(h *huffman) (int, error) {
	if err := br.fill(maxCodeBits); err != nil {
		return 0, err
	}
	for width := uint(minProbeBits); width <= maxCodeBits; width++ {
		w := min(width, br.nbits)
		e := h.table[br.bits&(1<<w-1)]
		if e.len != 0 && uint(e.len) <= w {
			br.consume(uint(e.len))
			return int(e.sym), nil
		}
		if w < width {
			return 0, errTruncated
		}
	}
	return 0, fmt.Errorf("%w: invalid Huffman code", domain.ErrDecode)
}
