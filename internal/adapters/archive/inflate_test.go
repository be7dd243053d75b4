package archive_test

import (
	"bytes"
	"hash/crc32"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/archive"
	"go.trai.ch/forge/internal/core/domain"
)

func deflate(t *testing.T, payload []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func inflate(compressed []byte, size uint64, crc uint32) ([]byte, error) {
	var out bytes.Buffer
	err := archive.Inflate(bytes.NewReader(compressed), &out, uint64(len(compressed)), size, crc)
	return out.Bytes(), err
}

func payloads() map[string][]byte {
	rng := rand.New(rand.NewPCG(7, 11))
	random := make([]byte, 100_000)
	for i := range random {
		random[i] = byte(rng.UintN(256))
	}
	text := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 3000))
	runs := bytes.Repeat([]byte{'z'}, 70_000)

	return map[string][]byte{
		"empty":    {},
		"one byte": {'x'},
		"text":     text,
		"random":   random,
		"runs":     runs,
	}
}

func TestInflate_RoundTrip(t *testing.T) {
	t.Parallel()

	levels := map[string]int{
		"stored":       flate.NoCompression,
		"huffman only": flate.HuffmanOnly,
		"best speed":   flate.BestSpeed,
		"default":      flate.DefaultCompression,
		"best":         flate.BestCompression,
	}

	for pname, payload := range payloads() {
		for lname, level := range levels {
			t.Run(pname+"/"+lname, func(t *testing.T) {
				t.Parallel()
				compressed := deflate(t, payload, level)
				crc := crc32.ChecksumIEEE(payload)

				out, err := inflate(compressed, uint64(len(payload)), crc)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(payload, out), "decoded payload differs")
			})
		}
	}
}

// bitWriter assembles Deflate streams by hand, least-significant bit first.
type bitWriter struct {
	buf   []byte
	acc   uint32
	nbits uint
}

func (w *bitWriter) bits(v uint32, n uint) {
	w.acc |= v << w.nbits
	w.nbits += n
	for w.nbits >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.nbits -= 8
	}
}

// code writes a Huffman code most-significant bit first.
func (w *bitWriter) code(c uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		w.bits((c>>uint(i))&1, 1)
	}
}

func (w *bitWriter) bytes() []byte {
	if w.nbits > 0 {
		return append(w.buf, byte(w.acc))
	}
	return w.buf
}

// fixedLiteral writes a literal/length symbol with the fixed code.
func (w *bitWriter) fixedLiteral(sym uint32) {
	switch {
	case sym < 144:
		w.code(0x30+sym, 8)
	case sym < 256:
		w.code(0x190+sym-144, 9)
	case sym < 280:
		w.code(sym-256, 7)
	default:
		w.code(0xc0+sym-280, 8)
	}
}

func TestInflate_FixedBlockWithOverlappingCopy(t *testing.T) {
	t.Parallel()

	w := &bitWriter{}
	w.bits(1, 1) // final
	w.bits(1, 2) // fixed Huffman
	w.fixedLiteral('a')
	w.fixedLiteral('b')
	w.fixedLiteral(258) // length 4
	w.code(1, 5)        // distance 2
	w.fixedLiteral(256)

	want := []byte("ababab")
	out, err := inflate(w.bytes(), uint64(len(want)), crc32.ChecksumIEEE(want))
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestInflate_StopsAtDeclaredLength(t *testing.T) {
	t.Parallel()

	// A non-final stored block followed by garbage: decoding must stop once
	// the declared length is reached and never look at the trailing bytes.
	w := &bitWriter{}
	w.bits(0, 1)
	w.bits(0, 2)
	stream := append(w.bytes(), 3, 0, 0xfc, 0xff, 'f', 'o', 'o', 0xff, 0xff)

	out, err := inflate(stream, 3, crc32.ChecksumIEEE([]byte("foo")))
	require.NoError(t, err)
	assert.Equal(t, []byte("foo"), out)
}

func TestInflate_Failures(t *testing.T) {
	t.Parallel()

	payload := []byte(strings.Repeat("forge ", 500))
	good := deflate(t, payload, flate.BestCompression)
	crc := crc32.ChecksumIEEE(payload)
	size := uint64(len(payload))

	t.Run("checksum mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := inflate(good, size, crc+1)
		assert.ErrorIs(t, err, domain.ErrChecksumMismatch)
		assert.ErrorIs(t, err, domain.ErrIntegrity)
	})

	t.Run("declared too small", func(t *testing.T) {
		t.Parallel()
		_, err := inflate(good, size-1, crc)
		assert.ErrorIs(t, err, domain.ErrSizeMismatch)
	})

	t.Run("declared too large", func(t *testing.T) {
		t.Parallel()
		_, err := inflate(good, size+1, crc)
		assert.ErrorIs(t, err, domain.ErrSizeMismatch)
	})

	t.Run("compressed budget too small", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := archive.Inflate(bytes.NewReader(good), &out, uint64(len(good)/2), size, crc)
		assert.ErrorIs(t, err, domain.ErrDecode)
	})

	t.Run("truncated source", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := archive.Inflate(bytes.NewReader(good[:len(good)/2]), &out, uint64(len(good)), size, crc)
		assert.ErrorIs(t, err, domain.ErrDecode)
	})

	t.Run("reserved block type", func(t *testing.T) {
		t.Parallel()
		w := &bitWriter{}
		w.bits(1, 1)
		w.bits(3, 2)
		_, err := inflate(w.bytes(), 1, 0)
		assert.ErrorIs(t, err, domain.ErrDecode)
	})

	t.Run("stored length check", func(t *testing.T) {
		t.Parallel()
		stream := []byte{0x01, 3, 0, 0, 0, 'a', 'b', 'c'}
		_, err := inflate(stream, 3, crc32.ChecksumIEEE([]byte("abc")))
		assert.ErrorIs(t, err, domain.ErrDecode)
	})

	t.Run("distance before start of output", func(t *testing.T) {
		t.Parallel()
		w := &bitWriter{}
		w.bits(1, 1)
		w.bits(1, 2)
		w.fixedLiteral('a')
		w.fixedLiteral(257) // length 3
		w.code(1, 5)        // distance 2, only 1 byte produced
		w.fixedLiteral(256)
		_, err := inflate(w.bytes(), 4, 0)
		assert.ErrorIs(t, err, domain.ErrDecode)
	})

	t.Run("invalid fixed length symbol", func(t *testing.T) {
		t.Parallel()
		w := &bitWriter{}
		w.bits(1, 1)
		w.bits(1, 2)
		w.fixedLiteral(286)
		_, err := inflate(w.bytes(), 1, 0)
		assert.ErrorIs(t, err, domain.ErrDecode)
	})
}
