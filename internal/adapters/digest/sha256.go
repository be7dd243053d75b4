// Package digest implements the SHA-256 content digest used for archive
// verification and as the content cache key.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math/bits"
)

const (
	// Size is the length of a SHA-256 checksum in bytes.
	Size = 32

	// BlockSize is the SHA-256 block size in bytes.
	BlockSize = 64
)

var _ hash.Hash = (*SHA256)(nil)

// Sum is a raw SHA-256 value.
type Sum [Size]byte

// Hex returns the 64-character lowercase hex form of the sum.
func (s Sum) Hex() string {
	return hex.EncodeToString(s[:])
}

var initial = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var roundConstants = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// SHA256 is a streaming SHA-256 state.
type SHA256 struct {
	h      [8]uint32
	block  [BlockSize]byte
	nblock int
	length uint64
}

// New returns a fresh SHA-256 state.
func New() *SHA256 {
	d := &SHA256{}
	d.Reset()
	return d
}

// Reset restores the initial state.
func (d *SHA256) Reset() {
	d.h = initial
	d.nblock = 0
	d.length = 0
}

// Size returns the checksum length.
func (d *SHA256) Size() int { return Size }

// BlockSize returns the block length.
func (d *SHA256) BlockSize() int { return BlockSize }

// Write absorbs p. It never fails.
func (d *SHA256) Write(p []byte) (int, error) {
	n := len(p)
	d.length += uint64(n)

	if d.nblock > 0 {
		c := copy(d.block[d.nblock:], p)
		d.nblock += c
		p = p[c:]
		if d.nblock < BlockSize {
			return n, nil
		}
		d.compress(d.block[:])
		d.nblock = 0
	}

	for len(p) >= BlockSize {
		d.compress(p[:BlockSize])
		p = p[BlockSize:]
	}

	d.nblock = copy(d.block[:], p)
	return n, nil
}

// Sum appends the current checksum to b without changing the state.
func (d *SHA256) Sum(b []byte) []byte {
	s := d.Checksum()
	return append(b, s[:]...)
}

// Checksum finalizes a copy of the state and returns the digest.
func (d *SHA256) Checksum() Sum {
	c := *d

	// Padding: 0x80, zeros up to 56 mod 64, then the message length in bits.
	var pad [BlockSize + 8]byte
	pad[0] = 0x80
	padLen := BlockSize - (c.nblock+8+1)%BlockSize + 1
	if padLen > BlockSize {
		padLen -= BlockSize
	}
	binary.BigEndian.PutUint64(pad[padLen:], c.length<<3)
	_, _ = c.Write(pad[:padLen+8])

	var out Sum
	for i, v := range c.h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func (d *SHA256) compress(p []byte) {
	var w [64]uint32
	for i := range 16 {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 64; i++ {
		s0 := bits.RotateLeft32(w[i-15], -7) ^ bits.RotateLeft32(w[i-15], -18) ^ (w[i-15] >> 3)
		s1 := bits.RotateLeft32(w[i-2], -17) ^ bits.RotateLeft32(w[i-2], -19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, dd, e, f, g, h := d.h[0], d.h[1], d.h[2], d.h[3], d.h[4], d.h[5], d.h[6], d.h[7]
	for i := range 64 {
		s1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
		ch := (e & f) ^ (^e & g)
		t1 := h + s1 + ch + roundConstants[i] + w[i]
		s0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := s0 + maj

		h = g
		g = f
		f = e
		e = dd + t1
		dd = c
		c = b
		b = a
		a = t1 + t2
	}

	d.h[0] += a
	d.h[1] += b
	d.h[2] += c
	d.h[3] += dd
	d.h[4] += e
	d.h[5] += f
	d.h[6] += g
	d.h[7] += h
}
