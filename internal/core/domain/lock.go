package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

// DigestLen is the length of a hex encoded SHA-256 digest.
const DigestLen = 64

// Digest is a lowercase hex encoded SHA-256 content digest.
type Digest string

// ParseDigest validates s as a digest.
func ParseDigest(s string) (Digest, error) {
	d := Digest(s)
	if !d.Valid() {
		return "", zerr.With(fmt.Errorf("%w: expected %d lowercase hex characters", ErrInvalidDigest, DigestLen), "digest", s)
	}
	return d, nil
}

// Valid reports whether d is 64 lowercase hex characters.
func (d Digest) Valid() bool {
	if len(d) != DigestLen {
		return false
	}
	for i := range len(d) {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// String returns the digest as hex.
func (d Digest) String() string {
	return string(d)
}

// Source tells the install transaction where to get an archive.
// An empty Digest means the source is unpinned.
type Source struct {
	URL    string
	Digest Digest
}

// Pinned reports whether the source carries an expected digest.
func (s Source) Pinned() bool {
	return s.Digest != ""
}

// LockEntry is one pinned row of the lock table.
type LockEntry struct {
	ID     PackageID
	URL    string
	Digest Digest
}

// Source returns the pinned source described by the entry.
func (e LockEntry) Source() Source {
	return Source{URL: e.URL, Digest: e.Digest}
}
