package ports

import (
	"iter"

	"go.trai.ch/forge/internal/core/domain"
)

// LockTable reads and prunes the pinned lock table.
//
//go:generate mockgen -source=lockfile.go -destination=mocks/mock_lockfile.go -package=mocks
type LockTable interface {
	// Exists reports whether the lock file is present.
	Exists() bool

	// Entries lazily yields every well-formed row. Each call re-reads the file.
	Entries() iter.Seq2[domain.LockEntry, error]

	// Lookup returns the first row pinning id.
	Lookup(id domain.PackageID) (domain.LockEntry, bool, error)

	// Remove drops every row pinning id.
	Remove(id domain.PackageID) error
}
