package ports

import "go.trai.ch/forge/internal/core/domain"

// ContentCache stores archives keyed by their digest.
//
//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type ContentCache interface {
	// Has reports whether an entry exists for the digest.
	Has(digest domain.Digest) bool

	// PathFor returns the path of the entry. Only valid when Has is true.
	PathFor(digest domain.Digest) string

	// Store copies sourcePath into the cache. It is a no-op if the entry exists.
	Store(digest domain.Digest, sourcePath string) error
}
