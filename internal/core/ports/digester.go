package ports

import "go.trai.ch/forge/internal/core/domain"

// Digester computes content digests of files.
//
//go:generate mockgen -source=digester.go -destination=mocks/mock_digester.go -package=mocks
type Digester interface {
	// DigestFile streams the file at path and returns its SHA-256 digest.
	DigestFile(path string) (domain.Digest, error)
}
