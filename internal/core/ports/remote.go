package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

//go:generate mockgen -source=remote.go -destination=mocks/mock_remote.go -package=mocks

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	// Fetch writes the body at url to dest. On failure dest does not exist.
	Fetch(ctx context.Context, url, dest string) error
}

// ManifestSource returns the declared dependencies of a package.
type ManifestSource interface {
	Dependencies(ctx context.Context, id domain.PackageID) ([]domain.PackageID, error)
}

// VersionSource reports the newest published version of a package.
type VersionSource interface {
	Latest(ctx context.Context, name string) (string, error)
}
