package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

//go:generate mockgen -source=installer.go -destination=mocks/mock_installer.go -package=mocks

// Installer installs and removes single packages transactionally.
type Installer interface {
	// Install fetches, verifies, extracts, activates and registers one package.
	Install(ctx context.Context, id domain.PackageID, src domain.Source) (domain.InstallResult, error)

	// Remove deletes the package directory and drops its registry and lock entries.
	Remove(ctx context.Context, id domain.PackageID) error
}

// Resolver installs a package after all of its transitive dependencies.
type Resolver interface {
	Resolve(ctx context.Context, id string, opts domain.ResolveOptions) (domain.InstallResult, error)
}
