package ports

import "go.trai.ch/forge/internal/core/domain"

// Registry is the durable list of installed packages.
//
//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks
type Registry interface {
	// List returns the installed packages in registry order.
	List() ([]domain.PackageID, error)

	// Contains reports whether id is registered.
	Contains(id domain.PackageID) (bool, error)

	// Add registers id. Adding a registered id rewrites the registry unchanged.
	// An error matching domain.ErrNotDurable means the change is visible but
	// the directory sync failed.
	Add(id domain.PackageID) error

	// Remove unregisters id.
	Remove(id domain.PackageID) error
}
