package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

const (
	// MaxNameLen is the longest accepted package name in bytes.
	MaxNameLen = 63

	// MaxVersionLen is the longest accepted package version in bytes.
	MaxVersionLen = 31

	// MaxDepth is the resolution depth ceiling. It also bounds recursive deletes.
	MaxDepth = 100

	// MaxStack is the largest number of packages on one resolution chain.
	MaxStack = 64

	// MaxManifestDeps is the largest number of dependencies a manifest may declare.
	MaxManifestDeps = 32

	// MaxManifestSize is the largest accepted manifest file in bytes.
	MaxManifestSize = 1 << 20
)

// PackageID identifies one version of a package.
type PackageID struct {
	Name    string
	Version string
}

// ParsePackageID parses a name@version token.
func ParsePackageID(s string) (PackageID, error) {
	name, version, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(version, "@") {
		return PackageID{}, invalidID(s, "expected name@version")
	}

	id := PackageID{Name: name, Version: version}
	if err := id.Validate(); err != nil {
		return PackageID{}, err
	}
	return id, nil
}

// Validate reports whether both halves are non-empty, short enough, and free of
// path separators, traversal sequences, '@' and whitespace.
func (p PackageID) Validate() error {
	switch {
	case p.Name == "" || p.Version == "":
		return invalidID(p.String(), "empty name or version")
	case len(p.Name) > MaxNameLen:
		return invalidID(p.String(), "name too long")
	case len(p.Version) > MaxVersionLen:
		return invalidID(p.String(), "version too long")
	case !IsSafeComponent(p.Name) || !IsSafeComponent(p.Version):
		return invalidID(p.String(), "path traversal or separator")
	case strings.ContainsAny(p.Name+p.Version, "@ \t\r\n"):
		return invalidID(p.String(), "reserved character")
	}
	return nil
}

// String renders the identifier as name@version.
func (p PackageID) String() string {
	return p.Name + "@" + p.Version
}

// IsSafeComponent reports whether s can be used as a single path component.
func IsSafeComponent(s string) bool {
	return !strings.Contains(s, "..") && !strings.ContainsAny(s, `/\`)
}

func invalidID(raw, reason string) error {
	return zerr.With(fmt.Errorf("%w: %s", ErrInvalidPackageID, reason), "package", raw)
}

// InstallResult reports what an install did.
type InstallResult int

const (
	// Installed means the package was fetched, extracted and registered.
	Installed InstallResult = iota
	// AlreadySatisfied means the package was already registered and nothing changed.
	AlreadySatisfied
)

// String returns a human-readable name for the result.
func (r InstallResult) String() string {
	if r == AlreadySatisfied {
		return "already satisfied"
	}
	return "installed"
}

// ResolveOptions controls one top-level resolution.
type ResolveOptions struct {
	// LockEnforced requires every package on the graph to be pinned in the lock table.
	LockEnforced bool
}
