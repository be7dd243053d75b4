package domain

import "go.trai.ch/zerr"

// Error taxonomy. Every error surfaced by forge matches one of these kinds
// under errors.Is. A manifest fetch failure also matches the kind of its cause.
var (
	// ErrValidation is returned for malformed identifiers, unsafe paths and invalid configuration.
	ErrValidation = zerr.New("validation failed")

	// ErrCycle is returned when a package transitively depends on itself.
	ErrCycle = zerr.New("circular dependency")

	// ErrDepthExceeded is returned when the dependency graph is deeper than the resolution ceiling.
	ErrDepthExceeded = zerr.New("dependency depth exceeded")

	// ErrNotFound is returned when a manifest, lock entry or installed package is missing.
	ErrNotFound = zerr.New("not found")

	// ErrTransport is returned when a remote fetch fails.
	ErrTransport = zerr.New("transport failure")

	// ErrIntegrity is returned when a digest or checksum does not match.
	ErrIntegrity = zerr.New("integrity check failed")

	// ErrDecode is returned for malformed or oversized compressed data.
	ErrDecode = zerr.New("decode failed")

	// ErrIO is returned when a filesystem operation fails.
	ErrIO = zerr.New("filesystem operation failed")
)

// Refined errors wrap their kind, so errors.Is matches both. Attach metadata
// to a zerr.Wrap(sentinel, "") of these, since zerr.With copies a *zerr.Error.
var (
	// ErrInvalidPackageID is returned when a name@version token cannot be parsed or is unsafe.
	ErrInvalidPackageID = zerr.Wrap(ErrValidation, "invalid package identifier")

	// ErrInvalidDigest is returned when a digest is not 64 lowercase hex characters.
	ErrInvalidDigest = zerr.Wrap(ErrValidation, "invalid digest")

	// ErrInvalidConfig is returned when forge.yaml holds an unusable value.
	ErrInvalidConfig = zerr.Wrap(ErrValidation, "invalid configuration")

	// ErrManifestTooLarge is returned when a manifest exceeds MaxManifestSize.
	ErrManifestTooLarge = zerr.Wrap(ErrValidation, "manifest too large")

	// ErrTooManyDependencies is returned when a manifest declares more than MaxManifestDeps entries.
	ErrTooManyDependencies = zerr.Wrap(ErrValidation, "too many dependencies")

	// ErrManifestInvalid is returned when a manifest cannot be parsed.
	ErrManifestInvalid = zerr.Wrap(ErrValidation, "malformed manifest")

	// ErrManifestMissing is returned when the manifest file does not exist.
	ErrManifestMissing = zerr.Wrap(ErrNotFound, "manifest missing")

	// ErrManifestFetch is returned when a package manifest cannot be retrieved.
	ErrManifestFetch = zerr.Wrap(ErrTransport, "failed to fetch manifest")

	// ErrLockEntryMissing is returned in lock-enforced mode for an unpinned package.
	ErrLockEntryMissing = zerr.Wrap(ErrNotFound, "package not pinned in lock file")

	// ErrLockFileMissing is returned when a lock-driven install finds no lock file.
	ErrLockFileMissing = zerr.Wrap(ErrNotFound, "lock file not found")

	// ErrPackageNotInstalled is returned when removing a package that is not installed.
	ErrPackageNotInstalled = zerr.Wrap(ErrNotFound, "package not installed")

	// ErrFetchFailed is returned when a URL cannot be downloaded.
	ErrFetchFailed = zerr.Wrap(ErrTransport, "fetch failed")

	// ErrDigestMismatch is returned when a downloaded archive does not match its pinned digest.
	ErrDigestMismatch = zerr.Wrap(ErrIntegrity, "digest mismatch")

	// ErrChecksumMismatch is returned when a decoded member fails its CRC-32 check.
	ErrChecksumMismatch = zerr.Wrap(ErrIntegrity, "checksum mismatch")

	// ErrSizeMismatch is returned when a decoded member length differs from its declared length.
	ErrSizeMismatch = zerr.Wrap(ErrIntegrity, "size mismatch")

	// ErrUnsafeArchive is returned when an archive member fails a safety gate.
	ErrUnsafeArchive = zerr.Wrap(ErrDecode, "unsafe archive member")

	// ErrUnsupportedMethod is returned for zip members that are neither stored nor deflated.
	ErrUnsupportedMethod = zerr.Wrap(ErrDecode, "unsupported compression method")

	// ErrDigestRead is returned when the byte source of a digest cannot be read.
	ErrDigestRead = zerr.Wrap(ErrIO, "failed to read digest input")

	// ErrRegistryWrite is returned when the registry cannot be rewritten.
	ErrRegistryWrite = zerr.Wrap(ErrIO, "failed to update registry")

	// ErrActivationFailed is returned when the staged directory cannot be moved into place.
	ErrActivationFailed = zerr.Wrap(ErrIO, "failed to activate package")

	// ErrNotDurable is returned when a rename landed but the parent directory
	// could not be synced. The new content is already visible.
	ErrNotDurable = zerr.Wrap(ErrIO, "directory sync failed after rename")
)
