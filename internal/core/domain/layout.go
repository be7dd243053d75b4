package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	// DefaultVendorRoot is where installed packages live, relative to the project.
	DefaultVendorRoot = "user-app/vendor/forge"

	// RegistryFileName is the registry file inside the vendor root.
	RegistryFileName = "installed.txt"

	// DefaultLockFile is the lock table path, relative to the project.
	DefaultLockFile = "forge.lock"

	// ConfigFileName is the optional project configuration file.
	ConfigFileName = "forge.yaml"

	// ForgeHomeDirName is the per-user directory under $HOME.
	ForgeHomeDirName = ".forge"

	// CacheDirName is the archive cache directory inside the forge home.
	CacheDirName = "cache"

	// ManifestFileName is the manifest name on the package repository.
	ManifestFileName = "forge.json"

	// ArchiveExt is the extension of cached and downloaded archives.
	ArchiveExt = ".zip"

	// StagingSuffix marks a directory being extracted.
	StagingSuffix = ".tmp"

	// BackupSuffix marks the previous installation during activation.
	BackupSuffix = ".old"

	// DefaultRepository is the base URL for manifests and archives.
	DefaultRepository = "http://localhost:8080"

	// DefaultLatestURL is the base URL for latest-version lookups.
	DefaultLatestURL = "https://forge-packages.example.com"

	// DefaultHTTPTimeout bounds a single fetch.
	DefaultHTTPTimeout = 30 * time.Second

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// Settings is the effective configuration of one forge invocation.
type Settings struct {
	VendorRoot   string
	LockFile     string
	CacheDir     string
	Repository   string
	LatestURL    string
	MaxDepth     int
	LockEnforced bool
	HTTPTimeout  time.Duration
}

// DefaultSettings returns the settings used when no forge.yaml is present.
func DefaultSettings(home string) Settings {
	return Settings{
		VendorRoot:  DefaultVendorRoot,
		LockFile:    DefaultLockFile,
		CacheDir:    DefaultCachePath(home),
		Repository:  DefaultRepository,
		LatestURL:   DefaultLatestURL,
		MaxDepth:    MaxDepth,
		HTTPTimeout: DefaultHTTPTimeout,
	}
}

// RegistryPath returns the registry file path.
func (s Settings) RegistryPath() string {
	return filepath.Join(s.VendorRoot, RegistryFileName)
}

// PackageDir returns the installed directory of id.
func (s Settings) PackageDir(id PackageID) string {
	return filepath.Join(s.VendorRoot, id.Name, id.Version)
}

// ManifestURL returns the manifest URL of id.
func (s Settings) ManifestURL(id PackageID) string {
	return fmt.Sprintf("%s/%s/%s/%s", s.Repository, id.Name, id.Version, ManifestFileName)
}

// ArchiveURL returns the default, unpinned archive URL of id.
func (s Settings) ArchiveURL(id PackageID) string {
	return fmt.Sprintf("%s/%s/%s/%s%s", s.Repository, id.Name, id.Version, id.Name, ArchiveExt)
}

// LatestVersionURL returns the URL holding the newest version of a package.
func (s Settings) LatestVersionURL(name string) string {
	return fmt.Sprintf("%s/%s/latest.txt", s.LatestURL, name)
}

// DefaultCachePath returns the archive cache under the given home directory.
// It joins home, .forge and cache.
func DefaultCachePath(home string) string {
	return filepath.Join(home, ForgeHomeDirName, CacheDirName)
}
