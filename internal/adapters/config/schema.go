package config

// Forgefile represents the structure of the forge.yaml configuration file.
// Zero values fall back to the built-in defaults.
type Forgefile struct {
	Version      string `yaml:"version"`
	VendorRoot   string `yaml:"vendor_root"`
	LockFile     string `yaml:"lock_file"`
	CacheDir     string `yaml:"cache_dir"`
	Repository   string `yaml:"repository"`
	LatestURL    string `yaml:"latest_url"`
	MaxDepth     int    `yaml:"max_depth"`
	LockEnforced bool   `yaml:"lock_enforced"`
	HTTPTimeout  string `yaml:"http_timeout"`
}

// SupportedVersion is the configuration schema version understood by forge.
const SupportedVersion = "1"

// Environment variables that override file values.
const (
	EnvVendorRoot = "FORGE_VENDOR_ROOT"
	EnvCacheDir   = "FORGE_CACHE_DIR"
	EnvRepository = "FORGE_REPOSITORY"
	EnvLatestURL  = "FORGE_LATEST_URL"
	EnvLockFile   = "FORGE_LOCK_FILE"
)
