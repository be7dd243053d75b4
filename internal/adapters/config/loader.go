// Package config loads forge.yaml into the effective settings of a run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader.
type Loader struct {
	logger  ports.Logger
	getenv  func(string) string
	homeDir func() (string, error)
}

// NewLoader creates a Loader reading the process environment.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{logger: log, getenv: os.Getenv, homeDir: os.UserHomeDir}
}

// Load reads the configuration at path, applies environment overrides and
// validates the result. A missing file is not an error.
func (l *Loader) Load(path string) (domain.Settings, error) {
	home, err := l.homeDir()
	if err != nil {
		home = ""
	}

	file, err := l.readFile(path)
	if err != nil {
		return domain.Settings{}, err
	}

	settings := domain.DefaultSettings(home)
	if err := l.apply(&settings, file, home); err != nil {
		return domain.Settings{}, zerr.With(err, "path", path)
	}
	l.applyEnv(&settings, home)

	if err := validate(settings); err != nil {
		return domain.Settings{}, zerr.With(err, "path", path)
	}
	return settings, nil
}

func (l *Loader) readFile(path string) (*Forgefile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if errors.Is(err, iofs.ErrNotExist) {
		return &Forgefile{}, nil
	}
	if err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}

	var file Forgefile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err), "path", path)
	}

	if file.Version != "" && file.Version != SupportedVersion {
		l.logger.Warn(fmt.Sprintf("%s declares version %q, expected %q", path, file.Version, SupportedVersion))
	}
	return &file, nil
}

func (l *Loader) apply(s *domain.Settings, f *Forgefile, home string) error {
	if f.VendorRoot != "" {
		s.VendorRoot = expandHome(f.VendorRoot, home)
	}
	if f.LockFile != "" {
		s.LockFile = expandHome(f.LockFile, home)
	}
	if f.CacheDir != "" {
		s.CacheDir = expandHome(f.CacheDir, home)
	}
	if f.Repository != "" {
		s.Repository = f.Repository
	}
	if f.LatestURL != "" {
		s.LatestURL = f.LatestURL
	}
	if f.MaxDepth != 0 {
		s.MaxDepth = f.MaxDepth
	}
	s.LockEnforced = f.LockEnforced
	if f.HTTPTimeout != "" {
		d, err := time.ParseDuration(f.HTTPTimeout)
		if err != nil {
			return zerr.With(fmt.Errorf("%w: http_timeout: %w", domain.ErrInvalidConfig, err), "value", f.HTTPTimeout)
		}
		s.HTTPTimeout = d
	}
	return nil
}

func (l *Loader) applyEnv(s *domain.Settings, home string) {
	if v := l.getenv(EnvVendorRoot); v != "" {
		s.VendorRoot = expandHome(v, home)
	}
	if v := l.getenv(EnvCacheDir); v != "" {
		s.CacheDir = expandHome(v, home)
	}
	if v := l.getenv(EnvLockFile); v != "" {
		s.LockFile = expandHome(v, home)
	}
	if v := l.getenv(EnvRepository); v != "" {
		s.Repository = v
	}
	if v := l.getenv(EnvLatestURL); v != "" {
		s.LatestURL = v
	}
}

func validate(s domain.Settings) error {
	if s.MaxDepth < 1 || s.MaxDepth > domain.MaxDepth {
		return zerr.With(fmt.Errorf("%w: max_depth must be between 1 and %d", domain.ErrInvalidConfig, domain.MaxDepth), "value", s.MaxDepth)
	}
	if s.HTTPTimeout <= 0 {
		return zerr.With(fmt.Errorf("%w: http_timeout must be positive", domain.ErrInvalidConfig), "value", s.HTTPTimeout.String())
	}
	for key, raw := range map[string]string{"repository": s.Repository, "latest_url": s.LatestURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return zerr.With(fmt.Errorf("%w: %s must be an absolute http(s) URL", domain.ErrInvalidConfig, key), "value", raw)
		}
	}
	return nil
}

// expandHome replaces a leading ~ with home.
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}
