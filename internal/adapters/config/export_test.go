package config

import "go.trai.ch/forge/internal/core/ports"

// NewLoaderWithEnv creates a Loader with a fixed environment and home directory.
func NewLoaderWithEnv(log ports.Logger, env map[string]string, home string) *Loader {
	return &Loader{
		logger:  log,
		getenv:  func(k string) string { return env[k] },
		homeDir: func() (string, error) { return home, nil },
	}
}
