package ports

import "go.trai.ch/forge/internal/core/domain"

//go:generate mockgen -source=config.go -destination=mocks/mock_config.go -package=mocks

// ConfigLoader produces the effective settings of one invocation.
type ConfigLoader interface {
	// Load reads the configuration file at path. A missing file yields defaults.
	Load(path string) (domain.Settings, error)
}
