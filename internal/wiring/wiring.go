// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/forge/internal/adapters/archive"
	_ "go.trai.ch/forge/internal/adapters/config"
	_ "go.trai.ch/forge/internal/adapters/digest"
	_ "go.trai.ch/forge/internal/adapters/fs"
	_ "go.trai.ch/forge/internal/adapters/logger"
	_ "go.trai.ch/forge/internal/adapters/telemetry/progrock"
	// Register app nodes.
	_ "go.trai.ch/forge/internal/app"
)
