package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/archive"            //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/digest"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/fs"                 //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			digest.NodeID,
			archive.NodeID,
			fs.FingerprinterNodeID,
			fs.RemoverNodeID,
			progrock.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	digester, err := graft.Dep[ports.Digester](ctx)
	if err != nil {
		return nil, err
	}

	extractor, err := graft.Dep[ports.Extractor](ctx)
	if err != nil {
		return nil, err
	}

	fingerprinter, err := graft.Dep[ports.Fingerprinter](ctx)
	if err != nil {
		return nil, err
	}

	remover, err := graft.Dep[ports.Remover](ctx)
	if err != nil {
		return nil, err
	}

	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, digester, extractor, fingerprinter, remover, telemetry), nil
}
