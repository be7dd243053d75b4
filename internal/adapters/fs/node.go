package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// FingerprinterNodeID is the unique identifier for the fingerprinter Graft node.
	FingerprinterNodeID graft.ID = "adapter.fs.fingerprinter"
	// RemoverNodeID is the unique identifier for the remover Graft node.
	RemoverNodeID graft.ID = "adapter.fs.remover"
)

func init() {
	// Walker Node (Concrete implementation needed by Fingerprinter)
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.Fingerprinter]{
		ID:        FingerprinterNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (ports.Fingerprinter, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewFingerprinter(walker), nil
		},
	})

	graft.Register(graft.Node[ports.Remover]{
		ID:        RemoverNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Remover, error) {
			return NewRemover(), nil
		},
	})
}
