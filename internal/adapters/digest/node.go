package digest

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the digester Graft node.
const NodeID graft.ID = "adapter.digester"

func init() {
	graft.Register(graft.Node[ports.Digester]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Digester, error) {
			return NewDigester(), nil
		},
	})
}
