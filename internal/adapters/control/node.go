package control

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/gz/scfs/internal/core/ports"
)

// NodeID is the unique identifier for the control parser Graft node.
const NodeID graft.ID = "adapter.control"

func init() {
	graft.Register(graft.Node[ports.PackageSource]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.PackageSource, error) {
			return NewFileSource(), nil
		},
	})
}
