package facts

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the fact store Graft node.
const NodeID graft.ID = "adapter.facts"

func init() {
	graft.Register(graft.Node[*Store]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Store, error) {
			return NewStore(), nil
		},
	})
}
