package resolver

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/gz/scfs/internal/adapters/config"
)

// NodeID is the unique identifier for the resolver Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.Transitive, cfg.MaxDepth), nil
		},
	})
}
