package propagation

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/gz/scfs/internal/adapters/config"
	"github.com/gz/scfs/internal/adapters/facts"
	"github.com/gz/scfs/internal/adapters/logger"
	"github.com/gz/scfs/internal/core/ports"
	"github.com/gz/scfs/internal/engine/resolver"
)

// NodeID is the unique identifier for the propagation engine Graft node.
const NodeID graft.ID = "engine.propagation"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			facts.NodeID,
			resolver.NodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*Engine, error) {
			store, err := graft.Dep[*facts.Store](ctx)
			if err != nil {
				return nil, err
			}

			res, err := graft.Dep[*resolver.Resolver](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}

			return New(store, res, log, cfg), nil
		},
	})
}
