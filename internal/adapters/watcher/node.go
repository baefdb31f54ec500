package watcher

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/gz/scfs/internal/adapters/logger"
	"github.com/gz/scfs/internal/core/ports"
)

// NodeID is the unique identifier for the index watcher Graft node.
const NodeID graft.ID = "adapter.watcher"

func init() {
	graft.Register(graft.Node[ports.IndexWatcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.IndexWatcher, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(log, DefaultDebounceWindow)
		},
	})
}
