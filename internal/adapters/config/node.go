package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the config Graft node.
const NodeID graft.ID = "adapter.config"

// DefaultPath is the config file looked up in the working directory, unless
// SCFS_CONFIG points elsewhere. The CLI's --config flag is routed through
// the same environment override before the node resolves.
const DefaultPath = "scfs.yaml"

func init() {
	graft.Register(graft.Node[Config]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (Config, error) {
			path := os.Getenv("SCFS_CONFIG")
			if path == "" {
				path = DefaultPath
			}
			return Load(path)
		},
	})
}
