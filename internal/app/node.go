package app

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/gz/scfs/internal/adapters/control"
	"github.com/gz/scfs/internal/adapters/facts"
	"github.com/gz/scfs/internal/adapters/logger"
	"github.com/gz/scfs/internal/adapters/watcher"
	"github.com/gz/scfs/internal/core/ports"
	"github.com/gz/scfs/internal/engine/propagation"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the Components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles the resolved application pieces for the CLI.
type Components struct {
	App    *App
	Logger ports.Logger
	Store  *facts.Store
	Engine *propagation.Engine
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			control.NodeID,
			facts.NodeID,
			propagation.NodeID,
			watcher.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			source, err := graft.Dep[ports.PackageSource](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[*facts.Store](ctx)
			if err != nil {
				return nil, err
			}

			engine, err := graft.Dep[*propagation.Engine](ctx)
			if err != nil {
				return nil, err
			}

			indexWatcher, err := graft.Dep[ports.IndexWatcher](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(source, store, engine, indexWatcher, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			facts.NodeID,
			propagation.NodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[*facts.Store](ctx)
	if err != nil {
		return nil, err
	}

	engine, err := graft.Dep[*propagation.Engine](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    application,
		Logger: log,
		Store:  store,
		Engine: engine,
	}, nil
}
