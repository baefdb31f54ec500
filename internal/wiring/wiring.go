// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/gz/scfs/internal/adapters/config"
	_ "github.com/gz/scfs/internal/adapters/control"
	_ "github.com/gz/scfs/internal/adapters/facts"
	_ "github.com/gz/scfs/internal/adapters/logger"
	_ "github.com/gz/scfs/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "github.com/gz/scfs/internal/app"
	_ "github.com/gz/scfs/internal/engine/propagation"
	_ "github.com/gz/scfs/internal/engine/resolver"
)
