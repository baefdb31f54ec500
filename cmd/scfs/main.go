// Package main is the entry point for the scfs fact engine CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/grindlemire/graft"

	"github.com/gz/scfs/cmd/scfs/commands"
	"github.com/gz/scfs/internal/app"
	_ "github.com/gz/scfs/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The config node resolves before cobra parses flags, so --config is
	// lifted out of the arguments up front and fed through the same
	// override the node reads. Flag beats environment beats default.
	if path := configPathFromArgs(os.Args[1:]); path != "" {
		if err := os.Setenv("SCFS_CONFIG", path); err != nil {
			_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
			return 1
		}
	}

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available if initialization failed; write directly.
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	cli := commands.New(components.App)

	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return 1
	}
	return 0
}

// configPathFromArgs extracts the value of the --config flag without a full
// cobra parse.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			return ""
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if path, ok := strings.CutPrefix(arg, "--config="); ok {
			return path
		}
	}
	return ""
}
