// Package config provides the YAML configuration loader for the engine
// policy knobs.
package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/gz/scfs/internal/core/domain"
)

// MissingDeletePolicy decides what a delete of a nonexistent key does to the
// enclosing batch.
type MissingDeletePolicy string

const (
	// MissingDeleteWarn skips the delete and logs a warning.
	MissingDeleteWarn MissingDeletePolicy = "warn"
	// MissingDeleteFail aborts the whole batch.
	MissingDeleteFail MissingDeletePolicy = "fail"
)

// Config holds the engine policy configuration, read from scfs.yaml.
type Config struct {
	// Transitive enables transitive installability: a dependency
	// alternative only counts if the package satisfying it is itself
	// installable.
	Transitive bool `yaml:"transitive"`

	// MaxDepth bounds propagation and recursion depth. Zero means run to
	// fixpoint. When the bound is hit first, the affected packages are
	// conservatively treated as not installable and a warning is logged.
	MaxDepth int `yaml:"max_depth"`

	// MissingDelete selects the policy for deletes of absent keys.
	MissingDelete MissingDeletePolicy `yaml:"missing_delete"`

	// Parallelism caps the workers used for full recomputation.
	Parallelism int `yaml:"parallelism"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Transitive:    true,
		MaxDepth:      0,
		MissingDelete: MissingDeleteWarn,
		Parallelism:   runtime.NumCPU(),
	}
}

// Load reads the configuration from the given path. A missing file yields
// the defaults; anything else that goes wrong is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.MissingDelete {
	case MissingDeleteWarn, MissingDeleteFail:
	default:
		return zerr.With(domain.ErrBadDeletePolicy, "missing_delete", string(c.MissingDelete))
	}
	if c.Parallelism < 1 {
		c.Parallelism = runtime.NumCPU()
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	return nil
}
