package ports

import (
	"context"

	"github.com/gz/scfs/internal/core/domain"
)

// PackageSource produces well-formed package facts from some external
// representation (a repository index file, a manual entry tool). The engine
// does not care which.
//
//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type PackageSource interface {
	// Load reads package facts from the given path.
	Load(ctx context.Context, path string) ([]domain.Package, error)
}
