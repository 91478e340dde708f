package index

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cybertec-postgresql/rbxref/pkg/types"
)

// Open returns the backend selected by cfg.Store.
func Open(ctx context.Context, cfg *types.Config) (Backend, error) {
	switch cfg.Store {
	case types.StoreJSON, "":
		s := NewStore(cfg.IndexFile)
		s.Root = cfg.Root
		if abs, err := filepath.Abs(cfg.Root); err == nil {
			s.Root = abs
		}
		return s, nil
	case types.StoreSQLite:
		return OpenSQLite(ctx, cfg.IndexFile)
	case types.StorePostgres:
		// One connection per scan worker plus one for the writer
		return OpenPostgres(ctx, cfg.ConnectionString, cfg.Parallelism+1)
	default:
		return nil, &types.ConfigError{
			Field:      "store",
			Value:      cfg.Store,
			Message:    fmt.Sprintf("unknown store backend %q", cfg.Store),
			Suggestion: "Use one of: json, sqlite, postgres",
		}
	}
}
