package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
	"github.com/cybertec-postgresql/rbxref/pkg/types"
)

// Follow prints index changes committed by other indexers sharing a
// postgres store until ctx is cancelled.
func Follow(ctx context.Context, cfg *Config, out io.Writer) error {
	if cfg.Store != types.StorePostgres {
		return &ConfigError{
			Field:      "store",
			Value:      cfg.Store,
			Message:    "following changes needs the postgres store",
			Suggestion: "Use --store postgres --connection <uri>",
		}
	}

	// Step 1: Open the index store
	store, err := index.OpenPostgres(ctx, cfg.ConnectionString, 1)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer store.Close()

	// Step 2: Subscribe
	l, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to index changes: %w", err)
	}
	defer l.Close(context.Background())

	// Step 3: Print changes
	errs := l.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("%v", err)
		case n, ok := <-l.Notifications():
			if !ok {
				return nil
			}
			c, err := index.ParseChange(n.Payload)
			if err != nil {
				logger.Error("%v", err)
				continue
			}
			fmt.Fprintf(out, "%s %-6s %s\n", n.Received.Format(time.TimeOnly), c.Op, c.Path)
		}
	}
}
