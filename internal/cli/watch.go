package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
	"github.com/cybertec-postgresql/rbxref/internal/watch"
)

// Watch indexes the tree once and then keeps the index current until ctx
// is cancelled.
func Watch(ctx context.Context, cfg *Config, out io.Writer) (int, error) {
	// Step 1: Full index
	code, err := Index(ctx, cfg, out)
	if err != nil {
		return code, err
	}

	// Step 2: Open the index store for incremental updates
	store, err := index.Open(ctx, cfg)
	if err != nil {
		return 1, fmt.Errorf("failed to open index store: %w", err)
	}
	defer store.Close()

	// Step 3: Watch for changes
	reg := newRegistry(cfg)
	w, err := watch.New(cfg.Root, watch.Options{
		Discovery: discoveryOptions(cfg, reg),
		Analysis:  analysisOptions(cfg),
		Registry:  reg,
		Store:     store,
		Debounce:  cfg.Debounce.Std(),
		Timeout:   cfg.Timeout.Std(),
	})
	if err != nil {
		return 1, fmt.Errorf("failed to start watcher: %w", err)
	}

	logger.Info("watching %s for changes", cfg.Root)
	if err := w.Run(ctx); err != nil {
		return 1, fmt.Errorf("watch failed: %w", err)
	}
	return code, nil
}
