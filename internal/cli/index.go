package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/analysis"
	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
	"github.com/cybertec-postgresql/rbxref/internal/runner"
)

func newRegistry(cfg *Config) *analysis.Registry {
	return analysis.NewRegistry(cfg.MaxFileSize, cfg.Languages)
}

func discoveryOptions(cfg *Config, reg *analysis.Registry) discovery.Options {
	return discovery.Options{
		Ignore:      cfg.Ignore,
		MaxFileSize: cfg.MaxFileSize,
		Classify:    reg.Classify,
		OnSkip: func(relPath string, reason discovery.SkipReason) {
			logger.Debug("skipping %s: %s", relPath, reason)
		},
	}
}

func analysisOptions(cfg *Config) analysis.Options {
	return analysis.Options{IncludeKeywords: cfg.Keywords, XrefDir: cfg.XrefDir}
}

// Index executes the indexing workflow and returns the process exit code
func Index(ctx context.Context, cfg *Config, out io.Writer) (int, error) {
	startTime := time.Now()
	reg := newRegistry(cfg)

	logger.Debug("discovering sources in %s", cfg.Root)

	// Step 1: Discover source files
	files, err := discovery.Discover(cfg.Root, discoveryOptions(cfg, reg))
	if err != nil {
		return 1, fmt.Errorf("failed to discover sources: %w", err)
	}

	if len(files) == 0 {
		fmt.Fprintln(out, "No source files found")
		return 0, nil
	}

	logger.Debug("found %d source file(s)", len(files))

	// Step 2: Open the index store
	store, err := index.Open(ctx, cfg)
	if err != nil {
		return 1, fmt.Errorf("failed to open index store: %w", err)
	}
	defer store.Close()

	// Step 3: Analyze files (parallel or sequential based on config)
	executor := runner.NewExecutor(reg, analysisOptions(cfg), cfg.Timeout.Std())

	var runs []*runner.FileRun
	if cfg.Parallelism > 1 {
		logger.Debug("analyzing in parallel (workers: %d)", cfg.Parallelism)
		runs = runner.NewWorkerPool(executor, cfg.Parallelism).ExecuteParallel(ctx, files)
	} else {
		logger.Debug("analyzing sequentially")
		runs = executor.ExecuteBatch(ctx, files)
	}

	if err := ctx.Err(); err != nil {
		return 1, fmt.Errorf("indexing interrupted: %w", err)
	}

	// Step 4: Build the snapshot
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return 1, fmt.Errorf("failed to get absolute path: %w", err)
	}
	snap := index.NewSnapshot(absRoot)
	for _, run := range runs {
		if run.Status == runner.RunDone {
			snap.Put(run.Entry)
			continue
		}
		logger.Default().File(run.File.RelativePath).Error("%s: %v", run.Status, run.Error)
	}
	snap.Timestamp = time.Now()

	// Step 5: Save the index
	if err := store.Save(ctx, snap); err != nil {
		return 1, fmt.Errorf("failed to save index: %w", err)
	}

	// Step 6: Display summary
	summary := runner.SummarizeRuns(runs)
	printSummary(out, summary, time.Since(startTime), describeStore(cfg))

	return summary.ExitCode(), nil
}
