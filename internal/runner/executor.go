package runner

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/analysis"
	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
)

// Executor analyzes files one at a time
type Executor struct {
	registry *analysis.Registry
	opts     analysis.Options
	timeout  time.Duration
}

// NewExecutor creates a new file executor. timeout <= 0 disables the
// per-file deadline.
func NewExecutor(registry *analysis.Registry, opts analysis.Options, timeout time.Duration) *Executor {
	return &Executor{
		registry: registry,
		opts:     opts,
		timeout:  timeout,
	}
}

// Execute analyzes a single file under the per-file timeout
func (e *Executor) Execute(ctx context.Context, file *discovery.DiscoveredFile) *FileRun {
	run := &FileRun{
		File:      file,
		StartTime: time.Now(),
		Status:    RunRunning,
	}

	fileCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	entry, err := analysis.AnalyzeFile(fileCtx, e.registry, *file, e.opts)
	run.EndTime = time.Now()

	switch {
	case err == nil:
		run.Entry = entry
		run.Status = RunDone
	case stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		run.Error = err
		run.Status = RunTimeout
	default:
		run.Error = err
		run.Status = RunFailed
	}

	logger.Default().File(file.RelativePath).Debug("%s in %v", run.Status, run.Duration().Round(time.Microsecond))
	return run
}

// ExecuteBatch analyzes files sequentially
func (e *Executor) ExecuteBatch(ctx context.Context, files []discovery.DiscoveredFile) []*FileRun {
	runs := make([]*FileRun, 0, len(files))
	for i := range files {
		if ctx.Err() != nil {
			runs = append(runs, cancelledRun(ctx, &files[i]))
			continue
		}
		runs = append(runs, e.Execute(ctx, &files[i]))
	}
	return runs
}

func cancelledRun(ctx context.Context, file *discovery.DiscoveredFile) *FileRun {
	now := time.Now()
	return &FileRun{
		File:      file,
		StartTime: now,
		EndTime:   now,
		Status:    RunFailed,
		Error:     ctx.Err(),
	}
}

// SummarizeRuns aggregates file runs
func SummarizeRuns(runs []*FileRun) *Summary {
	summary := &Summary{
		TotalFiles: len(runs),
	}

	var totalDuration time.Duration

	for _, run := range runs {
		totalDuration += run.Duration()

		switch run.Status {
		case RunDone:
			summary.IndexedFiles++
			summary.Symbols += len(run.Entry.Symbols)
			summary.LOC += run.Entry.LOC
		case RunFailed:
			summary.FailedFiles++
		case RunTimeout:
			summary.TimedOutFiles++
		}
	}

	summary.TotalDuration = totalDuration

	return summary
}
