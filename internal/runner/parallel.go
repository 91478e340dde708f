package runner

import (
	"context"
	"sync"

	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/logger"
)

// WorkerPool manages parallel file analysis
type WorkerPool struct {
	executor   *Executor
	maxWorkers int
}

// NewWorkerPool creates a new worker pool for parallel analysis
func NewWorkerPool(executor *Executor, maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		executor:   executor,
		maxWorkers: maxWorkers,
	}
}

// ExecuteParallel analyzes files with the configured concurrency limit.
// Results are returned in input order.
func (wp *WorkerPool) ExecuteParallel(ctx context.Context, files []discovery.DiscoveredFile) []*FileRun {
	numFiles := len(files)
	if numFiles == 0 {
		return nil
	}

	// If only one worker or one file, fall back to sequential execution
	if wp.maxWorkers == 1 || numFiles == 1 {
		return wp.executor.ExecuteBatch(ctx, files)
	}

	workers := wp.maxWorkers
	if workers > numFiles {
		workers = numFiles
	}
	logger.Debug("Starting parallel analysis with %d workers for %d files", workers, numFiles)

	// Create buffered channels for job distribution and result collection
	jobs := make(chan *fileJob, numFiles)
	results := make(chan *fileResult, numFiles)

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go wp.worker(ctx, i, jobs, results, &wg)
	}

	// Send all jobs to the jobs channel
	for i := range files {
		jobs <- &fileJob{
			file:  &files[i],
			index: i,
		}
	}
	close(jobs)

	// Wait for all workers to complete in a separate goroutine
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results from the results channel
	runs := make([]*FileRun, numFiles)
	for result := range results {
		runs[result.index] = result.run
		if result.run.Status != RunDone {
			logger.Debug("[%s] %s (worker %d): %v", result.run.Status, result.run.File.RelativePath,
				result.workerID, result.run.Error)
		}
	}

	return runs
}

// fileJob represents a single file to analyze
type fileJob struct {
	file  *discovery.DiscoveredFile
	index int
}

// fileResult represents the result of one analysis
type fileResult struct {
	run      *FileRun
	index    int
	workerID int
}

// worker is the goroutine that processes jobs
func (wp *WorkerPool) worker(ctx context.Context, workerID int, jobs <-chan *fileJob, results chan<- *fileResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		// Check if context was cancelled before starting the file
		var run *FileRun
		if ctx.Err() != nil {
			run = cancelledRun(ctx, job.file)
		} else {
			run = wp.executor.Execute(ctx, job.file)
		}

		results <- &fileResult{
			run:      run,
			index:    job.index,
			workerID: workerID,
		}
	}
}
