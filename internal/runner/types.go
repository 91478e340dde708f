package runner

import (
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/index"
)

// FileRun represents the analysis of a single file
type FileRun struct {
	File      *discovery.DiscoveredFile
	Entry     *index.FileEntry // Nil unless Status is RunDone
	StartTime time.Time
	EndTime   time.Time
	Status    RunStatus
	Error     error // Non-nil if the analysis failed
}

// RunStatus represents the current state of a file analysis
type RunStatus int

const (
	RunPending RunStatus = iota
	RunRunning
	RunDone
	RunFailed
	RunTimeout
)

// String returns a string representation of RunStatus
func (rs RunStatus) String() string {
	switch rs {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunDone:
		return "done"
	case RunFailed:
		return "failed"
	case RunTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Duration returns the analysis duration
func (fr *FileRun) Duration() time.Duration {
	if fr.EndTime.IsZero() {
		return time.Since(fr.StartTime)
	}
	return fr.EndTime.Sub(fr.StartTime)
}

// Summary summarizes all file analyses
type Summary struct {
	TotalFiles    int
	IndexedFiles  int
	FailedFiles   int
	TimedOutFiles int
	Symbols       int
	LOC           int
	TotalDuration time.Duration // Sum of per-file durations
}

// AllSucceeded returns true if every file was indexed
func (s *Summary) AllSucceeded() bool {
	return s.FailedFiles == 0 && s.TimedOutFiles == 0
}

// ExitCode returns the appropriate exit code based on the results
func (s *Summary) ExitCode() int {
	if s.AllSucceeded() {
		return 0
	}
	return 1
}
