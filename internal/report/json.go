package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/index"
)

// JSONReporter formats the snapshot as JSON
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// Format writes the whole snapshot as indented JSON
func (r *JSONReporter) Format(snap *index.Snapshot, writer io.Writer) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index to JSON: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	_, err = writer.Write([]byte("\n"))
	return err
}

// FormatString returns the snapshot as a JSON string
func (r *JSONReporter) FormatString(snap *index.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal index to JSON: %w", err)
	}
	return string(data), nil
}

// Summary is the per-file overview produced by FormatSummary.
type Summary struct {
	Version   string                 `json:"version"`
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Files     int                    `json:"files"`
	LOC       int                    `json:"loc"`
	Symbols   int                    `json:"symbols"`
	PerFile   map[string]FileSummary `json:"per_file"`
}

// FileSummary describes one file without its symbol list.
type FileSummary struct {
	Language string `json:"language"`
	LOC      int    `json:"loc"`
	Lines    int    `json:"lines"`
	Symbols  int    `json:"symbols"`
}

// Summarize builds the summary view of a snapshot.
func Summarize(snap *index.Snapshot) *Summary {
	s := &Summary{
		Version:   snap.Version,
		RunID:     snap.RunID,
		Timestamp: snap.Timestamp,
		Files:     len(snap.Files),
		LOC:       snap.TotalLOC(),
		Symbols:   snap.SymbolCount(),
		PerFile:   make(map[string]FileSummary, len(snap.Files)),
	}
	for path, f := range snap.Files {
		s.PerFile[path] = FileSummary{
			Language: f.Language,
			LOC:      f.LOC,
			Lines:    f.Lines,
			Symbols:  len(f.Symbols),
		}
	}
	return s
}

// FormatSummary formats a summary view of the snapshot as JSON
func (r *JSONReporter) FormatSummary(snap *index.Snapshot) (string, error) {
	data, err := json.MarshalIndent(Summarize(snap), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary to JSON: %w", err)
	}
	return string(data), nil
}

// Name returns the name of this reporter
func (r *JSONReporter) Name() string {
	return "json"
}
