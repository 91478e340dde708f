package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/report"
)

// Report generates a report from the stored index. outputPath "-" or ""
// writes to stdout.
func Report(ctx context.Context, cfg *Config, format string, outputPath string, stdout io.Writer) error {
	// Step 1: Validate format
	if !report.ValidFormat(format) {
		return fmt.Errorf("unsupported format: %s (supported: %v)", format, report.SupportedFormats())
	}

	// Step 2: Load the index
	store, err := index.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer store.Close()

	snap, err := store.Load(ctx)
	if stderrors.Is(err, index.ErrNoIndex) {
		return fmt.Errorf("no index found in %s (run 'rbxref index' first)", describeStore(cfg))
	}
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	// Step 3: Get formatter
	toFile := outputPath != "-" && outputPath != ""
	var formatter report.Formatter
	if format == string(report.FormatHTML) {
		formatter = report.NewHTMLReporter(xrefBase(cfg.XrefDir, outputPath, toFile))
	} else if formatter, err = report.GetFormatter(report.FormatType(format)); err != nil {
		return err
	}

	// Step 4: Format and output
	writer := stdout
	if toFile {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	if err := formatter.Format(snap, writer); err != nil {
		return fmt.Errorf("failed to format index: %w", err)
	}

	// Print success message to stderr (so it doesn't interfere with stdout output)
	if toFile {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outputPath)
	}
	return nil
}

// xrefBase returns the link prefix from the report to the xref pages.
func xrefBase(xrefDir, outputPath string, toFile bool) string {
	if xrefDir == "" {
		return ""
	}
	if toFile {
		if rel, err := filepath.Rel(filepath.Dir(outputPath), xrefDir); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(xrefDir)
}
