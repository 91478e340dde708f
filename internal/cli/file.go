package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cybertec-postgresql/rbxref/internal/analysis"
)

// Xref writes the HTML xref page of one file. outputPath "-" or "" writes
// to stdout.
func Xref(ctx context.Context, cfg *Config, path, outputPath string, stdout io.Writer) error {
	name := filepath.ToSlash(path)
	if rel, err := filepath.Rel(cfg.Root, path); err == nil {
		if rel = filepath.ToSlash(rel); rel != ".." && !strings.HasPrefix(rel, "../") {
			name = rel
		}
	}

	writer := stdout
	if outputPath != "-" && outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	if err := analysis.WriteXref(ctx, newRegistry(cfg), path, name, writer); err != nil {
		return fmt.Errorf("failed to write xref page: %w", err)
	}
	return nil
}

// Dump prints the scanner output stream of one file.
func Dump(ctx context.Context, cfg *Config, path string, out io.Writer) error {
	if err := analysis.Dump(ctx, newRegistry(cfg), path, out); err != nil {
		return fmt.Errorf("failed to dump %s: %w", path, err)
	}
	return nil
}
