package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/xref"
)

// Options control per-file analysis.
type Options struct {
	IncludeKeywords bool   // index keyword occurrences
	XrefDir         string // write <XrefDir>/<relative path>.html when set
}

// AnalyzeFile scans one discovered file into an index entry and, when
// requested, an xref page.
func AnalyzeFile(ctx context.Context, reg *Registry, file discovery.DiscoveredFile, opts Options) (*index.FileEntry, error) {
	a, ok := reg.Lookup(file.Path)
	if !ok {
		return nil, fmt.Errorf("no analyzer for %s", file.RelativePath)
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, errors.NewScanError(file.RelativePath, "open", err)
	}
	defer f.Close()

	symbols := xref.NewSymbolCollector()
	symbols.IncludeKeywords = opts.IncludeKeywords
	var lines xref.LineCounter
	consumers := xref.Tee{symbols, &lines}

	if opts.XrefDir == "" {
		if err := a.Analyze(ctx, file.RelativePath, f, consumers); err != nil {
			return nil, err
		}
	} else if err := writeXref(ctx, a, file, f, consumers, opts.XrefDir); err != nil {
		return nil, err
	}

	return &index.FileEntry{
		Path:     file.RelativePath,
		Language: a.Language(),
		LOC:      lines.LOC(),
		Lines:    lines.Lines(),
		ModTime:  file.ModTime,
		Symbols:  symbols.Symbols(),
	}, nil
}

// XrefPath returns where the xref page of relPath is written.
func XrefPath(xrefDir, relPath string) string {
	return filepath.Join(xrefDir, filepath.FromSlash(relPath)) + ".html"
}

func writeXref(ctx context.Context, a Analyzer, file discovery.DiscoveredFile, r io.Reader,
	consumers xref.Tee, xrefDir string) error {

	path := XrefPath(xrefDir, file.RelativePath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create xref directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create xref file: %w", err)
	}

	err = xref.WritePage(out, file.RelativePath, func(w io.Writer) error {
		h := xref.NewHTMLWriter(w)
		if err := a.Analyze(ctx, file.RelativePath, r, append(consumers, h)); err != nil {
			return err
		}
		return h.Close()
	})
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write xref file: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Dump scans path and writes its raw consumer stream to w.
func Dump(ctx context.Context, reg *Registry, path string, w io.Writer) error {
	a, ok := reg.Lookup(path)
	if !ok {
		return fmt.Errorf("no analyzer for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.NewScanError(path, "open", err)
	}
	defer f.Close()

	var rec xref.Recorder
	if err := a.Analyze(ctx, path, f, &rec); err != nil {
		return err
	}
	_, err = rec.WriteTo(w)
	return err
}

// WriteXref renders the xref page of the file at path to w, titled name.
func WriteXref(ctx context.Context, reg *Registry, path, name string, w io.Writer) error {
	a, ok := reg.Lookup(path)
	if !ok {
		return fmt.Errorf("no analyzer for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.NewScanError(name, "open", err)
	}
	defer f.Close()

	return xref.WritePage(w, name, func(w io.Writer) error {
		h := xref.NewHTMLWriter(w)
		if err := a.Analyze(ctx, name, f, h); err != nil {
			return err
		}
		return h.Close()
	})
}
