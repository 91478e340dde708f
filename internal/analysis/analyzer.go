// Package analysis picks a scanner for each source file and turns its
// output into index entries and xref pages.
package analysis

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/internal/lexer"
	"github.com/cybertec-postgresql/rbxref/internal/lexer/ruby"
)

// LanguageRuby is the language name of files handled by the Ruby scanner.
const LanguageRuby = "ruby"

// Analyzer scans one source into a SymbolConsumer.
type Analyzer interface {
	Language() string
	Analyze(ctx context.Context, name string, r io.Reader, out lexer.SymbolConsumer) error
}

var (
	rubyExtensions = map[string]bool{
		".rb": true, ".rake": true, ".gemspec": true, ".ru": true, ".rbw": true,
	}
	rubyNames = map[string]bool{
		"Rakefile": true, "Gemfile": true, "Guardfile": true,
	}
)

// IsRuby reports whether path names a file for the Ruby scanner.
func IsRuby(path string) bool {
	base := filepath.Base(path)
	return rubyNames[base] || rubyExtensions[strings.ToLower(filepath.Ext(base))]
}

// Registry maps file names to analyzers.
type Registry struct {
	maxSize   int64
	languages map[string]bool // empty: all
}

// NewRegistry creates a registry. Sources larger than maxSize bytes are
// rejected with errors.ErrTooLarge; languages, when non-empty, restricts
// the accepted languages.
func NewRegistry(maxSize int64, languages []string) *Registry {
	r := &Registry{maxSize: maxSize, languages: make(map[string]bool)}
	for _, l := range languages {
		r.languages[strings.ToLower(l)] = true
	}
	return r
}

func (r *Registry) accepts(language string) bool {
	return len(r.languages) == 0 || r.languages[language]
}

// Lookup returns the analyzer for path. Ruby files get the Ruby scanner,
// anything with a chroma lexer gets a ChromaAnalyzer.
func (r *Registry) Lookup(path string) (Analyzer, bool) {
	if IsRuby(path) {
		if !r.accepts(LanguageRuby) {
			return nil, false
		}
		return &RubyAnalyzer{MaxSize: r.maxSize}, true
	}

	l := lexers.Match(filepath.Base(path))
	if l == nil {
		return nil, false
	}
	language := strings.ToLower(l.Config().Name)
	if !r.accepts(language) {
		return nil, false
	}
	return &ChromaAnalyzer{lexer: chroma.Coalesce(l), language: language, MaxSize: r.maxSize}, true
}

// Classify returns the language of path, if it is analyzable.
func (r *Registry) Classify(path string) (string, bool) {
	a, ok := r.Lookup(path)
	if !ok {
		return "", false
	}
	return a.Language(), true
}

// RubyAnalyzer runs the Ruby scanner.
type RubyAnalyzer struct {
	MaxSize int64
}

var rubyScanners = sync.Pool{
	New: func() any { return ruby.New(nil) },
}

func (a *RubyAnalyzer) Language() string { return LanguageRuby }

func (a *RubyAnalyzer) Analyze(ctx context.Context, name string, r io.Reader, out lexer.SymbolConsumer) error {
	s := rubyScanners.Get().(*ruby.Scanner)
	defer func() {
		s.SetConsumer(nil)
		rubyScanners.Put(s)
	}()

	s.SetConsumer(out)
	s.MaxSize = a.MaxSize
	return s.ScanReader(ctx, name, r)
}

// readSource reads all of r, enforcing maxSize when positive.
func readSource(name string, r io.Reader, maxSize int64) (string, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewScanError(name, "read", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", errors.NewScanError(name, "read", errors.ErrTooLarge)
	}
	return string(data), nil
}
