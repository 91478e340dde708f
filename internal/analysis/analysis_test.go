package analysis

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/internal/xref"
)

func writeFile(t *testing.T, dir, rel, content string) discovery.DiscoveredFile {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return discovery.DiscoveredFile{Path: path, RelativePath: rel, ModTime: time.Now()}
}

// ── Registry ────────────────────────────────────────────────────────────

func TestIsRuby(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"lib/a.rb", true},
		{"Rakefile", true},
		{"sub/Gemfile", true},
		{"x.gemspec", true},
		{"config.ru", true},
		{"tasks/db.rake", true},
		{"OLD.RB", true},
		{"main.go", false},
		{"Gemfile.lock", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRuby(tt.path))
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry(0, nil)

	a, ok := reg.Lookup("app/models/user.rb")
	require.True(t, ok)
	assert.Equal(t, LanguageRuby, a.Language())
	_, isRuby := a.(*RubyAnalyzer)
	assert.True(t, isRuby)

	a, ok = reg.Lookup("cmd/main.go")
	require.True(t, ok)
	assert.Equal(t, "go", a.Language())

	_, ok = reg.Lookup("blob.zzqqxx")
	assert.False(t, ok)

	lang, ok := reg.Classify("Rakefile")
	assert.True(t, ok)
	assert.Equal(t, LanguageRuby, lang)
}

func TestRegistry_Languages(t *testing.T) {
	reg := NewRegistry(0, []string{"Ruby"})

	_, ok := reg.Lookup("a.rb")
	assert.True(t, ok)
	_, ok = reg.Lookup("main.go")
	assert.False(t, ok)

	reg = NewRegistry(0, []string{"go"})
	_, ok = reg.Lookup("a.rb")
	assert.False(t, ok)
}

// ── Analyzers ───────────────────────────────────────────────────────────

func TestChromaAnalyzer(t *testing.T) {
	reg := NewRegistry(0, nil)
	a, ok := reg.Lookup("main.go")
	require.True(t, ok)

	src := "package main\n\n// hi\nfunc f() {}\n"
	var rec xref.Recorder
	c := xref.NewSymbolCollector()
	var lc xref.LineCounter
	require.NoError(t, a.Analyze(context.Background(), "main.go", strings.NewReader(src), xref.Tee{&rec, c, &lc}))

	assert.Equal(t, src, rec.Text())

	var got []string
	for _, s := range c.Symbols() {
		got = append(got, s.Name)
	}
	assert.Equal(t, []string{"main", "f"}, got)
	assert.Equal(t, 8, c.Symbols()[0].Offset)
	assert.Equal(t, 25, c.Symbols()[1].Offset)
	assert.Equal(t, 4, c.Symbols()[1].Line)

	assert.Equal(t, 4, lc.Lines())
	assert.Equal(t, 2, lc.LOC())
}

func TestChromaAnalyzer_CRLFOffsets(t *testing.T) {
	a, ok := NewRegistry(0, nil).Lookup("main.go")
	require.True(t, ok)

	src := "package main\r\n\r\nfunc alpha() {}\r\n\r\nfunc beta() {}\r\n"
	var rec xref.Recorder
	c := xref.NewSymbolCollector()
	c.IncludeKeywords = true
	var lc xref.LineCounter
	require.NoError(t, a.Analyze(context.Background(), "main.go", strings.NewReader(src), xref.Tee{&rec, c, &lc}))

	assert.Equal(t, src, rec.Text())
	var names []string
	for _, s := range c.Symbols() {
		names = append(names, s.Name)
		require.LessOrEqual(t, s.Offset+len(s.Name), len(src))
		assert.Equal(t, s.Name, src[s.Offset:s.Offset+len(s.Name)], "symbol %q at %d", s.Name, s.Offset)
	}
	assert.Equal(t, []string{"package", "main", "func", "alpha", "func", "beta"}, names)
	assert.Equal(t, 5, lc.Lines())
	assert.Equal(t, 3, lc.LOC())
}

func TestChromaAnalyzer_NoTrailingNewlineAdded(t *testing.T) {
	a, ok := NewRegistry(0, nil).Lookup("main.go")
	require.True(t, ok)

	var rec xref.Recorder
	require.NoError(t, a.Analyze(context.Background(), "main.go", strings.NewReader("package x"), &rec))
	assert.Equal(t, "package x", rec.Text())
}

func TestAnalyzer_TooLarge(t *testing.T) {
	reg := NewRegistry(4, nil)
	for _, name := range []string{"a.rb", "main.go"} {
		t.Run(name, func(t *testing.T) {
			a, ok := reg.Lookup(name)
			require.True(t, ok)
			err := a.Analyze(context.Background(), name, strings.NewReader("12345"), xref.Tee{})
			assert.True(t, stderrors.Is(err, errors.ErrTooLarge), "got %v", err)
			assert.True(t, errors.IsScanError(err))
		})
	}
}

func TestAnalyzer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range []string{"a.rb", "main.go"} {
		a, _ := NewRegistry(0, nil).Lookup(name)
		err := a.Analyze(ctx, name, strings.NewReader("x = 1\n"), xref.Tee{})
		assert.ErrorIs(t, err, context.Canceled, name)
	}
}

// ── AnalyzeFile ─────────────────────────────────────────────────────────

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "lib/foo.rb", "# Foo\nclass Foo\n  def bar; end\nend\n")

	entry, err := AnalyzeFile(context.Background(), NewRegistry(0, nil), file, Options{})
	require.NoError(t, err)

	assert.Equal(t, "lib/foo.rb", entry.Path)
	assert.Equal(t, LanguageRuby, entry.Language)
	assert.Equal(t, 4, entry.Lines)
	assert.Equal(t, 3, entry.LOC)
	assert.True(t, entry.ModTime.Equal(file.ModTime))
	require.Len(t, entry.Symbols, 2)
	assert.Equal(t, "Foo", entry.Symbols[0].Name)
	assert.Equal(t, 2, entry.Symbols[0].Line)
	assert.Equal(t, "bar", entry.Symbols[1].Name)
}

func TestAnalyzeFile_Keywords(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.rb", "def x; end")

	entry, err := AnalyzeFile(context.Background(), NewRegistry(0, nil), file, Options{IncludeKeywords: true})
	require.NoError(t, err)
	assert.Len(t, entry.Symbols, 3)
}

func TestAnalyzeFile_Xref(t *testing.T) {
	dir := t.TempDir()
	xrefDir := filepath.Join(dir, "xref")
	file := writeFile(t, dir, "src/app.rb", "puts \"<hi>\"\n")

	entry, err := AnalyzeFile(context.Background(), NewRegistry(0, nil), file, Options{XrefDir: xrefDir})
	require.NoError(t, err)
	require.Len(t, entry.Symbols, 1)

	page, err := os.ReadFile(XrefPath(xrefDir, "src/app.rb"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>src/app.rb</title>")
	assert.Contains(t, string(page), `<a class="d" href="?defs=puts">puts</a>`)
	assert.Contains(t, string(page), `<span class="s">&#34;&lt;hi&gt;&#34;</span>`)
}

func TestAnalyzeFile_Errors(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(0, nil)

	_, err := AnalyzeFile(context.Background(), reg,
		discovery.DiscoveredFile{Path: filepath.Join(dir, "gone.rb"), RelativePath: "gone.rb"}, Options{})
	var se *errors.ScanError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "open", se.Op)

	_, err = AnalyzeFile(context.Background(), reg,
		discovery.DiscoveredFile{Path: filepath.Join(dir, "x.zzqqxx"), RelativePath: "x.zzqqxx"}, Options{})
	assert.Error(t, err)
}

func TestWriteXref(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.rb", "x = 1\n")

	var buf bytes.Buffer
	require.NoError(t, WriteXref(context.Background(), NewRegistry(0, nil), file.Path, "lib/a.rb", &buf))
	assert.Contains(t, buf.String(), "<title>lib/a.rb</title>")
	assert.Contains(t, buf.String(), `<span class="n">1</span>`)

	err := WriteXref(context.Background(), NewRegistry(0, nil), file.Path+".missing.rb", "m.rb", &buf)
	assert.True(t, errors.IsScanError(err))
}

func TestDump(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.rb", "class Foo\nend\n")

	var buf bytes.Buffer
	require.NoError(t, Dump(context.Background(), NewRegistry(0, nil), file.Path, &buf))
	assert.Contains(t, buf.String(), `symbol  "class" @0 keyword`)
	assert.Contains(t, buf.String(), `symbol  "Foo" @6`)
	assert.Contains(t, buf.String(), "newline\n")
}
