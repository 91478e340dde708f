package xref

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/rbxref/internal/lexer"
	"github.com/cybertec-postgresql/rbxref/internal/lexer/ruby"
)

func scanInto(t *testing.T, src string, out lexer.SymbolConsumer) {
	t.Helper()
	require.NoError(t, ruby.New(out).Scan(context.Background(), src))
}

// ── HTMLWriter ───────────────────────────────────────────────────────────

func TestHTMLWriter(t *testing.T) {
	var buf bytes.Buffer
	h := NewHTMLWriter(&buf)

	scanInto(t, "def a?\n  \"<b>\" # see http://x.io\nend", h)
	require.NoError(t, h.Close())

	got := buf.String()
	assert.Contains(t, got, `<a class="l" name="1" href="#1">1</a> <b>def</b> <a class="d" href="?defs=a%3F">a?</a>`)
	assert.Contains(t, got, `<span class="s">&#34;&lt;b&gt;&#34;</span>`)
	assert.Contains(t, got, `<span class="c"># see <a href="http://x.io">http://x.io</a></span>`)
	assert.Contains(t, got, `<a class="l" name="3" href="#3">3</a> <b>end</b>`)
	assert.Equal(t, 3, h.Lines())
}

func TestHTMLWriter_SpanAcrossLines(t *testing.T) {
	var buf bytes.Buffer
	h := NewHTMLWriter(&buf)
	h.SymbolURL = nil

	scanInto(t, "x = \"a\nb\"", h)
	require.NoError(t, h.Close())

	assert.Equal(t,
		`<a class="l" name="1" href="#1">1</a> x = <span class="s">&#34;a</span>`+"\n"+
			`<a class="l" name="2" href="#2">2</a> <span class="s">b&#34;</span>`,
		buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestHTMLWriter_CloseReportsWriteError(t *testing.T) {
	h := NewHTMLWriter(failingWriter{})
	h.Offer("x")
	err := h.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWritePage(t *testing.T) {
	var buf bytes.Buffer
	err := WritePage(&buf, "lib/<a>.rb", func(w io.Writer) error {
		h := NewHTMLWriter(w)
		scanInto(t, "x", h)
		return h.Close()
	})
	require.NoError(t, err)

	got := buf.String()
	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.Contains(t, got, "<title>lib/&lt;a&gt;.rb</title>")
	assert.Contains(t, got, `<pre>
<a class="l" name="1" href="#1">1</a> <a class="d" href="?defs=x">x</a>
</pre>`)
}

func TestWritePage_BodyError(t *testing.T) {
	boom := errors.New("boom")
	err := WritePage(io.Discard, "t", func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}

// ── SymbolCollector ──────────────────────────────────────────────────────

func TestSymbolCollector(t *testing.T) {
	c := NewSymbolCollector()
	scanInto(t, "class Foo\n  def bar; @x; end\nend\n", c)

	names := make([]string, 0)
	for _, s := range c.Symbols() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Foo", "bar", "@x"}, names)
	assert.Equal(t, 1, c.Symbols()[0].Line)
	assert.Equal(t, 2, c.Symbols()[1].Line)
	assert.Equal(t, 16, c.Symbols()[1].Offset)
}

func TestSymbolCollector_Keywords(t *testing.T) {
	c := NewSymbolCollector()
	c.IncludeKeywords = true
	scanInto(t, "if x then y end", c)
	require.Len(t, c.Symbols(), 5)
	assert.True(t, c.Symbols()[0].Keyword)
}

func TestSymbolCollector_SkipSymbol(t *testing.T) {
	c := NewSymbolCollector()
	c.OfferSymbol("a", 0, false)
	c.SkipSymbol()
	c.Offer("b")
	c.SkipSymbol()
	assert.Empty(t, c.Symbols())
}

func TestSymbolCollector_Normalizes(t *testing.T) {
	c := NewSymbolCollector()
	c.OfferSymbol("cafe\u0301", 0, false)
	require.Len(t, c.Symbols(), 1)
	assert.Equal(t, "caf\u00e9", c.Symbols()[0].Name)
}

// ── LineCounter ──────────────────────────────────────────────────────────

func TestLineCounter(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		lines int
		loc   int
	}{
		{"empty", "", 0, 0},
		{"one line no LF", "x = 1", 1, 1},
		{"blank lines", "x\n\n\ny\n", 4, 2},
		{"comments", "# a\nx # b\n# c\n", 3, 1},
		{"embdoc", "=begin\ndoc\n=end\nx\n", 4, 1},
		{"heredoc body counts", "s = <<E\n  text\nE\n", 3, 3},
		{"whitespace only", "   \n\t\n", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lc LineCounter
			scanInto(t, tt.src, &lc)
			assert.Equal(t, tt.lines, lc.Lines(), "lines")
			assert.Equal(t, tt.loc, lc.LOC(), "loc")
		})
	}
}

// ── Recorder and Tee ─────────────────────────────────────────────────────

func TestRecorder(t *testing.T) {
	var r Recorder
	src := "puts \"hi #{name}\" # http://a.b\n"
	scanInto(t, src, &r)

	assert.Equal(t, src, r.Text())

	var buf strings.Builder
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `symbol  "puts" @0`)
	assert.Contains(t, out, "span    s\n")
	assert.Contains(t, out, "span    end\n")
	assert.Contains(t, out, `link    "http://a.b"`)
	assert.Contains(t, out, "newline\n")
}

func TestTee(t *testing.T) {
	var r Recorder
	var lc LineCounter
	c := NewSymbolCollector()

	scanInto(t, "# http://x.y\nfoo\n", Tee{&r, &lc, c})

	assert.Equal(t, "# http://x.y\nfoo\n", r.Text())
	assert.Equal(t, 2, lc.Lines())
	assert.Equal(t, 1, lc.LOC())
	require.Len(t, c.Symbols(), 1)
	assert.Equal(t, "foo", c.Symbols()[0].Name)
}
