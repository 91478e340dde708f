package xref

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"net/url"
)

// HTMLWriter renders a scan as highlighted HTML with one anchor per line.
// Output is buffered; call Close to flush it and learn about write errors.
type HTMLWriter struct {
	// SymbolURL maps a symbol name to its link target. Nil renders
	// symbols without links.
	SymbolURL func(name string) string

	w       *bufio.Writer
	line    int
	class   string // open span class, "" if none
	started bool
}

// NewHTMLWriter creates a writer emitting to w.
func NewHTMLWriter(w io.Writer) *HTMLWriter {
	return &HTMLWriter{
		SymbolURL: SearchURL,
		w:         bufio.NewWriter(w),
	}
}

// SearchURL links a symbol to the definition search.
func SearchURL(name string) string {
	return "?defs=" + url.QueryEscape(name)
}

func (h *HTMLWriter) begin() {
	if h.started {
		return
	}
	h.started = true
	h.anchor()
}

func (h *HTMLWriter) anchor() {
	h.line++
	fmt.Fprintf(h.w, `<a class="l" name="%d" href="#%d">%d</a> `, h.line, h.line, h.line)
}

// Offer writes escaped text.
func (h *HTMLWriter) Offer(text string) {
	h.begin()
	h.w.WriteString(html.EscapeString(text))
}

// OfferSymbol writes a keyword in bold or a symbol as a link.
func (h *HTMLWriter) OfferSymbol(text string, _ int, keyword bool) {
	h.begin()
	esc := html.EscapeString(text)
	switch {
	case keyword:
		fmt.Fprintf(h.w, `<b>%s</b>`, esc)
	case h.SymbolURL != nil:
		fmt.Fprintf(h.w, `<a class="d" href="%s">%s</a>`, html.EscapeString(h.SymbolURL(text)), esc)
	default:
		h.w.WriteString(esc)
	}
}

// OfferLink writes url as a hyperlink.
func (h *HTMLWriter) OfferLink(u string) {
	h.begin()
	esc := html.EscapeString(u)
	fmt.Fprintf(h.w, `<a href="%s">%s</a>`, esc, esc)
}

// DisjointSpan closes the open span and opens one of class.
func (h *HTMLWriter) DisjointSpan(class string) {
	h.begin()
	if h.class != "" {
		h.w.WriteString("</span>")
	}
	h.class = class
	if class != "" {
		fmt.Fprintf(h.w, `<span class="%s">`, html.EscapeString(class))
	}
}

// StartNewLine ends the line. An open span is closed before the line break
// and reopened after the next anchor.
func (h *HTMLWriter) StartNewLine() {
	h.begin()
	if h.class != "" {
		h.w.WriteString("</span>")
	}
	h.w.WriteByte('\n')
	h.anchor()
	if h.class != "" {
		fmt.Fprintf(h.w, `<span class="%s">`, html.EscapeString(h.class))
	}
}

// SkipSymbol is a no-op: nothing is rendered as a symbol unless offered as one.
func (h *HTMLWriter) SkipSymbol() {}

// Lines returns the number of lines written so far.
func (h *HTMLWriter) Lines() int {
	return h.line
}

// Close closes any open span and flushes the output.
func (h *HTMLWriter) Close() error {
	if h.class != "" {
		h.w.WriteString("</span>")
		h.class = ""
	}
	if err := h.w.Flush(); err != nil {
		return fmt.Errorf("failed to write xref: %w", err)
	}
	return nil
}

// WritePage wraps a rendered body in a minimal standalone HTML page.
func WritePage(w io.Writer, title string, body func(io.Writer) error) error {
	if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; background: #282c34; color: #abb2bf; }
        pre { font-family: 'Courier New', monospace; font-size: 0.9em; line-height: 1.5; }
        a.l { color: #5c6370; text-decoration: none; user-select: none; display: inline-block; min-width: 4em; }
        a.d { color: #61afef; text-decoration: none; }
        b { color: #c678dd; font-weight: normal; }
        .s { color: #98c379; }
        .c { color: #5c6370; font-style: italic; }
        .n { color: #d19a66; }
    </style>
</head>
<body>
<pre>
`, html.EscapeString(title)); err != nil {
		return err
	}
	if err := body(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n</pre>\n</body>\n</html>\n")
	return err
}
