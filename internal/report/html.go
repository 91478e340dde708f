package report

import (
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/cybertec-postgresql/rbxref/internal/index"
)

// HTMLReporter formats an index summary as HTML
type HTMLReporter struct {
	// XrefBase, when set, links each file to its xref page under this URL prefix
	XrefBase string
}

// NewHTMLReporter creates a new HTML reporter
func NewHTMLReporter(xrefBase string) *HTMLReporter {
	return &HTMLReporter{XrefBase: xrefBase}
}

// Format formats the snapshot as HTML and writes to the writer
func (r *HTMLReporter) Format(snap *index.Snapshot, writer io.Writer) error {
	files := snap.Paths()

	if err := r.writeHeader(snap, writer); err != nil {
		return err
	}

	if err := r.writeSummary(snap, writer); err != nil {
		return err
	}

	if err := r.writeFileList(snap, files, writer); err != nil {
		return err
	}

	return r.writeFooter(writer)
}

// writeHeader writes the HTML document header with CSS
func (r *HTMLReporter) writeHeader(snap *index.Snapshot, writer io.Writer) error {
	timestamp := time.Now().Format(time.RFC1123)
	if !snap.Timestamp.IsZero() {
		timestamp = snap.Timestamp.Format(time.RFC1123)
	}

	_, err := fmt.Fprintf(writer, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>rbxref Index Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; background: #f5f5f5; color: #333; }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        header { background: #2c3e50; color: white; padding: 30px 0; margin-bottom: 30px; }
        header h1 { font-size: 2.5em; margin-bottom: 10px; }
        header .meta { opacity: 0.8; font-size: 0.9em; }
        .summary, .file-list { background: white; border-radius: 8px; padding: 25px; margin-bottom: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .summary h2, .file-list h2 { margin-bottom: 20px; color: #2c3e50; }
        .summary-stats { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; }
        .stat-card { background: #f8f9fa; padding: 20px; border-radius: 6px; border-left: 4px solid #3498db; }
        .stat-card .label { font-size: 0.85em; color: #7f8c8d; text-transform: uppercase; margin-bottom: 8px; }
        .stat-card .value { font-size: 2em; font-weight: bold; color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; }
        th, td { padding: 8px 12px; border-bottom: 1px solid #ecf0f1; text-align: right; }
        th:first-child, td:first-child { text-align: left; font-family: 'Courier New', monospace; }
        tr:hover { background: #f8f9fa; }
        footer { text-align: center; padding: 30px 0; color: #7f8c8d; font-size: 0.9em; }
    </style>
</head>
<body>
    <header>
        <div class="container">
            <h1>rbxref Index Report</h1>
            <div class="meta">Generated: %s | Root: %s | Run: %s</div>
        </div>
    </header>
    <div class="container">
`, timestamp, html.EscapeString(snap.Root), html.EscapeString(snap.RunID))
	return err
}

// writeSummary writes the totals section
func (r *HTMLReporter) writeSummary(snap *index.Snapshot, writer io.Writer) error {
	_, err := fmt.Fprintf(writer, `        <section class="summary">
            <h2>Summary</h2>
            <div class="summary-stats">
                <div class="stat-card">
                    <div class="label">Files</div>
                    <div class="value">%d</div>
                </div>
                <div class="stat-card">
                    <div class="label">Lines of Code</div>
                    <div class="value">%d</div>
                </div>
                <div class="stat-card">
                    <div class="label">Symbols</div>
                    <div class="value">%d</div>
                </div>
            </div>
        </section>

`, len(snap.Files), snap.TotalLOC(), snap.SymbolCount())
	return err
}

// writeFileList writes one table row per file
func (r *HTMLReporter) writeFileList(snap *index.Snapshot, files []string, writer io.Writer) error {
	_, err := io.WriteString(writer, `        <section class="file-list">
            <h2>Files</h2>
            <table>
                <tr><th>File</th><th>Language</th><th>Lines</th><th>LOC</th><th>Symbols</th></tr>
`)
	if err != nil {
		return err
	}

	for _, path := range files {
		f := snap.Files[path]
		_, err := fmt.Fprintf(writer, "                <tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
			r.fileCell(path), html.EscapeString(f.Language), f.Lines, f.LOC, len(f.Symbols))
		if err != nil {
			return err
		}
	}

	_, err = io.WriteString(writer, `            </table>
        </section>

`)
	return err
}

func (r *HTMLReporter) fileCell(path string) string {
	name := html.EscapeString(path)
	if r.XrefBase == "" {
		return name
	}
	u := &url.URL{Path: strings.TrimSuffix(r.XrefBase, "/") + "/" + path + ".html"}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(u.EscapedPath()), name)
}

// writeFooter writes the HTML document footer
func (r *HTMLReporter) writeFooter(writer io.Writer) error {
	_, err := io.WriteString(writer, `        <footer>
            Generated by <strong>rbxref</strong> - source cross-reference indexer
        </footer>
    </div>
</body>
</html>
`)
	return err
}

// FormatString returns the report as an HTML string
func (r *HTMLReporter) FormatString(snap *index.Snapshot) (string, error) {
	var buf strings.Builder
	if err := r.Format(snap, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Name returns the name of this reporter
func (r *HTMLReporter) Name() string {
	return "html"
}
