package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cybertec-postgresql/rbxref/internal/runner"
)

var (
	colorOK    = lipgloss.Color("#10B981")
	colorError = lipgloss.Color("#EF4444")
	colorMuted = lipgloss.Color("#6B7280")
)

// printSummary writes the end-of-run table. Colors are dropped when out
// is not a terminal.
func printSummary(out io.Writer, s *runner.Summary, elapsed time.Duration, store string) {
	r := lipgloss.NewRenderer(out)
	label := r.NewStyle().Foreground(colorMuted).Width(10)
	ok := r.NewStyle().Foreground(colorOK).Bold(true)
	bad := r.NewStyle().Foreground(colorError).Bold(true)

	files := ok.Render(fmt.Sprintf("%d indexed", s.IndexedFiles))
	if s.FailedFiles > 0 || s.TimedOutFiles > 0 {
		files += ", " + bad.Render(fmt.Sprintf("%d failed, %d timed out", s.FailedFiles, s.TimedOutFiles))
	}
	files += fmt.Sprintf(", %d total", s.TotalFiles)

	rows := []string{
		label.Render("Files:") + files,
		label.Render("Symbols:") + fmt.Sprintf("%d", s.Symbols),
		label.Render("LOC:") + fmt.Sprintf("%d", s.LOC),
		label.Render("Time:") + elapsed.Round(time.Millisecond).String(),
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, lipgloss.JoinVertical(lipgloss.Left, rows...))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Index written to %s\n", store)
}
