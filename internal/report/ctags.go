package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cybertec-postgresql/rbxref/internal/index"
)

// CtagsReporter writes a sorted tags file in extended ctags format.
// Keyword occurrences are left out.
type CtagsReporter struct{}

// NewCtagsReporter creates a new ctags reporter
func NewCtagsReporter() *CtagsReporter {
	return &CtagsReporter{}
}

type tag struct {
	name string
	path string
	line int
}

// Format writes one tag line per symbol occurrence
func (r *CtagsReporter) Format(snap *index.Snapshot, writer io.Writer) error {
	var tags []tag
	for path, f := range snap.Files {
		for _, s := range f.Symbols {
			// Tab and newline would break the line format
			if s.Keyword || strings.ContainsAny(s.Name, "\t\n") {
				continue
			}
			tags = append(tags, tag{name: s.Name, path: path, line: s.Line})
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		a, b := tags[i], tags[j]
		if a.name != b.name {
			return a.name < b.name
		}
		if a.path != b.path {
			return a.path < b.path
		}
		return a.line < b.line
	})

	w := bufio.NewWriter(writer)
	fmt.Fprintf(w, "!_TAG_FILE_FORMAT\t2\t/extended format/\n")
	fmt.Fprintf(w, "!_TAG_FILE_SORTED\t1\t/0=unsorted, 1=sorted, 2=foldcase/\n")
	fmt.Fprintf(w, "!_TAG_PROGRAM_NAME\trbxref\t//\n")
	var prev tag
	for i, t := range tags {
		// Several symbols on one line collapse into one tag
		if i > 0 && t == prev {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d;\"\n", t.name, t.path, t.line)
		prev = t
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write tags output: %w", err)
	}
	return nil
}

// FormatString returns the tags file as a string
func (r *CtagsReporter) FormatString(snap *index.Snapshot) (string, error) {
	var buf strings.Builder
	if err := r.Format(snap, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Name returns the name of this reporter
func (r *CtagsReporter) Name() string {
	return "ctags"
}
