package report

import (
	"strings"
	"testing"

	"github.com/cybertec-postgresql/rbxref/internal/index"
)

func TestCtagsReporter(t *testing.T) {
	output, err := NewCtagsReporter().FormatString(testSnapshot())
	if err != nil {
		t.Fatalf("FormatString failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	want := []string{
		"!_TAG_FILE_FORMAT\t2\t/extended format/",
		"!_TAG_FILE_SORTED\t1\t/0=unsorted, 1=sorted, 2=foldcase/",
		"!_TAG_PROGRAM_NAME\trbxref\t//",
		"User\tapp.rb\t1;\"",
		"User\tlib/user.rb\t1;\"",
		"name\tlib/user.rb\t2;\"",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), output)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestCtagsReporter_SkipsUnsafeNames(t *testing.T) {
	snap := index.NewSnapshot("")
	snap.Put(&index.FileEntry{Path: "a.rb", Symbols: []index.Symbol{{Name: "a\tb", Line: 1}, {Name: "ok", Line: 1}}})

	output, err := NewCtagsReporter().FormatString(snap)
	if err != nil {
		t.Fatalf("FormatString failed: %v", err)
	}
	if strings.Contains(output, "a\tb") || !strings.Contains(output, "ok\ta.rb\t1;\"") {
		t.Errorf("unexpected output:\n%s", output)
	}
}
