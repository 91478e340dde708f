package index

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// SchemaVersion is written into every snapshot.
const SchemaVersion = "1.0"

// Snapshot is the symbol index of one source tree.
type Snapshot struct {
	Version   string                `json:"version"`   // Schema version (e.g., "1.0")
	RunID     string                `json:"run_id"`    // Index run that produced the snapshot
	Timestamp time.Time             `json:"timestamp"` // When the run finished
	Root      string                `json:"root"`      // Indexed root directory
	Files     map[string]*FileEntry `json:"files"`     // Key: path relative to Root
}

// FileEntry is the scan result of one file.
type FileEntry struct {
	Path     string    `json:"path"`
	Language string    `json:"language"`
	LOC      int       `json:"loc"`   // lines with code, excluding blank and comment-only lines
	Lines    int       `json:"lines"` // total lines
	ModTime  time.Time `json:"mod_time"`
	Symbols  []Symbol  `json:"symbols"`
}

// Symbol is one indexable identifier occurrence.
type Symbol struct {
	Name    string `json:"name"`
	Offset  int    `json:"offset"` // byte offset in the file
	Line    int    `json:"line"`   // 1-based
	Keyword bool   `json:"keyword,omitempty"`
}

// Location is a symbol occurrence in a specific file.
type Location struct {
	Path string `json:"path"`
	Symbol
}

// NewSnapshot creates an empty snapshot with a fresh run id.
func NewSnapshot(root string) *Snapshot {
	return &Snapshot{
		Version:   SchemaVersion,
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Root:      root,
		Files:     make(map[string]*FileEntry),
	}
}

// NormalizeName returns the canonical (NFC) form of a symbol name, so that
// precomposed and decomposed spellings index together.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// Put adds or replaces a file entry.
func (s *Snapshot) Put(entry *FileEntry) {
	if s.Files == nil {
		s.Files = make(map[string]*FileEntry)
	}
	s.Files[entry.Path] = entry
}

// Delete removes a file entry.
func (s *Snapshot) Delete(path string) {
	delete(s.Files, path)
}

// Paths returns all file paths in sorted order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// TotalLOC sums the lines of code of all files.
func (s *Snapshot) TotalLOC() int {
	total := 0
	for _, f := range s.Files {
		total += f.LOC
	}
	return total
}

// SymbolCount returns the number of symbol occurrences of all files.
func (s *Snapshot) SymbolCount() int {
	total := 0
	for _, f := range s.Files {
		total += len(f.Symbols)
	}
	return total
}

// Find returns all occurrences of name, ordered by path and offset.
func (s *Snapshot) Find(name string) []Location {
	name = NormalizeName(name)
	var hits []Location
	for _, path := range s.Paths() {
		for _, sym := range s.Files[path].Symbols {
			if sym.Name == name {
				hits = append(hits, Location{Path: path, Symbol: sym})
			}
		}
	}
	return hits
}

// SortLocations orders search hits by path, then offset.
func SortLocations(locs []Location) {
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].Path != locs[j].Path {
			return locs[i].Path < locs[j].Path
		}
		return locs[i].Offset < locs[j].Offset
	})
}
