package discovery

import "time"

// DiscoveredFile represents a source file discovered during filesystem traversal
type DiscoveredFile struct {
	Path         string    // Absolute path to file
	RelativePath string    // Path relative to search root, slash-separated
	Language     string    // Analyzer language
	Size         int64     // Size in bytes
	ModTime      time.Time // Last modification time
}

// SkipReason explains why a file was not returned
type SkipReason int

const (
	SkipIgnored  SkipReason = iota // Matches an ignore pattern
	SkipTooLarge                   // Exceeds the size limit
	SkipUnknown                    // No analyzer for the file
)

// String returns a string representation of SkipReason
func (r SkipReason) String() string {
	switch r {
	case SkipIgnored:
		return "ignored"
	case SkipTooLarge:
		return "too large"
	case SkipUnknown:
		return "unknown language"
	default:
		return "unknown"
	}
}

// Classifier returns the language of a file, or false when it cannot be analyzed
type Classifier func(path string) (string, bool)

// Options control a discovery walk
type Options struct {
	Ignore      []string   // Glob patterns, see Ignored
	MaxFileSize int64      // Zero means no limit
	Classify    Classifier // Nil accepts every file with an empty language
	OnSkip      func(relPath string, reason SkipReason)
}
