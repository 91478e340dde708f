// Package report renders an index snapshot in the supported output formats.
package report

import (
	"fmt"
	"io"

	"github.com/cybertec-postgresql/rbxref/internal/index"
)

// Formatter is an interface for index report formatters
type Formatter interface {
	// Format formats the snapshot and writes to the writer
	Format(snap *index.Snapshot, writer io.Writer) error

	// FormatString returns the snapshot as a string
	FormatString(snap *index.Snapshot) (string, error)

	// Name returns the name of this formatter
	Name() string
}

// FormatType represents supported report formats
type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatCtags FormatType = "ctags"
	FormatHTML  FormatType = "html"
)

// GetFormatter returns a formatter for the specified format type
func GetFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONReporter(), nil
	case FormatCtags:
		return NewCtagsReporter(), nil
	case FormatHTML:
		return NewHTMLReporter(""), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, ctags, html)", format)
	}
}

// FormatToWriter formats the snapshot to a writer using the specified format
func FormatToWriter(snap *index.Snapshot, format FormatType, writer io.Writer) error {
	formatter, err := GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(snap, writer)
}

// ValidFormat checks if a format string is valid
func ValidFormat(format string) bool {
	switch FormatType(format) {
	case FormatJSON, FormatCtags, FormatHTML:
		return true
	default:
		return false
	}
}

// SupportedFormats returns a list of supported format names
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatCtags), string(FormatHTML)}
}
