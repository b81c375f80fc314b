package interchange

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/logbookone/logbook/internal/types"
)

// Format selects an encoding.
type Format string

const (
	// FormatJSON is the structured-text encoding.
	FormatJSON Format = "json"
	// FormatCSV is the line-oriented-text encoding.
	FormatCSV Format = "csv"
)

// filenamePrefix and filenameStamp build suggested export filenames:
// logbook-export-20261017-093000.csv
const (
	filenamePrefix = "logbook-export-"
	filenameStamp  = "20060102-150405"
)

// ParseFormat accepts "json", "csv" or their extensions, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownFormat, s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", types.ErrUnknownFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == FormatJSON || f == FormatCSV
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// MIMEType returns the media type for f.
func (f Format) MIMEType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// SuggestedFilename returns the export filename for a snapshot taken at t.
func (f Format) SuggestedFilename(t time.Time) string {
	return filenamePrefix + t.UTC().Format(filenameStamp) + f.Extension()
}

func (f Format) String() string {
	return string(f)
}
