package interchange

import (
	"bytes"
	"fmt"
	"time"

	"github.com/logbookone/logbook/internal/types"
)

// utf8BOM is stripped from the start of input; spreadsheet tools add it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decoded is a candidate dataset produced by Decode, along with the rows that
// were dropped or defaulted on the way.
type Decoded struct {
	types.Dataset

	// SkippedClients and SkippedEntries count rows that could not be used
	// (too few fields, unusable id).
	SkippedClients int
	SkippedEntries int

	// Warnings describes every field-level recovery, in input order.
	Warnings []string
}

func (d *Decoded) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Decode parses data in format f. now supplies the export time when the input
// does not carry one; nil means time.Now.
//
// On error no dataset is returned. Errors wrap types.ErrNotRecognizedFormat,
// types.ErrFormat or types.ErrUnknownFormat.
func Decode(data []byte, f Format, now func() time.Time) (*Decoded, error) {
	if now == nil {
		now = time.Now
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	switch f {
	case FormatJSON:
		return DecodeJSON(data, now)
	case FormatCSV:
		return DecodeCSV(data, now)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFormat, string(f))
	}
}
