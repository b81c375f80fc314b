package interchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logbookone/logbook/internal/types"
)

// DecodeCSV parses the line-oriented format.
//
// The first non-blank row must be the preamble, otherwise the input is
// rejected with types.ErrNotRecognizedFormat. The CLIENTS and ENTRIES markers
// and their column headers must all be present in order, otherwise the input
// is rejected with types.ErrFormat. Everything else is recovered row by row.
func DecodeCSV(data []byte, now func() time.Time) (*Decoded, error) {
	records := ScanRecords(string(data))

	pos := nextNonBlank(records, 0)
	if pos < 0 || strings.TrimSpace(records[pos].Raw) != Preamble {
		return nil, fmt.Errorf("%w: missing %q preamble", types.ErrNotRecognizedFormat, Preamble)
	}
	pos++

	out := &Decoded{}
	out.ExportedAt = now().UTC().Truncate(time.Second)
	if meta := nextNonBlank(records, pos); meta >= 0 && strings.TrimSpace(records[meta].Field(0)) == MetadataKey {
		if t, err := ParseTimestamp(records[meta].Field(1)); err == nil {
			out.ExportedAt = t
		} else {
			out.warnf("line %d: unreadable export time, using now", records[meta].Line)
		}
		pos = meta + 1
	}

	clientsAt := findAnchor(records, pos, ClientsMarker)
	if clientsAt < 0 {
		return nil, fmt.Errorf("%w: %s section not found", types.ErrFormat, ClientsMarker)
	}
	clientHeaderAt := findAnchor(records, clientsAt+1, ClientsHeader)
	if clientHeaderAt < 0 {
		return nil, fmt.Errorf("%w: client column header not found", types.ErrFormat)
	}
	entriesAt := findAnchor(records, clientHeaderAt+1, EntriesMarker)
	if entriesAt < 0 {
		return nil, fmt.Errorf("%w: %s section not found", types.ErrFormat, EntriesMarker)
	}
	entryHeaderAt := findAnchor(records, entriesAt+1, EntriesHeader)
	if entryHeaderAt < 0 {
		return nil, fmt.Errorf("%w: entry column header not found", types.ErrFormat)
	}

	for _, r := range records[clientHeaderAt+1 : entriesAt] {
		if r.Blank() {
			continue
		}
		c, ok := decodeClientRow(r, out)
		if !ok {
			out.SkippedClients++
			continue
		}
		out.Clients = append(out.Clients, c)
	}

	for _, r := range records[entryHeaderAt+1:] {
		if r.Blank() {
			continue
		}
		e, ok := decodeEntryRow(r, out)
		if !ok {
			out.SkippedEntries++
			continue
		}
		out.Entries = append(out.Entries, e)
	}

	return out, nil
}

func decodeClientRow(r Record, out *Decoded) (types.Client, bool) {
	if len(r.Fields) < clientColumns {
		out.warnf("line %d: client row has %d fields, need %d", r.Line, len(r.Fields), clientColumns)
		return types.Client{}, false
	}
	id, err := uuid.Parse(strings.TrimSpace(r.Field(0)))
	if err != nil {
		out.warnf("line %d: client row has invalid id %q", r.Line, r.Field(0))
		return types.Client{}, false
	}

	c := types.Client{
		ID:         id,
		Name:       r.Field(1),
		Tag:        r.Field(2),
		HourlyRate: lenientDecimal(r.Field(3), r.Line, "hourly rate", out),
	}
	c.Normalize()
	return c, true
}

func decodeEntryRow(r Record, out *Decoded) (types.LogEntry, bool) {
	if len(r.Fields) < entryColumns {
		out.warnf("line %d: entry row has %d fields, need %d", r.Line, len(r.Fields), entryColumns)
		return types.LogEntry{}, false
	}
	id, err := uuid.Parse(strings.TrimSpace(r.Field(0)))
	if err != nil {
		out.warnf("line %d: entry row has invalid id %q", r.Line, r.Field(0))
		return types.LogEntry{}, false
	}

	e := types.LogEntry{
		ID:          id,
		Description: r.Field(3),
		IsComplete:  lenientBool(r.Field(5)),
		Amount:      lenientDecimal(r.Field(6), r.Line, "amount", out),
		Tag:         r.Field(7),
	}

	label := strings.TrimSpace(r.Field(1))
	kind, ok := types.ParseKind(label)
	if !ok {
		kind = types.KindTask
		out.warnf("line %d: unknown type %q, treated as Task", r.Line, label)
	}
	e.Kind = kind

	if raw := strings.TrimSpace(r.Field(2)); raw != "" {
		if t, err := ParseTimestamp(raw); err == nil {
			e.OccursAt = &t
		} else {
			out.warnf("line %d: unreadable date %q dropped", r.Line, raw)
		}
	}

	e.ClientID = parseClientRef(r.Field(4), func(raw string) {
		out.warnf("line %d: invalid client id %q dropped", r.Line, raw)
	})

	e.Normalize()
	return e, true
}

// lenientDecimal parses a decimal field. Empty is zero; anything unparseable is
// also zero, with a warning.
func lenientDecimal(raw string, line int, field string, out *Decoded) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		out.warnf("line %d: unreadable %s %q, using 0", line, field, raw)
		return decimal.Zero
	}
	return d
}

func lenientBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

func nextNonBlank(records []Record, from int) int {
	for i := from; i < len(records); i++ {
		if !records[i].Blank() {
			return i
		}
	}
	return -1
}

func findAnchor(records []Record, from int, anchor string) int {
	for i := from; i < len(records); i++ {
		if strings.TrimSpace(records[i].Raw) == anchor {
			return i
		}
	}
	return -1
}
