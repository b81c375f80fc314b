package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/logbookone/logbook/internal/types"
)

// Fixed markers of the line-oriented format. The decoder compares them after
// trimming surrounding whitespace, case-sensitively.
const (
	Preamble       = "LogbookOne Data Export"
	MetadataKey    = "Exported At"
	ClientsMarker  = "CLIENTS"
	EntriesMarker  = "ENTRIES"
	ClientsHeader  = "ID,Name,Tag,Hourly Rate"
	EntriesHeader  = "ID,Type,Date,Description,Client ID,Is Complete,Amount,Tag"
	clientColumns  = 4
	entryColumns   = 8
	lineTerminator = "\n"
)

// document is the structured-text shape. Struct field order is alphabetical
// by JSON key so the encoded object has sorted keys.
type document struct {
	Clients    []clientRecord `json:"clients"`
	Entries    []entryRecord  `json:"entries"`
	ExportedAt string         `json:"exportedAt"`
}

type clientRecord struct {
	HourlyRate string `json:"hourlyRate"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tag        string `json:"tag,omitempty"`
}

type entryRecord struct {
	Amount      string `json:"amount"`
	ClientID    string `json:"clientId,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
	ID          string `json:"id"`
	IsComplete  bool   `json:"isComplete"`
	Tag         string `json:"tag,omitempty"`
	Type        string `json:"type"`
}

// Encode serialises ds in format f.
func Encode(ds *types.Dataset, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return EncodeJSON(ds)
	case FormatCSV:
		return EncodeCSV(ds), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFormat, string(f))
	}
}

// EncodeJSON serialises ds as an indented structured document.
func EncodeJSON(ds *types.Dataset) ([]byte, error) {
	doc := document{
		Clients:    make([]clientRecord, 0, len(ds.Clients)),
		Entries:    make([]entryRecord, 0, len(ds.Entries)),
		ExportedAt: FormatTimestamp(ds.ExportedAt),
	}

	for i := range ds.Clients {
		c := &ds.Clients[i]
		doc.Clients = append(doc.Clients, clientRecord{
			HourlyRate: c.HourlyRate.String(),
			ID:         c.ID.String(),
			Name:       c.Name,
			Tag:        c.Tag,
		})
	}

	for i := range ds.Entries {
		e := &ds.Entries[i]
		doc.Entries = append(doc.Entries, entryRecord{
			Amount:      e.Amount.String(),
			ClientID:    clientRef(e),
			CreatedAt:   formatOptionalTimestamp(e.CreatedAt),
			Date:        formatOptionalTimestamp(e.OccursAt),
			Description: e.Description,
			ID:          e.ID.String(),
			IsComplete:  e.IsComplete,
			Tag:         e.Tag,
			Type:        e.Kind.String(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeCSV serialises ds in the line-oriented format.
func EncodeCSV(ds *types.Dataset) []byte {
	var buf bytes.Buffer
	writeLine := func(s string) {
		buf.WriteString(s)
		buf.WriteString(lineTerminator)
	}

	writeLine(Preamble)
	writeLine(JoinRecord(MetadataKey, FormatTimestamp(ds.ExportedAt)))
	writeLine("")

	writeLine(ClientsMarker)
	writeLine(ClientsHeader)
	for i := range ds.Clients {
		c := &ds.Clients[i]
		writeLine(JoinRecord(
			c.ID.String(),
			c.Name,
			c.Tag,
			c.HourlyRate.String(),
		))
	}
	writeLine("")

	writeLine(EntriesMarker)
	writeLine(EntriesHeader)
	for i := range ds.Entries {
		e := &ds.Entries[i]
		writeLine(JoinRecord(
			e.ID.String(),
			e.Kind.String(),
			formatOptionalTimestamp(e.OccursAt),
			e.Description,
			clientRef(e),
			strconv.FormatBool(e.IsComplete),
			e.Amount.String(),
			e.Tag,
		))
	}

	return buf.Bytes()
}

func clientRef(e *types.LogEntry) string {
	if !e.HasClient() {
		return ""
	}
	return e.ClientID.String()
}
