package interchange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logbookone/logbook/internal/types"
)

// jsonDocument mirrors document with pointers so missing keys are detectable.
type jsonDocument struct {
	Clients    *[]jsonClient `json:"clients"`
	Entries    *[]jsonEntry  `json:"entries"`
	ExportedAt *string       `json:"exportedAt"`
}

type jsonClient struct {
	HourlyRate *decimal.Decimal `json:"hourlyRate"`
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Tag        string           `json:"tag"`
}

type jsonEntry struct {
	Amount      *decimal.Decimal `json:"amount"`
	ClientID    *string          `json:"clientId"`
	CreatedAt   *string          `json:"createdAt"`
	Date        *string          `json:"date"`
	Description string           `json:"description"`
	ID          string           `json:"id"`
	IsComplete  bool             `json:"isComplete"`
	Tag         string           `json:"tag"`
	Type        jsonKind         `json:"type"`
}

// jsonKind accepts a label ("Payment") or a legacy integer code (2).
type jsonKind struct {
	kind  types.Kind
	raw   string
	known bool
}

func (k *jsonKind) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		k.raw = label
		k.kind, k.known = types.ParseKind(label)
		return nil
	}
	var code int
	if err := json.Unmarshal(b, &code); err == nil {
		k.raw = strconv.Itoa(code)
		k.kind, k.known = types.KindFromCode(code)
		return nil
	}
	return fmt.Errorf("type must be a label or an integer code, got %s", b)
}

// DecodeJSON parses a structured document. Structure is strict: the top level
// must be an object whose clients and entries are arrays of correctly typed
// records. Records whose id is not a UUID are skipped.
func DecodeJSON(data []byte, now func() time.Time) (*Decoded, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFormat, err)
	}
	if doc.Clients == nil {
		return nil, fmt.Errorf("%w: clients array missing", types.ErrFormat)
	}
	if doc.Entries == nil {
		return nil, fmt.Errorf("%w: entries array missing", types.ErrFormat)
	}

	out := &Decoded{}
	out.ExportedAt = now().UTC().Truncate(time.Second)
	if doc.ExportedAt != nil {
		t, err := ParseTimestamp(*doc.ExportedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: exportedAt: %v", types.ErrFormat, err)
		}
		out.ExportedAt = t
	}

	out.Clients = make([]types.Client, 0, len(*doc.Clients))
	for i, rec := range *doc.Clients {
		id, err := uuid.Parse(strings.TrimSpace(rec.ID))
		if err != nil {
			out.SkippedClients++
			out.warnf("clients[%d]: skipped, invalid id %q", i, rec.ID)
			continue
		}
		c := types.Client{ID: id, Name: rec.Name, Tag: rec.Tag}
		if rec.HourlyRate != nil {
			c.HourlyRate = *rec.HourlyRate
		}
		c.Normalize()
		out.Clients = append(out.Clients, c)
	}

	out.Entries = make([]types.LogEntry, 0, len(*doc.Entries))
	for i, rec := range *doc.Entries {
		id, err := uuid.Parse(strings.TrimSpace(rec.ID))
		if err != nil {
			out.SkippedEntries++
			out.warnf("entries[%d]: skipped, invalid id %q", i, rec.ID)
			continue
		}

		e := types.LogEntry{
			ID:          id,
			Kind:        rec.Type.kind,
			Description: rec.Description,
			IsComplete:  rec.IsComplete,
			Tag:         rec.Tag,
		}
		if !rec.Type.known {
			e.Kind = types.KindTask
			out.warnf("entries[%d]: unknown type %q, treated as Task", i, rec.Type.raw)
		}
		if rec.Amount != nil {
			e.Amount = *rec.Amount
		}
		if e.OccursAt, err = parseOptionalTimestamp(rec.Date); err != nil {
			return nil, fmt.Errorf("%w: entries[%d].date: %v", types.ErrFormat, i, err)
		}
		if e.CreatedAt, err = parseOptionalTimestamp(rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: entries[%d].createdAt: %v", types.ErrFormat, i, err)
		}
		if rec.ClientID != nil {
			e.ClientID = parseClientRef(*rec.ClientID, func(raw string) {
				out.warnf("entries[%d]: invalid clientId %q dropped", i, raw)
			})
		}

		e.Normalize()
		out.Entries = append(out.Entries, e)
	}

	return out, nil
}

func parseOptionalTimestamp(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseClientRef parses a client reference. Empty means no reference; an
// unparseable value is reported through invalid and also means no reference.
func parseClientRef(raw string, invalid func(string)) *uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		invalid(raw)
		return nil
	}
	return &id
}
