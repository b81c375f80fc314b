package interchange

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logbookone/logbook/internal/types"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func timePtr(t time.Time) *time.Time { return &t }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

// sampleDataset covers every kind, optional fields set and unset, and text
// that needs quoting.
func sampleDataset() *types.Dataset {
	acme := uuid.MustParse("6f1c2a4e-1d3b-4c5a-9e8f-0a1b2c3d4e5f")
	beta := uuid.MustParse("0b7e9d2c-5a4f-4e3d-8c2b-1a0f9e8d7c6b")

	return &types.Dataset{
		ExportedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Clients: []types.Client{
			{ID: acme, Name: "Acme, \"The\" Company\nEurope", Tag: "retainer", HourlyRate: decimal.RequireFromString("85.50")},
			{ID: beta, Name: "Beta", HourlyRate: decimal.Zero},
		},
		Entries: []types.LogEntry{
			{
				ID:          uuid.MustParse("a1a1a1a1-0000-4000-8000-000000000001"),
				Kind:        types.KindTask,
				OccursAt:    timePtr(time.Date(2026, 10, 20, 17, 0, 0, 0, time.UTC)),
				CreatedAt:   timePtr(time.Date(2026, 9, 30, 8, 15, 0, 0, time.UTC)),
				Description: "Ship v2, finally",
				IsComplete:  true,
				Amount:      decimal.Zero,
				Tag:         "dev",
				ClientID:    uuidPtr(acme),
			},
			{
				ID:          uuid.MustParse("a1a1a1a1-0000-4000-8000-000000000002"),
				Kind:        types.KindNote,
				OccursAt:    timePtr(time.Date(2026, 10, 2, 10, 0, 0, 0, time.UTC)),
				Description: "Call notes:\n- scope \"phase 2\"",
				Amount:      decimal.Zero,
			},
			{
				ID:          uuid.MustParse("a1a1a1a1-0000-4000-8000-000000000003"),
				Kind:        types.KindPayment,
				OccursAt:    timePtr(time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)),
				CreatedAt:   timePtr(time.Date(2026, 10, 5, 0, 0, 1, 0, time.UTC)),
				Description: "Invoice #12",
				Amount:      decimal.RequireFromString("1234.5678"),
				Tag:         "invoice",
				ClientID:    uuidPtr(beta),
			},
		},
	}
}

func assertClientsEqual(t *testing.T, got, want []types.Client) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d clients, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Name != w.Name || g.Tag != w.Tag || !g.HourlyRate.Equal(w.HourlyRate) {
			t.Errorf("client %d = %+v, want %+v", i, g, w)
		}
	}
}

func assertEntriesEqual(t *testing.T, got, want []types.LogEntry, withCreatedAt bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Kind != w.Kind || g.Description != w.Description ||
			g.IsComplete != w.IsComplete || g.Tag != w.Tag || !g.Amount.Equal(w.Amount) {
			t.Errorf("entry %d = %+v, want %+v", i, g, w)
		}
		if !sameTime(g.OccursAt, w.OccursAt) {
			t.Errorf("entry %d OccursAt = %v, want %v", i, g.OccursAt, w.OccursAt)
		}
		if withCreatedAt && !sameTime(g.CreatedAt, w.CreatedAt) {
			t.Errorf("entry %d CreatedAt = %v, want %v", i, g.CreatedAt, w.CreatedAt)
		}
		if !sameRef(g.ClientID, w.ClientID) {
			t.Errorf("entry %d ClientID = %v, want %v", i, g.ClientID, w.ClientID)
		}
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
