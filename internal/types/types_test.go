package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestKind_LabelRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		if !ok {
			t.Fatalf("ParseKind(%q) not recognised", k.String())
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
}

func TestParseKind_Exact(t *testing.T) {
	tests := []struct {
		label string
		want  Kind
		ok    bool
	}{
		{"Task", KindTask, true},
		{"Note", KindNote, true},
		{"Payment", KindPayment, true},
		{"task", 0, false},
		{" Note", 0, false},
		{"Invoice", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseKind(tt.label)
		if ok != tt.ok {
			t.Errorf("ParseKind(%q) ok = %v, want %v", tt.label, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestKindFromCode(t *testing.T) {
	if k, ok := KindFromCode(2); !ok || k != KindPayment {
		t.Errorf("KindFromCode(2) = %v, %v", k, ok)
	}
	if _, ok := KindFromCode(3); ok {
		t.Error("KindFromCode(3) should not be valid")
	}
	if got := Kind(7).String(); got != "Kind(7)" {
		t.Errorf("Kind(7).String() = %q", got)
	}
}

func TestClient_Normalize(t *testing.T) {
	c := Client{ID: uuid.New(), HourlyRate: decimal.RequireFromString("-5")}
	c.Normalize()

	if c.Name != DefaultClientName {
		t.Errorf("Name = %q, want %q", c.Name, DefaultClientName)
	}
	if !c.HourlyRate.IsZero() {
		t.Errorf("HourlyRate = %s, want 0", c.HourlyRate)
	}
}

func TestLogEntry_Normalize(t *testing.T) {
	nilRef := uuid.Nil

	tests := []struct {
		name         string
		entry        LogEntry
		wantComplete bool
		wantAmount   string
	}{
		{
			name:         "task keeps completion, drops amount",
			entry:        LogEntry{Kind: KindTask, IsComplete: true, Amount: decimal.RequireFromString("10")},
			wantComplete: true,
			wantAmount:   "0",
		},
		{
			name:         "payment keeps amount, drops completion",
			entry:        LogEntry{Kind: KindPayment, IsComplete: true, Amount: decimal.RequireFromString("12.34")},
			wantComplete: false,
			wantAmount:   "12.34",
		},
		{
			name:         "note drops both",
			entry:        LogEntry{Kind: KindNote, IsComplete: true, Amount: decimal.RequireFromString("1")},
			wantComplete: false,
			wantAmount:   "0",
		},
		{
			name:         "negative payment clamps",
			entry:        LogEntry{Kind: KindPayment, Amount: decimal.RequireFromString("-3"), ClientID: &nilRef},
			wantComplete: false,
			wantAmount:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entry
			e.Normalize()
			if e.Description != DefaultDescription {
				t.Errorf("Description = %q", e.Description)
			}
			if e.IsComplete != tt.wantComplete {
				t.Errorf("IsComplete = %v, want %v", e.IsComplete, tt.wantComplete)
			}
			if !e.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("Amount = %s, want %s", e.Amount, tt.wantAmount)
			}
			if e.ClientID != nil {
				t.Errorf("ClientID = %v, want nil", e.ClientID)
			}
		})
	}
}

func TestLogEntry_HasClient(t *testing.T) {
	id := uuid.New()
	nilID := uuid.Nil

	tests := []struct {
		name   string
		client *uuid.UUID
		want   bool
	}{
		{"no client", nil, false},
		{"client", &id, true},
		{"nil uuid dropped by Normalize", &nilID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &LogEntry{Kind: KindTask, ClientID: tt.client}
			e.Normalize()
			if got := e.HasClient(); got != tt.want {
				t.Errorf("HasClient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentifiers(t *testing.T) {
	ids := NewIdentifiers()
	c, e := uuid.New(), uuid.New()
	ids.AddClient(c)
	ids.AddEntry(e)

	if !ids.HasClient(c) || ids.HasClient(e) {
		t.Error("client membership wrong")
	}
	if !ids.HasEntry(e) || ids.HasEntry(c) {
		t.Error("entry membership wrong")
	}
}

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("%w: missing ENTRIES section", ErrFormat)
	if got := UserMessage(wrapped); got != "The file is corrupted or incomplete." {
		t.Errorf("UserMessage(format) = %q", got)
	}
	if got := UserMessage(ErrNotRecognizedFormat); got != "This file is not an export from this application." {
		t.Errorf("UserMessage(not recognised) = %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "boom" {
		t.Errorf("UserMessage(other) = %q", got)
	}
	if UserMessage(nil) != "" {
		t.Error("UserMessage(nil) should be empty")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("x: %w", ErrStorageCommit)) {
		t.Error("storage commit failures should be retryable")
	}
	if IsRetryable(ErrFormat) {
		t.Error("format errors should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestSummary_Changed(t *testing.T) {
	s := Summary{Clients: Tally{Total: 2, Imported: 1, Skipped: 1}}
	if !s.Changed() || s.Inserted() != 1 {
		t.Errorf("Inserted() = %d", s.Inserted())
	}
	if (&Summary{}).Changed() {
		t.Error("empty summary should not report changes")
	}
}
