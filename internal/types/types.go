// Package types defines the records exchanged by logbook's export and import
// engine: clients, log entries (tasks, notes, payments) and the summaries and
// errors produced while moving them between stores.
package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultClientName replaces an empty client name.
	DefaultClientName = "Unnamed Client"
	// DefaultDescription replaces an empty entry description.
	DefaultDescription = "No description"
)

// Client is someone work is done for. Entries reference clients by ID.
type Client struct {
	ID         uuid.UUID
	Name       string
	Tag        string
	HourlyRate decimal.Decimal
}

// Normalize applies defaults: a name is always present and the rate is never
// negative.
func (c *Client) Normalize() {
	if c.Name == "" {
		c.Name = DefaultClientName
	}
	if c.HourlyRate.IsNegative() {
		c.HourlyRate = decimal.Zero
	}
}

// LogEntry is a task, note or payment.
//
// OccursAt is the entry's logical date (due date for tasks, logged date for
// notes and payments). CreatedAt is when the record was authored.
// IsComplete only means something for tasks and Amount only for payments.
type LogEntry struct {
	ID          uuid.UUID
	Kind        Kind
	OccursAt    *time.Time
	CreatedAt   *time.Time
	Description string
	IsComplete  bool
	Amount      decimal.Decimal
	Tag         string
	ClientID    *uuid.UUID
}

// Normalize applies defaults and clears the fields that do not apply to the
// entry's kind.
func (e *LogEntry) Normalize() {
	if e.Description == "" {
		e.Description = DefaultDescription
	}
	if e.Kind != KindTask {
		e.IsComplete = false
	}
	if e.Kind != KindPayment || e.Amount.IsNegative() {
		e.Amount = decimal.Zero
	}
	if e.ClientID != nil && *e.ClientID == uuid.Nil {
		e.ClientID = nil
	}
}

// HasClient reports whether the entry references a client.
func (e *LogEntry) HasClient() bool {
	return e.ClientID != nil
}

// Dataset is a full set of clients and entries together with the moment it was
// taken. It is both the export snapshot and the decoded import candidate.
type Dataset struct {
	ExportedAt time.Time
	Clients    []Client
	Entries    []LogEntry
}

// Identifiers holds the IDs already present in a store.
type Identifiers struct {
	Clients map[uuid.UUID]struct{}
	Entries map[uuid.UUID]struct{}
}

// NewIdentifiers returns an empty identifier set.
func NewIdentifiers() *Identifiers {
	return &Identifiers{
		Clients: make(map[uuid.UUID]struct{}),
		Entries: make(map[uuid.UUID]struct{}),
	}
}

// HasClient reports whether id is a known client.
func (ids *Identifiers) HasClient(id uuid.UUID) bool {
	_, ok := ids.Clients[id]
	return ok
}

// HasEntry reports whether id is a known entry.
func (ids *Identifiers) HasEntry(id uuid.UUID) bool {
	_, ok := ids.Entries[id]
	return ok
}

// AddClient records id as a known client.
func (ids *Identifiers) AddClient(id uuid.UUID) {
	ids.Clients[id] = struct{}{}
}

// AddEntry records id as a known entry.
func (ids *Identifiers) AddEntry(id uuid.UUID) {
	ids.Entries[id] = struct{}{}
}

// Tally counts what happened to one kind of record during an import.
type Tally struct {
	Total    int `json:"total" yaml:"total"`
	Imported int `json:"imported" yaml:"imported"`
	Skipped  int `json:"skipped" yaml:"skipped"`
}

// Summary reports the outcome of an import.
type Summary struct {
	Clients Tally `json:"clients" yaml:"clients"`
	Entries Tally `json:"entries" yaml:"entries"`
	// Unlinked counts imported entries whose client reference could not be
	// resolved and was dropped.
	Unlinked int  `json:"unlinked" yaml:"unlinked"`
	DryRun   bool `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// Inserted returns the number of rows the import added.
func (s *Summary) Inserted() int {
	return s.Clients.Imported + s.Entries.Imported
}

// Changed reports whether the import added anything.
func (s *Summary) Changed() bool {
	return s.Inserted() > 0
}
