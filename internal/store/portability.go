package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/logbookone/logbook/internal/reconcile"
	"github.com/logbookone/logbook/internal/types"
)

var _ reconcile.Target = (*DB)(nil)

// Snapshot reads every client and entry in one read transaction so the export
// sees a consistent view. ExportedAt is set to the current time.
func (db *DB) Snapshot(ctx context.Context) (*types.Dataset, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	clients, err := listClients(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY occurs_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	return &types.Dataset{
		ExportedAt: db.now().UTC().Truncate(time.Second),
		Clients:    clients,
		Entries:    entries,
	}, nil
}

// ExistingIdentifiers returns every client and entry ID in the store.
func (db *DB) ExistingIdentifiers(ctx context.Context) (*types.Identifiers, error) {
	ids := types.NewIdentifiers()

	if err := collectIDs(ctx, db.conn, "SELECT id FROM clients", ids.AddClient); err != nil {
		return nil, fmt.Errorf("failed to read client ids: %w", err)
	}
	if err := collectIDs(ctx, db.conn, "SELECT id FROM entries", ids.AddEntry); err != nil {
		return nil, fmt.Errorf("failed to read entry ids: %w", err)
	}
	return ids, nil
}

func collectIDs(ctx context.Context, x execer, query string, add func(uuid.UUID)) error {
	rows, err := x.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", raw, err)
		}
		add(id)
	}
	return rows.Err()
}

// Begin opens a write transaction for an import batch.
func (db *DB) Begin(ctx context.Context) (reconcile.Batch, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &txBatch{tx: tx}, nil
}

// txBatch stages an import inside a single SQL transaction.
type txBatch struct {
	tx *sql.Tx
}

func (b *txBatch) Insert(ctx context.Context, clients []types.Client, entries []types.LogEntry) error {
	for i := range clients {
		if err := insertClient(ctx, b.tx, &clients[i]); err != nil {
			return fmt.Errorf("failed to insert client %s: %w", clients[i].ID, err)
		}
	}
	for i := range entries {
		if err := insertEntry(ctx, b.tx, &entries[i]); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entries[i].ID, err)
		}
	}
	return nil
}

func (b *txBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (b *txBatch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Stats describes the database for status reporting.
type Stats struct {
	Path    string `json:"path" yaml:"path"`
	Size    int64  `json:"size_bytes" yaml:"size_bytes"`
	Clients int    `json:"clients" yaml:"clients"`
	Entries int    `json:"entries" yaml:"entries"`
}

// Stats returns the database location, file size and record counts.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	clients, err := db.ClientCountContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := db.EntryCountContext(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{Path: db.path, Clients: clients, Entries: entries}
	if info, err := os.Stat(db.path); err == nil {
		st.Size = info.Size()
	}
	return st, nil
}
