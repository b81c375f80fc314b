package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logbookone/logbook/internal/types"
)

// ErrNotFound is returned by the Get methods when no row matches.
var ErrNotFound = errors.New("record not found")

const (
	clientColumns = `id, name, tag, hourly_rate`
	entryColumns  = `id, kind, occurs_at, created_at, description, is_complete, amount, tag, client_id`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// AddClient inserts a new client. A nil ID is replaced with a fresh UUID and
// the client is normalized before it is written.
func (db *DB) AddClient(c *types.Client) error {
	return db.AddClientContext(context.Background(), c)
}

// AddClientContext inserts a new client with context support.
func (db *DB) AddClientContext(ctx context.Context, c *types.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Normalize()

	if err := insertClient(ctx, db.conn, c); err != nil {
		return fmt.Errorf("failed to add client: %w", err)
	}
	return nil
}

// AddEntry inserts a new log entry. A nil ID is replaced with a fresh UUID and
// CreatedAt defaults to the current time. A client reference must name an
// existing client.
func (db *DB) AddEntry(e *types.LogEntry) error {
	return db.AddEntryContext(context.Background(), e)
}

// AddEntryContext inserts a new log entry with context support.
func (db *DB) AddEntryContext(ctx context.Context, e *types.LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt == nil {
		now := db.now().UTC().Truncate(time.Second)
		e.CreatedAt = &now
	}
	e.Normalize()

	if err := insertEntry(ctx, db.conn, e); err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}
	return nil
}

// GetClient retrieves a client by ID. Returns ErrNotFound if it does not exist.
func (db *DB) GetClient(id uuid.UUID) (*types.Client, error) {
	return db.GetClientContext(context.Background(), id)
}

// GetClientContext retrieves a client with context support.
func (db *DB) GetClientContext(ctx context.Context, id uuid.UUID) (*types.Client, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id.String())
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetEntry retrieves a log entry by ID. Returns ErrNotFound if it does not
// exist.
func (db *DB) GetEntry(id uuid.UUID) (*types.LogEntry, error) {
	return db.GetEntryContext(context.Background(), id)
}

// GetEntryContext retrieves a log entry with context support.
func (db *DB) GetEntryContext(ctx context.Context, id uuid.UUID) (*types.LogEntry, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListClients returns every client ordered by name, then ID.
func (db *DB) ListClients() ([]types.Client, error) {
	return db.ListClientsContext(context.Background())
}

// ListClientsContext returns every client with context support.
func (db *DB) ListClientsContext(ctx context.Context) ([]types.Client, error) {
	return listClients(ctx, db.conn)
}

// EntryFilter configures the ListEntries query.
type EntryFilter struct {
	// Kind filters by entry kind (nil = all kinds)
	Kind *types.Kind
	// ClientID filters by referenced client (nil = all entries)
	ClientID *uuid.UUID
	// Tag filters by exact tag (empty = all tags)
	Tag string
	// Open restricts the result to tasks that are not complete
	Open bool
	// Limit restricts the number of results (0 = no limit)
	Limit int
	// Offset skips the first N results
	Offset int
}

// ListEntries retrieves entries matching the filter, ordered by OccursAt then
// ID. Entries without a date sort first.
func (db *DB) ListEntries(filter EntryFilter) ([]types.LogEntry, error) {
	return db.ListEntriesContext(context.Background(), filter)
}

// ListEntriesContext retrieves entries with context support.
func (db *DB) ListEntriesContext(ctx context.Context, filter EntryFilter) ([]types.LogEntry, error) {
	var conditions []string
	var args []any

	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, int(*filter.Kind))
	}
	if filter.ClientID != nil {
		conditions = append(conditions, "client_id = ?")
		args = append(args, filter.ClientID.String())
	}
	if filter.Tag != "" {
		conditions = append(conditions, "tag = ?")
		args = append(args, filter.Tag)
	}
	if filter.Open {
		conditions = append(conditions, "kind = ? AND is_complete = 0")
		args = append(args, int(types.KindTask))
	}

	query := `SELECT ` + entryColumns + ` FROM entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurs_at ASC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// execer is the subset of *sql.DB and *sql.Tx the insert helpers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func insertClient(ctx context.Context, x execer, c *types.Client) error {
	_, err := x.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.Tag, c.HourlyRate.String(),
	)
	return err
}

func insertEntry(ctx context.Context, x execer, e *types.LogEntry) error {
	var clientID sql.NullString
	if e.HasClient() {
		clientID = sql.NullString{String: e.ClientID.String(), Valid: true}
	}
	complete := 0
	if e.IsComplete {
		complete = 1
	}

	_, err := x.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		int(e.Kind),
		timeToNullString(e.OccursAt),
		timeToNullString(e.CreatedAt),
		e.Description,
		complete,
		e.Amount.String(),
		e.Tag,
		clientID,
	)
	return err
}

func listClients(ctx context.Context, x execer) ([]types.Client, error) {
	rows, err := x.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []types.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

func scanClient(row rowScanner) (*types.Client, error) {
	var id, rate string
	var c types.Client

	if err := row.Scan(&id, &c.Name, &c.Tag, &rate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}

	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid client id %q: %w", id, err)
	}
	if c.HourlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("invalid hourly rate for client %s: %w", id, err)
	}
	return &c, nil
}

func scanEntries(rows *sql.Rows) ([]types.LogEntry, error) {
	entries := []types.LogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*types.LogEntry, error) {
	var e types.LogEntry
	var id, amount string
	var kind, complete int
	var occursAt, createdAt, clientID sql.NullString

	err := row.Scan(
		&id,
		&kind,
		&occursAt,
		&createdAt,
		&e.Description,
		&complete,
		&amount,
		&e.Tag,
		&clientID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
	}
	k, ok := types.KindFromCode(kind)
	if !ok {
		return nil, fmt.Errorf("invalid kind %d on entry %s", kind, id)
	}
	e.Kind = k
	e.IsComplete = complete != 0
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for entry %s: %w", id, err)
	}
	e.OccursAt = nullStringToTime(occursAt)
	e.CreatedAt = nullStringToTime(createdAt)

	if clientID.Valid {
		ref, err := uuid.Parse(clientID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid client reference on entry %s: %w", id, err)
		}
		e.ClientID = &ref
	}
	return &e, nil
}

// timeToNullString converts a time pointer to a nullable RFC 3339 UTC string.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
