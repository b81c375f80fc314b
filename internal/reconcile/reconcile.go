// Package reconcile merges a decoded candidate dataset into a live store.
//
// Duplicates are detected by identifier only: a candidate whose id already
// exists is skipped and the stored row is left untouched. Entry references to
// clients are kept only when the client exists in the store or is imported in
// the same batch. All accepted rows are inserted in one batch and committed
// once; on any failure the batch is rolled back and nothing is persisted.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/logbookone/logbook/internal/types"
)

// Target is the store an import merges into.
type Target interface {
	// ExistingIdentifiers returns every client and entry id in the store.
	ExistingIdentifiers(ctx context.Context) (*types.Identifiers, error)

	// Begin opens a batch. Nothing inserted through it is visible until
	// Commit succeeds.
	Begin(ctx context.Context) (Batch, error)
}

// Batch stages inserts for a single commit.
type Batch interface {
	// Insert stages rows. Clients are inserted before entries.
	Insert(ctx context.Context, clients []types.Client, entries []types.LogEntry) error
	Commit() error
	// Rollback discards the batch. It is safe to call after Commit.
	Rollback() error
}

// Plan is the outcome of merging a candidate against existing identifiers,
// before anything is written.
type Plan struct {
	Clients []types.Client
	Entries []types.LogEntry
	Summary types.Summary

	// Unlinked lists imported entries whose client reference was dropped.
	Unlinked []uuid.UUID
}

// Empty reports whether the plan inserts nothing.
func (p *Plan) Empty() bool {
	return len(p.Clients) == 0 && len(p.Entries) == 0
}

// NewPlan merges candidate against existing. It does not modify either
// argument and performs no I/O.
func NewPlan(candidate *types.Dataset, existing *types.Identifiers) *Plan {
	p := &Plan{}
	p.Summary.Clients.Total = len(candidate.Clients)
	p.Summary.Entries.Total = len(candidate.Entries)

	// known holds every client id an entry may link to: pre-existing ones and
	// the ones accepted from this candidate.
	known := make(map[uuid.UUID]struct{}, len(existing.Clients)+len(candidate.Clients))
	for id := range existing.Clients {
		known[id] = struct{}{}
	}

	for _, c := range candidate.Clients {
		if _, dup := known[c.ID]; dup {
			p.Summary.Clients.Skipped++
			continue
		}
		known[c.ID] = struct{}{}
		p.Clients = append(p.Clients, c)
		p.Summary.Clients.Imported++
	}

	seen := make(map[uuid.UUID]struct{}, len(candidate.Entries))
	for _, e := range candidate.Entries {
		if existing.HasEntry(e.ID) {
			p.Summary.Entries.Skipped++
			continue
		}
		if _, dup := seen[e.ID]; dup {
			p.Summary.Entries.Skipped++
			continue
		}
		seen[e.ID] = struct{}{}

		if e.HasClient() {
			if _, ok := known[*e.ClientID]; !ok {
				e.ClientID = nil
				p.Unlinked = append(p.Unlinked, e.ID)
			}
		}
		p.Entries = append(p.Entries, e)
		p.Summary.Entries.Imported++
	}
	p.Summary.Unlinked = len(p.Unlinked)

	return p
}

// Options configures a Reconciler.
type Options struct {
	// DryRun computes the summary without opening a batch.
	DryRun bool

	// Logger receives one line per import and one per dropped reference.
	// Defaults to a stderr logger.
	Logger *log.Logger

	// OnCommit, if set, is called once the plan is final and before the batch
	// is opened. It is not called for dry runs or empty plans.
	OnCommit func(plan *Plan)
}

// Reconciler applies plans to a Target.
type Reconciler struct {
	target Target
	opts   Options
}

// New creates a Reconciler for target.
func New(target Target, opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	return &Reconciler{target: target, opts: opts}
}

// Apply merges candidate into the target and returns the summary.
//
// When nothing is accepted no batch is opened. Errors from opening, inserting
// or committing the batch roll it back and wrap types.ErrStorageCommit.
func (r *Reconciler) Apply(ctx context.Context, candidate *types.Dataset) (*types.Summary, error) {
	existing, err := r.target.ExistingIdentifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read existing identifiers: %v", types.ErrStorageCommit, err)
	}

	plan := NewPlan(candidate, existing)
	for _, id := range plan.Unlinked {
		r.opts.Logger.Printf("Entry %s: client reference not found, imported without client", id)
	}

	summary := plan.Summary
	if r.opts.DryRun {
		summary.DryRun = true
		return &summary, nil
	}

	if plan.Empty() {
		r.opts.Logger.Printf("Nothing to import: clients skipped=%d, entries skipped=%d",
			summary.Clients.Skipped, summary.Entries.Skipped)
		return &summary, nil
	}

	if r.opts.OnCommit != nil {
		r.opts.OnCommit(plan)
	}
	if err := r.commit(ctx, plan); err != nil {
		return nil, err
	}

	r.opts.Logger.Printf("Imported clients=%d (skipped=%d), entries=%d (skipped=%d)",
		summary.Clients.Imported, summary.Clients.Skipped,
		summary.Entries.Imported, summary.Entries.Skipped)
	return &summary, nil
}

func (r *Reconciler) commit(ctx context.Context, plan *Plan) error {
	batch, err := r.target.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin batch: %v", types.ErrStorageCommit, err)
	}
	defer batch.Rollback()

	if err := batch.Insert(ctx, plan.Clients, plan.Entries); err != nil {
		return fmt.Errorf("%w: failed to insert rows: %v", types.ErrStorageCommit, err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageCommit, err)
	}
	return nil
}
