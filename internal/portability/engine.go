// Package portability exports the whole logbook to a portable file and
// imports such files back, merging them into the store without overwriting
// anything that already exists.
//
// Every import is all or nothing: rows are decoded into a candidate set,
// reconciled against the identifiers already stored and committed in a single
// batch. A failure at any point leaves the store as it was.
package portability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/reconcile"
	"github.com/logbookone/logbook/internal/types"
)

// Store is what the engine needs from persistence: a consistent snapshot for
// export and a reconcile target for import.
type Store interface {
	Snapshot(ctx context.Context) (*types.Dataset, error)
	reconcile.Target
}

// Artifact is the result of an export.
type Artifact struct {
	Data       []byte
	Filename   string
	MIMEType   string
	Format     interchange.Format
	ExportedAt time.Time
	Clients    int
	Entries    int
}

// Engine runs exports and imports against a store.
//
// The synchronous methods may be called concurrently. The async variants
// allow one in-flight operation of each kind; a second call while one is
// running returns types.ErrOperationInProgress and does no work.
type Engine struct {
	store    Store
	logger   *log.Logger
	now      func() time.Time
	observer Observer
	dryRun   bool

	exporting atomic.Bool
	importing atomic.Bool
	wg        sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to stderr with an "[engine] " prefix.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source used for export timestamps and for imports
// that carry none.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver registers a phase observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithDryRun makes imports report what they would do without writing.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// New creates an engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return e
}

// Export snapshots the store and encodes it in format f.
func (e *Engine) Export(ctx context.Context, f interchange.Format) (*Artifact, error) {
	p := newProgress(OpExport, e.observer)

	art, err := e.export(ctx, p, f)
	if err != nil {
		p.fail()
		e.logger.Printf("Export failed: %v", err)
		return nil, err
	}
	if err := p.advance(PhaseSucceeded); err != nil {
		return nil, err
	}

	e.logger.Printf("Exported %d clients and %d entries as %s (%d bytes)",
		art.Clients, art.Entries, art.Format, len(art.Data))
	return art, nil
}

func (e *Engine) export(ctx context.Context, p *progress, f interchange.Format) (*Artifact, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFormat, string(f))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.advance(PhaseReading); err != nil {
		return nil, err
	}
	ds, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read store: %v", types.ErrAccess, err)
	}

	if err := p.advance(PhaseEncoding); err != nil {
		return nil, err
	}
	data, err := interchange.Encode(ds, f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	return &Artifact{
		Data:       data,
		Filename:   f.SuggestedFilename(ds.ExportedAt),
		MIMEType:   f.MIMEType(),
		Format:     f,
		ExportedAt: ds.ExportedAt,
		Clients:    len(ds.Clients),
		Entries:    len(ds.Entries),
	}, nil
}

// Import decodes data in format f and merges it into the store.
func (e *Engine) Import(ctx context.Context, data []byte, f interchange.Format) (*types.Summary, error) {
	return e.ImportFrom(ctx, BytesSource("input", data), f)
}

// ImportFrom reads src and imports it. An empty f infers the format from the
// source name. Read failures wrap types.ErrAccess.
//
// The context is honoured until the bytes are read. From decoding onwards the
// import runs to completion so a commit is never abandoned half way.
func (e *Engine) ImportFrom(ctx context.Context, src Source, f interchange.Format) (*types.Summary, error) {
	p := newProgress(OpImport, e.observer)

	summary, err := e.importFrom(ctx, p, src, f)
	if err != nil {
		p.fail()
		e.logger.Printf("Import of %s failed: %v", src.Name(), err)
		return nil, err
	}
	if err := p.advance(PhaseSucceeded); err != nil {
		return nil, err
	}
	return summary, nil
}

func (e *Engine) importFrom(ctx context.Context, p *progress, src Source, f interchange.Format) (*types.Summary, error) {
	if f == "" {
		inferred, err := interchange.FormatFromPath(src.Name())
		if err != nil {
			return nil, err
		}
		f = inferred
	}
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFormat, string(f))
	}

	if err := p.advance(PhaseReading); err != nil {
		return nil, err
	}
	data, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrAccess, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Past this point cancellation is ignored.
	ctx = context.WithoutCancel(ctx)

	if err := p.advance(PhaseDecoding); err != nil {
		return nil, err
	}
	decoded, err := interchange.Decode(data, f, e.now)
	if err != nil {
		return nil, err
	}
	for _, w := range decoded.Warnings {
		e.logger.Printf("%s: %s", src.Name(), w)
	}

	if err := p.advance(PhaseReconciling); err != nil {
		return nil, err
	}
	var transitionErr error
	r := reconcile.New(e.store, reconcile.Options{
		DryRun: e.dryRun,
		Logger: e.logger,
		OnCommit: func(*reconcile.Plan) {
			transitionErr = p.advance(PhaseCommitting)
		},
	})
	summary, err := r.Apply(ctx, &decoded.Dataset)
	if err != nil {
		return nil, err
	}
	if transitionErr != nil {
		return nil, transitionErr
	}

	// Rows the decoder could not use count as skipped.
	summary.Clients.Total += decoded.SkippedClients
	summary.Clients.Skipped += decoded.SkippedClients
	summary.Entries.Total += decoded.SkippedEntries
	summary.Entries.Skipped += decoded.SkippedEntries

	return summary, nil
}

// ExportAsync runs Export on a new goroutine and calls done with the result.
// It returns types.ErrOperationInProgress without starting anything if an
// async export is already running.
func (e *Engine) ExportAsync(ctx context.Context, f interchange.Format, done func(*Artifact, error)) error {
	if !e.exporting.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", types.ErrOperationInProgress, OpExport)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		art, err := e.Export(ctx, f)
		e.exporting.Store(false)
		if done != nil {
			done(art, err)
		}
	}()
	return nil
}

// ImportAsync runs ImportFrom on a new goroutine and calls done with the
// result. It returns types.ErrOperationInProgress without starting anything
// if an async import is already running.
func (e *Engine) ImportAsync(ctx context.Context, src Source, f interchange.Format, done func(*types.Summary, error)) error {
	if !e.importing.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", types.ErrOperationInProgress, OpImport)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		summary, err := e.ImportFrom(ctx, src, f)
		e.importing.Store(false)
		if done != nil {
			done(summary, err)
		}
	}()
	return nil
}

// Busy reports whether an async operation of kind op is running.
func (e *Engine) Busy(op Op) bool {
	switch op {
	case OpExport:
		return e.exporting.Load()
	case OpImport:
		return e.importing.Load()
	default:
		return false
	}
}

// Wait blocks until every async operation started so far has finished and its
// callback has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// IsCancelled reports whether err came from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
