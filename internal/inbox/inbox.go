// Package inbox imports export files dropped into a watched folder.
//
// The inbox:
//  1. Imports every .json and .csv file already in the folder on start
//  2. Watches the folder and queues files as they are created or written
//  3. Waits until a file has been quiet for the debounce interval, then
//     imports it
//  4. Moves the file to processed/ or failed/ next to a .result.json note
//
// Files are imported one at a time in name order.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/types"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	resultSuffix = ".result.json"
)

// Importer runs a single import. *portability.Engine satisfies it.
type Importer interface {
	ImportFrom(ctx context.Context, src portability.Source, f interchange.Format) (*types.Summary, error)
}

// Config holds configuration for the inbox.
type Config struct {
	// Debounce is how long a file must go without events before it is
	// imported. Partially written files are left alone until then.
	Debounce time.Duration

	// Logger for inbox activity
	Logger *log.Logger

	// OnResult, if set, is called after each file is handled.
	OnResult func(Result)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 500 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[inbox] ", log.LstdFlags),
	}
}

// Result describes how one dropped file was handled. It is also written as
// the .result.json note next to the moved file.
type Result struct {
	File        string         `json:"file"`
	Format      string         `json:"format,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
	Summary     *types.Summary `json:"summary,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
	MovedTo     string         `json:"moved_to,omitempty"`
}

// OK reports whether the import succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

// Inbox watches a folder and imports what lands in it.
type Inbox struct {
	dir      string
	importer Importer
	config   *Config

	watcher *fsnotify.Watcher
	queue   map[string]time.Time // path -> last event
	queueMu sync.Mutex

	// processMu serialises imports between the queue and ProcessFile.
	processMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates an inbox over dir. Use Start to begin watching.
func New(dir string, importer Importer, config *Config) (*Inbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if importer == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Inbox{
		dir:      dir,
		importer: importer,
		config:   config,
		watcher:  watcher,
		queue:    make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Dir returns the watched folder.
func (in *Inbox) Dir() string {
	return in.dir
}

// Start creates the folder layout, queues files already present and watches
// for new ones. It blocks until ctx is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.config.Logger.Printf("Starting inbox on %s", in.dir)

	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(in.dir, sub), 0755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	if err := in.watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch inbox directory: %w", err)
	}

	if err := in.scan(); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}

	in.wg.Add(2)
	go in.watchFileEvents()
	go in.processQueue()

	select {
	case <-ctx.Done():
		in.config.Logger.Println("Shutdown signal received")
		return in.Stop()
	case <-in.ctx.Done():
		return nil
	}
}

// Stop shuts the inbox down and waits for an import in progress to finish.
// It is safe to call more than once.
func (in *Inbox) Stop() error {
	in.stopOnce.Do(func() {
		in.config.Logger.Println("Stopping inbox")
		in.cancel()

		if err := in.watcher.Close(); err != nil {
			in.config.Logger.Printf("Error closing watcher: %v", err)
		}

		in.wg.Wait()
		in.config.Logger.Println("Inbox stopped")
	})
	return nil
}

// scan queues every eligible file already in the folder.
func (in *Inbox) scan() error {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return err
	}

	queued := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(in.dir, e.Name())
		if eligible(path) {
			in.enqueue(path)
			queued++
		}
	}
	if queued > 0 {
		in.config.Logger.Printf("Found %d waiting file(s)", queued)
	}
	return nil
}

// eligible reports whether path looks like an export the inbox should take.
func eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, resultSuffix) {
		return false
	}
	_, err := interchange.FormatFromPath(name)
	return err == nil
}

func (in *Inbox) watchFileEvents() {
	defer in.wg.Done()

	for {
		select {
		case <-in.ctx.Done():
			return

		case event, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(in.dir) || !eligible(event.Name) {
				continue
			}
			in.enqueue(event.Name)

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (in *Inbox) enqueue(path string) {
	in.queueMu.Lock()
	defer in.queueMu.Unlock()

	in.queue[path] = time.Now()
}

func (in *Inbox) processQueue() {
	defer in.wg.Done()

	ticker := time.NewTicker(in.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-in.ctx.Done():
			return
		case <-ticker.C:
			for _, path := range in.ready() {
				if in.ctx.Err() != nil {
					return
				}
				in.ProcessFile(path)
			}
		}
	}
}

// ready removes and returns queued paths that have been quiet long enough.
func (in *Inbox) ready() []string {
	in.queueMu.Lock()
	defer in.queueMu.Unlock()

	now := time.Now()
	var paths []string
	for path, last := range in.queue {
		if now.Sub(last) < in.config.Debounce {
			continue
		}
		paths = append(paths, path)
		delete(in.queue, path)
	}
	sort.Strings(paths)
	return paths
}

// ProcessFile imports path and files it under processed/ or failed/. A path
// that no longer exists is ignored and yields a zero Result.
func (in *Inbox) ProcessFile(path string) Result {
	in.processMu.Lock()
	defer in.processMu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{}
	}

	res := Result{File: filepath.Base(path)}
	f, err := interchange.FormatFromPath(path)
	if err == nil {
		res.Format = f.String()
		res.Summary, err = in.importer.ImportFrom(context.Background(), portability.FileSource(path), f)
	}
	res.ProcessedAt = time.Now().UTC().Truncate(time.Second)

	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		res.Error = err.Error()
		res.Message = types.UserMessage(err)
		in.config.Logger.Printf("Import of %s failed: %v", res.File, err)
	} else {
		in.config.Logger.Printf("Imported %s: clients %d/%d, entries %d/%d",
			res.File,
			res.Summary.Clients.Imported, res.Summary.Clients.Total,
			res.Summary.Entries.Imported, res.Summary.Entries.Total)
	}

	moved, err := in.file(path, dest, res)
	if err != nil {
		in.config.Logger.Printf("Error filing %s: %v", res.File, err)
	}
	res.MovedTo = moved

	if in.config.OnResult != nil {
		in.config.OnResult(res)
	}
	return res
}

// file moves path into sub and writes the result note beside it. Name
// clashes get a timestamp suffix.
func (in *Inbox) file(path, sub string, res Result) (string, error) {
	base := filepath.Base(path)
	dest := filepath.Join(in.dir, sub, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		dest = filepath.Join(in.dir, sub, fmt.Sprintf("%s-%s%s", stem, time.Now().UTC().Format("20060102-150405.000"), ext))
	}

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to move file: %w", err)
	}

	res.MovedTo = dest
	note, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return dest, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(dest+resultSuffix, append(note, '\n'), 0644); err != nil {
		return dest, fmt.Errorf("failed to write result: %w", err)
	}
	return dest, nil
}
