package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/logbookone/logbook/internal/store"
	"github.com/logbookone/logbook/internal/types"
	"github.com/logbookone/logbook/internal/ui"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// emit writes v as JSON or YAML when requested and reports whether it did.
// Callers print their text rendering when it returns false.
func emit(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

// structured prints v in the selected structured format, exiting on failure.
func structured(v any) bool {
	done, err := emit(os.Stdout, outputFormat, v)
	if err != nil {
		fatalf("failed to write output: %v", err)
	}
	return done
}

// fatalf prints an error and exits.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// fail prints err with its user-facing explanation and exits.
func fail(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s failed: %s\n", ui.RenderFail("✗"), action, types.UserMessage(err))
	if msg := types.UserMessage(err); msg != err.Error() {
		fmt.Fprintf(os.Stderr, "   %s\n", ui.RenderMuted(err.Error()))
	}
	if types.IsRetryable(err) {
		fmt.Fprintf(os.Stderr, "   %s\n", ui.RenderMuted("This may succeed if you try again."))
	}
	os.Exit(1)
}

// openStore opens the configured database and ensures the schema exists.
func openStore() *store.DB {
	db, err := store.Open(cfg.DB.Path)
	if err != nil {
		fatalf("opening database: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		fatalf("initializing schema: %v", err)
	}
	return db
}

// formatSize renders a byte count for humans.
func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

func printSummary(s *types.Summary) {
	title := "Import complete"
	if s.DryRun {
		title = "Dry run, nothing written"
	}
	mark := ui.RenderPass("✓")
	if s.DryRun {
		mark = ui.RenderAccent("○")
	}

	fmt.Printf("%s %s\n", mark, title)
	fmt.Printf("   Clients: %d imported, %d skipped (of %d)\n", s.Clients.Imported, s.Clients.Skipped, s.Clients.Total)
	fmt.Printf("   Entries: %d imported, %d skipped (of %d)\n", s.Entries.Imported, s.Entries.Skipped, s.Entries.Total)
	if s.Unlinked > 0 {
		fmt.Printf("   %s %d entr%s imported without their client\n",
			ui.RenderWarn("⚠"), s.Unlinked, plural(s.Unlinked, "y", "ies"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
