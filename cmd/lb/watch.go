package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/inbox"
	"github.com/logbookone/logbook/internal/logging"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [dir]",
	GroupID: "service",
	Short:   "Import files dropped into an inbox directory",
	Long: `Watch an inbox directory and import every .json or .csv file dropped into it.

Each file is imported once it has stopped changing. Afterwards it is moved to
processed/ or failed/ inside the inbox, next to a .result.json note describing
the outcome. Files already in the inbox when the watcher starts are imported
first.

The directory defaults to inbox.dir from the config file.`,
	Example: `  lb watch
  lb watch ~/Dropbox/logbook-inbox`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.Inbox.Dir
		if len(args) == 1 {
			dir = args[0]
		}

		db := openStore()
		defer db.Close()

		engine := portability.New(db, portability.WithLogger(logging.New("import")))
		in, err := inbox.New(dir, engine, &inbox.Config{
			Debounce: cfg.Inbox.Debounce,
			Logger:   logging.New("inbox"),
			OnResult: printResult,
		})
		if err != nil {
			fatalf("%v", err)
		}

		if err := runWatcher(cmd.Context(), os.Stdout, in); err != nil {
			fmt.Fprintf(os.Stderr, "Error: inbox failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("\nInbox watcher stopped")
		engine.Wait()
	},
}

// watcher is the part of an inbox the watch command drives.
type watcher interface {
	Dir() string
	Start(ctx context.Context) error
}

// runWatcher prints the banner and then blocks in Start until ctx is
// cancelled.
func runWatcher(ctx context.Context, w io.Writer, in watcher) error {
	fmt.Fprintf(w, "%s Watching %s\n", ui.RenderAccent("👀"), in.Dir())
	fmt.Fprintln(w, "Press Ctrl+C to stop...")
	return in.Start(ctx)
}

func printResult(res inbox.Result) {
	if structured(res) {
		return
	}
	if !res.OK() {
		fmt.Printf("%s %s: %s\n", ui.RenderFail("✗"), res.File, res.Message)
		return
	}
	fmt.Printf("%s %s\n", ui.RenderPass("✓"), res.File)
	if res.Summary != nil {
		printSummary(res.Summary)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
