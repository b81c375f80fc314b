package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/logging"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/types"
	"github.com/logbookone/logbook/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Import a JSON or CSV export",
	Long: `Merge an export file into the logbook.

Records are matched by id only. A record whose id already exists is skipped
and the stored copy is kept as is, so importing the same file twice is
harmless. Entries whose client is neither stored nor in the file are
imported without a client.

The import is all or nothing: if anything fails, no records are written.

On a terminal you are asked to confirm before anything is written. Use
--yes to skip the prompt or --dry-run to only see what would happen.

Examples:
  lb import backup.json
  lb import export.csv --dry-run
  cat backup.json | lb import - -f json --yes`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rawFormat, _ := cmd.Flags().GetString("format")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		var f interchange.Format
		if rawFormat != "" {
			parsed, err := interchange.ParseFormat(rawFormat)
			if err != nil {
				fail("Import", err)
			}
			f = parsed
		}

		src := portability.FileSource(args[0])
		if args[0] == "-" {
			if f == "" {
				fatalf("reading from stdin requires --format")
			}
			data, err := portability.ReaderSource("stdin", os.Stdin, 0).ReadAll(cmd.Context())
			if err != nil {
				fail("Import", fmt.Errorf("%w: %w", types.ErrAccess, err))
			}
			src = portability.BytesSource("stdin", data)
		}

		db := openStore()
		defer db.Close()

		logger := logging.New("import")
		ctx := cmd.Context()

		interactive := !yes && !dryRun && args[0] != "-" &&
			outputFormat == outputText && ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout)
		if interactive {
			preview, err := portability.New(db, portability.WithLogger(logger), portability.WithDryRun(true)).ImportFrom(ctx, src, f)
			if err != nil {
				fail("Import", err)
			}
			if preview.Inserted() == 0 {
				fmt.Printf("%s Nothing new to import, every record is already in the logbook\n", ui.RenderAccent("○"))
				return
			}

			ok, err := ui.Confirm(
				"Import "+args[0]+"?",
				fmt.Sprintf("%d new clients and %d new entries will be added. %d records already exist and will be skipped.",
					preview.Clients.Imported, preview.Entries.Imported,
					preview.Clients.Skipped+preview.Entries.Skipped),
				"Import",
			)
			if err != nil {
				fatalf("confirmation: %v", err)
			}
			if !ok {
				fmt.Println("Import cancelled")
				return
			}
		}

		engine := portability.New(db, portability.WithLogger(logger), portability.WithDryRun(dryRun))
		summary, err := engine.ImportFrom(ctx, src, f)
		if err != nil {
			fail("Import", err)
		}

		if structured(summary) {
			return
		}
		printSummary(summary)
	},
}

func init() {
	importCmd.Flags().StringP("format", "f", "", "Input format: json or csv (default from file extension)")
	importCmd.Flags().Bool("dry-run", false, "Report what would be imported without writing")
	importCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(importCmd)
}
