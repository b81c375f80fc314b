package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/logging"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Export the whole logbook to JSON or CSV",
	Long: `Export every client and entry to a single file.

JSON keeps every field exactly. CSV opens in spreadsheet tools and keeps
everything except creation times.

The file name defaults to logbook-export-YYYYMMDD-HHMMSS.<ext> in the
configured export directory.

Examples:
  lb export                      # JSON into export.dir
  lb export -f csv -o ~/backup/  # CSV into a directory
  lb export -o - | gzip > lb.gz  # to stdout`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rawFormat, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		f := cfg.ExportFormat()
		if rawFormat != "" {
			parsed, err := interchange.ParseFormat(rawFormat)
			if err != nil {
				fail("Export", err)
			}
			f = parsed
		}

		db := openStore()
		defer db.Close()

		engine := portability.New(db, portability.WithLogger(logging.New("export")))
		art, err := engine.Export(cmd.Context(), f)
		if err != nil {
			fail("Export", err)
		}

		if out == "-" {
			if _, err := os.Stdout.Write(art.Data); err != nil {
				fatalf("writing to stdout: %v", err)
			}
			return
		}

		path := exportPath(out, cfg.Export.Dir, art.Filename)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fail("Export", fmt.Errorf("creating %s: %w", filepath.Dir(path), err))
		}
		if err := os.WriteFile(path, art.Data, 0644); err != nil {
			fail("Export", fmt.Errorf("writing %s: %w", path, err))
		}

		result := map[string]any{
			"path":        path,
			"format":      art.Format,
			"mime_type":   art.MIMEType,
			"bytes":       len(art.Data),
			"clients":     art.Clients,
			"entries":     art.Entries,
			"exported_at": art.ExportedAt,
		}
		if structured(result) {
			return
		}

		fmt.Printf("%s Exported %d clients and %d entries\n", ui.RenderPass("✓"), art.Clients, art.Entries)
		fmt.Printf("   File: %s\n", path)
		fmt.Printf("   Size: %s\n", formatSize(int64(len(art.Data))))
	},
}

// exportPath resolves where an export is written. An empty out uses dir; an
// out that is an existing directory or ends in a separator receives the
// suggested filename.
func exportPath(out, dir, filename string) string {
	if out == "" {
		return filepath.Join(dir, filename)
	}
	if os.IsPathSeparator(out[len(out)-1]) {
		return filepath.Join(out, filename)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}

func init() {
	exportCmd.Flags().StringP("format", "f", "", "Export format: json or csv (default export.format)")
	exportCmd.Flags().StringP("out", "o", "", "Output file or directory, - for stdout")

	rootCmd.AddCommand(exportCmd)
}
