// Command lb is the logbook command line: it records clients, tasks, notes
// and payments and moves the whole logbook in and out as JSON or CSV.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/config"
	"github.com/logbookone/logbook/internal/logging"
	"github.com/logbookone/logbook/internal/ui"
)

var (
	cfg *config.Config

	configPath   string
	dbPath       string
	noColor      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lb",
	Short: "Freelance logbook: clients, tasks, notes and payments",
	Long: `lb keeps a local logbook of the clients you work for and the tasks, notes
and payments you record against them.

The whole logbook can be exported to JSON or CSV and imported back on any
machine. Imports never overwrite: records whose id already exists are skipped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor)

		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if dbPath != "" {
			loaded.DB.Path = dbPath
		}
		cfg = loaded

		logging.Configure(logging.Config{
			File:       cfg.Log.File,
			Quiet:      cfg.Log.Quiet,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})

		switch outputFormat {
		case outputText, outputJSON, outputYAML:
		default:
			fmt.Fprintf(os.Stderr, "Error: --output must be text, json or yaml, got %q\n", outputFormat)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Export and Import:"},
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "service", Title: "Background Services:"},
	)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides db.path)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", outputText, "Output format: text, json or yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	_ = logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
