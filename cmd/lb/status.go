package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "data",
	Short:   "Show logbook location and record counts",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(cfg.DB.Path); os.IsNotExist(err) {
			if structured(map[string]any{"path": cfg.DB.Path, "initialized": false}) {
				return
			}
			fmt.Printf("\n%s Logbook not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Add a client or import a file to create %s\n\n", cfg.DB.Path)
			return
		}

		db := openStore()
		defer db.Close()

		st, err := db.Stats(cmd.Context())
		if err != nil {
			fatalf("reading status: %v", err)
		}
		if structured(st) {
			return
		}

		fmt.Printf("\n%s Logbook Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Location: %s\n", st.Path)
		fmt.Printf("Size: %s\n", formatSize(st.Size))
		fmt.Printf("Clients: %d\n", st.Clients)
		fmt.Printf("Entries: %d\n", st.Entries)
		if cfg.File != "" {
			fmt.Printf("Config: %s\n", cfg.File)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
