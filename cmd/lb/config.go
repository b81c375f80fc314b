package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/config"
	"github.com/logbookone/logbook/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "service",
	Short:   "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.DefaultConfig().WriteFile(path, force); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as TOML: the config file merged with
LOGBOOK_* environment variables and command line overrides.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if structured(cfg) {
			return
		}
		data, err := cfg.Encode()
		if err != nil {
			fatalf("%v", err)
		}
		if cfg.File != "" {
			fmt.Println(ui.RenderMuted("# " + cfg.File))
		} else {
			fmt.Println(ui.RenderMuted("# no config file, using defaults"))
		}
		fmt.Print(string(data))
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
