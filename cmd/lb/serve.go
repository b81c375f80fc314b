package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/dashboard"
	"github.com/logbookone/logbook/internal/logging"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "service",
	Short:   "Serve export and import over HTTP with live progress",
	Long: `Start a local HTTP server so another app on this machine can drive export
and import.

Endpoints:
  GET  /export?format=json|csv   Download a snapshot of the logbook
  POST /import?format=json|csv   Upload a file and merge it
  GET  /ws                       WebSocket stream of operation results
  GET  /health                   Liveness check

WebSocket messages include:
- stats: Client and entry counts, sent on connect
- export_complete: An export finished
- import_complete: An import finished, with its summary
- operation_failed: An export or import failed, with a readable message

Only one export and one import run at a time; a concurrent request gets
409 Conflict.`,
	Example: `  lb serve
  lb serve --port 9000`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		addr := cfg.Serve.Addr
		if cmd.Flags().Changed("port") {
			port, _ := cmd.Flags().GetInt("port")
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = "127.0.0.1"
			}
			addr = net.JoinHostPort(host, strconv.Itoa(port))
		}

		db := openStore()
		defer db.Close()

		engine := portability.New(db, portability.WithLogger(logging.New("engine")))
		server := dashboard.NewServer(engine, &dashboard.Config{
			Addr:           addr,
			MaxUploadBytes: cfg.Serve.MaxUploadBytes,
			Stats:          db,
			Logger:         logging.New("serve"),
		})

		if err := server.Start(); err != nil {
			fatalf("failed to start server: %v", err)
		}

		bound := server.Addr()
		fmt.Printf("%s Serving on http://%s\n", ui.RenderAccent("🌐"), bound)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", bound)
		fmt.Printf("Health check: http://%s/health\n", bound)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-cmd.Context().Done()

		fmt.Println("\nShutting down server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}
		engine.Wait()
		fmt.Println("Server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 7420, "Port to listen on (host comes from serve.addr)")
	rootCmd.AddCommand(serveCmd)
}
