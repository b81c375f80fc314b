package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/store"
	"github.com/logbookone/logbook/internal/types"
	"github.com/logbookone/logbook/internal/ui"
)

var clientCmd = &cobra.Command{
	Use:     "client",
	GroupID: "records",
	Short:   "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a client",
	Example: `  lb client add "Acme, Inc." --rate 120.50 --tag retainer
  lb client add Beta`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tag, _ := cmd.Flags().GetString("tag")
		rawRate, _ := cmd.Flags().GetString("rate")

		rate := decimal.Zero
		if rawRate != "" {
			parsed, err := decimal.NewFromString(rawRate)
			if err != nil {
				fatalf("invalid --rate %q: %v", rawRate, err)
			}
			if parsed.IsNegative() {
				fatalf("--rate must not be negative")
			}
			rate = parsed
		}

		db := openStore()
		defer db.Close()

		c := &types.Client{Name: strings.TrimSpace(args[0]), Tag: tag, HourlyRate: rate}
		if err := db.AddClientContext(cmd.Context(), c); err != nil {
			fatalf("%v", err)
		}

		if structured(newClientView(c)) {
			return
		}
		fmt.Printf("%s Added client %s\n", ui.RenderPass("✓"), ui.RenderAccent(c.Name))
		fmt.Printf("   ID: %s\n", c.ID)
	},
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		db := openStore()
		defer db.Close()

		clients, err := db.ListClientsContext(cmd.Context())
		if err != nil {
			fatalf("%v", err)
		}

		views := make([]clientView, len(clients))
		for i := range clients {
			views[i] = newClientView(&clients[i])
		}
		if structured(views) {
			return
		}
		if len(views) == 0 {
			fmt.Println(ui.RenderMuted("No clients yet. Add one with: lb client add <name>"))
			return
		}

		rows := make([][]string, len(views))
		for i, v := range views {
			rows[i] = []string{v.Name, v.Tag, v.HourlyRate, v.ID}
		}
		fmt.Println(ui.Table([]string{"NAME", "TAG", "RATE", "ID"}, rows))
	},
}

type clientView struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Tag        string `json:"tag" yaml:"tag"`
	HourlyRate string `json:"hourly_rate" yaml:"hourly_rate"`
}

func newClientView(c *types.Client) clientView {
	return clientView{
		ID:         c.ID.String(),
		Name:       c.Name,
		Tag:        c.Tag,
		HourlyRate: c.HourlyRate.StringFixed(2),
	}
}

// resolveClient finds a client by id or by case-insensitive name.
func resolveClient(ctx context.Context, db *store.DB, ref string) (*types.Client, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return db.GetClientContext(ctx, id)
	}

	clients, err := db.ListClientsContext(ctx)
	if err != nil {
		return nil, err
	}
	var match *types.Client
	for i := range clients {
		if strings.EqualFold(clients[i].Name, ref) {
			if match != nil {
				return nil, fmt.Errorf("more than one client is named %q, use its id", ref)
			}
			match = &clients[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no client named %q", ref)
	}
	return match, nil
}

func init() {
	clientAddCmd.Flags().String("tag", "", "Free-form tag")
	clientAddCmd.Flags().String("rate", "", "Hourly rate, e.g. 120.50")

	clientCmd.AddCommand(clientAddCmd, clientListCmd)
	rootCmd.AddCommand(clientCmd)
}
