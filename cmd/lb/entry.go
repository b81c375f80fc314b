package main

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/store"
	"github.com/logbookone/logbook/internal/types"
	"github.com/logbookone/logbook/internal/ui"
)

var entryCmd = &cobra.Command{
	Use:     "entry",
	GroupID: "records",
	Short:   "Manage tasks, notes and payments",
}

var entryAddCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Record a task, note or payment",
	Long: `Record a task, note or payment.

--at takes a date in plain English ("tomorrow", "next friday 3pm",
"in 2 weeks") or a calendar date such as 2026-11-02.`,
	Example: `  lb entry add "Draft homepage copy" --client Acme --at "next monday"
  lb entry add "Kickoff call went well" --kind note
  lb entry add "Invoice 12" --kind payment --amount 1200 --client Acme`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rawKind, _ := cmd.Flags().GetString("kind")
		at, _ := cmd.Flags().GetString("at")
		rawAmount, _ := cmd.Flags().GetString("amount")
		clientRef, _ := cmd.Flags().GetString("client")
		tag, _ := cmd.Flags().GetString("tag")
		done, _ := cmd.Flags().GetBool("done")

		kind, ok := parseKindFlag(rawKind)
		if !ok {
			fatalf("unknown --kind %q (want task, note or payment)", rawKind)
		}

		e := &types.LogEntry{
			Kind:        kind,
			Description: strings.TrimSpace(args[0]),
			Tag:         tag,
			IsComplete:  done,
		}

		if at != "" {
			t, err := parseWhen(at, time.Now())
			if err != nil {
				fatalf("%v", err)
			}
			e.OccursAt = &t
		} else if kind != types.KindTask {
			now := time.Now().UTC().Truncate(time.Second)
			e.OccursAt = &now
		}

		if rawAmount != "" {
			amount, err := decimal.NewFromString(rawAmount)
			if err != nil {
				fatalf("invalid --amount %q: %v", rawAmount, err)
			}
			if kind != types.KindPayment {
				fmt.Printf("%s --amount only applies to payments, ignoring it\n", ui.RenderWarn("⚠"))
			}
			e.Amount = amount
		}

		db := openStore()
		defer db.Close()

		if clientRef != "" {
			c, err := resolveClient(cmd.Context(), db, clientRef)
			if err != nil {
				fatalf("%v", err)
			}
			e.ClientID = &c.ID
		}

		if err := db.AddEntryContext(cmd.Context(), e); err != nil {
			fatalf("%v", err)
		}

		if structured(newEntryView(e)) {
			return
		}
		fmt.Printf("%s Added %s %s\n", ui.RenderPass("✓"), e.Kind, ui.RenderAccent(e.Description))
		if e.OccursAt != nil {
			fmt.Printf("   Date: %s\n", e.OccursAt.Local().Format("Mon 2 Jan 2006 15:04"))
		}
		fmt.Printf("   ID: %s\n", e.ID)
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries",
	Example: `  lb entry list --kind task --open
  lb entry list --client Acme --limit 20`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rawKind, _ := cmd.Flags().GetString("kind")
		clientRef, _ := cmd.Flags().GetString("client")
		tag, _ := cmd.Flags().GetString("tag")
		open, _ := cmd.Flags().GetBool("open")
		limit, _ := cmd.Flags().GetInt("limit")

		db := openStore()
		defer db.Close()

		filter := store.EntryFilter{Tag: tag, Open: open, Limit: limit}
		if rawKind != "" {
			kind, ok := parseKindFlag(rawKind)
			if !ok {
				fatalf("unknown --kind %q (want task, note or payment)", rawKind)
			}
			filter.Kind = &kind
		}
		if clientRef != "" {
			c, err := resolveClient(cmd.Context(), db, clientRef)
			if err != nil {
				fatalf("%v", err)
			}
			filter.ClientID = &c.ID
		}

		entries, err := db.ListEntriesContext(cmd.Context(), filter)
		if err != nil {
			fatalf("%v", err)
		}

		views := make([]entryView, len(entries))
		for i := range entries {
			views[i] = newEntryView(&entries[i])
		}
		if structured(views) {
			return
		}
		if len(views) == 0 {
			fmt.Println(ui.RenderMuted("No matching entries."))
			return
		}

		rows := make([][]string, len(views))
		for i, v := range views {
			detail := ""
			switch entries[i].Kind {
			case types.KindTask:
				detail = "open"
				if v.IsComplete {
					detail = "done"
				}
			case types.KindPayment:
				detail = v.Amount
			}
			date := ""
			if entries[i].OccursAt != nil {
				date = entries[i].OccursAt.Local().Format("2006-01-02")
			}
			rows[i] = []string{date, v.Kind, v.Description, detail, v.Tag, shortID(v.ID)}
		}
		fmt.Println(ui.Table([]string{"DATE", "KIND", "DESCRIPTION", "", "TAG", "ID"}, rows))
	},
}

type entryView struct {
	ID          string `json:"id" yaml:"id"`
	Kind        string `json:"kind" yaml:"kind"`
	OccursAt    string `json:"occurs_at,omitempty" yaml:"occurs_at,omitempty"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Description string `json:"description" yaml:"description"`
	IsComplete  bool   `json:"is_complete" yaml:"is_complete"`
	Amount      string `json:"amount" yaml:"amount"`
	Tag         string `json:"tag" yaml:"tag"`
	ClientID    string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
}

func newEntryView(e *types.LogEntry) entryView {
	v := entryView{
		ID:          e.ID.String(),
		Kind:        e.Kind.String(),
		Description: e.Description,
		IsComplete:  e.IsComplete,
		Amount:      e.Amount.StringFixed(2),
		Tag:         e.Tag,
	}
	if e.OccursAt != nil {
		v.OccursAt = interchange.FormatTimestamp(*e.OccursAt)
	}
	if e.CreatedAt != nil {
		v.CreatedAt = interchange.FormatTimestamp(*e.CreatedAt)
	}
	if e.HasClient() {
		v.ClientID = e.ClientID.String()
	}
	return v
}

// parseKindFlag accepts a kind label in any case.
func parseKindFlag(s string) (types.Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return 0, false
	}
	return types.ParseKind(string(unicode.ToUpper(first)) + s[size:])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// dateParser understands English relative dates.
var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseWhen turns text into a UTC time with second precision. Calendar
// formats are tried first, then natural language relative to base.
func parseWhen(text string, base time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, text, base.Location()); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}

	r, err := dateParser.Parse(text, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not understand date %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand date %q", text)
	}
	return r.Time.UTC().Truncate(time.Second), nil
}

func init() {
	entryAddCmd.Flags().StringP("kind", "k", "task", "Entry kind: task, note or payment")
	entryAddCmd.Flags().String("at", "", "When it is due or happened, e.g. \"next friday\"")
	entryAddCmd.Flags().String("amount", "", "Payment amount")
	entryAddCmd.Flags().StringP("client", "c", "", "Client name or id")
	entryAddCmd.Flags().String("tag", "", "Free-form tag")
	entryAddCmd.Flags().Bool("done", false, "Mark the task complete")

	entryListCmd.Flags().StringP("kind", "k", "", "Only this kind")
	entryListCmd.Flags().StringP("client", "c", "", "Only entries for this client (name or id)")
	entryListCmd.Flags().String("tag", "", "Only entries with this tag")
	entryListCmd.Flags().Bool("open", false, "Only tasks that are not done")
	entryListCmd.Flags().IntP("limit", "n", 0, "Maximum number of entries")

	entryCmd.AddCommand(entryAddCmd, entryListCmd)
	rootCmd.AddCommand(entryCmd)
}
