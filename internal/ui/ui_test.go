package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestRender_PlainProfile(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	for name, fn := range map[string]func(string) string{
		"pass":   RenderPass,
		"warn":   RenderWarn,
		"fail":   RenderFail,
		"accent": RenderAccent,
		"muted":  RenderMuted,
	} {
		if got := fn("ok"); got != "ok" {
			t.Errorf("%s: Render(%q) = %q with colors disabled", name, "ok", got)
		}
	}
}

func TestTable(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	out := Table([]string{"NAME", "RATE"}, [][]string{{"Acme", "120.50"}, {"Beta", "0"}})
	for _, want := range []string{"NAME", "RATE", "Acme", "120.50", "Beta"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table() output missing %q:\n%s", want, out)
		}
	}
}
