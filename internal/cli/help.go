package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds the workflow guides.
func addHelpCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newExamplesCmd())
	rootCmd.AddCommand(newQuickstartCmd())
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Log a Day Trade",
					commands: []string{
						"journal add -i AAPL -d long --entry 187.2 --stop 186.4 --time 09:41",
						"journal edit <id> --exit 188.5,189.1 --exit-time 10:26",
						"journal show <id>               # Derived size, P&L and R",
					},
				},
				{
					title: "Partial Exits and Targets",
					commands: []string{
						"journal add -i NVDA -d long --entry 900 --stop 890 --target 1,2,3 --exit 910,920,930",
					},
				},
				{
					title: "Switch to the India Book",
					commands: []string{
						"journal market use india        # Persists the choice",
						"journal risk set --account 800000 --risk-pct 0.5",
						"journal list --market usa       # One command in the other market",
					},
				},
				{
					title: "Weekly Review",
					commands: []string{
						"journal stats --from 2024-06-03 --to 2024-06-07",
						"journal breakdown --by strategy",
						"journal breakdown --by time     # Pre, Open, Mid, Close",
						"journal heatmap                 # Weekday x time of day",
						"journal histogram               # R-multiple distribution",
					},
				},
				{
					title: "Backup and Restore",
					commands: []string{
						"journal export backup.json",
						"journal export backup.msgpack   # Compact binary form",
						"journal import backup.json      # Merge, skipping known ids",
						"journal import backup.json --replace",
					},
				},
			}

			for _, ex := range examples {
				output.Bold(ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.ColoredString(ColorCyan, strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.ColoredString(ColorCyan, c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Trade Journal - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{
					title: "Review the Configuration",
					desc:  "A commented config.toml is written on first run.",
					cmd:   "journal config path",
				},
				{
					title: "Set Your Risk",
					desc:  "Position size is derived from account size and risk percent.",
					cmd:   "journal risk set --account 25000 --risk-pct 1",
				},
				{
					title: "Record a Trade",
					desc:  "Leave out --exit to keep the trade open.",
					cmd:   "journal add -i AAPL -d long --entry 100 --stop 98 --exit 104 --strategy Pullback",
				},
				{
					title: "Review",
					desc:  "Filter any report by date, strategy, instrument, side or status.",
					cmd:   "journal stats",
				},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.ColoredString(ColorCyan, "→"), i+1, output.ColoredString(ColorBold, s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Important Notes")
			output.Printf("  %s Changing risk settings re-derives every trade of that market\n", output.ColoredString(ColorYellow, "⚠"))
			output.Printf("  %s Use --json on any command for machine-readable output\n", output.ColoredString(ColorYellow, "⚠"))

			return nil
		},
	}
}
