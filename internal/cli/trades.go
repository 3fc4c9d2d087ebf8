package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// addTradeCommands adds the trade record commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAddCmd(app))
	rootCmd.AddCommand(newEditCmd(app))
	rootCmd.AddCommand(newDeleteCmd(app))
	rootCmd.AddCommand(newShowCmd(app))
	rootCmd.AddCommand(newListCmd(app))
}

func newAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a trade",
		Long: `Record a trade in the active market.

Position size is derived from the market's risk settings unless --size is
given. A trade without --exit stays open.`,
		Example: `  journal add -i AAPL -d long --entry 100 --stop 95 --exit 110 --strategy Pullback
  journal add -i NIFTY -d short --entry 22000 --stop 22080 --exit 21900,21850 --market india
  journal add -i TSLA -d long --entry 180 --stop 176 --time 09:45 --ema 20:0.8 --screenshot chart.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			raw := models.RawTrade{Direction: models.Long}
			raw.ID, _ = cmd.Flags().GetString("id")
			if !cmd.Flags().Changed("date") {
				raw.EntryDate, _ = parseDate("today")
			}
			if err := applyTradeFlags(cmd, &raw); err != nil {
				return err
			}

			att, err := screenshotFlag(cmd)
			if err != nil {
				skipScreenshot(cmd, output, err)
				att = nil
			}

			t, err := s.Add(ctx, raw, att)
			if err != nil {
				return err
			}

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ Trade %s recorded (%s)", t.ID, s.Market())
			printTradeSummary(output, &t)
			return nil
		},
	}
	addTradeFlags(cmd)
	cmd.Flags().String("id", "", "explicit trade id (default: generated)")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a recorded trade",
		Long:  "Change fields of a trade. Only the flags given are applied; derived values are recomputed.",
		Example: `  journal edit 3f2a --exit 112
  journal edit 3f2a --exit-date 2024-06-03 --exit-time 15:10 --notes "held through lunch"
  journal edit 3f2a --clear-exits`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			id, err := resolveID(s.Trades(models.FilterSpec{}), args[0])
			if err != nil {
				return err
			}
			clearExits, _ := cmd.Flags().GetBool("clear-exits")
			clearShot, _ := cmd.Flags().GetBool("clear-screenshot")

			// The screenshot is scored first so the edit is written once.
			var shot *models.Screenshot
			att, err := screenshotFlag(cmd)
			if err == nil && att != nil {
				shot, err = s.PrepareScreenshot(ctx, att)
			}
			if err != nil {
				skipScreenshot(cmd, output, err)
			}

			t, err := s.Update(ctx, id, func(r *models.RawTrade) error {
				if err := applyTradeFlags(cmd, r); err != nil {
					return err
				}
				if clearExits {
					r.ExitPrices = nil
				}
				if clearShot {
					r.Screenshot = nil
				}
				if shot != nil {
					r.Screenshot = shot
				}
				return nil
			})
			if err != nil {
				return err
			}

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ Trade %s updated", t.ID)
			printTradeSummary(output, &t)
			return nil
		},
	}
	addTradeFlags(cmd)
	cmd.Flags().Bool("clear-exits", false, "remove all exit prices (reopen the trade)")
	cmd.Flags().Bool("clear-screenshot", false, "remove the attached screenshot")
	return cmd
}

// skipScreenshot reports a screenshot that will not be attached. The record
// is still written.
func skipScreenshot(cmd *cobra.Command, output *Output, err error) {
	log := logging.FromContext(cmd.Context())
	log.Warn().Err(err).Msg("Screenshot skipped")
	if !output.IsJSON() {
		output.Warning("Screenshot skipped: %v", err)
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a trade",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			id, err := resolveID(s.Trades(models.FilterSpec{}), args[0])
			if err != nil {
				return err
			}
			if err := s.Delete(ctx, id); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": id})
			}
			output.Success("✓ Trade %s deleted", id)
			return nil
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one trade with every derived value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			id, err := resolveID(s.Trades(models.FilterSpec{}), args[0])
			if err != nil {
				return err
			}
			t, err := s.Trade(id)
			if err != nil {
				return err
			}

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(t)
			}
			showTrade(output, &t)
			return nil
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades",
		Example: `  journal list
  journal list --from 2024-06-01 --strategy Pullback --status win,loss`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			filter, err := parseFilter(cmd)
			if err != nil {
				return err
			}
			trades := s.Trades(filter)
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(trades) > limit {
				trades = trades[len(trades)-limit:]
			}

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades recorded in %s.", s.Market())
				return nil
			}

			table := NewTable(output, "ID", "Date", "Instrument", "Side", "Entry", "Stop", "Exit", "Size", "P&L", "R", "Status", "Strategy")
			for i := range trades {
				t := &trades[i]
				table.AddRow(
					shortID(t.ID),
					FormatTradeTime(t.EntryDate, t.EntryTime),
					t.Instrument,
					string(t.Direction),
					FormatNumber(t.EntryPrice),
					FormatNumber(t.StopLoss),
					FormatExits(t.ExitPrices),
					FormatNumber(t.PositionSizeUsed),
					output.FormatPnL(t.NetPnL),
					output.FormatR(t.RMultiple),
					output.Status(t.Status),
					TruncateString(valueOr(t.StrategyTag, "-"), 22),
				)
			}
			table.Render()
			output.Dim("%d trade(s) in %s", len(trades), s.Market())
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 0, "show only the most recent N trades")
	return cmd
}

// resolveID accepts a full id or a unique prefix.
func resolveID(trades []models.Trade, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	var match string
	for i := range trades {
		id := trades[i].ID
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", errors.NewValidationError("id", ref, "prefix matches more than one trade")
			}
			match = id
		}
	}
	if match == "" {
		return "", errors.Wrapf(errors.ErrTradeNotFound, "trade %s", ref)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printTradeSummary(output *Output, t *models.Trade) {
	output.Printf("  %s %s @ %s  size %s  risk %s\n",
		t.Direction, t.Instrument, FormatNumber(t.EntryPrice),
		FormatNumber(t.PositionSizeUsed), output.Money(t.RiskAmount))
	output.Printf("  %s  %s  %s\n", output.Status(t.Status), output.FormatPnL(t.NetPnL), output.FormatR(t.RMultiple))
}

func showTrade(output *Output, t *models.Trade) {
	lines := []string{
		fmt.Sprintf("Instrument:   %s (%s)", t.Instrument, t.Direction),
		fmt.Sprintf("Entry:        %s @ %s", FormatTradeTime(t.EntryDate, t.EntryTime), FormatNumber(t.EntryPrice)),
		fmt.Sprintf("Stop:         %s", FormatNumber(t.StopLoss)),
	}
	if t.ExitDate != nil {
		lines = append(lines, fmt.Sprintf("Exit:         %s @ %s", FormatTradeTime(*t.ExitDate, t.ExitTime), FormatExits(t.ExitPrices)))
	} else {
		lines = append(lines, fmt.Sprintf("Exit:         %s", FormatExits(t.ExitPrices)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Account:      %s @ %.2f%%", output.Money(t.AccountSizeUsed), t.RiskPctUsed),
		fmt.Sprintf("Risk/Unit:    %s", FormatNumber(t.RiskPerUnit)),
		fmt.Sprintf("Planned Risk: %s", output.Money(t.PlannedRisk)),
		fmt.Sprintf("Risk Amount:  %s", output.Money(t.RiskAmount)),
		fmt.Sprintf("Size:         %s (auto %s)", FormatNumber(t.PositionSizeUsed), FormatNumber(t.AutoSize)),
		"",
		fmt.Sprintf("Avg Exit:     %s", FormatNumber(t.AvgExit)),
		fmt.Sprintf("Gross P&L:    %s", output.FormatPnL(t.GrossPnL)),
		fmt.Sprintf("Fees:         %s", output.Money(t.Fees)),
		fmt.Sprintf("Net P&L:      %s", output.FormatPnL(t.NetPnL)),
		fmt.Sprintf("R Multiple:   %s", output.FormatR(t.RMultiple)),
		fmt.Sprintf("Reward:Risk:  %s", FormatNumber(t.RRRatio)),
		fmt.Sprintf("Return:       %s", output.FormatPercent(t.ReturnPct)),
		fmt.Sprintf("Hold:         %s", FormatHold(t.HoldMinutes)),
		fmt.Sprintf("Status:       %s", output.Status(t.Status)),
	)
	if len(t.TargetPrices) > 0 {
		lines = append(lines, fmt.Sprintf("Targets:      %s", FormatExits(t.TargetPrices)))
	}

	lines = append(lines, "", fmt.Sprintf("Strategy:     %s", valueOr(t.StrategyTag, "-")))
	if t.InitialMove != "" {
		lines = append(lines, fmt.Sprintf("Initial Move: %s", t.InitialMove))
	}
	for _, e := range t.EMA {
		lines = append(lines, fmt.Sprintf("EMA %-3d:      %s (%s)", e.Period, FormatNumber(e.Abs), FormatPercent(e.Pct)))
	}
	if t.Screenshot != nil {
		shot := t.Screenshot.Name
		if sc := t.Screenshot.Score; sc != nil {
			shot += fmt.Sprintf(" [%s, brightness %.2f, contrast %.2f]", sc.Tag, sc.Brightness, sc.Contrast)
		}
		lines = append(lines, fmt.Sprintf("Screenshot:   %s", shot))
	}
	if t.Notes != "" {
		lines = append(lines, fmt.Sprintf("Notes:        %s", t.Notes))
	}
	if t.PsychologyNotes != "" {
		lines = append(lines, fmt.Sprintf("Psychology:   %s", t.PsychologyNotes))
	}

	output.Box("Trade "+t.ID, lines)
}
