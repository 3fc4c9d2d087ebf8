package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// addSettingsCommands adds risk, market and snapshot file commands.
func addSettingsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRiskCmd(app))
	rootCmd.AddCommand(newMarketCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
}

func newRiskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Per-market account size and risk percent",
		Long: `Show or change the risk configuration each market sizes trades from.

Changing it re-derives every trade of that market.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the risk configuration of every market",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				out := make(map[models.Market]models.RiskConfig, len(models.Markets))
				for _, m := range models.Markets {
					out[m] = s.Risk(m)
				}
				return output.JSON(out)
			}

			table := NewTable(output, "Market", "Account", "Risk %", "Risk / Trade", "Trades")
			for _, m := range models.Markets {
				rc := s.Risk(m)
				name := strings.ToUpper(string(m))
				if m == s.Market() {
					name += " *"
				}
				table.AddRow(
					name,
					FormatCompact(m, rc.AccountSize),
					fmt.Sprintf("%.2f%%", rc.RiskPercent),
					FormatCurrency(m, rc.AccountSize*rc.RiskPercent/100),
					fmt.Sprintf("%d", s.Count(m)),
				)
			}
			table.Render()
			output.Dim("* active market")
			return nil
		},
	})

	set := &cobra.Command{
		Use:   "set",
		Short: "Change the risk configuration of the active market",
		Example: `  journal risk set --account 25000 --risk-pct 0.5
  journal risk set --market india --account 800000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !cmd.Flags().Changed("account") && !cmd.Flags().Changed("risk-pct") {
				return errors.NewValidationError("risk", "", "give --account and/or --risk-pct")
			}
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			m := s.Market()
			rc := s.Risk(m)
			if cmd.Flags().Changed("account") {
				rc.AccountSize, _ = cmd.Flags().GetFloat64("account")
			}
			if cmd.Flags().Changed("risk-pct") {
				rc.RiskPercent, _ = cmd.Flags().GetFloat64("risk-pct")
			}

			saved, err := s.SetRisk(ctx, m, rc)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"market": m, "risk": saved})
			}
			output.Success("✓ %s risk set to %s @ %.2f%% (%d trades re-derived)",
				strings.ToUpper(string(m)), FormatCompact(m, saved.AccountSize), saved.RiskPercent, s.Count(m))
			if saved.RiskPercent != rc.RiskPercent {
				output.Warning("Risk percent clamped to %.2f%%", saved.RiskPercent)
			}
			return nil
		},
	}
	set.Flags().Float64("account", 0, "account size")
	set.Flags().Float64("risk-pct", 0, fmt.Sprintf("risk percent per trade (%.2f-%.0f)", models.MinRiskPercent, models.MaxRiskPercent))
	cmd.AddCommand(set)

	return cmd
}

func newMarketCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show or switch the active market",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"market": s.Market(), "currency": s.Market().Currency()})
			}
			output.Printf("%s (%s)\n", s.Market(), s.Market().Currency())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "use <market>",
		Short: "Switch the active market (usa or india)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := s.UseMarket(ctx, models.Market(args[0])); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]models.Market{"market": s.Market()})
			}
			output.Success("✓ Active market: %s (%d trades)", s.Market(), s.Count(s.Market()))
			return nil
		},
	})

	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the whole journal to a snapshot file",
		Long:  "Write every market's trades and risk settings to a file. A .msgpack or .mp extension selects msgpack, anything else JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if !store.IsFileSnapshot(args[0]) && !output.IsJSON() {
				output.Warning("Unrecognized extension, writing JSON")
			}
			n, err := s.Export(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"path": args[0], "trades": n})
			}
			output.Success("✓ Exported %d trades to %s", n, args[0])
			return nil
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load trades from a snapshot file",
		Long: `Load trades from a JSON or msgpack snapshot.

By default records are merged and ids already in the journal are skipped.
With --replace every book and risk setting is replaced by the file's.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			mode := journal.ImportMerge
			if replace, _ := cmd.Flags().GetBool("replace"); replace {
				mode = journal.ImportReplace
			}
			res, err := s.Import(ctx, args[0], mode)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("✓ Imported %d trades from %s", res.Added, args[0])
			if res.Skipped > 0 {
				output.Dim("  %d already present", res.Skipped)
			}
			if res.Invalid > 0 {
				output.Warning("  %d invalid records skipped", res.Invalid)
			}
			if res.Rescored > 0 {
				output.Dim("  %d screenshots scored", res.Rescored)
			}
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "replace the journal instead of merging")
	return cmd
}
