package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trade-journal/internal/breakdown"
	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// addReportCommands adds the performance report commands.
func addReportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newBreakdownCmd(app))
	rootCmd.AddCommand(newHeatmapCmd(app))
	rootCmd.AddCommand(newHistogramCmd(app))
	rootCmd.AddCommand(newEquityCmd(app))
	rootCmd.AddCommand(newOptionsCmd(app))
}

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"metrics"},
		Short:   "Show portfolio statistics",
		Example: `  journal stats
  journal stats --from 2024-01-01 --strategy "Opening Range Breakout"`,
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
			m := s.Metrics(filter)

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(m)
			}
			if m.TotalTrades == 0 {
				output.Info("No trades match.")
				return nil
			}
			printMetrics(output, &m)
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func printMetrics(output *Output, m *models.Metrics) {
	output.Bold("Performance Summary (%s)", strings.ToUpper(string(output.market)))
	output.Println(strings.Repeat("─", 44))

	output.Printf("Trades:            %d (%d open, %d stop hits)\n", m.TotalTrades, m.OpenTrades, m.StopHits)
	output.Printf("Wins / Losses:     %d / %d\n", m.Wins, m.Losses)
	output.Printf("Win Rate:          %s\n", FormatRate(m.WinRate))
	output.Println()

	output.Printf("Net P&L:           %s\n", output.FormatPnL(m.TotalNet))
	output.Printf("Gross P&L:         %s\n", output.FormatPnL(m.TotalGross))
	output.Printf("Fees:              %s\n", output.Money(m.TotalFees))
	output.Printf("Gross Profit:      %s\n", output.Money(m.GrossProfit))
	output.Printf("Gross Loss:        %s\n", output.Money(m.GrossLoss))
	output.Printf("Profit Factor:     %s\n", FormatProfitFactor(m.ProfitFactor))
	output.Printf("Max Drawdown:      %s\n", output.Money(m.MaxDrawdown))
	output.Println()

	output.Printf("Avg R:             %s\n", output.FormatR(m.AvgR))
	output.Printf("Expectancy:        %s\n", output.FormatR(m.ExpectancyR))
	output.Printf("R Std Dev:         %s\n", FormatNumber(m.RStdDev))
	output.Printf("Avg Win / Loss:    %s / %s\n", output.Money(m.AvgWin), output.Money(m.AvgLoss))
	output.Printf("Avg Win / Loss R:  %s / %s\n", output.FormatR(m.AvgWinR), output.FormatR(m.AvgLossR))
	output.Printf("Avg Reward:Risk:   %s\n", FormatNumber(m.AvgRR))
	output.Printf("Largest Win:       %s\n", output.FormatPnL(m.LargestWin))
	output.Printf("Largest Loss:      %s\n", output.FormatPnL(m.LargestLoss))
	output.Printf("Streaks (W / L):   %d / %d\n", m.MaxConsecutiveWins, m.MaxConsecutiveLosses)
	if m.AvgHoldMinutes > 0 {
		hold := int(m.AvgHoldMinutes + 0.5)
		output.Printf("Avg Hold:          %s\n", FormatHold(&hold))
	}
}

func newBreakdownCmd(app *App) *cobra.Command {
	names := make([]string, len(breakdown.Dimensions))
	for i, d := range breakdown.Dimensions {
		names[i] = string(d)
	}

	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Break performance down by a dimension",
		Long: fmt.Sprintf(`Group trades and summarize each group independently.

Dimensions: %s`, strings.Join(names, ", ")),
		Example: `  journal breakdown --by strategy
  journal breakdown --by weekday --from 2024-03-01
  journal breakdown --by ema --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			by, _ := cmd.Flags().GetString("by")
			dim, err := breakdown.ParseDimension(by)
			if err != nil {
				return errors.NewValidationError("by", by, err.Error())
			}
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			filter, err := parseFilter(cmd)
			if err != nil {
				return err
			}
			groups := s.Breakdown(filter, dim)

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(groups)
			}
			if len(groups) == 0 {
				output.Info("No trades match.")
				return nil
			}

			table := NewTable(output, strings.ToUpper(string(dim)), "Trades", "Win %", "Net P&L", "Avg R", "PF", "Max DD", "Best", "Worst")
			for _, g := range groups {
				best, worst := "-", "-"
				if g.Best != nil {
					best = output.FormatPnL(g.Best.NetPnL)
				}
				if g.Worst != nil {
					worst = output.FormatPnL(g.Worst.NetPnL)
				}
				table.AddRow(
					g.Key,
					fmt.Sprintf("%d", g.Metrics.TotalTrades),
					FormatRate(g.Metrics.WinRate),
					output.FormatPnL(g.Metrics.TotalNet),
					output.FormatR(g.Metrics.AvgR),
					FormatProfitFactor(g.Metrics.ProfitFactor),
					output.Money(g.Metrics.MaxDrawdown),
					best,
					worst,
				)
			}
			table.Render()
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().String("by", string(breakdown.DimStrategy), "dimension: "+strings.Join(names, ", "))
	return cmd
}

func newHeatmapCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Net P&L by weekday and time of day",
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
			grid := s.Heatmap(filter)

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(grid)
			}

			headers := append([]string{"Day"}, grid.Buckets...)
			table := NewTable(output, headers...)
			for i, day := range grid.Days {
				row := []string{day}
				for _, c := range grid.Cells[i] {
					if c.Count == 0 {
						row = append(row, output.DimText("-"))
						continue
					}
					row = append(row, fmt.Sprintf("%s (%d)", output.FormatPnL(c.NetPnL), c.Count))
				}
				table.AddRow(row...)
			}
			table.Render()
			output.Dim("Buckets: Pre <09:00, Open 09-12, Mid 12-15, Close 15:00+")
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func newHistogramCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Distribution of R multiples",
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
			bins, _ := cmd.Flags().GetInt("bins")
			if bins <= 0 || bins > breakdown.MaxBins {
				return errors.NewValidationError("bins", fmt.Sprintf("%d", bins), fmt.Sprintf("must be between 1 and %d", breakdown.MaxBins))
			}
			hist := s.Histogram(filter, bins)

			if output.IsJSON() {
				return output.JSON(hist)
			}
			if len(hist) == 0 {
				output.Info("No trades match.")
				return nil
			}

			peak := 0
			for _, b := range hist {
				peak = max(peak, b.Count)
			}
			const barWidth = 30
			for _, b := range hist {
				width := 0
				if peak > 0 {
					width = b.Count * barWidth / peak
				}
				output.Printf("%8s .. %-8s %s %d\n", FormatR(b.Start), FormatR(b.End),
					output.ColoredString(ColorCyan, strings.Repeat("█", width)), b.Count)
			}
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("bins", breakdown.DefaultBins, fmt.Sprintf("number of bins (1-%d)", breakdown.MaxBins))
	return cmd
}

func newEquityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equity",
		Short: "Cumulative net P&L, trade by trade",
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
			points := s.Equity(filter)

			output.ForMarket(s.Market())
			if output.IsJSON() {
				return output.JSON(points)
			}
			if len(points) == 0 {
				output.Info("No trades match.")
				return nil
			}

			table := NewTable(output, "#", "Date", "ID", "Net P&L", "Equity", "Risk")
			for i, p := range points {
				table.AddRow(
					fmt.Sprintf("%d", i+1),
					p.Date,
					shortID(p.TradeID),
					output.FormatPnL(p.NetPnL),
					output.FormatPnL(p.Equity),
					output.Money(p.Risk),
				)
			}
			table.Render()
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func newOptionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the strategies and instruments in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			strategies := s.StrategyOptions()
			instruments := s.InstrumentOptions()

			if output.IsJSON() {
				return output.JSON(map[string][]string{
					"presets":     models.StrategyPresets,
					"strategies":  strategies,
					"instruments": instruments,
				})
			}
			output.Bold("Strategy Presets")
			output.Printf("  %s\n", strings.Join(models.StrategyPresets, ", "))
			output.Bold("Strategies Used")
			output.Printf("  %s\n", valueOr(strings.Join(strategies, ", "), "-"))
			output.Bold("Instruments")
			output.Printf("  %s\n", valueOr(strings.Join(instruments, ", "), "-"))
			return nil
		},
	}
}
