package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/screenshot"
)

// addFilterFlags adds the trade filter flags shared by query commands.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first entry date, inclusive (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last entry date, inclusive (YYYY-MM-DD)")
	cmd.Flags().String("strategy", "", "strategy tag")
	cmd.Flags().String("instrument", "", "instrument (case-insensitive)")
	cmd.Flags().String("direction", "", "long or short")
	cmd.Flags().StringSlice("status", nil, "statuses: win, loss, open, sl (repeatable)")
}

// parseFilter reads the filter flags.
func parseFilter(cmd *cobra.Command) (models.FilterSpec, error) {
	var f models.FilterSpec
	flags := cmd.Flags()

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		s, _ := flags.GetString(bound.name)
		if s == "" {
			continue
		}
		d, err := parseDate(s)
		if err != nil {
			return f, errors.NewValidationError(bound.name, s, err.Error())
		}
		*bound.dst = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, errors.NewValidationError("to", f.To.Format(models.DateLayout), "before --from")
	}

	f.Strategy, _ = flags.GetString("strategy")
	f.Instrument, _ = flags.GetString("instrument")
	f.Strategy = strings.TrimSpace(f.Strategy)
	f.Instrument = strings.TrimSpace(f.Instrument)

	if s, _ := flags.GetString("direction"); s != "" {
		d, err := models.ParseDirection(s)
		if err != nil {
			return f, errors.NewValidationError("direction", s, err.Error())
		}
		f.Direction = d
	}

	statuses, _ := flags.GetStringSlice("status")
	for _, s := range statuses {
		st, err := models.ParseStatus(s)
		if err != nil {
			return f, errors.NewValidationError("status", s, err.Error())
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}

// parseDate parses YYYY-MM-DD, or "today", as a UTC calendar date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "today") {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// parseEMA parses PERIOD:PCT or PERIOD:ABS:PCT.
func parseEMA(s string) (models.EMADistance, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return models.EMADistance{}, fmt.Errorf("invalid EMA reading %q (want PERIOD:PCT or PERIOD:ABS:PCT)", s)
	}
	period, err := strconv.Atoi(parts[0])
	if err != nil || period <= 0 {
		return models.EMADistance{}, fmt.Errorf("invalid EMA period in %q", s)
	}
	nums := make([]float64, len(parts)-1)
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.EMADistance{}, fmt.Errorf("invalid number %q in EMA reading", p)
		}
		nums[i] = v
	}
	e := models.EMADistance{Period: period, Pct: nums[len(nums)-1]}
	if len(nums) == 2 {
		e.Abs = nums[0]
	}
	return e, nil
}

// addTradeFlags adds the flags that describe a trade record.
func addTradeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("date", "", "entry date (YYYY-MM-DD or today)")
	f.String("time", "", "entry time (HH:MM)")
	f.String("exit-date", "", "exit date (YYYY-MM-DD)")
	f.String("exit-time", "", "exit time (HH:MM)")
	f.StringP("instrument", "i", "", "instrument or ticker")
	f.StringP("direction", "d", "", "long or short")
	f.Float64("entry", 0, "entry price")
	f.Float64("stop", 0, "stop-loss price")
	f.Float64Slice("exit", nil, "exit prices, up to 3 partials (comma separated)")
	f.Float64Slice("target", nil, "planned reward:risk multiples, up to 3")
	f.Float64("size", 0, "position size; overrides auto-sizing")
	f.Float64("account", 0, "account size override for this trade")
	f.Float64("risk-pct", 0, "risk percent override for this trade")
	f.String("strategy", "", "strategy preset: "+strings.Join(models.StrategyPresets, ", "))
	f.String("custom-strategy", "", "strategy text used with the Custom preset")
	f.String("move", "", "initial move type")
	f.StringArray("ema", nil, "EMA distance as PERIOD:PCT or PERIOD:ABS:PCT (repeatable)")
	f.Float64("fees", 0, "fees and commissions")
	f.String("notes", "", "trade notes")
	f.String("psych", "", "psychology notes")
	f.String("screenshot", "", "chart screenshot (PNG, JPEG or GIF)")
}

// applyTradeFlags copies every changed trade flag onto raw.
func applyTradeFlags(cmd *cobra.Command, raw *models.RawTrade) error {
	f := cmd.Flags()
	changed := f.Changed

	if changed("date") {
		s, _ := f.GetString("date")
		d, err := parseDate(s)
		if err != nil {
			return errors.NewValidationError("date", s, err.Error())
		}
		raw.EntryDate = d
	}
	if changed("time") {
		c, err := optionalClock(f.GetString("time"))
		if err != nil {
			return errors.NewValidationError("time", "", err.Error())
		}
		raw.EntryTime = c
	}
	if changed("exit-date") {
		s, _ := f.GetString("exit-date")
		if s == "" {
			raw.ExitDate = nil
		} else {
			d, err := parseDate(s)
			if err != nil {
				return errors.NewValidationError("exit-date", s, err.Error())
			}
			raw.ExitDate = &d
		}
	}
	if changed("exit-time") {
		c, err := optionalClock(f.GetString("exit-time"))
		if err != nil {
			return errors.NewValidationError("exit-time", "", err.Error())
		}
		raw.ExitTime = c
	}

	if changed("instrument") {
		raw.Instrument, _ = f.GetString("instrument")
	}
	if changed("direction") {
		s, _ := f.GetString("direction")
		d, err := models.ParseDirection(s)
		if err != nil {
			return errors.NewValidationError("direction", s, err.Error())
		}
		raw.Direction = d
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"entry", &raw.EntryPrice},
		{"stop", &raw.StopLoss},
		{"size", &raw.PositionSize},
		{"account", &raw.AccountSize},
		{"risk-pct", &raw.RiskPercent},
		{"fees", &raw.Fees},
	}
	for _, fl := range floats {
		if changed(fl.name) {
			*fl.dst, _ = f.GetFloat64(fl.name)
		}
	}
	if changed("exit") {
		raw.ExitPrices, _ = f.GetFloat64Slice("exit")
	}
	if changed("target") {
		raw.TargetRR, _ = f.GetFloat64Slice("target")
	}

	if changed("strategy") || changed("custom-strategy") {
		preset, _ := f.GetString("strategy")
		custom, _ := f.GetString("custom-strategy")
		raw.StrategyTag = models.ResolveStrategyTag(preset, custom)
	}
	if changed("move") {
		raw.InitialMove, _ = f.GetString("move")
	}
	if changed("ema") {
		readings, _ := f.GetStringArray("ema")
		raw.EMA = nil
		for _, r := range readings {
			e, err := parseEMA(r)
			if err != nil {
				return errors.NewValidationError("ema", r, err.Error())
			}
			raw.EMA = append(raw.EMA, e)
		}
	}
	if changed("notes") {
		raw.Notes, _ = f.GetString("notes")
	}
	if changed("psych") {
		raw.PsychologyNotes, _ = f.GetString("psych")
	}
	return nil
}

func optionalClock(s string, _ error) (*models.Clock, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	c, err := models.ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// screenshotFlag reads the attachment named by --screenshot, if any.
func screenshotFlag(cmd *cobra.Command) (*screenshot.Attachment, error) {
	path, _ := cmd.Flags().GetString("screenshot")
	if path == "" {
		return nil, nil
	}
	return screenshot.ReadAttachment(path)
}
