package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"trade-journal/internal/models"
	"trade-journal/internal/numeric"
)

// FormatCurrency formats an amount in the currency of the market: INR with
// Indian grouping, USD with western grouping.
func FormatCurrency(m models.Market, amount float64) string {
	if m == models.MarketIndia {
		return FormatIndianCurrency(amount)
	}
	return FormatUSD(amount)
}

// FormatIndianCurrency formats a number in Indian currency format (lakhs, crores).
func FormatIndianCurrency(amount float64) string {
	return formatMoney("₹", amount, formatIndianNumber)
}

// FormatUSD formats a number as dollars with thousands separators.
func FormatUSD(amount float64) string {
	return formatMoney("$", amount, formatWesternNumber)
}

func formatMoney(symbol string, amount float64, group func(string) string) string {
	amount = numeric.Finite(amount)
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Format with 2 decimal places
	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	result := symbol + group(parts[0]) + "." + parts[1]
	if negative && str != "0.00" {
		result = "-" + result
	}
	return result
}

// formatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right (hundreds)
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2 (thousands, lakhs, crores)
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// formatWesternNumber groups an integer string in threes.
func formatWesternNumber(s string) string {
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	value = numeric.Round2(numeric.Finite(value))
	sign := ""
	if value == 0 {
		value = 0 // drop negative zero
	} else if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatRate formats an unsigned rate such as a win rate.
func FormatRate(value float64) string {
	return fmt.Sprintf("%.2f%%", numeric.Finite(value))
}

// FormatPnL formats P&L with sign.
func FormatPnL(m models.Market, pnl float64) string {
	formatted := FormatCurrency(m, pnl)
	if numeric.Round2(pnl) > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatR formats an R multiple.
func FormatR(r float64) string {
	r = numeric.Round2(numeric.Finite(r))
	sign := ""
	if r == 0 {
		r = 0
	} else if r > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2fR", sign, r)
}

// FormatNumber formats a plain number with two decimals.
func FormatNumber(v float64) string {
	return fmt.Sprintf("%.2f", numeric.Finite(v))
}

// FormatProfitFactor formats a profit factor, marking the no-loss sentinel.
func FormatProfitFactor(pf float64) string {
	if pf >= models.ProfitFactorSentinel {
		return "∞"
	}
	return FormatNumber(pf)
}

// FormatLakhs formats a number in lakhs.
func FormatLakhs(amount float64) string {
	lakhs := amount / 100000
	if lakhs < 0 {
		return fmt.Sprintf("-%.2f L", -lakhs)
	}
	return fmt.Sprintf("%.2f L", lakhs)
}

// FormatCrores formats a number in crores.
func FormatCrores(amount float64) string {
	crores := amount / 10000000
	if crores < 0 {
		return fmt.Sprintf("-%.2f Cr", -crores)
	}
	return fmt.Sprintf("%.2f Cr", crores)
}

// FormatCompact formats a number in compact form: L/Cr for INR, K/M for USD.
func FormatCompact(m models.Market, amount float64) string {
	absAmount := math.Abs(amount)

	if m == models.MarketIndia {
		if absAmount >= 10000000 { // 1 crore
			return FormatCrores(amount)
		} else if absAmount >= 100000 { // 1 lakh
			return FormatLakhs(amount)
		}
		return FormatIndianCurrency(amount)
	}

	if absAmount >= 1e6 {
		return fmt.Sprintf("%.2f M", amount/1e6)
	} else if absAmount >= 1e3 {
		return fmt.Sprintf("%.2f K", amount/1e3)
	}
	return FormatUSD(amount)
}

// FormatHold formats a hold time in minutes; "-" when unknown.
func FormatHold(minutes *int) string {
	if minutes == nil {
		return "-"
	}
	return FormatDuration(time.Duration(*minutes) * time.Minute)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatTradeTime formats entry date and optional time.
func FormatTradeTime(date time.Time, clock *models.Clock) string {
	if date.IsZero() {
		return "-"
	}
	s := date.Format(models.DateLayout)
	if clock != nil {
		s += " " + clock.String()
	}
	return s
}

// FormatExits lists exit prices; "-" for an open trade.
func FormatExits(prices []float64) string {
	if len(prices) == 0 {
		return "-"
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = FormatNumber(p)
	}
	return strings.Join(parts, " / ")
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
