package models

import "strings"

// CustomStrategy is the preset that defers to user-entered text.
const CustomStrategy = "Custom"

// UnlabeledStrategy is the group key for trades without a strategy tag.
const UnlabeledStrategy = "Unlabeled"

// StrategyPresets are the built-in strategy tags offered on entry.
var StrategyPresets = []string{
	"Breakout Continuation",
	"Pullback",
	"Reversal",
	"Range Fade",
	"Gap and Go",
	CustomStrategy,
}

// ResolveStrategyTag maps a preset and optional custom text to the stored tag.
// The Custom preset uses the custom text, or "Custom" when that is blank.
func ResolveStrategyTag(preset, custom string) string {
	preset = strings.TrimSpace(preset)
	custom = strings.TrimSpace(custom)
	if strings.EqualFold(preset, CustomStrategy) {
		if custom == "" {
			return CustomStrategy
		}
		return custom
	}
	if preset == "" {
		return custom
	}
	return preset
}
