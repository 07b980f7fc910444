package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatCrowns formats an amount of currency with a short suffix above a thousand
func FormatCrowns(value int64) string {
	abs := value
	sign := ""
	if value < 0 {
		abs = -value
		sign = "-"
	}

	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%s%.2fM Crowns", sign, float64(abs)/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%s%dk Crowns", sign, abs/1_000)
	case abs >= 1_000:
		return fmt.Sprintf("%s%.1fk Crowns", sign, float64(abs)/1_000)
	default:
		return fmt.Sprintf("%s%d Crowns", sign, abs)
	}
}

// FormatWait renders a cooldown or shield duration as "3h 20m", rounding up to the minute
func FormatWait(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	hours := minutes / 60
	minutes %= 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}

// FormatSigned renders a modifier with an explicit sign
func FormatSigned(value int) string {
	if value >= 0 {
		return fmt.Sprintf("+%d", value)
	}
	return fmt.Sprintf("%d", value)
}
