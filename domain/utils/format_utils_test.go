package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCrowns(t *testing.T) {
	tests := []struct {
		name     string
		value    int64
		expected string
	}{
		{"zero", 0, "0 Crowns"},
		{"small", 999, "999 Crowns"},
		{"one decimal under 10k", 1500, "1.5k Crowns"},
		{"no decimal above 10k", 25_400, "25k Crowns"},
		{"millions", 2_500_000, "2.50M Crowns"},
		{"negative", -2000, "-2.0k Crowns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCrowns(tt.value))
		})
	}
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		name     string
		value    time.Duration
		expected string
	}{
		{"elapsed", 0, "now"},
		{"rounds up seconds", 30 * time.Second, "1m"},
		{"minutes only", 45 * time.Minute, "45m"},
		{"whole hours", 4 * time.Hour, "4h"},
		{"hours and minutes", 3*time.Hour + 20*time.Minute, "3h 20m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatWait(tt.value))
		})
	}
}

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "+3", FormatSigned(3))
	assert.Equal(t, "+0", FormatSigned(0))
	assert.Equal(t, "-4", FormatSigned(-4))
}
