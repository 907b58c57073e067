package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		expected int64
	}{
		{"exact", 400, 4, 100},
		{"round down", 401, 4, 100},
		{"half rounds up", 402, 4, 101},
		{"round up", 403, 4, 101},
		{"zero", 0, 100, 0},
		{"negative half rounds away", -402, 4, -101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoundHalfUp(tt.num, tt.den))
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		bps      int64
		expected int64
	}{
		{"10% of 200.00", 20000, 1000, 2000},
		{"10% of 99.99", 9999, 1000, 1000}, // 999.9 → 1000 half-up
		{"2.5% of 10.00", 1000, 250, 25},
		{"15% of 0.01", 1, 1500, 0},
		{"50% of 0.01", 1, 5000, 1}, // 0.5 rounds up
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percent(tt.cents, tt.bps))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$12.34", Format("USD", 1234))
	assert.Equal(t, "€0.05", Format("EUR", 5))
	assert.Equal(t, "₺100.00", Format("TRY", 10000))
	assert.Equal(t, "9.99 GBP", Format("GBP", 999))
}
