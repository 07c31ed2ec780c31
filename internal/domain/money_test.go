package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommissionSplit(t *testing.T) {
	tests := []struct {
		name           string
		amount         int64
		rate           float64
		wantCommission int64
		wantNet        int64
	}{
		{"ten percent of 1099 floors", 1099, 0.10, 109, 990},
		{"ten percent of 1500", 1500, 0.10, 150, 1350},
		{"zero rate", 1000, 0, 0, 1000},
		{"full rate", 1000, 1, 1000, 0},
		{"fractional result floors", 999, 0.15, 149, 850},
		{"zero amount", 0, 0.10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commission, net := CommissionSplit(tt.amount, tt.rate)
			assert.Equal(t, tt.wantCommission, commission)
			assert.Equal(t, tt.wantNet, net)
			assert.Equal(t, tt.amount, commission+net, "split must reconcile to the amount")
		})
	}
}

func TestRoundMinor(t *testing.T) {
	assert.Equal(t, int64(100), RoundMinor(99.5))
	assert.Equal(t, int64(99), RoundMinor(99.4))
	assert.Equal(t, int64(0), RoundMinor(0))
	assert.Equal(t, int64(-100), RoundMinor(-99.5))
	assert.Equal(t, int64(-99), RoundMinor(-99.4))
}
