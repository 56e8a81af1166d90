package actions

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"nil", "", 18, "0"},
		{"zero", "0", 18, "0"},
		{"one flow", "1000000000000000000", 18, "1"},
		{"fraction", "1500000000000000000", 18, "1.5"},
		{"small fraction", "1000000000000", 18, "0.000001"},
		{"trailing zeros trimmed", "1230000000000000000", 18, "1.23"},
		{"six decimals", "1500000", 6, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var amount *big.Int
			if tt.amount != "" {
				var ok bool
				amount, ok = new(big.Int).SetString(tt.amount, 10)
				require.True(t, ok)
			}
			assert.Equal(t, tt.want, formatUnits(amount, tt.decimals))
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"whole", "1", 18, "1000000000000000000", false},
		{"fraction", "1.5", 18, "1500000000000000000", false},
		{"full precision", "0.000000000000000001", 18, "1", false},
		{"six decimals", "2.25", 6, "2250000", false},
		{"whitespace", " 1 ", 18, "1000000000000000000", false},
		{"empty", "", 18, "", true},
		{"too many decimals", "1.1234567", 6, "", true},
		{"not a number", "abc", 18, "", true},
		{"negative", "-1", 18, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	value, err := parseUnits("123.456", 18)
	require.NoError(t, err)
	assert.Equal(t, "123.456", formatUnits(value, 18))
}
