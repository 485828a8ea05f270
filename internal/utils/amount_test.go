package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		expected string
		wantErr  bool
	}{
		{name: "whole tokens", amount: "1000", decimals: 18, expected: "1000000000000000000000"},
		{name: "fraction", amount: "1.5", decimals: 18, expected: "1500000000000000000"},
		{name: "trailing zeros in fraction", amount: "2.500", decimals: 2, expected: "250"},
		{name: "leading dot", amount: ".25", decimals: 2, expected: "25"},
		{name: "zero", amount: "0", decimals: 18, expected: "0"},
		{name: "zero decimals", amount: "42", decimals: 0, expected: "42"},
		{name: "negative", amount: "-3", decimals: 1, expected: "-30"},
		{name: "whitespace", amount: " 7 ", decimals: 0, expected: "7"},
		{name: "too many places", amount: "0.001", decimals: 2, wantErr: true},
		{name: "empty", amount: "", decimals: 18, wantErr: true},
		{name: "garbage", amount: "abc", decimals: 18, wantErr: true},
		{name: "exponent", amount: "1e18", decimals: 18, wantErr: true},
		{name: "dangling dot", amount: "1.", decimals: 18, wantErr: true},
		{name: "lone dot", amount: ".", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := ParseTokenAmount(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value.String())
		})
	}
}

func TestFormatTokenAmount(t *testing.T) {
	assert.Equal(t, "1000", FormatTokenAmount(new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)), 18))
	assert.Equal(t, "1.5", FormatTokenAmount(big.NewInt(15), 1))
	assert.Equal(t, "0.05", FormatTokenAmount(big.NewInt(5), 2))
	assert.Equal(t, "-2", FormatTokenAmount(big.NewInt(-200), 2))
	assert.Equal(t, "0", FormatTokenAmount(nil, 18))
	assert.Equal(t, "9", FormatTokenAmount(big.NewInt(9), 0))
}
