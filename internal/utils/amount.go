package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseTokenAmount converts a decimal string of whole tokens into base units
// (amount * 10^decimals). Fractional digits beyond decimals are rejected.
// Negative amounts parse successfully; callers decide how to treat them.
func ParseTokenAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}

	negative := false
	switch amount[0] {
	case '-':
		negative = true
		amount = amount[1:]
	case '+':
		amount = amount[1:]
	}

	whole, frac, hasFrac := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}
	if hasFrac && frac == "" {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}
	if negative {
		value.Neg(value)
	}
	return value, nil
}

// FormatTokenAmount renders base units as a decimal string of whole tokens
func FormatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	sign := ""
	abs := new(big.Int).Set(value)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}
	if decimals == 0 {
		return sign + abs.String()
	}

	digits := abs.String()
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	split := len(digits) - int(decimals)
	whole, frac := digits[:split], strings.TrimRight(digits[split:], "0")
	if frac == "" {
		return sign + whole
	}
	return sign + whole + "." + frac
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
