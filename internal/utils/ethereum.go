package utils

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a hex address and rejects the zero address
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address: %q", address)
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address is not allowed")
	}
	return addr, nil
}

// IsZeroAddress reports whether the string is empty or the zero address
func IsZeroAddress(address string) bool {
	return address == "" || common.HexToAddress(address) == (common.Address{})
}
