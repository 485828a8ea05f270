package utils

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodeFunctionArgsToStringMap renders the arguments of a method or constructor as a JSON
// object keyed by parameter name, for logs and API responses.
// A value equal to MAX_UINT256 is rendered as the literal "MAX_UINT256".
//
//	args = [spender, math.MaxBig256]
//	output = {"spender": "0x1234567890123456789012345678901234567890", "value": "MAX_UINT256"}
func EncodeFunctionArgsToStringMap(functionName string, args []any, contractABI abi.ABI) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}

	var inputs abi.Arguments
	if functionName == "constructor" {
		if contractABI.Constructor.Inputs == nil {
			return "", fmt.Errorf("no constructor found in ABI")
		}
		inputs = contractABI.Constructor.Inputs
	} else {
		method, exists := contractABI.Methods[functionName]
		if !exists {
			return "", fmt.Errorf("method '%s' not found in ABI", functionName)
		}
		inputs = method.Inputs
	}

	if len(args) != len(inputs) {
		return "", fmt.Errorf("expected %d arguments for %s, got %d", len(inputs), functionName, len(args))
	}

	result := make(map[string]string, len(args))
	for i, arg := range args {
		argName := inputs[i].Name
		if argName == "" {
			argName = fmt.Sprintf("arg%d", i)
		}
		result[argName] = formatArgValue(arg)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

func formatArgValue(arg any) string {
	switch v := arg.(type) {
	case string:
		if v == math.MaxBig256.String() {
			return "MAX_UINT256"
		}
		return v
	case *big.Int:
		if v.Cmp(math.MaxBig256) == 0 {
			return "MAX_UINT256"
		}
		return v.String()
	case common.Address:
		return v.Hex()
	case []byte:
		return "0x" + strings.ToLower(fmt.Sprintf("%x", v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
