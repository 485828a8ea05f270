package utils

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EncodeConstructorArgs packs constructor arguments, converting strings and plain ints to their ABI types
func EncodeConstructorArgs(parsedABI abi.ABI, args []any) ([]byte, error) {
	inputs := parsedABI.Constructor.Inputs
	if len(inputs) > 0 && len(args) == 0 {
		return nil, fmt.Errorf("contract constructor requires %d arguments but none provided", len(inputs))
	}
	if len(args) == 0 {
		return []byte{}, nil
	}

	values, err := coerceArgs(inputs, args)
	if err != nil {
		return nil, fmt.Errorf("failed to process constructor arguments: %w", err)
	}
	encoded, err := inputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}
	return encoded, nil
}

// PackMethod encodes a method call (selector plus arguments)
func PackMethod(parsedABI abi.ABI, functionName string, args []any) ([]byte, error) {
	method, ok := parsedABI.Methods[functionName]
	if !ok {
		return nil, fmt.Errorf("function %s not found in ABI", functionName)
	}

	values, err := coerceArgs(method.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", functionName, err)
	}
	encoded, err := parsedABI.Pack(functionName, values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode function call: %w", err)
	}
	return encoded, nil
}

func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}
	values := make([]any, len(args))
	for i, input := range inputs {
		v, err := coerce(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, input.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// coerce converts a loosely typed value (JSON, config, hand written) into the Go type go-ethereum packs for t.
// Arrays and tuples are not needed by the universal contracts and are rejected.
func coerce(t abi.Type, value any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(value)
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(value)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)
	case abi.BoolTy:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			return strings.EqualFold(v, "true"), nil
		}
	case abi.StringTy:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case abi.BytesTy:
		return toBytes(value)
	case abi.FixedBytesTy:
		b, err := toBytes(value)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		fixed := reflect.New(t.GetType()).Elem()
		reflect.Copy(fixed, reflect.ValueOf(b))
		return fixed.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported argument type: %v", t)
	}
	return nil, fmt.Errorf("cannot use %T as %v", value, t)
}

func toAddress(value any) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case string:
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("invalid address: %s", v)
		}
		return common.HexToAddress(v), nil
	}
	return common.Address{}, fmt.Errorf("unsupported address type: %T", value)
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return v, nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer: %s", v)
		}
		return n, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("not an integer: %v", v)
		}
		return big.NewInt(int64(v)), nil
	}
	return nil, fmt.Errorf("unsupported integer type: %T", value)
}

func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case common.Address:
		return v.Bytes(), nil
	case string:
		b, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex string: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported bytes type: %T", value)
}

// sizedInt converts to the Go type the ABI packer expects for small integer widths
func sizedInt(argType abi.Type, v *big.Int) (any, error) {
	if argType.Size > 64 {
		return v, nil
	}
	if argType.T == abi.UintTy {
		if v.Sign() < 0 || v.BitLen() > argType.Size {
			return nil, fmt.Errorf("value %s overflows uint%d", v, argType.Size)
		}
		u := v.Uint64()
		switch argType.Size {
		case 8:
			return uint8(u), nil
		case 16:
			return uint16(u), nil
		case 32:
			return uint32(u), nil
		case 64:
			return u, nil
		}
		return v, nil
	}
	if !v.IsInt64() {
		return nil, fmt.Errorf("value %s overflows int%d", v, argType.Size)
	}
	i := v.Int64()
	switch argType.Size {
	case 8:
		return int8(i), nil
	case 16:
		return int16(i), nil
	case 32:
		return int32(i), nil
	case 64:
		return i, nil
	}
	return v, nil
}

// BuildDeploymentData appends encoded constructor arguments to the creation bytecode
func BuildDeploymentData(bytecode []byte, encodedConstructorArgs []byte) []byte {
	data := make([]byte, 0, len(bytecode)+len(encodedConstructorArgs))
	data = append(data, bytecode...)
	return append(data, encodedConstructorArgs...)
}

// DecodeBytecode decodes a hex bytecode string with or without the 0x prefix
func DecodeBytecode(bytecode string) ([]byte, error) {
	bytecode = strings.TrimPrefix(strings.TrimSpace(bytecode), "0x")
	if bytecode == "" {
		return nil, fmt.Errorf("bytecode is empty")
	}
	decoded, err := hex.DecodeString(bytecode)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	return decoded, nil
}
