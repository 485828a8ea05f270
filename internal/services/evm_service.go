package services

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
)

// EvmService encodes the calldata of universal contract deployments
type EvmService interface {
	// EncodeInitializer packs initialize(...) for a hub (with router) or spoke (without) implementation
	EncodeInitializer(contractABI abi.ABI, args InitializerArgs) ([]byte, error)
	// EncodeProxyConstructor packs ERC1967Proxy(implementation, initData)
	EncodeProxyConstructor(proxyABI abi.ABI, args ProxyDeploymentArgs) ([]byte, error)
}

type evmService struct {
	validator *validator.Validate
}

func NewEvmService() EvmService {
	validator := validator.New()
	return &evmService{validator: validator}
}

func (s *evmService) EncodeInitializer(contractABI abi.ABI, args InitializerArgs) ([]byte, error) {
	if err := s.validator.Struct(args); err != nil {
		return nil, err
	}

	method, ok := contractABI.Methods["initialize"]
	if !ok {
		return nil, fmt.Errorf("initialize not found in ABI")
	}

	callArgs := []any{
		args.OwnerAddress,
		args.Name,
		args.Symbol,
		args.GatewayAddress,
		new(big.Int).SetUint64(args.GasLimit),
	}
	switch len(method.Inputs) {
	case len(callArgs):
	case len(callArgs) + 1:
		if args.RouterAddress == "" {
			return nil, fmt.Errorf("router address is required for this contract")
		}
		callArgs = append(callArgs, args.RouterAddress)
	default:
		return nil, fmt.Errorf("unexpected initialize signature with %d inputs", len(method.Inputs))
	}

	data, err := utils.PackMethod(contractABI, "initialize", callArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initializer: %w", err)
	}
	return data, nil
}

func (s *evmService) EncodeProxyConstructor(proxyABI abi.ABI, args ProxyDeploymentArgs) ([]byte, error) {
	if err := s.validator.Struct(args); err != nil {
		return nil, err
	}

	encoded, err := utils.EncodeConstructorArgs(proxyABI, []any{common.HexToAddress(args.ImplementationAddress), args.InitData})
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy constructor: %w", err)
	}
	return encoded, nil
}
