package services

// InitializerArgs are the arguments of the universal contract initializer.
// RouterAddress is only passed to hub contracts.
type InitializerArgs struct {
	OwnerAddress   string `validate:"required,eth_addr"`
	Name           string `validate:"required"`
	Symbol         string `validate:"required"`
	GatewayAddress string `validate:"required,eth_addr"`
	GasLimit       uint64 `validate:"gt=0"`
	RouterAddress  string `validate:"omitempty,eth_addr"`
}

type ProxyDeploymentArgs struct {
	ImplementationAddress string `validate:"required,eth_addr"`
	InitData              []byte `validate:"required"`
}
