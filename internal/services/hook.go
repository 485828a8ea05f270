package services

import (
	"context"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
)

// ContractDeployedEvent is published whenever a contract address of a deployment becomes known
type ContractDeployedEvent struct {
	DeploymentID    string
	ChainID         int64
	ContractAddress string
	ContractKind    models.ContractKind
}

// Hook is used to perform actions when a contract is deployed based on its kind
type Hook interface {
	// CanHandle is used to check if the hook can handle the contract kind
	CanHandle(kind models.ContractKind) bool
	// OnContractDeployed is called once the deployment transaction is mined
	OnContractDeployed(ctx context.Context, event ContractDeployedEvent) error
}
