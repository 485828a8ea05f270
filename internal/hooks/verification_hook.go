package hooks

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"gorm.io/gorm"
)

// VerificationHook queues a block explorer verification for every deployed contract.
// An external verifier polls the pending rows.
type VerificationHook struct {
	db *gorm.DB
}

// CanHandle implements Hook.
func (v *VerificationHook) CanHandle(kind models.ContractKind) bool {
	return kind == models.ContractKindImplementation || kind == models.ContractKindProxy
}

// OnContractDeployed implements Hook. Publishing the same contract twice keeps a single request.
func (v *VerificationHook) OnContractDeployed(ctx context.Context, event services.ContractDeployedEvent) error {
	request := models.VerificationRequest{
		DeploymentID:    event.DeploymentID,
		ChainID:         event.ChainID,
		ContractAddress: event.ContractAddress,
		ContractKind:    event.ContractKind,
		Status:          models.VerificationStatusPending,
	}
	err := v.db.WithContext(ctx).
		Where(models.VerificationRequest{
			DeploymentID:    event.DeploymentID,
			ChainID:         event.ChainID,
			ContractAddress: event.ContractAddress,
		}).
		FirstOrCreate(&request).Error
	if err != nil {
		return fmt.Errorf("failed to queue verification for %s on chain %d: %w", event.ContractAddress, event.ChainID, err)
	}
	return nil
}

// PendingVerifications returns queued requests of a deployment, oldest first
func PendingVerifications(ctx context.Context, db *gorm.DB, deploymentID string) ([]models.VerificationRequest, error) {
	var requests []models.VerificationRequest
	err := db.WithContext(ctx).
		Where("deployment_id = ? AND status = ?", deploymentID, models.VerificationStatusPending).
		Order("id").
		Find(&requests).Error
	return requests, err
}

func NewVerificationHook(db *gorm.DB) services.Hook {
	return &VerificationHook{
		db: db,
	}
}
