package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"gorm.io/gorm"
)

var ErrDeploymentNotFound = errors.New("deployment not found")

// DeploymentStore persists universal deployment records
type DeploymentStore interface {
	Create(ctx context.Context, deployment *models.UniversalDeployment) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	UpdateSpoke(ctx context.Context, id string, chainID int64, fields map[string]any) error
	Get(ctx context.Context, id string) (*models.UniversalDeployment, error)
	List(ctx context.Context, limit, offset int) ([]models.UniversalDeployment, error)
	ListIDsByStatus(ctx context.Context, status models.DeploymentStatus) ([]string, error)
}

type deploymentStore struct {
	db *gorm.DB
}

// NewDeploymentStore creates a new DeploymentStore
func NewDeploymentStore(db *gorm.DB) DeploymentStore {
	return &deploymentStore{db: db}
}

// Create inserts the deployment and its spoke rows, assigning an ID when empty
func (s *deploymentStore) Create(ctx context.Context, deployment *models.UniversalDeployment) (string, error) {
	if deployment.ID == "" {
		deployment.ID = uuid.NewString()
	}
	for i := range deployment.Spokes {
		deployment.Spokes[i].DeploymentID = deployment.ID
	}
	if err := s.db.WithContext(ctx).Create(deployment).Error; err != nil {
		return "", fmt.Errorf("failed to create deployment: %w", err)
	}
	return deployment.ID, nil
}

// Update writes only the given top-level columns
func (s *deploymentStore) Update(ctx context.Context, id string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.UniversalDeployment{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update deployment %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDeploymentNotFound, id)
	}
	return nil
}

// UpdateSpoke writes the given columns of a single spoke row
func (s *deploymentStore) UpdateSpoke(ctx context.Context, id string, chainID int64, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.SpokeDeployment{}).
		Where("deployment_id = ? AND chain_id = ?", id, chainID).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update spoke %d of deployment %s: %w", chainID, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s (spoke %d)", ErrDeploymentNotFound, id, chainID)
	}
	return nil
}

// Get returns a deployment with its spokes in requested order
func (s *deploymentStore) Get(ctx context.Context, id string) (*models.UniversalDeployment, error) {
	var deployment models.UniversalDeployment
	err := s.db.WithContext(ctx).Preload("Spokes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&deployment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

// List returns deployments, newest first
func (s *deploymentStore) List(ctx context.Context, limit, offset int) ([]models.UniversalDeployment, error) {
	if limit <= 0 {
		limit = 20
	}
	var deployments []models.UniversalDeployment
	err := s.db.WithContext(ctx).Preload("Spokes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Order("created_at desc").Limit(limit).Offset(offset).Find(&deployments).Error
	return deployments, err
}

// ListIDsByStatus returns the IDs of deployments in status, oldest first
func (s *deploymentStore) ListIDsByStatus(ctx context.Context, status models.DeploymentStatus) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.UniversalDeployment{}).
		Where("overall_status = ?", status).
		Order("created_at asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s deployments: %w", status, err)
	}
	return ids, nil
}
