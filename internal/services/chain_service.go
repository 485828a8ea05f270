package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrChainNotFound = errors.New("chain not found")

// ChainRegistry resolves chain IDs to connection and contract details
type ChainRegistry interface {
	Lookup(ctx context.Context, chainID int64) (*models.ChainTarget, error)
	ListEnabled(ctx context.Context, filter models.NetworkFilter) ([]models.ChainTarget, error)
	Upsert(ctx context.Context, chain *models.Chain) error
	LoadFromYAML(ctx context.Context, path string) (int, error)
}

type chainRegistry struct {
	db *gorm.DB
}

// registryFile is the on-disk shape of a registry seed file
type registryFile struct {
	Chains []registryEntry `yaml:"chains"`
}

type registryEntry struct {
	models.Chain `yaml:",inline"`
	// Enabled defaults to true when the entry omits it
	Enabled *bool `yaml:"enabled"`
}

// NewChainRegistry creates a new ChainRegistry
func NewChainRegistry(db *gorm.DB) ChainRegistry {
	return &chainRegistry{db: db}
}

// Lookup returns the enabled chain with the given ID or ErrChainNotFound
func (s *chainRegistry) Lookup(ctx context.Context, chainID int64) (*models.ChainTarget, error) {
	var chain models.Chain
	err := s.db.WithContext(ctx).Where("chain_id = ? AND enabled = ?", chainID, true).First(&chain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrChainNotFound, chainID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup chain %d: %w", chainID, err)
	}
	target := chain.Target()
	return &target, nil
}

// ListEnabled returns enabled chains ordered by chain ID
func (s *chainRegistry) ListEnabled(ctx context.Context, filter models.NetworkFilter) ([]models.ChainTarget, error) {
	query := s.db.WithContext(ctx).Where("enabled = ?", true)
	switch filter {
	case models.NetworkFilterTestnet:
		query = query.Where("testnet = ?", true)
	case models.NetworkFilterMainnet:
		query = query.Where("testnet = ?", false)
	case models.NetworkFilterAll, "":
	default:
		return nil, fmt.Errorf("unknown network filter: %s", filter)
	}

	var chains []models.Chain
	if err := query.Order("chain_id").Find(&chains).Error; err != nil {
		return nil, err
	}

	targets := make([]models.ChainTarget, 0, len(chains))
	for _, c := range chains {
		targets = append(targets, c.Target())
	}
	return targets, nil
}

// Upsert inserts the chain or updates the row with the same chain ID
func (s *chainRegistry) Upsert(ctx context.Context, chain *models.Chain) error {
	if chain.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if chain.RPC == "" {
		return fmt.Errorf("rpc is required for chain %d", chain.ChainID)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chain_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "rpc", "gateway_address", "router_address", "gas_token_address",
			"is_hub", "testnet", "enabled", "updated_at",
		}),
	}).Create(chain).Error
}

// LoadFromYAML seeds the registry from a file and returns the number of chains written
func (s *chainRegistry) LoadFromYAML(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read chain registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse chain registry file: %w", err)
	}

	for i, entry := range file.Chains {
		chain := entry.Chain
		chain.Enabled = entry.Enabled == nil || *entry.Enabled
		if err := s.Upsert(ctx, &chain); err != nil {
			return i, err
		}
	}
	return len(file.Chains), nil
}
