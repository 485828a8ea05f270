package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

type AssetKind string

const (
	AssetKindToken AssetKind = "token"
	AssetKindNFT   AssetKind = "nft"
)

type DeploymentStatus string

const (
	DeploymentStatusPending    DeploymentStatus = "pending"
	DeploymentStatusInProgress DeploymentStatus = "in_progress"
	DeploymentStatusCompleted  DeploymentStatus = "completed"
	DeploymentStatusPartial    DeploymentStatus = "partial"
	DeploymentStatusFailed     DeploymentStatus = "failed"
)

// IsTerminal reports whether the saga has finished.
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusCompleted || s == DeploymentStatusPartial || s == DeploymentStatusFailed
}

// StepStatus is the outcome of one sub-step on one chain.
type StepStatus string

const (
	StepStatusNotAttempted StepStatus = "not_attempted"
	StepStatusCompleted    StepStatus = "completed"
	StepStatusFailed       StepStatus = "failed"
	StepStatusSkipped      StepStatus = "skipped"
)

// Allocation is an initial token transfer requested by the caller.
// Entries are checked one by one during the saga so a bad entry never rejects the whole spec.
type Allocation struct {
	RecipientAddress string `json:"recipient_address"`
	Amount           string `json:"amount"`
}

// AllocationResult records what happened to one recipient (or one invalid entry).
type AllocationResult struct {
	RecipientAddress string     `json:"recipient_address"`
	Amount           string     `json:"amount"`
	Status           StepStatus `json:"status"`
	TransactionHash  string     `json:"transaction_hash,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// AllocationResults is stored as a JSON text column. It implements driver.Valuer
// so it can be written through map based updates as well as struct creates.
type AllocationResults []AllocationResult

func (r AllocationResults) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *AllocationResults) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if len(data) == 0 {
		*r = nil
		return nil
	}
	return json.Unmarshal(data, r)
}

// DeploymentSpec is the input of one saga invocation.
type DeploymentSpec struct {
	Kind   AssetKind `json:"kind" validate:"required,oneof=token nft"`
	Name   string    `json:"name" validate:"required"`
	Symbol string    `json:"symbol" validate:"required"`
	// Decimals defaults to 18 when omitted. Universal tokens fix decimals() at 18,
	// so any other value is rejected for the token kind.
	Decimals          *uint8       `json:"decimals,omitempty"`
	TotalSupply       string       `json:"total_supply,omitempty"`
	BaseURI           string       `json:"base_uri,omitempty"`
	MaxSupply         string       `json:"max_supply,omitempty"`
	ChainIDs          []int64      `json:"chain_ids" validate:"required,min=1"`
	FinalOwnerAddress string       `json:"final_owner_address" validate:"required"`
	Allocations       []Allocation `json:"allocations,omitempty"`
}

const DefaultDecimals uint8 = 18

// DecimalsOrDefault returns the requested decimals or 18
func (s DeploymentSpec) DecimalsOrDefault() uint8 {
	if s.Decimals == nil {
		return DefaultDecimals
	}
	return *s.Decimals
}

// UniversalDeployment is the durable record of one saga.
type UniversalDeployment struct {
	ID                string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Kind              AssetKind         `gorm:"not null" json:"kind"`
	Name              string            `gorm:"not null" json:"name"`
	Symbol            string            `gorm:"not null" json:"symbol"`
	Decimals          uint8             `json:"decimals"`
	TotalSupply       string            `json:"total_supply,omitempty"`
	BaseURI           string            `json:"base_uri,omitempty"`
	MaxSupply         string            `json:"max_supply,omitempty"`
	ChainIDs          []int64           `gorm:"serializer:json" json:"chain_ids"`
	FinalOwnerAddress string            `gorm:"not null" json:"final_owner_address"`
	DeployerAddress   string            `json:"deployer_address,omitempty"`
	Allocations       []Allocation      `gorm:"serializer:json" json:"allocations,omitempty"`
	AllocationResults AllocationResults `gorm:"type:text" json:"allocation_results,omitempty"`

	HubChainID               int64      `json:"hub_chain_id,omitempty"`
	HubImplementationAddress string     `json:"hub_implementation_address,omitempty"`
	HubProxyAddress          string     `json:"hub_proxy_address,omitempty"`
	HubStatus                StepStatus `gorm:"default:not_attempted" json:"hub_status"`
	HubMintStatus            StepStatus `gorm:"default:not_attempted" json:"hub_mint_status"`
	HubOwnershipStatus       StepStatus `gorm:"default:not_attempted" json:"hub_ownership_status"`
	AllocationStatus         StepStatus `gorm:"default:not_attempted" json:"allocation_status"`

	Spokes []SpokeDeployment `gorm:"foreignKey:DeploymentID;references:ID" json:"spokes"`

	OverallStatus DeploymentStatus `gorm:"default:pending;index" json:"overall_status"`
	ErrorMessage  string           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// SpokeDeployment is the per-chain state of one spoke. Rows are keyed by
// (DeploymentID, ChainID) so a spoke update never touches its siblings.
type SpokeDeployment struct {
	ID                    uint       `gorm:"primaryKey" json:"-"`
	DeploymentID          string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_spoke_deployment_chain" json:"-"`
	ChainID               int64      `gorm:"not null;uniqueIndex:idx_spoke_deployment_chain" json:"chain_id"`
	ImplementationAddress string     `json:"implementation_address,omitempty"`
	ProxyAddress          string     `json:"proxy_address,omitempty"`
	DeployStatus          StepStatus `gorm:"default:not_attempted" json:"deploy_status"`
	ConnectionStatus      StepStatus `gorm:"default:not_attempted" json:"connection_status"`
	SetupStatus           StepStatus `gorm:"default:not_attempted" json:"setup_status"`
	OwnershipStatus       StepStatus `gorm:"default:not_attempted" json:"ownership_status"`
	ErrorMessage          string     `gorm:"type:text" json:"error_message,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Spoke returns the spoke entry for chainID, or nil.
func (d *UniversalDeployment) Spoke(chainID int64) *SpokeDeployment {
	for i := range d.Spokes {
		if d.Spokes[i].ChainID == chainID {
			return &d.Spokes[i]
		}
	}
	return nil
}

// Spec rebuilds the input a record was created from
func (d *UniversalDeployment) Spec() DeploymentSpec {
	decimals := d.Decimals
	return DeploymentSpec{
		Kind:              d.Kind,
		Name:              d.Name,
		Symbol:            d.Symbol,
		Decimals:          &decimals,
		TotalSupply:       d.TotalSupply,
		BaseURI:           d.BaseURI,
		MaxSupply:         d.MaxSupply,
		ChainIDs:          append([]int64(nil), d.ChainIDs...),
		FinalOwnerAddress: d.FinalOwnerAddress,
		Allocations:       append([]Allocation(nil), d.Allocations...),
	}
}

// AppendError adds a chain-prefixed message without overwriting earlier ones.
func (d *UniversalDeployment) AppendError(chainID int64, msg string) {
	d.ErrorMessage = JoinErrorMessage(d.ErrorMessage, chainID, msg)
}

// JoinErrorMessage appends "[chain <id>] msg" to an accumulated message.
func JoinErrorMessage(existing string, chainID int64, msg string) string {
	entry := "[chain " + strconv.FormatInt(chainID, 10) + "] " + msg
	if strings.TrimSpace(existing) == "" {
		return entry
	}
	return existing + "; " + entry
}
