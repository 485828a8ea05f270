package models

import "time"

type ContractKind string

const (
	ContractKindImplementation ContractKind = "implementation"
	ContractKindProxy          ContractKind = "proxy"
)

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusFailed   VerificationStatus = "failed"
)

// VerificationRequest is a queued block explorer verification that an external verifier picks up.
type VerificationRequest struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	DeploymentID    string             `gorm:"type:varchar(36);index;not null" json:"deployment_id"`
	ChainID         int64              `gorm:"not null" json:"chain_id"`
	ContractAddress string             `gorm:"not null" json:"contract_address"`
	ContractKind    ContractKind       `gorm:"not null" json:"contract_kind"`
	Status          VerificationStatus `gorm:"default:pending" json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
