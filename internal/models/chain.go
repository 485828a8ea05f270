package models

import (
	"time"

	"gorm.io/gorm"
)

type ChainRole string

const (
	ChainRoleHub   ChainRole = "hub"
	ChainRoleSpoke ChainRole = "spoke"
)

// NetworkFilter selects which enabled chains the registry lists.
type NetworkFilter string

const (
	NetworkFilterAll     NetworkFilter = "all"
	NetworkFilterTestnet NetworkFilter = "testnet"
	NetworkFilterMainnet NetworkFilter = "mainnet"
)

// Chain is a row of the chain registry.
type Chain struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ChainID         int64          `gorm:"uniqueIndex;not null" json:"chain_id" yaml:"chain_id"`
	Name            string         `gorm:"not null" json:"name" yaml:"name"`
	RPC             string         `gorm:"not null" json:"rpc" yaml:"rpc"`
	GatewayAddress  string         `json:"gateway_address" yaml:"gateway_address"`
	RouterAddress   string         `json:"router_address,omitempty" yaml:"router_address"`       // hub only: uniswap router used by the hub contract
	GasTokenAddress string         `json:"gas_token_address,omitempty" yaml:"gas_token_address"` // spoke only: ZRC-20 gas token of this chain on the hub
	IsHub           bool           `gorm:"not null" json:"is_hub" yaml:"is_hub"`
	Testnet         bool           `gorm:"not null" json:"testnet" yaml:"testnet"`
	Enabled         bool           `gorm:"not null" json:"enabled" yaml:"-"`
	CreatedAt       time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time      `json:"updated_at" yaml:"-"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-" yaml:"-"`
}

// ChainTarget is the immutable view of one network taking part in a deployment.
type ChainTarget struct {
	ChainID         int64     `json:"chain_id"`
	Name            string    `json:"name"`
	Role            ChainRole `json:"role"`
	Endpoint        string    `json:"endpoint"`
	GatewayAddress  string    `json:"gateway_address"`
	RouterAddress   string    `json:"router_address,omitempty"`
	GasTokenAddress string    `json:"gas_token_address,omitempty"`
	Enabled         bool      `json:"enabled"`
	Testnet         bool      `json:"testnet"`
}

// Target converts a registry row into a ChainTarget.
func (c Chain) Target() ChainTarget {
	role := ChainRoleSpoke
	if c.IsHub {
		role = ChainRoleHub
	}
	return ChainTarget{
		ChainID:         c.ChainID,
		Name:            c.Name,
		Role:            role,
		Endpoint:        c.RPC,
		GatewayAddress:  c.GatewayAddress,
		RouterAddress:   c.RouterAddress,
		GasTokenAddress: c.GasTokenAddress,
		Enabled:         c.Enabled,
		Testnet:         c.Testnet,
	}
}
