package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNoServiceKey = errors.New("service private key is not configured")

// Signer is the service account used for every transaction of every deployment
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// Provider loads the service signer
type Provider interface {
	Signer(ctx context.Context) (*Signer, error)
}

func New(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// FromHex parses a hex encoded private key with or without the 0x prefix
func FromHex(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, ErrNoServiceKey
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid service private key: %w", err)
	}
	return New(key), nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs with the latest signer for the chain (EIP-155 for legacy transactions)
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// EnvProvider reads the key from configuration on every call so a rotated key is picked up
type EnvProvider struct {
	lookup func() string
}

func NewEnvProvider(lookup func() string) *EnvProvider {
	return &EnvProvider{lookup: lookup}
}

func (p *EnvProvider) Signer(ctx context.Context) (*Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FromHex(p.lookup())
}

// StaticProvider always returns the same signer
type StaticProvider struct {
	signer *Signer
}

func NewStaticProvider(s *Signer) *StaticProvider {
	return &StaticProvider{signer: s}
}

func (p *StaticProvider) Signer(ctx context.Context) (*Signer, error) {
	if p.signer == nil {
		return nil, ErrNoServiceKey
	}
	return p.signer, nil
}
