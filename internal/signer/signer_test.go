package signer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anvil account #0
const (
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestFromHex(t *testing.T) {
	s, err := FromHex(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())

	s, err = FromHex(testPrivateKey[2:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())

	_, err = FromHex("")
	assert.ErrorIs(t, err, ErrNoServiceKey)

	_, err = FromHex("0x1234")
	assert.Error(t, err)
}

func TestSignTx(t *testing.T) {
	s, err := FromHex(testPrivateKey)
	require.NoError(t, err)

	chainID := big.NewInt(7001)
	tx := types.NewTransaction(0, common.HexToAddress("0x01"), big.NewInt(0), 21000, big.NewInt(1), nil)
	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), sender)
	assert.Equal(t, chainID, signed.ChainId())
}

func TestEnvProvider(t *testing.T) {
	key := ""
	provider := NewEnvProvider(func() string { return key })

	_, err := provider.Signer(context.Background())
	assert.ErrorIs(t, err, ErrNoServiceKey)

	key = testPrivateKey
	s, err := provider.Signer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = provider.Signer(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticProvider(t *testing.T) {
	_, err := NewStaticProvider(nil).Signer(context.Background())
	assert.ErrorIs(t, err, ErrNoServiceKey)
}
