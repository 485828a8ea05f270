package contracts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	artifacts, err := LoadEmbedded()
	require.NoError(t, err)

	hub, err := artifacts.Get(ZetaChainUniversalToken)
	require.NoError(t, err)
	for _, method := range []string{"initialize", "mint", "transfer", "setConnected", "transferOwnership"} {
		assert.Contains(t, hub.ABI.Methods, method)
	}
	assert.Len(t, hub.ABI.Methods["initialize"].Inputs, 6)

	spoke, err := artifacts.Get(EVMUniversalNFT)
	require.NoError(t, err)
	assert.Contains(t, spoke.ABI.Methods, "setUniversal")
	assert.Len(t, spoke.ABI.Methods["initialize"].Inputs, 5)

	proxy, err := artifacts.Get(ERC1967Proxy)
	require.NoError(t, err)
	assert.Len(t, proxy.ABI.Constructor.Inputs, 2)

	_, err = artifacts.Deployable(ERC1967Proxy)
	assert.ErrorIs(t, err, ErrBytecodeMissing)

	_, err = artifacts.Get("Unknown")
	assert.Error(t, err)
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	// plain format without ABI keeps the embedded ABI
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ERC1967Proxy.json"), []byte(`{"bytecode":"0x6080"}`), 0600))
	// foundry format
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EVMUniversalToken.json"), []byte(`{
		"abi":[{"type":"function","name":"setUniversal","inputs":[{"name":"contractAddress","type":"address"}],"outputs":[]}],
		"bytecode":{"object":"0x60806040"}
	}`), 0600))

	artifacts, err := LoadEmbedded()
	require.NoError(t, err)
	loaded, err := artifacts.LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	proxy, err := artifacts.Deployable(ERC1967Proxy)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, proxy.Bytecode)
	assert.Len(t, proxy.ABI.Constructor.Inputs, 2)

	spoke, err := artifacts.Deployable(EVMUniversalToken)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, spoke.Bytecode)
	assert.Contains(t, spoke.ABI.Methods, "setUniversal")
	assert.NotContains(t, spoke.ABI.Methods, "initialize")
}

func TestLoadFromDirectoryInvalidBytecode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ERC1967Proxy.json"), []byte(`{"bytecode":"0xzz"}`), 0600))

	artifacts, err := LoadEmbedded()
	require.NoError(t, err)
	_, err = artifacts.LoadFromDirectory(dir)
	assert.Error(t, err)
}

func TestContractNames(t *testing.T) {
	hub, spoke := ContractNames(models.AssetKindToken)
	assert.Equal(t, ZetaChainUniversalToken, hub)
	assert.Equal(t, EVMUniversalToken, spoke)

	hub, spoke = ContractNames(models.AssetKindNFT)
	assert.Equal(t, ZetaChainUniversalNFT, hub)
	assert.Equal(t, EVMUniversalNFT, spoke)
}
