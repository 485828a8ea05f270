package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/universal-launchpad/internal/chain"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/signer"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
)

const (
	hubChainID     int64 = 7001
	sepoliaChainID int64 = 11155111
	bscChainID     int64 = 97
	amoyChainID    int64 = 80002

	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	ownerAddress   = "0x00000000000000000000000000000000000000f1"
)

func testTargets() map[int64]models.ChainTarget {
	return map[int64]models.ChainTarget{
		hubChainID: {
			ChainID:        hubChainID,
			Name:           "ZetaChain Athens",
			Role:           models.ChainRoleHub,
			Endpoint:       "http://hub.local",
			GatewayAddress: "0x6c533f7fe93fae114d0954697069df33c9b74fd7",
			RouterAddress:  "0x2ca7d64a7efe2d62a725e2b35cf7230d6677ffee",
			Enabled:        true,
			Testnet:        true,
		},
		sepoliaChainID: {
			ChainID:         sepoliaChainID,
			Name:            "Sepolia",
			Role:            models.ChainRoleSpoke,
			Endpoint:        "http://sepolia.local",
			GatewayAddress:  "0x0c487a766110c85d301d96e33579c5b317fa4995",
			GasTokenAddress: "0x05ba149a7bd6dc1f937fa9046a9e05c05f3b18b0",
			Enabled:         true,
			Testnet:         true,
		},
		bscChainID: {
			ChainID:         bscChainID,
			Name:            "BSC Testnet",
			Role:            models.ChainRoleSpoke,
			Endpoint:        "http://bsc.local",
			GatewayAddress:  "0x0c487a766110c85d301d96e33579c5b317fa4995",
			GasTokenAddress: "0xd97b1de3619ed2c6beb3860147e30ca8a7dc9891",
			Enabled:         true,
			Testnet:         true,
		},
		amoyChainID: {
			ChainID:         amoyChainID,
			Name:            "Polygon Amoy",
			Role:            models.ChainRoleSpoke,
			Endpoint:        "http://amoy.local",
			GatewayAddress:  "0x0c487a766110c85d301d96e33579c5b317fa4995",
			GasTokenAddress: "0x777915d031d1e8144c90d025c594b3b8bf07a08d",
			Enabled:         true,
			Testnet:         true,
		},
	}
}

// fakeRegistry serves targets from memory and counts lookups
type fakeRegistry struct {
	mu      sync.Mutex
	targets map[int64]models.ChainTarget
	lookups atomic.Int32
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{targets: testTargets()}
}

func (r *fakeRegistry) Lookup(ctx context.Context, chainID int64) (*models.ChainTarget, error) {
	r.lookups.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.targets[chainID]
	if !ok || !target.Enabled {
		return nil, fmt.Errorf("%w: %d", services.ErrChainNotFound, chainID)
	}
	return &target, nil
}

func (r *fakeRegistry) ListEnabled(ctx context.Context, filter models.NetworkFilter) ([]models.ChainTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChainTarget
	for _, target := range r.targets {
		if target.Enabled {
			out = append(out, target)
		}
	}
	return out, nil
}

func (r *fakeRegistry) Upsert(ctx context.Context, c *models.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[c.ChainID] = c.Target()
	return nil
}

func (r *fakeRegistry) LoadFromYAML(ctx context.Context, path string) (int, error) {
	return 0, errors.New("not supported")
}

func (r *fakeRegistry) set(target models.ChainTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[target.ChainID] = target
}

type deployCall struct {
	ChainID  int64
	Contract string
	Address  common.Address
}

type methodCall struct {
	ChainID  int64
	Contract common.Address
	Method   string
	Args     []any
}

// fakeChainClient mines everything instantly. Artifacts carry their contract name as bytecode
// so deploys can be told apart.
type fakeChainClient struct {
	mu      sync.Mutex
	next    int64
	deploys []deployCall
	calls   []methodCall

	failDeploy    map[int64]error
	zeroAddress   map[int64]bool
	timeoutDeploy map[int64]bool
	failCall      func(chainID int64, method string, args []any) error
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{
		failDeploy:    make(map[int64]error),
		zeroAddress:   make(map[int64]bool),
		timeoutDeploy: make(map[int64]bool),
	}
}

func (c *fakeChainClient) DeployContract(ctx context.Context, target models.ChainTarget, s chain.TxSigner, bytecode []byte, constructorArgs []byte) (*chain.TxResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failDeploy[target.ChainID]; ok {
		return nil, &chain.TxError{Kind: chain.KindRevert, ChainID: target.ChainID, Op: "deploy", Err: err}
	}
	c.next++
	addr := common.BigToAddress(big.NewInt(0x1000 + c.next))
	if c.zeroAddress[target.ChainID] {
		addr = common.Address{}
	}
	c.deploys = append(c.deploys, deployCall{ChainID: target.ChainID, Contract: string(bytecode), Address: addr})
	result := &chain.TxResult{
		TxHash:          common.BigToHash(big.NewInt(c.next)),
		ContractAddress: addr,
		Nonce:           uint64(c.next),
	}
	if c.timeoutDeploy[target.ChainID] {
		return result, &chain.TxError{Kind: chain.KindTimeout, ChainID: target.ChainID, Op: "deploy", TxHash: result.TxHash.Hex(), Err: errors.New("receipt not found")}
	}
	return result, nil
}

func (c *fakeChainClient) CallMethod(ctx context.Context, target models.ChainTarget, s chain.TxSigner, contract common.Address, contractABI abi.ABI, method string, args ...any) (*chain.TxResult, error) {
	if _, err := utils.PackMethod(contractABI, method, args); err != nil {
		return nil, &chain.TxError{Kind: chain.KindBuild, ChainID: target.ChainID, Op: method, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.calls = append(c.calls, methodCall{ChainID: target.ChainID, Contract: contract, Method: method, Args: args})
	hash := common.BigToHash(big.NewInt(c.next))
	if c.failCall != nil {
		if err := c.failCall(target.ChainID, method, args); err != nil {
			return &chain.TxResult{TxHash: hash}, &chain.TxError{Kind: chain.KindRevert, ChainID: target.ChainID, Op: method, TxHash: hash.Hex(), Err: err}
		}
	}
	return &chain.TxResult{TxHash: hash}, nil
}

func (c *fakeChainClient) deploysOn(chainID int64) []deployCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []deployCall
	for _, d := range c.deploys {
		if d.ChainID == chainID {
			out = append(out, d)
		}
	}
	return out
}

func (c *fakeChainClient) callsOf(method string) []methodCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []methodCall
	for _, call := range c.calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeChainClient) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deploys) + len(c.calls)
}

type failingProvider struct{}

func (failingProvider) Signer(ctx context.Context) (*signer.Signer, error) {
	return nil, errors.New("key vault unreachable")
}

// recordingHook collects every event it receives
type recordingHook struct {
	mu     sync.Mutex
	events []services.ContractDeployedEvent
}

func (h *recordingHook) CanHandle(kind models.ContractKind) bool {
	return true
}

func (h *recordingHook) OnContractDeployed(ctx context.Context, event services.ContractDeployedEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// blockingHook holds every notification until release is closed
type blockingHook struct {
	release chan struct{}
	calls   atomic.Int32
}

func (h *blockingHook) CanHandle(kind models.ContractKind) bool {
	return true
}

func (h *blockingHook) OnContractDeployed(ctx context.Context, event services.ContractDeployedEvent) error {
	<-h.release
	h.calls.Add(1)
	return nil
}
