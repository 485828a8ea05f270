package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rxtech-lab/universal-launchpad/internal/metrics"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
	"go.uber.org/zap"
)

// EthClient is the subset of the node API the client needs
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// DialFunc opens a node connection for an endpoint
type DialFunc func(ctx context.Context, endpoint string) (EthClient, error)

// DialEthClient dials a JSON-RPC endpoint with go-ethereum's ethclient
func DialEthClient(ctx context.Context, endpoint string) (EthClient, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// TxSigner signs transactions for one account
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// TxResult describes a mined transaction
type TxResult struct {
	TxHash common.Hash
	// ContractAddress is set for contract creations. Until the receipt arrives it holds
	// the address derived from the sender and nonce.
	ContractAddress common.Address
	Receipt         *types.Receipt
	GasLimit        uint64
	Nonce           uint64
	UsedFallbackGas bool
}

type Config struct {
	ReceiptMaxRetries   int
	ReceiptPollInterval time.Duration
	FallbackGasLimit    uint64
}

// Client signs, broadcasts and confirms transactions on any registered chain
type Client struct {
	dial    DialFunc
	nonces  *NonceLocker
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

func WithNonceLocker(nonces *NonceLocker) Option {
	return func(c *Client) { c.nonces = nonces }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(config Config, logger *zap.Logger, opts ...Option) *Client {
	if config.ReceiptMaxRetries <= 0 {
		config.ReceiptMaxRetries = 60
	}
	if config.ReceiptPollInterval <= 0 {
		config.ReceiptPollInterval = 2 * time.Second
	}
	if config.FallbackGasLimit == 0 {
		config.FallbackGasLimit = 5_000_000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		dial:   DialEthClient,
		nonces: NewNonceLocker(),
		config: config,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeployContract creates a contract from bytecode followed by ABI-encoded constructor arguments.
// On revert or timeout the partial result (tx hash, receipt if any) is returned together with the error.
func (c *Client) DeployContract(ctx context.Context, target models.ChainTarget, signer TxSigner, bytecode []byte, constructorArgs []byte) (*TxResult, error) {
	if len(bytecode) == 0 {
		return nil, newTxError(KindBuild, target.ChainID, "deploy", errors.New("bytecode is empty"))
	}
	data := utils.BuildDeploymentData(bytecode, constructorArgs)
	return c.send(ctx, target, signer, "deploy", nil, data)
}

// CallMethod sends a state-changing call of method on contract
func (c *Client) CallMethod(ctx context.Context, target models.ChainTarget, signer TxSigner, contract common.Address, contractABI abi.ABI, method string, args ...any) (*TxResult, error) {
	data, err := utils.PackMethod(contractABI, method, args)
	if err != nil {
		return nil, newTxError(KindBuild, target.ChainID, method, err)
	}
	if formatted, err := utils.EncodeFunctionArgsToStringMap(method, args, contractABI); err == nil {
		c.logger.Debug("calling contract method",
			zap.Int64("chainId", target.ChainID),
			zap.String("contract", contract.Hex()),
			zap.String("method", method),
			zap.String("args", formatted),
		)
	}
	return c.send(ctx, target, signer, method, &contract, data)
}

func (c *Client) send(ctx context.Context, target models.ChainTarget, signer TxSigner, op string, to *common.Address, data []byte) (*TxResult, error) {
	if target.Endpoint == "" {
		return nil, c.fail(newTxError(KindConnection, target.ChainID, op, errors.New("chain has no endpoint")))
	}

	client, err := c.dial(ctx, target.Endpoint)
	if err != nil {
		return nil, c.fail(newTxError(KindConnection, target.ChainID, op, fmt.Errorf("failed to dial endpoint: %w", err)))
	}
	defer closeClient(client)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, c.fail(newTxError(KindConnection, target.ChainID, op, fmt.Errorf("failed to read chain id: %w", err)))
	}
	if target.ChainID != 0 && chainID.Int64() != target.ChainID {
		return nil, c.fail(newTxError(KindConnection, target.ChainID, op, fmt.Errorf("endpoint serves chain %s", chainID)))
	}

	result, txErr := c.signAndBroadcast(ctx, client, target.ChainID, chainID, signer, op, to, data)
	if txErr != nil {
		return nil, c.fail(txErr)
	}

	logger := c.logger.With(
		zap.Int64("chainId", target.ChainID),
		zap.String("op", op),
		zap.String("txHash", result.TxHash.Hex()),
	)
	logger.Info("transaction broadcast", zap.Uint64("nonce", result.Nonce), zap.Uint64("gasLimit", result.GasLimit))

	receipt, attempts, err := c.waitForReceipt(ctx, client, result.TxHash)
	if err != nil {
		txErr := newTxError(KindTimeout, target.ChainID, op, err)
		txErr.TxHash = result.TxHash.Hex()
		return result, c.fail(txErr)
	}
	c.metrics.ReceiptPolled(attempts)
	result.Receipt = receipt
	if to == nil {
		result.ContractAddress = receipt.ContractAddress
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		txErr := newTxError(KindRevert, target.ChainID, op, fmt.Errorf("%w in block %s", errReverted, receipt.BlockNumber))
		txErr.TxHash = result.TxHash.Hex()
		return result, c.fail(txErr)
	}

	c.metrics.Transaction(target.ChainID, "success")
	logger.Info("transaction confirmed", zap.Uint64("gasUsed", receipt.GasUsed))
	return result, nil
}

// signAndBroadcast holds the nonce lock from the nonce read until the node accepted the transaction
func (c *Client) signAndBroadcast(ctx context.Context, client EthClient, targetChainID int64, chainID *big.Int, signer TxSigner, op string, to *common.Address, data []byte) (*TxResult, *TxError) {
	from := signer.Address()
	unlock := c.nonces.Lock(from, chainID.Int64())
	defer unlock()

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, newTxError(KindConnection, targetChainID, op, fmt.Errorf("failed to get nonce: %w", err))
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, newTxError(KindConnection, targetChainID, op, fmt.Errorf("failed to get gas price: %w", err))
	}

	usedFallback := false
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       to,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		c.logger.Warn("gas estimation failed, using fallback gas limit",
			zap.Int64("chainId", targetChainID),
			zap.String("op", op),
			zap.Uint64("fallbackGasLimit", c.config.FallbackGasLimit),
			zap.Error(err),
		)
		gasLimit = c.config.FallbackGasLimit
		usedFallback = true
	} else {
		gasLimit += gasLimit / 5
	}

	var tx *types.Transaction
	if to == nil {
		tx = types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
	} else {
		tx = types.NewTransaction(nonce, *to, big.NewInt(0), gasLimit, gasPrice, data)
	}

	signedTx, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, newTxError(KindSigning, targetChainID, op, err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, newTxError(KindBroadcast, targetChainID, op, err)
	}

	result := &TxResult{
		TxHash:          signedTx.Hash(),
		GasLimit:        gasLimit,
		Nonce:           nonce,
		UsedFallbackGas: usedFallback,
	}
	if to == nil {
		result.ContractAddress = crypto.CreateAddress(from, nonce)
	}
	return result, nil
}

// waitForReceipt polls at most ReceiptMaxRetries times. Lookup errors count as "not mined yet".
func (c *Client) waitForReceipt(ctx context.Context, client EthClient, hash common.Hash) (*types.Receipt, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.ReceiptMaxRetries; attempt++ {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, attempt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}
		if attempt == c.config.ReceiptMaxRetries {
			break
		}

		timer := time.NewTimer(c.config.ReceiptPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, fmt.Errorf("stopped waiting for receipt: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if lastErr != nil {
		return nil, c.config.ReceiptMaxRetries, fmt.Errorf("receipt not found after %d attempts: %w", c.config.ReceiptMaxRetries, lastErr)
	}
	return nil, c.config.ReceiptMaxRetries, fmt.Errorf("receipt not found after %d attempts", c.config.ReceiptMaxRetries)
}

func (c *Client) fail(err *TxError) error {
	c.metrics.Transaction(err.ChainID, string(err.Kind))
	return err
}

func closeClient(client EthClient) {
	if closer, ok := client.(interface{ Close() }); ok {
		closer.Close()
	}
}
