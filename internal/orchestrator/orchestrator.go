package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/universal-launchpad/internal/chain"
	"github.com/rxtech-lab/universal-launchpad/internal/contracts"
	"github.com/rxtech-lab/universal-launchpad/internal/metrics"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/signer"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
	"go.uber.org/zap"
)

// ChainClient sends transactions. *chain.Client implements it.
type ChainClient interface {
	DeployContract(ctx context.Context, target models.ChainTarget, signer chain.TxSigner, bytecode []byte, constructorArgs []byte) (*chain.TxResult, error)
	CallMethod(ctx context.Context, target models.ChainTarget, signer chain.TxSigner, contract common.Address, contractABI abi.ABI, method string, args ...any) (*chain.TxResult, error)
}

type Config struct {
	HubChainIDs        []int64
	CrossChainGasLimit uint64
	ParallelSpokes     bool
	SpokeConcurrency   int
}

type Dependencies struct {
	Registry  services.ChainRegistry
	Store     services.DeploymentStore
	Client    ChainClient
	Signers   signer.Provider
	Artifacts *contracts.Artifacts
	Evm       services.EvmService
	Hooks     services.HookService
}

// Orchestrator runs the universal deployment saga
type Orchestrator struct {
	deps     Dependencies
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	// hookWG tracks hook notifications still running
	hookWG sync.WaitGroup
}

func New(deps Dependencies, config Config, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(config.HubChainIDs) == 0 {
		config.HubChainIDs = []int64{7000, 7001}
	}
	if config.CrossChainGasLimit == 0 {
		config.CrossChainGasLimit = 1_000_000
	}
	if config.SpokeConcurrency <= 0 {
		config.SpokeConcurrency = 4
	}
	if deps.Evm == nil {
		deps.Evm = services.NewEvmService()
	}
	return &Orchestrator{
		deps:     deps,
		config:   config,
		logger:   logger,
		metrics:  m,
		validate: validator.New(),
	}
}

// Deploy runs the saga to completion and returns the terminal record.
// Only a bad spec, a misconfigured registry or a store failure at creation time return an error;
// every later failure is recorded on the affected chain.
func (o *Orchestrator) Deploy(ctx context.Context, spec models.DeploymentSpec) (*models.UniversalDeployment, error) {
	if err := o.ValidateSpec(spec); err != nil {
		return nil, err
	}
	hubID, spokeIDs := o.splitChains(spec.ChainIDs)

	svc, err := o.deps.Signers.Signer(ctx)
	if err != nil {
		return o.recordSignerFailure(ctx, spec, hubID, spokeIDs, err)
	}

	if err := o.resolveTargets(ctx, hubID, spokeIDs); err != nil {
		return nil, err
	}

	record := newRecord(spec, hubID, spokeIDs)
	record.DeployerAddress = svc.Address().Hex()
	if _, err := o.deps.Store.Create(ctx, record); err != nil {
		return nil, err
	}
	return o.runSaga(ctx, record, svc), nil
}

// Prepare validates spec, checks every requested chain against the registry and stores
// a pending record for Run to pick up.
func (o *Orchestrator) Prepare(ctx context.Context, spec models.DeploymentSpec) (*models.UniversalDeployment, error) {
	if err := o.ValidateSpec(spec); err != nil {
		return nil, err
	}
	hubID, spokeIDs := o.splitChains(spec.ChainIDs)
	if err := o.resolveTargets(ctx, hubID, spokeIDs); err != nil {
		return nil, err
	}

	record := newRecord(spec, hubID, spokeIDs)
	if _, err := o.deps.Store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Run executes the saga for a pending record. A signer or registry failure at this
// point ends the record as failed instead of returning an error.
func (o *Orchestrator) Run(ctx context.Context, id string) (*models.UniversalDeployment, error) {
	record, err := o.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.OverallStatus != models.DeploymentStatusPending {
		return nil, fmt.Errorf("deployment %s is %s, not pending", id, record.OverallStatus)
	}

	svc, err := o.deps.Signers.Signer(ctx)
	if err != nil {
		o.logger.Error("deployment aborted, service signer unavailable", zap.String("deploymentId", id), zap.Error(err))
		return o.abort(ctx, record, "failed to load service signer: "+err.Error())
	}

	spokeIDs := make([]int64, len(record.Spokes))
	for i, sp := range record.Spokes {
		spokeIDs[i] = sp.ChainID
	}
	if err := o.resolveTargets(ctx, record.HubChainID, spokeIDs); err != nil {
		o.logger.Error("deployment aborted, chain registry changed", zap.String("deploymentId", id), zap.Error(err))
		return o.abort(ctx, record, "chain registry check failed: "+err.Error())
	}

	record.DeployerAddress = svc.Address().Hex()
	if err := o.deps.Store.Update(ctx, id, map[string]any{"deployer_address": record.DeployerAddress}); err != nil {
		return nil, err
	}
	return o.runSaga(ctx, record, svc), nil
}

func (o *Orchestrator) runSaga(ctx context.Context, record *models.UniversalDeployment, svc *signer.Signer) *models.UniversalDeployment {
	s := &saga{
		o:        o,
		record:   record,
		spec:     record.Spec(),
		decimals: record.Decimals,
		signer:   svc,
		logger:   o.logger.With(zap.String("deploymentId", record.ID)),
	}
	s.run(ctx)
	return s.snapshot()
}

// WaitForHooks blocks until every contract deployed notification has returned or ctx ends
func (o *Orchestrator) WaitForHooks(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.hookWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hooks still running: %w", ctx.Err())
	}
}

// abort ends a pending record as failed before any transaction was sent
func (o *Orchestrator) abort(ctx context.Context, record *models.UniversalDeployment, msg string) (*models.UniversalDeployment, error) {
	now := time.Now()
	record.OverallStatus = models.DeploymentStatusFailed
	record.AppendError(0, msg)
	record.CompletedAt = &now
	err := o.deps.Store.Update(context.WithoutCancel(ctx), record.ID, map[string]any{
		"overall_status": record.OverallStatus,
		"error_message":  record.ErrorMessage,
		"completed_at":   now,
	})
	if err != nil {
		return nil, err
	}
	o.metrics.DeploymentFinished(string(record.OverallStatus))
	return record, nil
}

func (o *Orchestrator) recordSignerFailure(ctx context.Context, spec models.DeploymentSpec, hubID int64, spokeIDs []int64, cause error) (*models.UniversalDeployment, error) {
	record := newRecord(spec, hubID, spokeIDs)
	record.OverallStatus = models.DeploymentStatusFailed
	record.AppendError(0, "failed to load service signer: "+cause.Error())
	now := time.Now()
	record.CompletedAt = &now

	if _, err := o.deps.Store.Create(ctx, record); err != nil {
		return nil, err
	}
	o.logger.Error("deployment aborted, service signer unavailable",
		zap.String("deploymentId", record.ID),
		zap.Error(cause),
	)
	o.metrics.DeploymentFinished(string(record.OverallStatus))
	return record, nil
}

// resolveTargets checks that every requested chain is registered and has the addresses its role needs
func (o *Orchestrator) resolveTargets(ctx context.Context, hubID int64, spokeIDs []int64) error {
	if _, err := o.lookupTarget(ctx, hubID, models.ChainRoleHub); err != nil {
		return err
	}
	for _, id := range spokeIDs {
		if _, err := o.lookupTarget(ctx, id, models.ChainRoleSpoke); err != nil {
			return err
		}
	}
	return nil
}

// lookupTarget reads the registry and checks the target against the role the saga expects
func (o *Orchestrator) lookupTarget(ctx context.Context, chainID int64, role models.ChainRole) (models.ChainTarget, error) {
	target, err := o.deps.Registry.Lookup(ctx, chainID)
	if err != nil {
		if errors.Is(err, services.ErrChainNotFound) {
			return models.ChainTarget{}, &ValidationError{Field: "chain_ids", Reason: fmt.Sprintf("chain %d is not registered", chainID)}
		}
		return models.ChainTarget{}, fmt.Errorf("failed to lookup chain %d: %w", chainID, err)
	}

	if target.Role != role {
		return models.ChainTarget{}, &ConfigurationError{ChainID: chainID, Reason: fmt.Sprintf("registered as %s but used as %s", target.Role, role)}
	}
	if utils.IsZeroAddress(target.GatewayAddress) {
		return models.ChainTarget{}, &ConfigurationError{ChainID: chainID, Reason: "gateway address is missing"}
	}
	switch role {
	case models.ChainRoleHub:
		if utils.IsZeroAddress(target.RouterAddress) {
			return models.ChainTarget{}, &ConfigurationError{ChainID: chainID, Reason: "router address is missing"}
		}
	case models.ChainRoleSpoke:
		if utils.IsZeroAddress(target.GasTokenAddress) {
			return models.ChainTarget{}, &ConfigurationError{ChainID: chainID, Reason: "gas token address is missing"}
		}
	}
	return *target, nil
}

func newRecord(spec models.DeploymentSpec, hubID int64, spokeIDs []int64) *models.UniversalDeployment {
	record := &models.UniversalDeployment{
		ID:                 uuid.NewString(),
		Kind:               spec.Kind,
		Name:               spec.Name,
		Symbol:             spec.Symbol,
		Decimals:           spec.DecimalsOrDefault(),
		TotalSupply:        spec.TotalSupply,
		BaseURI:            spec.BaseURI,
		MaxSupply:          spec.MaxSupply,
		ChainIDs:           append([]int64(nil), spec.ChainIDs...),
		FinalOwnerAddress:  spec.FinalOwnerAddress,
		Allocations:        append([]models.Allocation(nil), spec.Allocations...),
		HubChainID:         hubID,
		HubStatus:          models.StepStatusNotAttempted,
		HubMintStatus:      models.StepStatusNotAttempted,
		HubOwnershipStatus: models.StepStatusNotAttempted,
		AllocationStatus:   models.StepStatusNotAttempted,
		OverallStatus:      models.DeploymentStatusPending,
	}
	for _, id := range spokeIDs {
		record.Spokes = append(record.Spokes, models.SpokeDeployment{
			DeploymentID:     record.ID,
			ChainID:          id,
			DeployStatus:     models.StepStatusNotAttempted,
			ConnectionStatus: models.StepStatusNotAttempted,
			SetupStatus:      models.StepStatusNotAttempted,
			OwnershipStatus:  models.StepStatusNotAttempted,
		})
	}
	return record
}
