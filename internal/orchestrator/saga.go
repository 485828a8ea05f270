package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/universal-launchpad/internal/chain"
	"github.com/rxtech-lab/universal-launchpad/internal/contracts"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	stepHubDeploy      = "hub_deploy"
	stepMint           = "mint"
	stepSpokeDeploy    = "spoke_deploy"
	stepConnect        = "connect"
	stepSetup          = "setup"
	stepAllocation     = "allocation"
	stepHubOwnership   = "hub_ownership"
	stepSpokeOwnership = "spoke_ownership"
)

// saga is one run of Deploy. The record is owned by the saga; parallel spoke
// workers mutate it while holding mu, and every mutation is persisted before mu is released.
type saga struct {
	o        *Orchestrator
	record   *models.UniversalDeployment
	spec     models.DeploymentSpec
	decimals uint8
	signer   chain.TxSigner
	logger   *zap.Logger

	mu sync.Mutex
}

func (s *saga) run(ctx context.Context) {
	s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
		d.OverallStatus = models.DeploymentStatusInProgress
		return map[string]any{"overall_status": d.OverallStatus}
	})
	s.logger.Info("universal deployment started",
		zap.Int64("hubChainId", s.record.HubChainID),
		zap.Int("spokes", len(s.record.Spokes)),
		zap.String("kind", string(s.spec.Kind)),
	)

	if s.deployHub(ctx) {
		s.mint(ctx)
		s.deploySpokes(ctx)
		s.crossConnect(ctx)
		s.allocate(ctx)
		s.transferOwnership(ctx)
	}
	s.finalize(ctx)
}

// update applies fn to the record and persists the top-level columns it returns
func (s *saga) update(ctx context.Context, fn func(d *models.UniversalDeployment) map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := fn(s.record)
	if len(fields) == 0 {
		return
	}
	if err := s.o.deps.Store.Update(context.WithoutCancel(ctx), s.record.ID, fields); err != nil {
		s.logger.Error("failed to persist deployment", zap.Error(err))
	}
}

// updateSpoke applies fn to one spoke and persists only that spoke row
func (s *saga) updateSpoke(ctx context.Context, chainID int64, fn func(sp *models.SpokeDeployment) map[string]any) {
	s.mutateSpoke(ctx, chainID, "", fn)
}

// failSpoke is updateSpoke plus msg appended to both the spoke's and the deployment's error message
func (s *saga) failSpoke(ctx context.Context, chainID int64, msg string, fn func(sp *models.SpokeDeployment) map[string]any) {
	s.logger.Error("spoke step failed", zap.Int64("chainId", chainID), zap.String("error", msg))
	s.mutateSpoke(ctx, chainID, msg, fn)
}

func (s *saga) mutateSpoke(ctx context.Context, chainID int64, msg string, fn func(sp *models.SpokeDeployment) map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spoke := s.record.Spoke(chainID)
	if spoke == nil {
		return
	}
	fields := fn(spoke)
	if msg != "" {
		spoke.ErrorMessage = models.JoinErrorMessage(spoke.ErrorMessage, chainID, msg)
		fields["error_message"] = spoke.ErrorMessage
	}

	storeCtx := context.WithoutCancel(ctx)
	if err := s.o.deps.Store.UpdateSpoke(storeCtx, s.record.ID, chainID, fields); err != nil {
		s.logger.Error("failed to persist spoke", zap.Int64("chainId", chainID), zap.Error(err))
	}
	if msg != "" {
		s.record.AppendError(chainID, msg)
		if err := s.o.deps.Store.Update(storeCtx, s.record.ID, map[string]any{"error_message": s.record.ErrorMessage}); err != nil {
			s.logger.Error("failed to persist deployment", zap.Error(err))
		}
	}
}

// failHubStep applies fn and appends msg against the hub chain in one write
func (s *saga) failHubStep(ctx context.Context, msg string, fn func(d *models.UniversalDeployment) map[string]any) {
	s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
		fields := map[string]any{}
		if fn != nil {
			fields = fn(d)
		}
		d.AppendError(d.HubChainID, msg)
		fields["error_message"] = d.ErrorMessage
		return fields
	})
}

func (s *saga) deployHub(ctx context.Context) bool {
	hubID := s.record.HubChainID
	target, err := s.o.lookupTarget(ctx, hubID, models.ChainRoleHub)
	if err != nil {
		s.failHub(ctx, "failed to resolve hub chain: "+err.Error())
		return false
	}

	hubName, _ := contracts.ContractNames(s.spec.Kind)
	args := services.InitializerArgs{
		OwnerAddress:   s.signer.Address().Hex(),
		Name:           s.spec.Name,
		Symbol:         s.spec.Symbol,
		GatewayAddress: target.GatewayAddress,
		GasLimit:       s.o.config.CrossChainGasLimit,
		RouterAddress:  target.RouterAddress,
	}

	proxy, err := s.deployUpgradeable(ctx, target, hubName, args, func(kind models.ContractKind, addr string) {
		s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
			if kind == models.ContractKindProxy {
				d.HubProxyAddress = addr
				return map[string]any{"hub_proxy_address": addr}
			}
			d.HubImplementationAddress = addr
			return map[string]any{"hub_implementation_address": addr}
		})
	})
	if err != nil {
		s.failHub(ctx, "hub deployment failed: "+err.Error())
		return false
	}

	s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
		d.HubStatus = models.StepStatusCompleted
		return map[string]any{"hub_status": d.HubStatus}
	})
	s.o.metrics.Step(stepHubDeploy, string(models.StepStatusCompleted))
	s.logger.Info("hub deployed", zap.Int64("chainId", hubID), zap.String("proxy", proxy.Hex()))
	return true
}

func (s *saga) failHub(ctx context.Context, msg string) {
	s.logger.Error("hub deployment failed", zap.Int64("chainId", s.record.HubChainID), zap.String("error", msg))
	s.failHubStep(ctx, msg, func(d *models.UniversalDeployment) map[string]any {
		d.HubStatus = models.StepStatusFailed
		return map[string]any{"hub_status": d.HubStatus}
	})
	s.o.metrics.Step(stepHubDeploy, string(models.StepStatusFailed))
}

// deployUpgradeable deploys the implementation and an ERC1967 proxy initialized with args.
// Each mined address is handed to persist and published to the hooks.
func (s *saga) deployUpgradeable(ctx context.Context, target models.ChainTarget, contractName string, args services.InitializerArgs, persist func(kind models.ContractKind, addr string)) (common.Address, error) {
	impl, err := s.o.deps.Artifacts.Deployable(contractName)
	if err != nil {
		return common.Address{}, err
	}
	proxyArtifact, err := s.o.deps.Artifacts.Deployable(contracts.ERC1967Proxy)
	if err != nil {
		return common.Address{}, err
	}

	implAddr, err := s.deployOne(ctx, target, impl.Bytecode, nil, models.ContractKindImplementation, persist)
	if err != nil {
		return common.Address{}, fmt.Errorf("implementation: %w", err)
	}

	initData, err := s.o.deps.Evm.EncodeInitializer(impl.ABI, args)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode initializer: %w", err)
	}
	ctorArgs, err := s.o.deps.Evm.EncodeProxyConstructor(proxyArtifact.ABI, services.ProxyDeploymentArgs{
		ImplementationAddress: implAddr.Hex(),
		InitData:              initData,
	})
	if err != nil {
		return common.Address{}, err
	}

	proxyAddr, err := s.deployOne(ctx, target, proxyArtifact.Bytecode, ctorArgs, models.ContractKindProxy, persist)
	if err != nil {
		return common.Address{}, fmt.Errorf("proxy: %w", err)
	}
	return proxyAddr, nil
}

func (s *saga) deployOne(ctx context.Context, target models.ChainTarget, bytecode, ctorArgs []byte, kind models.ContractKind, persist func(kind models.ContractKind, addr string)) (common.Address, error) {
	result, err := s.o.deps.Client.DeployContract(ctx, target, s.signer, bytecode, ctorArgs)
	if err != nil {
		// a creation still waiting for its receipt may be mined later at the derived address
		if chain.IsKind(err, chain.KindTimeout) && result != nil && result.ContractAddress != (common.Address{}) {
			persist(kind, result.ContractAddress.Hex())
			s.logger.Warn("contract creation not confirmed",
				zap.Int64("chainId", target.ChainID),
				zap.String("kind", string(kind)),
				zap.String("expectedAddress", result.ContractAddress.Hex()),
				zap.String("txHash", result.TxHash.Hex()),
				zap.Uint64("nonce", result.Nonce),
			)
		}
		return common.Address{}, err
	}
	addr := result.ContractAddress
	if addr == (common.Address{}) {
		return common.Address{}, errors.New("no contract address in receipt")
	}
	persist(kind, addr.Hex())
	s.publish(ctx, target.ChainID, addr.Hex(), kind)
	return addr, nil
}

// publish notifies the hooks without waiting; hook errors never affect the saga.
// WaitForHooks waits for the notifications still in flight.
func (s *saga) publish(ctx context.Context, chainID int64, addr string, kind models.ContractKind) {
	if s.o.deps.Hooks == nil {
		return
	}
	event := services.ContractDeployedEvent{
		DeploymentID:    s.record.ID,
		ChainID:         chainID,
		ContractAddress: addr,
		ContractKind:    kind,
	}
	hookCtx := context.WithoutCancel(ctx)
	s.o.hookWG.Add(1)
	go func() {
		defer s.o.hookWG.Done()
		if err := s.o.deps.Hooks.OnContractDeployed(hookCtx, event); err != nil {
			s.logger.Warn("contract deployed hook failed",
				zap.Int64("chainId", chainID),
				zap.String("contract", addr),
				zap.Error(err),
			)
		}
	}()
}

func (s *saga) hubCall(ctx context.Context, method string, args ...any) (*chain.TxResult, error) {
	target, err := s.o.lookupTarget(ctx, s.record.HubChainID, models.ChainRoleHub)
	if err != nil {
		return nil, err
	}
	hubName, _ := contracts.ContractNames(s.spec.Kind)
	artifact, err := s.o.deps.Artifacts.Get(hubName)
	if err != nil {
		return nil, err
	}
	return s.o.deps.Client.CallMethod(ctx, target, s.signer, common.HexToAddress(s.hubProxy()), artifact.ABI, method, args...)
}

func (s *saga) spokeCall(ctx context.Context, chainID int64, proxy string, method string, args ...any) (*chain.TxResult, error) {
	target, err := s.o.lookupTarget(ctx, chainID, models.ChainRoleSpoke)
	if err != nil {
		return nil, err
	}
	_, spokeName := contracts.ContractNames(s.spec.Kind)
	artifact, err := s.o.deps.Artifacts.Get(spokeName)
	if err != nil {
		return nil, err
	}
	return s.o.deps.Client.CallMethod(ctx, target, s.signer, common.HexToAddress(proxy), artifact.ABI, method, args...)
}

func (s *saga) hubProxy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.HubProxyAddress
}

// mint sends the initial supply to the service account. Failures never stop the saga.
func (s *saga) mint(ctx context.Context) {
	if s.spec.Kind != models.AssetKindToken {
		s.setMintStatus(ctx, models.StepStatusSkipped, "")
		return
	}
	supply := big.NewInt(0)
	if s.spec.TotalSupply != "" {
		parsed, err := utils.ParseTokenAmount(s.spec.TotalSupply, s.decimals)
		if err != nil {
			s.setMintStatus(ctx, models.StepStatusFailed, "mint failed: "+err.Error())
			return
		}
		supply = parsed
	}
	if supply.Sign() <= 0 {
		s.setMintStatus(ctx, models.StepStatusSkipped, "")
		return
	}

	if _, err := s.hubCall(ctx, "mint", s.signer.Address(), supply); err != nil {
		s.logger.Error("mint failed", zap.Int64("chainId", s.record.HubChainID), zap.Error(err))
		s.setMintStatus(ctx, models.StepStatusFailed, "mint failed: "+err.Error())
		return
	}
	s.logger.Info("initial supply minted", zap.String("amount", supply.String()))
	s.setMintStatus(ctx, models.StepStatusCompleted, "")
}

func (s *saga) setMintStatus(ctx context.Context, status models.StepStatus, errMsg string) {
	apply := func(d *models.UniversalDeployment) map[string]any {
		d.HubMintStatus = status
		return map[string]any{"hub_mint_status": status}
	}
	if errMsg != "" {
		s.failHubStep(ctx, errMsg, apply)
	} else {
		s.update(ctx, apply)
	}
	s.o.metrics.Step(stepMint, string(status))
}

// forEachSpoke runs fn for every spoke, concurrently when parallel spokes are enabled
func (s *saga) forEachSpoke(ctx context.Context, fn func(ctx context.Context, chainID int64)) {
	ids := s.spokeIDs()
	if !s.o.config.ParallelSpokes {
		for _, id := range ids {
			fn(ctx, id)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.o.config.SpokeConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *saga) deploySpokes(ctx context.Context) {
	s.forEachSpoke(ctx, s.deploySpoke)
}

func (s *saga) deploySpoke(ctx context.Context, chainID int64) {
	fail := func(msg string) {
		s.failSpoke(ctx, chainID, msg, func(sp *models.SpokeDeployment) map[string]any {
			sp.DeployStatus = models.StepStatusFailed
			return map[string]any{"deploy_status": sp.DeployStatus}
		})
		s.o.metrics.Step(stepSpokeDeploy, string(models.StepStatusFailed))
	}

	target, err := s.o.lookupTarget(ctx, chainID, models.ChainRoleSpoke)
	if err != nil {
		fail("failed to resolve spoke chain: " + err.Error())
		return
	}

	_, spokeName := contracts.ContractNames(s.spec.Kind)
	args := services.InitializerArgs{
		OwnerAddress:   s.signer.Address().Hex(),
		Name:           s.spec.Name,
		Symbol:         s.spec.Symbol,
		GatewayAddress: target.GatewayAddress,
		GasLimit:       s.o.config.CrossChainGasLimit,
	}
	proxy, err := s.deployUpgradeable(ctx, target, spokeName, args, func(kind models.ContractKind, addr string) {
		s.updateSpoke(ctx, chainID, func(sp *models.SpokeDeployment) map[string]any {
			if kind == models.ContractKindProxy {
				sp.ProxyAddress = addr
				return map[string]any{"proxy_address": addr}
			}
			sp.ImplementationAddress = addr
			return map[string]any{"implementation_address": addr}
		})
	})
	if err != nil {
		fail("spoke deployment failed: " + err.Error())
		return
	}

	s.updateSpoke(ctx, chainID, func(sp *models.SpokeDeployment) map[string]any {
		sp.DeployStatus = models.StepStatusCompleted
		return map[string]any{"deploy_status": sp.DeployStatus}
	})
	s.o.metrics.Step(stepSpokeDeploy, string(models.StepStatusCompleted))
	s.logger.Info("spoke deployed", zap.Int64("chainId", chainID), zap.String("proxy", proxy.Hex()))
}

// crossConnect links every deployed spoke with the hub. It always runs sequentially
// since every forward call goes through the hub contract.
func (s *saga) crossConnect(ctx context.Context) {
	for _, id := range s.spokeIDs() {
		sp := s.spokeSnapshot(id)
		if sp.DeployStatus != models.StepStatusCompleted {
			continue
		}
		s.connectSpoke(ctx, sp)
	}
}

func (s *saga) connectSpoke(ctx context.Context, sp models.SpokeDeployment) {
	chainID := sp.ChainID
	target, err := s.o.lookupTarget(ctx, chainID, models.ChainRoleSpoke)
	if err == nil {
		_, err = s.hubCall(ctx, "setConnected", common.HexToAddress(target.GasTokenAddress), common.HexToAddress(sp.ProxyAddress))
	}
	if err != nil {
		s.failSpoke(ctx, chainID, "hub setConnected failed: "+err.Error(), func(sp *models.SpokeDeployment) map[string]any {
			sp.ConnectionStatus = models.StepStatusFailed
			return map[string]any{"connection_status": sp.ConnectionStatus}
		})
		s.o.metrics.Step(stepConnect, string(models.StepStatusFailed))
		return
	}
	s.updateSpoke(ctx, chainID, func(sp *models.SpokeDeployment) map[string]any {
		sp.ConnectionStatus = models.StepStatusCompleted
		return map[string]any{"connection_status": sp.ConnectionStatus}
	})
	s.o.metrics.Step(stepConnect, string(models.StepStatusCompleted))

	if _, err := s.spokeCall(ctx, chainID, sp.ProxyAddress, "setUniversal", common.HexToAddress(s.hubProxy())); err != nil {
		s.failSpoke(ctx, chainID, "spoke setUniversal failed: "+err.Error(), func(sp *models.SpokeDeployment) map[string]any {
			sp.SetupStatus = models.StepStatusFailed
			return map[string]any{"setup_status": sp.SetupStatus}
		})
		s.o.metrics.Step(stepSetup, string(models.StepStatusFailed))
		return
	}
	s.updateSpoke(ctx, chainID, func(sp *models.SpokeDeployment) map[string]any {
		sp.SetupStatus = models.StepStatusCompleted
		return map[string]any{"setup_status": sp.SetupStatus}
	})
	s.o.metrics.Step(stepSetup, string(models.StepStatusCompleted))
}

// allocate distributes the initial allocations from the service account on the hub
func (s *saga) allocate(ctx context.Context) {
	if s.spec.Kind != models.AssetKindToken {
		s.setAllocation(ctx, models.StepStatusSkipped, nil)
		return
	}

	plan := planAllocations(s.spec.Allocations, s.decimals)
	for _, allocErr := range plan.errors {
		s.logger.Warn("invalid allocation", zap.Error(allocErr))
		s.failHubStep(ctx, allocErr.Error(), nil)
	}
	if len(plan.transfers) == 0 && len(plan.errors) == 0 {
		s.setAllocation(ctx, models.StepStatusSkipped, plan.rejected)
		return
	}

	results := append(models.AllocationResults(nil), plan.rejected...)
	status := models.StepStatusCompleted
	if len(plan.errors) > 0 {
		status = models.StepStatusFailed
	}
	for _, transfer := range plan.transfers {
		result := models.AllocationResult{
			RecipientAddress: transfer.recipient.Hex(),
			Amount:           utils.FormatTokenAmount(transfer.amount, s.decimals),
		}
		tx, err := s.hubCall(ctx, "transfer", transfer.recipient, transfer.amount)
		if tx != nil {
			result.TransactionHash = tx.TxHash.Hex()
		}
		if err != nil {
			status = models.StepStatusFailed
			result.Status = models.StepStatusFailed
			result.Error = err.Error()
			s.logger.Error("allocation transfer failed", zap.String("recipient", result.RecipientAddress), zap.Error(err))
			s.failHubStep(ctx, fmt.Sprintf("allocation transfer to %s failed: %s", result.RecipientAddress, err), nil)
		} else {
			result.Status = models.StepStatusCompleted
		}
		results = append(results, result)
	}
	s.setAllocation(ctx, status, results)
}

func (s *saga) setAllocation(ctx context.Context, status models.StepStatus, results models.AllocationResults) {
	s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
		d.AllocationStatus = status
		d.AllocationResults = results
		return map[string]any{"allocation_status": status, "allocation_results": results}
	})
	s.o.metrics.Step(stepAllocation, string(status))
}

func (s *saga) transferOwnership(ctx context.Context) {
	owner := common.HexToAddress(s.spec.FinalOwnerAddress)

	if _, err := s.hubCall(ctx, "transferOwnership", owner); err != nil {
		s.logger.Error("hub ownership transfer failed", zap.Error(err))
		s.failHubStep(ctx, "transferOwnership failed: "+err.Error(), func(d *models.UniversalDeployment) map[string]any {
			d.HubOwnershipStatus = models.StepStatusFailed
			return map[string]any{"hub_ownership_status": d.HubOwnershipStatus}
		})
		s.o.metrics.Step(stepHubOwnership, string(models.StepStatusFailed))
	} else {
		s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
			d.HubOwnershipStatus = models.StepStatusCompleted
			return map[string]any{"hub_ownership_status": d.HubOwnershipStatus}
		})
		s.o.metrics.Step(stepHubOwnership, string(models.StepStatusCompleted))
	}

	s.forEachSpoke(ctx, func(ctx context.Context, chainID int64) {
		sp := s.spokeSnapshot(chainID)
		if sp.SetupStatus != models.StepStatusCompleted {
			s.updateSpoke(ctx, chainID, func(sp *models.SpokeDeployment) map[string]any {
				sp.OwnershipStatus = models.StepStatusSkipped
				return map[string]any{"ownership_status": sp.OwnershipStatus}
			})
			s.o.metrics.Step(stepSpokeOwnership, string(models.StepStatusSkipped))
			return
		}

		if _, err := s.spokeCall(ctx, chainID, sp.ProxyAddress, "transferOwnership", owner); err != nil {
			s.failSpoke(ctx, chainID, "transferOwnership failed: "+err.Error(), func(sp *models.SpokeDeployment) map[string]any {
				sp.OwnershipStatus = models.StepStatusFailed
				return map[string]any{"ownership_status": sp.OwnershipStatus}
			})
			s.o.metrics.Step(stepSpokeOwnership, string(models.StepStatusFailed))
			return
		}
		s.updateSpoke(ctx, chainID, func(sp *models.SpokeDeployment) map[string]any {
			sp.OwnershipStatus = models.StepStatusCompleted
			return map[string]any{"ownership_status": sp.OwnershipStatus}
		})
		s.o.metrics.Step(stepSpokeOwnership, string(models.StepStatusCompleted))
	})
}

func (s *saga) finalize(ctx context.Context) {
	var status models.DeploymentStatus
	s.update(ctx, func(d *models.UniversalDeployment) map[string]any {
		status = Consolidate(d)
		now := time.Now()
		d.OverallStatus = status
		d.CompletedAt = &now
		return map[string]any{"overall_status": status, "completed_at": now}
	})
	s.o.metrics.DeploymentFinished(string(status))
	s.logger.Info("universal deployment finished", zap.String("status", string(status)))
}

func (s *saga) spokeIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, len(s.record.Spokes))
	for i, sp := range s.record.Spokes {
		ids[i] = sp.ChainID
	}
	return ids
}

func (s *saga) spokeSnapshot(chainID int64) models.SpokeDeployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp := s.record.Spoke(chainID); sp != nil {
		return *sp
	}
	return models.SpokeDeployment{}
}

// snapshot copies the record so callers never share memory with the saga
func (s *saga) snapshot() *models.UniversalDeployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.record
	cp.ChainIDs = append([]int64(nil), s.record.ChainIDs...)
	cp.Allocations = append([]models.Allocation(nil), s.record.Allocations...)
	cp.AllocationResults = append(models.AllocationResults(nil), s.record.AllocationResults...)
	cp.Spokes = append([]models.SpokeDeployment(nil), s.record.Spokes...)
	return &cp
}
