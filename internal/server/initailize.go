package server

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rxtech-lab/universal-launchpad/internal/api"
	"github.com/rxtech-lab/universal-launchpad/internal/chain"
	"github.com/rxtech-lab/universal-launchpad/internal/config"
	"github.com/rxtech-lab/universal-launchpad/internal/contracts"
	"github.com/rxtech-lab/universal-launchpad/internal/hooks"
	"github.com/rxtech-lab/universal-launchpad/internal/mcp"
	"github.com/rxtech-lab/universal-launchpad/internal/metrics"
	"github.com/rxtech-lab/universal-launchpad/internal/orchestrator"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/signer"
	"github.com/rxtech-lab/universal-launchpad/internal/taskmanager"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is everything a process needs to accept and run deployments
type Services struct {
	DB           services.DBService
	Registry     services.ChainRegistry
	Store        services.DeploymentStore
	Hooks        services.HookService
	Gatherer     prometheus.Gatherer
	TaskManager  *taskmanager.TaskManager
	Orchestrator *orchestrator.Orchestrator
	Launcher     *orchestrator.Launcher
}

// OpenDatabase connects to postgres when POSTGRES_URL is set and to sqlite otherwise
func OpenDatabase(cfg *config.Config) (services.DBService, error) {
	if cfg.PostgresURL != "" {
		return services.NewPostgresDBService(cfg.PostgresURL)
	}
	return services.NewSqliteDBService(cfg.SqlitePath)
}

// InitializeServices wires the registry, store, chain client and orchestrator on top of db.
// The task manager is started; call Shutdown to drain it.
func InitializeServices(ctx context.Context, cfg *config.Config, db services.DBService, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := services.NewChainRegistry(db.GetDB())
	if cfg.ChainRegistryFile != "" {
		n, err := registry.LoadFromYAML(ctx, cfg.ChainRegistryFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed chain registry: %w", err)
		}
		logger.Info("chain registry seeded", zap.String("file", cfg.ChainRegistryFile), zap.Int("chains", n))
	}

	artifacts, err := contracts.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	if cfg.ContractArtifactsDir != "" {
		n, err := artifacts.LoadFromDirectory(cfg.ContractArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load contract artifacts: %w", err)
		}
		logger.Info("contract artifacts loaded", zap.String("dir", cfg.ContractArtifactsDir), zap.Int("artifacts", n))
	} else {
		logger.Warn("CONTRACT_ARTIFACTS_DIR is not set; deployments will fail until bytecode is available")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hookService := services.NewHookService()
	if err := RegisterHooks(hookService, InitializeHooks(db.GetDB())...); err != nil {
		return nil, err
	}

	client := chain.NewClient(chain.Config{
		ReceiptMaxRetries:   cfg.ReceiptMaxRetries,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
		FallbackGasLimit:    cfg.FallbackGasLimit,
	}, logger.Named("chain"), chain.WithMetrics(m))

	store := services.NewDeploymentStore(db.GetDB())
	orch := orchestrator.New(orchestrator.Dependencies{
		Registry:  registry,
		Store:     store,
		Client:    client,
		Signers:   signer.NewEnvProvider(cfg.ServicePrivateKey),
		Artifacts: artifacts,
		Evm:       services.NewEvmService(),
		Hooks:     hookService,
	}, orchestrator.Config{
		HubChainIDs:        cfg.HubChainIDs,
		CrossChainGasLimit: cfg.CrossChainGasLimit,
		ParallelSpokes:     cfg.ParallelSpokes,
		SpokeConcurrency:   cfg.SpokeConcurrency,
	}, logger.Named("orchestrator"), m)

	tm := taskmanager.NewTaskManager(cfg.WorkerCount, cfg.TaskBufferSize, logger.Named("tasks"))
	tm.Start()

	launcher := orchestrator.NewLauncher(orch, tm, logger.Named("launcher"))
	if _, err := launcher.ResumePending(ctx); err != nil {
		logger.Warn("not every pending deployment could be queued; the rest resume on next start", zap.Error(err))
	}

	return &Services{
		DB:           db,
		Registry:     registry,
		Store:        store,
		Hooks:        hookService,
		Gatherer:     reg,
		TaskManager:  tm,
		Orchestrator: orch,
		Launcher:     launcher,
	}, nil
}

func InitializeHooks(db *gorm.DB) []services.Hook {
	return []services.Hook{
		hooks.NewVerificationHook(db),
	}
}

func RegisterHooks(hookService services.HookService, deployHooks ...services.Hook) error {
	for _, hook := range deployHooks {
		if err := hookService.AddHook(hook); err != nil {
			return fmt.Errorf("failed to register hook: %w", err)
		}
	}
	return nil
}

// NewAPIServer builds the HTTP server with the MCP tools attached
func (s *Services) NewAPIServer(logger *zap.Logger) *api.APIServer {
	apiServer := api.NewAPIServer(s.Launcher, s.Store, s.Registry, s.Gatherer, logger)
	apiServer.SetupRoutes()
	apiServer.SetMCPServer(s.NewMCPServer())
	return apiServer
}

func (s *Services) NewMCPServer() *mcp.MCPServer {
	return mcp.NewMCPServer(s.Launcher, s.Store, s.Registry)
}

// Shutdown stops accepting deployments and waits for running sagas and their hooks until ctx expires
func (s *Services) Shutdown(ctx context.Context) error {
	if err := s.TaskManager.Stop(ctx); err != nil {
		return err
	}
	return s.Orchestrator.WaitForHooks(ctx)
}
