package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file if present
	"github.com/rxtech-lab/universal-launchpad/internal/api"
	"github.com/rxtech-lab/universal-launchpad/internal/config"
	"github.com/rxtech-lab/universal-launchpad/internal/logger"
	"github.com/rxtech-lab/universal-launchpad/internal/server"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"go.uber.org/zap"
)

// Build information (set via ldflags)
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// configureAndStartServer starts the status API on port (0 for a random port) next to the stdio tools
func configureAndStartServer(cfg *config.Config, dbService services.DBService, port int, logger *zap.Logger) (*server.Services, *api.APIServer, int, error) {
	svc, err := server.InitializeServices(context.Background(), cfg, dbService, logger)
	if err != nil {
		return nil, nil, 0, err
	}

	apiServer := svc.NewAPIServer(logger.Named("api"))
	startedPort, err := apiServer.Start(&port)
	if err != nil {
		return nil, nil, 0, err
	}
	return svc, apiServer, startedPort, nil
}

func main() {
	// Command line flags
	var showVersion = flag.Bool("version", false, "Show version information")
	var showHelp = flag.Bool("help", false, "Show help information")
	var enableLog = flag.Bool("log", false, "Enable logging output")
	flag.Parse()

	// stdout carries the MCP protocol
	if *showVersion {
		fmt.Fprintf(os.Stderr, "Universal Launchpad MCP Server\nVersion: %s\nCommit: %s\nBuilt: %s\n", Version, CommitHash, BuildTime)
		return
	}

	if *showHelp {
		fmt.Fprintf(os.Stderr, `Universal Launchpad MCP Server

Usage: %s [options]

Options:
  --version    Show version information
  --help       Show this help message
  --log        Enable logging output (stderr)

Description:
  Deploys upgradeable universal tokens and NFT collections on a ZetaChain hub
  and any number of spoke chains, connects them and hands over ownership.
  Provides 3 MCP tools: list_chains, deploy_universal_asset, get_deployment.

Database: SQLITE_PATH (default ~/universal-launchpad.db) or POSTGRES_URL
Status API: http://localhost:[random-port]
`, os.Args[0])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zapLogger := zap.NewNop()
	if *enableLog {
		zapLogger, err = logger.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			log.Fatal("Failed to initialize logger:", err)
		}
		defer zapLogger.Sync()
	}

	dbService, err := server.OpenDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer dbService.Close()

	svc, apiServer, port, err := configureAndStartServer(cfg, dbService, 0, zapLogger)
	if err != nil {
		log.Fatal("Failed to start API server:", err)
	}
	zapLogger.Info("API server started", zap.Int("port", port))

	mcpServer := apiServer.GetMCPServer()
	if mcpServer == nil {
		log.Fatal("MCP server not found")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// the client closing stdin ends the session like a signal does
	go func() {
		if err := mcpServer.StartStdioServer(); err != nil {
			zapLogger.Error("MCP stdio server stopped", zap.Error(err))
		}
		stop <- syscall.SIGTERM
	}()

	<-stop

	zapLogger.Info("Shutting down servers")

	if err := apiServer.Shutdown(); err != nil {
		zapLogger.Error("Error shutting down API server", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		zapLogger.Error("Deployments still running at shutdown", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
