package main

import (
	"context"
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

func configureAndStartServer(cfg *config.Config, dbService services.DBService, logger *zap.Logger) (*server.Services, *api.APIServer, int, error) {
	svc, err := server.InitializeServices(context.Background(), cfg, dbService, logger)
	if err != nil {
		return nil, nil, 0, err
	}

	apiServer := svc.NewAPIServer(logger.Named("api"))
	if err := apiServer.EnableStreamableHttp(); err != nil {
		return nil, nil, 0, err
	}

	port := cfg.Port
	startedPort, err := apiServer.Start(&port)
	if err != nil {
		return nil, nil, 0, err
	}
	return svc, apiServer, startedPort, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	dbService, err := server.OpenDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database service", zap.Error(err))
	}
	defer dbService.Close()

	svc, apiServer, port, err := configureAndStartServer(cfg, dbService, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to start API server", zap.Error(err))
	}
	zapLogger.Info("API server started", zap.Int("port", port))

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	zapLogger.Info("Shutting down server")

	if err := apiServer.Shutdown(); err != nil {
		zapLogger.Error("Error shutting down API server", zap.Error(err))
	}

	// running sagas get a grace period before their context is cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		zapLogger.Error("Deployments still running at shutdown", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
