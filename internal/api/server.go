package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/universal-launchpad/internal/mcp"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"go.uber.org/zap"
)

// Launcher starts a universal deployment in the background. *orchestrator.Launcher implements it.
type Launcher interface {
	Launch(ctx context.Context, spec models.DeploymentSpec) (string, error)
}

type APIServer struct {
	app       *fiber.App
	launcher  Launcher
	store     services.DeploymentStore
	registry  services.ChainRegistry
	gatherer  prometheus.Gatherer
	validator *validator.Validate
	logger    *zap.Logger
	mcpServer *mcp.MCPServer
	port      int
}

func NewAPIServer(launcher Launcher, store services.DeploymentStore, registry services.ChainRegistry, gatherer prometheus.Gatherer, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Add middleware
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger(logger))

	return &APIServer{
		app:       app,
		launcher:  launcher,
		store:     store,
		registry:  registry,
		gatherer:  gatherer,
		validator: validator.New(),
		logger:    logger,
	}
}

func (s *APIServer) SetupRoutes() {
	s.app.Post("/api/deployments", s.handleCreateDeployment)
	s.app.Get("/api/deployments", s.handleListDeployments)
	s.app.Get("/api/deployments/:id", s.handleGetDeployment)

	s.app.Get("/api/chains", s.handleListChains)

	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	// Health check
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
}

// EnableStreamableHttp serves the MCP tools over streamable HTTP at /mcp
func (s *APIServer) EnableStreamableHttp() error {
	if s.mcpServer == nil {
		return fmt.Errorf("mcp server is not set")
	}
	handler := adaptor.HTTPHandler(detachRequestContext(s.mcpServer.StreamableHTTPHandler()))
	s.app.All("/mcp", handler)
	s.app.All("/mcp/*", handler)
	return nil
}

// detachRequestContext gives next a context that ends with the request. The adaptor's
// context is the fasthttp RequestCtx, whose Done must not be read once the request returned.
func detachRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start listens on port, or on a random free port when port is nil or zero
func (s *APIServer) Start(port *int) (int, error) {
	addr := ":0"
	if port != nil && *port != 0 {
		addr = fmt.Sprintf(":%d", *port)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := s.app.Listener(listener); err != nil {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()

	return s.port, nil
}

func (s *APIServer) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

func (s *APIServer) GetPort() int {
	return s.port
}

func (s *APIServer) GetFiberApp() *fiber.App {
	return s.app
}

// SetMCPServer sets the MCP server instance served by EnableStreamableHttp
func (s *APIServer) SetMCPServer(mcpServer *mcp.MCPServer) {
	s.mcpServer = mcpServer
}

// GetMCPServer returns the MCP server instance
func (s *APIServer) GetMCPServer() *mcp.MCPServer {
	return s.mcpServer
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}
