package main

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rxtech-lab/universal-launchpad/internal/api"
	"github.com/rxtech-lab/universal-launchpad/internal/config"
	"github.com/rxtech-lab/universal-launchpad/internal/server"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type StdioServerTestSuite struct {
	suite.Suite
	dbService services.DBService
	svc       *server.Services
	apiServer *api.APIServer
	port      int
}

func (suite *StdioServerTestSuite) SetupSuite() {
	dbService, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.dbService = dbService

	cfg := &config.Config{
		HubChainIDs:         []int64{7001},
		ReceiptMaxRetries:   1,
		ReceiptPollInterval: 10 * time.Millisecond,
		WorkerCount:         1,
		TaskBufferSize:      1,
		SpokeConcurrency:    1,
	}

	svc, apiServer, port, err := configureAndStartServer(cfg, dbService, 0, zap.NewNop())
	suite.Require().NoError(err)
	suite.Require().NotZero(port, "Port should not be 0")

	suite.svc = svc
	suite.apiServer = apiServer
	suite.port = port

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)
}

func (suite *StdioServerTestSuite) TearDownSuite() {
	if suite.apiServer != nil {
		suite.apiServer.Shutdown()
	}
	if suite.svc != nil {
		suite.svc.Shutdown(context.Background())
	}
	if suite.dbService != nil {
		suite.dbService.Close()
	}
}

func (suite *StdioServerTestSuite) TestStatusRoutesAccessible() {
	client := &http.Client{Timeout: 10 * time.Second}

	testRoutes := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/chains", http.StatusOK},
		{"/api/deployments", http.StatusOK},
		{"/api/deployments/missing", http.StatusNotFound},
	}

	for _, route := range testRoutes {
		resp, err := client.Get(suite.getBaseURL() + route.path)
		suite.Require().NoError(err)
		resp.Body.Close()
		suite.Equal(route.status, resp.StatusCode, "Route %s", route.path)
	}
}

func (suite *StdioServerTestSuite) TestMCPServerAttachedButNotServedOverHTTP() {
	suite.NotNil(suite.apiServer.GetMCPServer())

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(suite.getBaseURL()+"/mcp", "application/json", nil)
	suite.Require().NoError(err)
	resp.Body.Close()
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *StdioServerTestSuite) getBaseURL() string {
	return fmt.Sprintf("http://localhost:%d", suite.port)
}

func TestStdioServerTestSuite(t *testing.T) {
	suite.Run(t, new(StdioServerTestSuite))
}
