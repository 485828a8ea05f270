package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/universal-launchpad/internal/metrics"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/orchestrator"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/taskmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubLauncher struct {
	specs []models.DeploymentSpec
	err   error
}

func (l *stubLauncher) Launch(ctx context.Context, spec models.DeploymentSpec) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.specs = append(l.specs, spec)
	return "dep-1", nil
}

type APIServerTestSuite struct {
	suite.Suite
	dbService services.DBService
	store     services.DeploymentStore
	registry  services.ChainRegistry
	launcher  *stubLauncher
	server    *APIServer
}

func (suite *APIServerTestSuite) SetupTest() {
	db, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.dbService = db
	suite.store = services.NewDeploymentStore(db.GetDB())
	suite.registry = services.NewChainRegistry(db.GetDB())

	ctx := context.Background()
	suite.Require().NoError(suite.registry.Upsert(ctx, &models.Chain{
		ChainID: 7001, Name: "ZetaChain Athens", RPC: "http://localhost:8545", IsHub: true, Testnet: true, Enabled: true,
	}))
	suite.Require().NoError(suite.registry.Upsert(ctx, &models.Chain{
		ChainID: 1, Name: "Ethereum", RPC: "http://localhost:8546", Enabled: true,
	}))

	reg := prometheus.NewRegistry()
	metrics.New(reg).DeploymentFinished(string(models.DeploymentStatusCompleted))

	suite.launcher = &stubLauncher{}
	suite.server = NewAPIServer(suite.launcher, suite.store, suite.registry, reg, nil)
	suite.server.SetupRoutes()
}

func (suite *APIServerTestSuite) TearDownTest() {
	suite.dbService.Close()
}

func (suite *APIServerTestSuite) do(method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := suite.server.GetFiberApp().Test(req, -1)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp.StatusCode, data
}

func validSpec() map[string]any {
	return map[string]any{
		"kind":                "token",
		"name":                "Universal",
		"symbol":              "UNI",
		"total_supply":        "1000",
		"chain_ids":           []int64{7001},
		"final_owner_address": "0x00000000000000000000000000000000000000f1",
	}
}

func (suite *APIServerTestSuite) TestCreateDeploymentAccepted() {
	status, body := suite.do(http.MethodPost, "/api/deployments", validSpec())
	suite.Equal(http.StatusAccepted, status)

	var response createDeploymentResponse
	suite.Require().NoError(json.Unmarshal(body, &response))
	suite.Equal("dep-1", response.DeploymentID)
	suite.Equal(models.DeploymentStatusPending, response.Status)

	suite.Require().Len(suite.launcher.specs, 1)
	suite.Equal([]int64{7001}, suite.launcher.specs[0].ChainIDs)
}

func (suite *APIServerTestSuite) TestCreateDeploymentRejected() {
	missingOwner := validSpec()
	delete(missingOwner, "final_owner_address")
	badKind := validSpec()
	badKind["kind"] = "coin"
	noChains := validSpec()
	noChains["chain_ids"] = []int64{}

	for name, spec := range map[string]map[string]any{
		"missing owner": missingOwner,
		"bad kind":      badKind,
		"no chains":     noChains,
	} {
		suite.Run(name, func() {
			status, body := suite.do(http.MethodPost, "/api/deployments", spec)
			suite.Equal(http.StatusBadRequest, status)
			suite.Contains(string(body), "invalid deployment spec")
		})
	}
	suite.Empty(suite.launcher.specs)

	req := httptest.NewRequest(http.MethodPost, "/api/deployments", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := suite.server.GetFiberApp().Test(req, -1)
	suite.Require().NoError(err)
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (suite *APIServerTestSuite) TestCreateDeploymentLaunchErrors() {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &orchestrator.ValidationError{Field: "chain_ids", Reason: "chain 5 is not registered"}, http.StatusBadRequest},
		{"configuration", &orchestrator.ConfigurationError{ChainID: 7001, Reason: "hub has no router address"}, http.StatusUnprocessableEntity},
		{"queue full", taskmanager.ErrQueueFull, http.StatusServiceUnavailable},
		{"stopped", taskmanager.ErrStopped, http.StatusServiceUnavailable},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.launcher.err = tt.err
			status, _ := suite.do(http.MethodPost, "/api/deployments", validSpec())
			suite.Equal(tt.status, status)
		})
	}
}

func (suite *APIServerTestSuite) TestGetAndListDeployments() {
	ctx := context.Background()
	_, err := suite.store.Create(ctx, &models.UniversalDeployment{
		ID:                "dep-42",
		Kind:              models.AssetKindToken,
		Name:              "Universal",
		Symbol:            "UNI",
		ChainIDs:          []int64{7001, 1},
		FinalOwnerAddress: "0x00000000000000000000000000000000000000f1",
		OverallStatus:     models.DeploymentStatusPartial,
		Spokes:            []models.SpokeDeployment{{ChainID: 1, DeployStatus: models.StepStatusFailed}},
	})
	suite.Require().NoError(err)

	status, body := suite.do(http.MethodGet, "/api/deployments/dep-42", nil)
	suite.Equal(http.StatusOK, status)
	var got models.UniversalDeployment
	suite.Require().NoError(json.Unmarshal(body, &got))
	suite.Equal(models.DeploymentStatusPartial, got.OverallStatus)
	suite.Require().Len(got.Spokes, 1)
	suite.Equal(models.StepStatusFailed, got.Spokes[0].DeployStatus)

	status, _ = suite.do(http.MethodGet, "/api/deployments/missing", nil)
	suite.Equal(http.StatusNotFound, status)

	status, body = suite.do(http.MethodGet, "/api/deployments?limit=10", nil)
	suite.Equal(http.StatusOK, status)
	var list struct {
		Deployments []models.UniversalDeployment `json:"deployments"`
		Limit       int                          `json:"limit"`
	}
	suite.Require().NoError(json.Unmarshal(body, &list))
	suite.Len(list.Deployments, 1)
	suite.Equal(10, list.Limit)

	status, _ = suite.do(http.MethodGet, "/api/deployments?limit=1000", nil)
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *APIServerTestSuite) TestListChains() {
	status, body := suite.do(http.MethodGet, "/api/chains", nil)
	suite.Equal(http.StatusOK, status)
	var response struct {
		Chains []models.ChainTarget `json:"chains"`
		Total  int                  `json:"total"`
	}
	suite.Require().NoError(json.Unmarshal(body, &response))
	suite.Equal(2, response.Total)

	status, body = suite.do(http.MethodGet, "/api/chains?network=mainnet", nil)
	suite.Equal(http.StatusOK, status)
	suite.Require().NoError(json.Unmarshal(body, &response))
	suite.Require().Len(response.Chains, 1)
	suite.Equal(int64(1), response.Chains[0].ChainID)
	suite.Equal(models.ChainRoleSpoke, response.Chains[0].Role)

	status, _ = suite.do(http.MethodGet, "/api/chains?network=devnet", nil)
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *APIServerTestSuite) TestHealthAndMetrics() {
	status, body := suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, status)
	suite.JSONEq(`{"status":"ok"}`, string(body))

	status, body = suite.do(http.MethodGet, "/metrics", nil)
	suite.Equal(http.StatusOK, status)
	suite.Contains(string(body), `launchpad_universal_deployments_total{status="completed"} 1`)
}

func (suite *APIServerTestSuite) TestEnableStreamableHttpRequiresMCPServer() {
	suite.Error(suite.server.EnableStreamableHttp())
}

func TestAPIServerTestSuite(t *testing.T) {
	suite.Run(t, new(APIServerTestSuite))
}

type requestKey struct{}

func TestDetachRequestContextEndsWithRequest(t *testing.T) {
	var captured context.Context
	handler := detachRequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Context()
		assert.NoError(t, captured.Err())
		w.WriteHeader(http.StatusNoContent)
	}))

	parent, cancel := context.WithCancel(context.WithValue(context.Background(), requestKey{}, "mcp"))
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil).WithContext(parent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, captured)
	assert.ErrorIs(t, captured.Err(), context.Canceled)
	assert.Equal(t, "mcp", captured.Value(requestKey{}))
	assert.NoError(t, parent.Err())
}
