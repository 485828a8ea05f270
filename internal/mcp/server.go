package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/tools"
)

type MCPServer struct {
	server *server.MCPServer
}

func NewMCPServer(launcher tools.Launcher, store services.DeploymentStore, registry services.ChainRegistry) *MCPServer {
	mcpServer := &MCPServer{}
	mcpServer.InitializeTools(launcher, store, registry)
	return mcpServer
}

func (s *MCPServer) InitializeTools(launcher tools.Launcher, store services.DeploymentStore, registry services.ChainRegistry) {
	srv := server.NewMCPServer(
		"Universal Launchpad MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv.AddPrompt(mcp.NewPrompt("universal-launchpad-usage",
		mcp.WithPromptDescription("Instructions and guidance for using the universal launchpad tools"),
		mcp.WithArgument("tool_category",
			mcp.ArgumentDescription("Category of tools to get instructions for (chain, deployment, or all)"),
			mcp.RequiredArgument(),
		),
	), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		category := request.Params.Arguments["tool_category"]
		if category == "" {
			return nil, fmt.Errorf("tool_category is required")
		}

		return mcp.NewGetPromptResult(
			fmt.Sprintf("Universal Launchpad Tools - %s", category),
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(
					mcp.RoleUser,
					mcp.NewTextContent(getToolInstructions(category)),
				),
			},
		), nil
	})

	// Chain Tools
	listChainsTool, listChainsHandler := tools.NewListChainsTool(registry)
	srv.AddTool(listChainsTool, listChainsHandler)

	// Deployment Tools
	deployTool, deployHandler := tools.NewDeployUniversalAssetTool(launcher)
	srv.AddTool(deployTool, deployHandler)

	getDeploymentTool, getDeploymentHandler := tools.NewGetDeploymentTool(store)
	srv.AddTool(getDeploymentTool, getDeploymentHandler)

	s.server = srv
}

func getToolInstructions(category string) string {
	switch category {
	case "chain":
		return `Chain Tools:

1. list_chains - List enabled chains with their role
   Usage: Pick exactly one hub (ZetaChain) and any number of spokes before deploying.
   Parameters:
   - network (optional): all, testnet or mainnet`

	case "deployment":
		return `Deployment Tools:

1. deploy_universal_asset - Deploy a universal token or NFT collection
   Usage: Deploys on the hub and every spoke, connects them, mints the supply,
   sends the allocations and transfers ownership. Returns a deployment ID at once.

2. get_deployment - Get the state of a deployment
   Usage: Poll until overall_status is completed, partial or failed.
   A partial deployment lists what failed per chain in error_message.`

	case "all":
		return `Universal Launchpad Tools Overview:

CHAIN (1 tool):
- list_chains: List hub and spoke chains

DEPLOYMENT (2 tools):
- deploy_universal_asset: Start a cross-chain deployment
- get_deployment: Follow a deployment

Transactions are signed by the service signer. Ownership of every contract
ends with final_owner_address.`

	default:
		return `Invalid category. Available categories: chain, deployment, all`
	}
}

// StartStdioServer serves the tools over stdio until stdin closes
func (s *MCPServer) StartStdioServer() error {
	return server.ServeStdio(s.server)
}

// StreamableHTTPHandler serves the tools over streamable HTTP
func (s *MCPServer) StreamableHTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.server)
}

// GetServer returns the underlying mcp-go server
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.server
}
