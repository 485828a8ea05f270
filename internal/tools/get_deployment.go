package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
)

func NewGetDeploymentTool(store services.DeploymentStore) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_deployment",
		mcp.WithDescription("Get the current state of a universal deployment: overall status, hub and per-spoke contract addresses, step statuses, allocation results and accumulated errors."),
		mcp.WithString("deployment_id",
			mcp.Required(),
			mcp.Description("ID returned by deploy_universal_asset"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("deployment_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		deployment, err := store.Get(ctx, id)
		if errors.Is(err, services.ErrDeploymentNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Deployment %s not found", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error retrieving deployment: %v", err)), nil
		}

		responseJSON, _ := json.MarshalIndent(deployment, "", "  ")
		return mcp.NewToolResultText(string(responseJSON)), nil
	}

	return tool, handler
}
