package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/orchestrator"
)

// Launcher queues a universal deployment and returns its ID
type Launcher interface {
	Launch(ctx context.Context, spec models.DeploymentSpec) (string, error)
}

type deployUniversalAssetTool struct {
	launcher  Launcher
	validator *validator.Validate
}

func NewDeployUniversalAssetTool(launcher Launcher) (mcp.Tool, server.ToolHandlerFunc) {
	t := &deployUniversalAssetTool{
		launcher:  launcher,
		validator: validator.New(),
	}
	return t.GetTool(), t.GetHandler()
}

func (t *deployUniversalAssetTool) GetTool() mcp.Tool {
	return mcp.NewTool("deploy_universal_asset",
		mcp.WithDescription("Deploy an upgradeable universal token or NFT collection on the ZetaChain hub and the selected spoke chains, connect them, mint the supply, send the initial allocations and hand ownership to the final owner. Returns a deployment ID immediately; poll it with get_deployment."),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Asset kind"),
			mcp.Enum(string(models.AssetKindToken), string(models.AssetKindNFT)),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Asset name"),
		),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Asset symbol"),
		),
		mcp.WithNumber("decimals",
			mcp.Description("Token decimals. Universal tokens always use 18, which is the default; other values are rejected."),
		),
		mcp.WithString("total_supply",
			mcp.Description("Token supply in human units (e.g. \"1000000\" or \"1.5\"), minted to the service signer on the hub. Empty or zero skips minting."),
		),
		mcp.WithString("base_uri",
			mcp.Description("NFT base URI"),
		),
		mcp.WithString("max_supply",
			mcp.Description("NFT maximum supply. Optional."),
		),
		mcp.WithArray("chain_ids",
			mcp.Required(),
			mcp.Description("Chain IDs to deploy on. Exactly one must be a ZetaChain hub; the rest are spokes."),
			mcp.Items(map[string]any{
				"type": "integer",
			}),
		),
		mcp.WithString("final_owner_address",
			mcp.Required(),
			mcp.Description("Address that owns every contract when the deployment finishes"),
		),
		mcp.WithArray("allocations",
			mcp.Description("Initial token transfers from the minted supply. Optional."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"recipient_address": map[string]any{
						"type":        "string",
						"description": "Recipient address",
					},
					"amount": map[string]any{
						"type":        "string",
						"description": "Amount in human units",
					},
				},
				"required": []string{"recipient_address", "amount"},
			}),
		),
	)
}

func (t *deployUniversalAssetTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var spec models.DeploymentSpec
		if err := request.BindArguments(&spec); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}

		if err := t.validator.Struct(spec); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		id, err := t.launcher.Launch(ctx, spec)
		if err != nil {
			var validationErr *orchestrator.ValidationError
			var configErr *orchestrator.ConfigurationError
			if errors.As(err, &validationErr) || errors.As(err, &configErr) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to start deployment: %v", err)), nil
		}

		response := map[string]any{
			"deployment_id": id,
			"status":        models.DeploymentStatusPending,
			"message":       "Deployment started. Use get_deployment to follow its progress.",
		}
		responseJSON, _ := json.MarshalIndent(response, "", "  ")
		return mcp.NewToolResultText(string(responseJSON)), nil
	}
}
