package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
)

func NewListChainsTool(registry services.ChainRegistry) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_chains",
		mcp.WithDescription("List the enabled chains a universal asset can be deployed to, with their role (hub or spoke)"),
		mcp.WithString("network",
			mcp.Description("Filter by network type. Optional, defaults to all."),
			mcp.Enum(string(models.NetworkFilterAll), string(models.NetworkFilterTestnet), string(models.NetworkFilterMainnet)),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		network := request.GetString("network", string(models.NetworkFilterAll))

		chains, err := registry.ListEnabled(ctx, models.NetworkFilter(network))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error listing chains: %v", err)), nil
		}

		var items []map[string]any
		for _, chain := range chains {
			items = append(items, map[string]any{
				"chain_id": chain.ChainID,
				"name":     chain.Name,
				"role":     chain.Role,
				"testnet":  chain.Testnet,
			})
		}

		response := map[string]any{
			"chains": items,
			"total":  len(items),
		}

		responseJSON, _ := json.MarshalIndent(response, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(string(responseJSON)),
			},
		}, nil
	}

	return tool, handler
}
