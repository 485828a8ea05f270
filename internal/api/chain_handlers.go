package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"go.uber.org/zap"
)

// handleListChains lists enabled chains, optionally only testnets or mainnets
func (s *APIServer) handleListChains(c *fiber.Ctx) error {
	network := c.Query("network", string(models.NetworkFilterAll))
	if err := s.validator.Var(network, "oneof=all testnet mainnet"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "network must be one of all, testnet, mainnet"})
	}

	chains, err := s.registry.ListEnabled(c.UserContext(), models.NetworkFilter(network))
	if err != nil {
		s.logger.Error("failed to list chains", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to list chains"})
	}
	return c.JSON(fiber.Map{
		"chains": chains,
		"total":  len(chains),
	})
}
