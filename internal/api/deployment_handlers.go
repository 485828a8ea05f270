package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/orchestrator"
	"github.com/rxtech-lab/universal-launchpad/internal/services"
	"github.com/rxtech-lab/universal-launchpad/internal/taskmanager"
	"go.uber.org/zap"
)

const maxListLimit = 100

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type createDeploymentResponse struct {
	DeploymentID string                  `json:"deployment_id"`
	Status       models.DeploymentStatus `json:"status"`
}

// handleCreateDeployment validates the spec and queues the saga. It never waits for a chain.
func (s *APIServer) handleCreateDeployment(c *fiber.Ctx) error {
	var spec models.DeploymentSpec
	if err := c.BodyParser(&spec); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body: " + err.Error()})
	}

	if err := s.validator.Struct(spec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
			}
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid deployment spec", Fields: fields})
		}
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	id, err := s.launcher.Launch(c.UserContext(), spec)
	if err != nil {
		return s.launchError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(createDeploymentResponse{
		DeploymentID: id,
		Status:       models.DeploymentStatusPending,
	})
}

func (s *APIServer) launchError(c *fiber.Ctx, err error) error {
	var validationErr *orchestrator.ValidationError
	var configErr *orchestrator.ConfigurationError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	case errors.As(err, &configErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Error: err.Error()})
	case errors.Is(err, taskmanager.ErrQueueFull), errors.Is(err, taskmanager.ErrStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: err.Error()})
	default:
		s.logger.Error("failed to launch deployment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to launch deployment"})
	}
}

func (s *APIServer) handleGetDeployment(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	deployment, err := s.store.Get(c.UserContext(), id)
	if errors.Is(err, services.ErrDeploymentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "deployment not found"})
	}
	if err != nil {
		s.logger.Error("failed to get deployment", zap.String("deploymentId", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to get deployment"})
	}
	return c.JSON(deployment)
}

func (s *APIServer) handleListDeployments(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > maxListLimit || offset < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: fmt.Sprintf("limit must be 1-%d and offset not negative", maxListLimit)})
	}

	deployments, err := s.store.List(c.UserContext(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list deployments", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to list deployments"})
	}
	return c.JSON(fiber.Map{
		"deployments": deployments,
		"limit":       limit,
		"offset":      offset,
	})
}
