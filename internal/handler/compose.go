package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sceneforge/api/internal/ledger"
	"github.com/sceneforge/api/internal/model"
	"github.com/sceneforge/api/internal/service"
	"github.com/sceneforge/api/pkg/response"
)

type ComposeHandler struct {
	service   *service.ComposeService
	validator *validator.Validate
}

func NewComposeHandler(svc *service.ComposeService, v *validator.Validate) *ComposeHandler {
	return &ComposeHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/compose/start
func (h *ComposeHandler) Start(c *fiber.Ctx) error {
	var req model.ComposeStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartComposition(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/compose/status/:jobId
func (h *ComposeHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
