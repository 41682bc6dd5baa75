package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/response"
)

type statusService interface {
	Check(ctx context.Context, req dto.StatusCheckRequest) (*models.StatusLookup, error)
}

// StatusHandler lets applicants look up their latest request.
type StatusHandler struct {
	service statusService
}

// NewStatusHandler builds a new handler.
func NewStatusHandler(service statusService) *StatusHandler {
	return &StatusHandler{service: service}
}

// Check godoc
// @Summary Check the status of a visit or internship request
// @Tags Status
// @Accept json
// @Produce json
// @Param payload body dto.StatusCheckRequest true "Lookup"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /status-check [post]
func (h *StatusHandler) Check(c *gin.Context) {
	var req dto.StatusCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status check payload"))
		return
	}
	lookup, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lookup, nil)
}
