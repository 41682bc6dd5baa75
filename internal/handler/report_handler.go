package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/service"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/response"
)

type reportingService interface {
	Statistics(ctx context.Context, caller *models.JWTClaims) (*models.Statistics, error)
	Export(ctx context.Context, caller *models.JWTClaims, rawKind string, query dto.ExportQuery) (*service.ExportFile, error)
}

// ReportHandler exposes statistics and exports.
type ReportHandler struct {
	service reportingService
}

// NewReportHandler builds a new handler.
func NewReportHandler(service reportingService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Statistics godoc
// @Summary Request counts per status
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /statistics [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export requests as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param type path string true "visit or internship"
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Router /exports/{type} [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), claimsFromContext(c), c.Param("type"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, int64(len(file.Data)), bytes.NewReader(file.Data))
}
