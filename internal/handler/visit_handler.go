package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/service"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/response"
)

type visitService interface {
	CheckAvailability(ctx context.Context, rawDate string) (*models.Availability, error)
	Submit(ctx context.Context, req dto.SubmitVisitRequest, intro *service.DocumentUpload) (*models.VisitRequest, error)
	Get(ctx context.Context, id int64) (*models.VisitRequest, error)
	List(ctx context.Context, query dto.VisitListQuery) ([]models.VisitRequest, error)
	Transition(ctx context.Context, caller *models.JWTClaims, id int64, req dto.UpdateVisitStatusRequest, letter *service.DocumentUpload) (*models.VisitRequest, error)
	Reschedule(ctx context.Context, caller *models.JWTClaims, id int64, req dto.RescheduleVisitRequest) (*models.VisitRequest, error)
	Delete(ctx context.Context, caller *models.JWTClaims, id int64) error
	DownloadDocument(ctx context.Context, caller *models.JWTClaims, id int64, rawCategory string) (*service.Download, error)
	OpenSignedResponseLetter(ctx context.Context, id int64, token string) (*service.Download, error)
}

// VisitHandler exposes visit booking and review endpoints.
type VisitHandler struct {
	service visitService
}

// NewVisitHandler builds a new handler.
func NewVisitHandler(service visitService) *VisitHandler {
	return &VisitHandler{service: service}
}

// Availability godoc
// @Summary Check session availability for a date
// @Tags Visits
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /visits/availability/{date} [get]
func (h *VisitHandler) Availability(c *gin.Context) {
	availability, err := h.service.CheckAvailability(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Submit godoc
// @Summary Book a visit
// @Tags Visits
// @Accept multipart/form-data
// @Produce json
// @Param organizationName formData string true "Organization name"
// @Param contactPerson formData string true "Contact person"
// @Param email formData string true "E-mail"
// @Param phone formData string true "Phone"
// @Param participantCount formData int true "Participants"
// @Param visitDate formData string true "Date (YYYY-MM-DD)"
// @Param session formData string true "SESSION_1 or SESSION_2"
// @Param introductionLetter formData file false "Introduction letter"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /visits [post]
func (h *VisitHandler) Submit(c *gin.Context) {
	var req dto.SubmitVisitRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid visit payload"))
		return
	}
	intro, closeIntro, err := formUpload(c, "introductionLetter")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeIntro()

	visit, err := h.service.Submit(c.Request.Context(), req, intro)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.VisitSubmission{
		ID:        visit.ID,
		Status:    string(visit.Status),
		VisitDate: visit.DateString(),
		Session:   string(visit.Session),
		Message:   "Your visit request has been received and is waiting for review.",
	})
}

// List godoc
// @Summary List visit requests
// @Tags Visits
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, ACCEPTED or REJECTED"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /visits [get]
func (h *VisitHandler) List(c *gin.Context) {
	var query dto.VisitListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	if status := c.Param("status"); status != "" {
		query.Status = status
	}
	visits, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visits, nil)
}

// Get godoc
// @Summary Get a visit request
// @Tags Visits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Visit ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /visits/{id} [get]
func (h *VisitHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	visit, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// UpdateStatus godoc
// @Summary Accept, reject or revert a visit
// @Tags Visits
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Visit ID"
// @Param status formData string true "PENDING, ACCEPTED or REJECTED"
// @Param reason formData string false "Rejection reason"
// @Param responseLetter formData file false "Response letter, required to accept"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /visits/{id}/status [put]
func (h *VisitHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateVisitStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	var letter *service.DocumentUpload
	if c.ContentType() == "multipart/form-data" {
		upload, closeLetter, err := formUpload(c, "responseLetter")
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeLetter()
		letter = upload
	}

	visit, err := h.service.Transition(c.Request.Context(), claimsFromContext(c), id, req, letter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// Reschedule godoc
// @Summary Move a visit to another date or session
// @Tags Visits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Visit ID"
// @Param payload body dto.RescheduleVisitRequest true "New slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /visits/{id}/schedule [patch]
func (h *VisitHandler) Reschedule(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RescheduleVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	visit, err := h.service.Reschedule(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// Delete godoc
// @Summary Delete a visit request
// @Tags Visits
// @Security BearerAuth
// @Param id path int true "Visit ID"
// @Success 204
// @Router /visits/{id} [delete]
func (h *VisitHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Document godoc
// @Summary Download a visit document
// @Tags Visits
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path int true "Visit ID"
// @Param category path string true "introduction_letter or response_letter"
// @Success 200 {file} file
// @Router /visits/{id}/documents/{category} [get]
func (h *VisitHandler) Document(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	download, err := h.service.DownloadDocument(c.Request.Context(), claimsFromContext(c), id, c.Param("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, download)
}

// SignedResponseLetter godoc
// @Summary Download a response letter through a signed link
// @Tags Documents
// @Produce application/octet-stream
// @Param id path int true "Visit ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/visit-response/{id} [get]
func (h *VisitHandler) SignedResponseLetter(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	download, err := h.service.OpenSignedResponseLetter(c.Request.Context(), id, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, download)
}
