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

type internshipService interface {
	Submit(ctx context.Context, req dto.SubmitInternshipRequest, uploads map[models.DocumentCategory]*service.DocumentUpload) (*models.InternshipRequest, error)
	Get(ctx context.Context, id int64) (*models.InternshipRequest, error)
	List(ctx context.Context, query dto.InternshipListQuery) ([]models.InternshipRequest, error)
	Transition(ctx context.Context, caller *models.JWTClaims, id int64, req dto.UpdateInternshipStatusRequest) (*models.InternshipRequest, error)
	Delete(ctx context.Context, caller *models.JWTClaims, id int64) error
	DownloadDocument(ctx context.Context, caller *models.JWTClaims, id int64, rawCategory string) (*service.Download, error)
}

// internshipUploadFields maps multipart field names to document categories.
var internshipUploadFields = map[string]models.DocumentCategory{
	"coverLetter": models.DocumentCoverLetter,
	"cv":          models.DocumentCV,
	"transcript":  models.DocumentTranscript,
	"studentCard": models.DocumentStudentCard,
	"idPhoto":     models.DocumentIDPhoto,
}

// InternshipHandler exposes internship application endpoints.
type InternshipHandler struct {
	service internshipService
}

// NewInternshipHandler builds a new handler.
func NewInternshipHandler(service internshipService) *InternshipHandler {
	return &InternshipHandler{service: service}
}

// Submit godoc
// @Summary Apply for an internship
// @Tags Internships
// @Accept multipart/form-data
// @Produce json
// @Param fullName formData string true "Full name"
// @Param email formData string true "E-mail"
// @Param studentNumber formData string true "Student number"
// @Param startDate formData string true "Start date (YYYY-MM-DD)"
// @Param endDate formData string true "End date (YYYY-MM-DD)"
// @Param coverLetter formData file true "Cover letter (PDF)"
// @Param cv formData file true "CV (PDF)"
// @Param transcript formData file true "Transcript"
// @Param studentCard formData file true "Student card"
// @Param idPhoto formData file true "ID photo"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /internships [post]
func (h *InternshipHandler) Submit(c *gin.Context) {
	var req dto.SubmitInternshipRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid internship payload"))
		return
	}

	uploads := make(map[models.DocumentCategory]*service.DocumentUpload, len(internshipUploadFields))
	for field, category := range internshipUploadFields {
		upload, closeUpload, err := formUpload(c, field)
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeUpload()
		if upload != nil {
			uploads[category] = upload
		}
	}

	application, err := h.service.Submit(c.Request.Context(), req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.InternshipSubmission{
		ID:      application.ID,
		Status:  string(application.Status),
		Message: "Your internship application has been received and is waiting for review.",
	})
}

// List godoc
// @Summary List internship applications
// @Tags Internships
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /internships [get]
func (h *InternshipHandler) List(c *gin.Context) {
	var query dto.InternshipListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	if status := c.Param("status"); status != "" {
		query.Status = status
	}
	items, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get an internship application
// @Tags Internships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /internships/{id} [get]
func (h *InternshipHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	application, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// UpdateStatus godoc
// @Summary Approve, reject or revert an application
// @Tags Internships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param payload body dto.UpdateInternshipStatusRequest true "Transition"
// @Success 200 {object} response.Envelope
// @Router /internships/{id}/status [put]
func (h *InternshipHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateInternshipStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	application, err := h.service.Transition(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Delete godoc
// @Summary Delete an internship application
// @Tags Internships
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 204
// @Router /internships/{id} [delete]
func (h *InternshipHandler) Delete(c *gin.Context) {
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
// @Summary Download an application document
// @Tags Internships
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param category path string true "cover_letter, cv, transcript, student_card or id_photo"
// @Success 200 {file} file
// @Router /internships/{id}/documents/{category} [get]
func (h *InternshipHandler) Document(c *gin.Context) {
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
