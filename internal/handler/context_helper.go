package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/visit-intake-api/internal/middleware"
	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/service"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}

// formUpload opens the multipart file in field. A missing field yields a nil
// upload so the service can report which document is required.
func formUpload(c *gin.Context, field string) (*service.DocumentUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*service.DocumentUpload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, fmt.Sprintf("failed to read %s", header.Filename))
	}
	return &service.DocumentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}, func() { _ = file.Close() }, nil
}

func serveDownload(c *gin.Context, download *service.Download) {
	defer download.Content.Close()
	response.Attachment(c, download.Filename, download.ContentType, download.Size, download.Content)
}
