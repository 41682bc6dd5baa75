package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/service"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

type visitServiceMock struct {
	availability *models.Availability
	visit        *models.VisitRequest
	visits       []models.VisitRequest
	download     *service.Download
	err          error

	gotDate     string
	gotSubmit   dto.SubmitVisitRequest
	gotUpload   string
	gotContent  string
	gotQuery    dto.VisitListQuery
	gotStatus   dto.UpdateVisitStatusRequest
	gotSchedule dto.RescheduleVisitRequest
	gotID       int64
	gotToken    string
	gotCategory string
}

func (m *visitServiceMock) CheckAvailability(ctx context.Context, rawDate string) (*models.Availability, error) {
	m.gotDate = rawDate
	return m.availability, m.err
}

func (m *visitServiceMock) Submit(ctx context.Context, req dto.SubmitVisitRequest, intro *service.DocumentUpload) (*models.VisitRequest, error) {
	m.gotSubmit = req
	m.readUpload(intro)
	return m.visit, m.err
}

func (m *visitServiceMock) Get(ctx context.Context, id int64) (*models.VisitRequest, error) {
	m.gotID = id
	return m.visit, m.err
}

func (m *visitServiceMock) List(ctx context.Context, query dto.VisitListQuery) ([]models.VisitRequest, error) {
	m.gotQuery = query
	return m.visits, m.err
}

func (m *visitServiceMock) Transition(ctx context.Context, caller *models.JWTClaims, id int64, req dto.UpdateVisitStatusRequest, letter *service.DocumentUpload) (*models.VisitRequest, error) {
	m.gotID = id
	m.gotStatus = req
	m.readUpload(letter)
	return m.visit, m.err
}

func (m *visitServiceMock) Reschedule(ctx context.Context, caller *models.JWTClaims, id int64, req dto.RescheduleVisitRequest) (*models.VisitRequest, error) {
	m.gotID = id
	m.gotSchedule = req
	return m.visit, m.err
}

func (m *visitServiceMock) Delete(ctx context.Context, caller *models.JWTClaims, id int64) error {
	m.gotID = id
	return m.err
}

func (m *visitServiceMock) DownloadDocument(ctx context.Context, caller *models.JWTClaims, id int64, rawCategory string) (*service.Download, error) {
	m.gotID = id
	m.gotCategory = rawCategory
	return m.download, m.err
}

func (m *visitServiceMock) OpenSignedResponseLetter(ctx context.Context, id int64, token string) (*service.Download, error) {
	m.gotID = id
	m.gotToken = token
	return m.download, m.err
}

func (m *visitServiceMock) readUpload(upload *service.DocumentUpload) {
	if upload == nil {
		return
	}
	m.gotUpload = upload.Filename
	data, _ := io.ReadAll(upload.Content)
	m.gotContent = string(data)
}

type formFile struct {
	field    string
	filename string
	content  string
}

func newMultipartContext(t *testing.T, method, path string, fields map[string]string, files ...formFile) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	c, w := newGinContext(method, path, body.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	return c, w
}

func sampleVisit() *models.VisitRequest {
	return &models.VisitRequest{
		ID:               7,
		OrganizationName: "Acme",
		VisitDate:        time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		Session:          models.SessionOne,
		Status:           models.VisitPending,
	}
}

func visitFields() map[string]string {
	return map[string]string{
		"organizationName": "Acme",
		"contactPerson":    "Rina",
		"email":            "rina@acme.test",
		"phone":            "081234567",
		"participantCount": "12",
		"visitDate":        "2024-06-05",
		"session":          "SESSION_1",
	}
}

func TestVisitHandlerAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	availability := models.NewAvailability("2024-06-05", map[models.Session]int{models.SessionOne: 1}, 1)
	mockSvc := &visitServiceMock{availability: &availability}
	handler := NewVisitHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/visits/availability/2024-06-05", nil)
	c.Params = gin.Params{{Key: "date", Value: "2024-06-05"}}
	handler.Availability(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-05", mockSvc.gotDate)
	var body struct {
		Data models.Availability `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Session1.IsFull)
	assert.False(t, body.Data.IsFullyBooked)
}

func TestVisitHandlerAvailabilityRejectsWeekend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{err: appErrors.WithDetails(appErrors.ErrNonBusinessDay, map[string]interface{}{"weekday": "Saturday"})}
	handler := NewVisitHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/visits/availability/2024-06-08", nil)
	c.Params = gin.Params{{Key: "date", Value: "2024-06-08"}}
	handler.Availability(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	appErr := decodeError(t, w)
	assert.Equal(t, "NON_BUSINESS_DAY", appErr.Code)
	assert.Equal(t, "Saturday", appErr.Details["weekday"])
}

func TestVisitHandlerSubmitMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{visit: sampleVisit()}
	handler := NewVisitHandler(mockSvc)

	c, w := newMultipartContext(t, http.MethodPost, "/visits", visitFields(),
		formFile{field: "introductionLetter", filename: "intro.pdf", content: "%PDF-1.4 letter"})
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Acme", mockSvc.gotSubmit.OrganizationName)
	assert.Equal(t, 12, mockSvc.gotSubmit.ParticipantCount)
	assert.Equal(t, "SESSION_1", mockSvc.gotSubmit.Session)
	assert.Equal(t, "intro.pdf", mockSvc.gotUpload)
	assert.Equal(t, "%PDF-1.4 letter", mockSvc.gotContent)

	var body struct {
		Data dto.VisitSubmission `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.Data.ID)
	assert.Equal(t, "2024-06-05", body.Data.VisitDate)
	assert.Equal(t, "PENDING", body.Data.Status)
}

func TestVisitHandlerSubmitWithoutLetter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{visit: sampleVisit()}
	handler := NewVisitHandler(mockSvc)

	c, w := newMultipartContext(t, http.MethodPost, "/visits", visitFields())
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, mockSvc.gotUpload)
}

func TestVisitHandlerSubmitSlotFull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{err: appErrors.WithDetails(appErrors.ErrSlotFull, map[string]interface{}{"currentCount": 1, "capacity": 1})}
	handler := NewVisitHandler(mockSvc)

	c, w := newMultipartContext(t, http.MethodPost, "/visits", visitFields())
	handler.Submit(c)

	require.Equal(t, http.StatusConflict, w.Code)
	appErr := decodeError(t, w)
	assert.Equal(t, "SLOT_FULL", appErr.Code)
	assert.EqualValues(t, 1, appErr.Details["capacity"])
}

func TestVisitHandlerListUsesStatusPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{visits: []models.VisitRequest{*sampleVisit()}}
	handler := NewVisitHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/visits/status/accepted?limit=5&status=PENDING", nil)
	c.Params = gin.Params{{Key: "status", Value: "accepted"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accepted", mockSvc.gotQuery.Status)
	assert.Equal(t, 5, mockSvc.gotQuery.Limit)
}

func TestVisitHandlerGetRejectsBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVisitHandler(&visitServiceMock{})

	c, w := newGinContext(http.MethodGet, "/visits/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.Get(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
}

func TestVisitHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVisitHandler(&visitServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "visit request not found")})

	c, w := newGinContext(http.MethodGet, "/visits/99", nil)
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestVisitHandlerAcceptWithResponseLetter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	accepted := sampleVisit()
	accepted.Status = models.VisitAccepted
	mockSvc := &visitServiceMock{visit: accepted}
	handler := NewVisitHandler(mockSvc)

	c, w := newMultipartContext(t, http.MethodPut, "/visits/7/status", map[string]string{"status": "ACCEPTED"},
		formFile{field: "responseLetter", filename: "reply.pdf", content: "%PDF-1.4 reply"})
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(7), mockSvc.gotID)
	assert.Equal(t, "ACCEPTED", mockSvc.gotStatus.Status)
	assert.Equal(t, "reply.pdf", mockSvc.gotUpload)
}

func TestVisitHandlerRejectAsJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{visit: sampleVisit()}
	handler := NewVisitHandler(mockSvc)

	payload, _ := json.Marshal(dto.UpdateVisitStatusRequest{Status: "REJECTED", Reason: "fully booked that week"})
	c, w := newGinContext(http.MethodPut, "/visits/7/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fully booked that week", mockSvc.gotStatus.Reason)
	assert.Empty(t, mockSvc.gotUpload)
}

func TestVisitHandlerInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVisitHandler(&visitServiceMock{err: appErrors.ErrInvalidTransition})

	payload, _ := json.Marshal(dto.UpdateVisitStatusRequest{Status: "ACCEPTED"})
	c, w := newGinContext(http.MethodPut, "/visits/7/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, w).Code)
}

func TestVisitHandlerReschedule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{visit: sampleVisit()}
	handler := NewVisitHandler(mockSvc)

	payload, _ := json.Marshal(dto.RescheduleVisitRequest{VisitDate: "2024-06-06", Session: "SESSION_2"})
	c, w := newGinContext(http.MethodPatch, "/visits/7/schedule", payload)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.Reschedule(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-06", mockSvc.gotSchedule.VisitDate)
	assert.Equal(t, "SESSION_2", mockSvc.gotSchedule.Session)
}

func TestVisitHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{}
	handler := NewVisitHandler(mockSvc)

	c, _ := newGinContext(http.MethodDelete, "/visits/7", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	asAdmin(c, models.RoleSuperAdmin)
	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, int64(7), mockSvc.gotID)
}

func TestVisitHandlerDocumentDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{download: &service.Download{
		Filename:    "introduction_letter.pdf",
		ContentType: "application/pdf",
		Size:        8,
		Content:     io.NopCloser(strings.NewReader("%PDF-1.4")),
	}}
	handler := NewVisitHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/visits/7/documents/introduction_letter", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "category", Value: "introduction_letter"}}
	asAdmin(c, models.RoleVisitAdmin)
	handler.Document(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "introduction_letter", mockSvc.gotCategory)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestVisitHandlerSignedResponseLetter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{download: &service.Download{
		Filename:    "response_letter.pdf",
		ContentType: "application/pdf",
		Size:        3,
		Content:     io.NopCloser(strings.NewReader("pdf")),
	}}
	handler := NewVisitHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/documents/visit-response/7?token=abc.def", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.SignedResponseLetter(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc.def", mockSvc.gotToken)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "response_letter.pdf")
}

func TestVisitHandlerSignedResponseLetterExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVisitHandler(&visitServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "link expired")})

	c, w := newGinContext(http.MethodGet, "/documents/visit-response/7?token=old", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.SignedResponseLetter(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
