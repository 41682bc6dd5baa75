package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/noah-isme/visit-intake-api/internal/middleware"
	"github.com/noah-isme/visit-intake-api/internal/models"
)

func TestRoutesIntegration(t *testing.T) {
	throttled := 0
	router := buildRouter(&throttled)

	t.Run("availability is public", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/visits/availability/2024-06-05", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("status check is throttled", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/status-check", bytes.NewBufferString(`{"type":"visit","keyword":"acme"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, 1, throttled)
	})

	t.Run("visit list unauthorized", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/visits", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("visit list forbidden for internship admin", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/visits", nil)
		req.Header.Set("X-Test-Role", string(models.RoleInternshipAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("visit list for visit admin", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/visits/status/PENDING", nil)
		req.Header.Set("X-Test-Role", string(models.RoleVisitAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("internship review forbidden for visit admin", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/api/v1/internships/4/status", bytes.NewBufferString(`{"status":"APPROVED"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleVisitAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("statistics for any reviewer", func(t *testing.T) {
		for _, role := range reviewerRoles {
			req, _ := http.NewRequest(http.MethodGet, "/api/v1/statistics", nil)
			req.Header.Set("X-Test-Role", string(role))
			resp := performRequest(router, req)
			require.Equal(t, http.StatusOK, resp.Code, role)
		}
	})

	t.Run("signed letter needs no login", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/documents/visit-response/abc?token=bad", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func buildRouter(throttled *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	availability := models.NewAvailability("2024-06-05", nil, 1)
	routes := Routes{
		Visits: NewVisitHandler(&visitServiceMock{
			availability: &availability,
			visits:       []models.VisitRequest{*sampleVisit()},
		}),
		Internships:   NewInternshipHandler(&internshipServiceMock{}),
		Status:        NewStatusHandler(&statusServiceMock{lookup: &models.StatusLookup{Kind: models.KindVisit, RequestID: 7}}),
		Reports:       NewReportHandler(&reportServiceMock{stats: &models.Statistics{}}),
		Notifications: NewNotificationHandler(&hubStub{}, time.Second),
		Authenticate: func(c *gin.Context) {
			if role := c.GetHeader("X-Test-Role"); role != "" {
				c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
					UserID: "test-user",
					Role:   models.UserRole(role),
				})
			}
			c.Next()
		},
		Throttle: func(c *gin.Context) {
			*throttled++
			c.Next()
		},
	}
	routes.Register(router.Group("/api/v1"))
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
