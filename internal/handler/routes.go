package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/visit-intake-api/internal/middleware"
	"github.com/noah-isme/visit-intake-api/internal/models"
)

var (
	visitRoles      = []models.UserRole{models.RoleSuperAdmin, models.RoleVisitAdmin}
	internshipRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleInternshipAdmin}
	reviewerRoles   = []models.UserRole{models.RoleSuperAdmin, models.RoleVisitAdmin, models.RoleInternshipAdmin}
)

// Routes groups the handlers and guards mounted under the API prefix.
type Routes struct {
	Visits        *VisitHandler
	Internships   *InternshipHandler
	Status        *StatusHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler

	// Authenticate populates the caller claims; RequireRoles runs after it.
	Authenticate gin.HandlerFunc
	// Throttle guards the anonymous write endpoints. Nil disables it.
	Throttle gin.HandlerFunc
}

// Register mounts the public and admin endpoints on api.
func (r Routes) Register(api *gin.RouterGroup) {
	throttle := r.Throttle
	if throttle == nil {
		throttle = func(c *gin.Context) { c.Next() }
	}

	api.GET("/visits/availability/:date", r.Visits.Availability)
	api.POST("/visits", throttle, r.Visits.Submit)
	api.POST("/internships", throttle, r.Internships.Submit)
	api.POST("/status-check", throttle, r.Status.Check)
	api.GET("/documents/visit-response/:id", r.Visits.SignedResponseLetter)

	admin := api.Group("")
	admin.Use(r.Authenticate)

	visits := admin.Group("/visits", middleware.RequireRoles(visitRoles...))
	visits.GET("", r.Visits.List)
	visits.GET("/status/:status", r.Visits.List)
	visits.GET("/:id", r.Visits.Get)
	visits.PUT("/:id/status", r.Visits.UpdateStatus)
	visits.PATCH("/:id/schedule", r.Visits.Reschedule)
	visits.DELETE("/:id", r.Visits.Delete)
	visits.GET("/:id/documents/:category", r.Visits.Document)

	internships := admin.Group("/internships", middleware.RequireRoles(internshipRoles...))
	internships.GET("", r.Internships.List)
	internships.GET("/status/:status", r.Internships.List)
	internships.GET("/:id", r.Internships.Get)
	internships.PUT("/:id/status", r.Internships.UpdateStatus)
	internships.DELETE("/:id", r.Internships.Delete)
	internships.GET("/:id/documents/:category", r.Internships.Document)

	reviewers := admin.Group("", middleware.RequireRoles(reviewerRoles...))
	reviewers.GET("/statistics", r.Reports.Statistics)
	reviewers.GET("/exports/:type", r.Reports.Export)
	reviewers.GET("/notifications", r.Notifications.List)
	reviewers.GET("/notifications/stream", r.Notifications.Stream)
}
