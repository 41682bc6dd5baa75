package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

// MinInternshipReasonLength is the shortest accepted rejection reason, in characters.
const MinInternshipReasonLength = 10

type internshipStore interface {
	Create(ctx context.Context, req *models.InternshipRequest) error
	GetByID(ctx context.Context, id int64) (*models.InternshipRequest, error)
	List(ctx context.Context, filter models.InternshipFilter) ([]models.InternshipRequest, error)
	ListPending(ctx context.Context) ([]models.InternshipRequest, error)
	UpdateStatus(ctx context.Context, update models.InternshipStatusUpdate) error
	Delete(ctx context.Context, id int64) (*models.InternshipRequest, error)
	FindLatestByIdentity(ctx context.Context, keyword string) (*models.InternshipRequest, error)
}

var internshipAdminRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleInternshipAdmin}

// InternshipService runs internship intake and its approval lifecycle.
type InternshipService struct {
	repo      internshipStore
	documents *DocumentService
	validator *validator.Validate
	logger    *zap.Logger

	hub     *NotificationHub
	mailer  *DecisionMailer
	metrics *MetricsService
	now     func() time.Time
}

// InternshipServiceOption configures optional collaborators.
type InternshipServiceOption func(*InternshipService)

// WithInternshipNotifications publishes pending-application changes to hub.
func WithInternshipNotifications(hub *NotificationHub) InternshipServiceOption {
	return func(s *InternshipService) { s.hub = hub }
}

// WithInternshipMailer sends decision e-mails through mailer.
func WithInternshipMailer(mailer *DecisionMailer) InternshipServiceOption {
	return func(s *InternshipService) { s.mailer = mailer }
}

// WithInternshipMetrics records transition metrics.
func WithInternshipMetrics(metrics *MetricsService) InternshipServiceOption {
	return func(s *InternshipService) { s.metrics = metrics }
}

// WithInternshipClock overrides the timestamp source.
func WithInternshipClock(now func() time.Time) InternshipServiceOption {
	return func(s *InternshipService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInternshipService constructs the service.
func NewInternshipService(repo internshipStore, documents *DocumentService, validate *validator.Validate, logger *zap.Logger, opts ...InternshipServiceOption) *InternshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &InternshipService{
		repo:      repo,
		documents: documents,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit stores an application with its five mandatory documents. Every
// document is validated before anything is written; if any later step fails,
// documents already stored are removed.
func (s *InternshipService) Submit(ctx context.Context, req dto.SubmitInternshipRequest, uploads map[models.DocumentCategory]*DocumentUpload) (*models.InternshipRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid internship application")
	}
	birthDate, _ := time.Parse(models.DateLayout, req.BirthDate)
	startDate, _ := time.Parse(models.DateLayout, req.StartDate)
	endDate, _ := time.Parse(models.DateLayout, req.EndDate)
	if endDate.Before(startDate) {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date"),
			map[string]interface{}{"fields": map[string]interface{}{"endDate": "gtefield"}})
	}

	for _, category := range models.InternshipDocumentCategories {
		if _, err := s.documents.Validate(category, uploads[category]); err != nil {
			return nil, err
		}
	}

	application := &models.InternshipRequest{
		FullName:        strings.TrimSpace(req.FullName),
		Institution:     strings.TrimSpace(req.Institution),
		StudentNumber:   strings.TrimSpace(req.StudentNumber),
		Major:           strings.TrimSpace(req.Major),
		Phone:           strings.TrimSpace(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		EducationLevel:  strings.TrimSpace(req.EducationLevel),
		BirthPlace:      strings.TrimSpace(req.BirthPlace),
		BirthDate:       birthDate,
		WorkUnit:        strings.TrimSpace(req.WorkUnit),
		InternshipMonth: strings.TrimSpace(req.InternshipMonth),
		Duration:        strings.TrimSpace(req.Duration),
		DurationOther:   optionalString(req.DurationOther),
		StartDate:       startDate,
		EndDate:         endDate,
		Motivation:      strings.TrimSpace(req.Motivation),
		SelfDescription: optionalString(req.SelfDescription),
		PortfolioLink:   optionalString(req.PortfolioLink),
		Status:          models.InternshipPending,
		CreatedAt:       s.now().UTC(),
	}

	stored := make([]string, 0, len(models.InternshipDocumentCategories))
	for _, category := range models.InternshipDocumentCategories {
		ref, err := s.documents.Store(ctx, category, uploads[category])
		if err != nil {
			s.documents.RemoveAll(ctx, stored...)
			return nil, err
		}
		stored = append(stored, ref)
		application.SetDocument(category, ref)
	}

	if err := s.repo.Create(ctx, application); err != nil {
		s.documents.RemoveAll(ctx, stored...)
		return nil, storeError(err, "internship application not found", "failed to create internship application")
	}

	if s.hub != nil {
		s.hub.Announce(models.InternshipNotification(application))
	}
	s.logger.Info("internship application received", zap.Int64("internship_id", application.ID))
	return application, nil
}

// Get returns an application by id.
func (s *InternshipService) Get(ctx context.Context, id int64) (*models.InternshipRequest, error) {
	application, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "internship application not found", "failed to load internship application")
	}
	return application, nil
}

// List returns applications newest first, optionally filtered by status.
func (s *InternshipService) List(ctx context.Context, query dto.InternshipListQuery) ([]models.InternshipRequest, error) {
	filter := models.InternshipFilter{Limit: query.Limit, Offset: query.Offset}
	if strings.TrimSpace(query.Status) != "" {
		status, ok := models.ParseInternshipStatus(query.Status)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown internship status %q", query.Status))
		}
		filter.Status = status
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "internship application not found", "failed to list internship applications")
	}
	if items == nil {
		items = []models.InternshipRequest{}
	}
	return items, nil
}

// Transition moves an application to req.Status. Rejection needs a reason of
// at least MinInternshipReasonLength characters after trimming.
func (s *InternshipService) Transition(ctx context.Context, caller *models.JWTClaims, id int64, req dto.UpdateInternshipStatusRequest) (*models.InternshipRequest, error) {
	if err := authorize(caller, internshipAdminRoles...); err != nil {
		return nil, err
	}
	target, ok := models.ParseInternshipStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be PENDING, APPROVED or REJECTED")
	}
	application, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !application.Status.CanTransitionTo(target) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
			"from": application.Status,
			"to":   target,
		})
	}

	update := models.InternshipStatusUpdate{ID: application.ID, From: application.Status, To: target, UpdatedAt: s.now().UTC()}
	if target == models.InternshipRejected {
		update.RejectionReason = optionalString(req.Reason)
		if update.RejectionReason == nil || utf8.RuneCountInString(*update.RejectionReason) < MinInternshipReasonLength {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrInvalidReason, fmt.Sprintf("rejection reason must be at least %d characters", MinInternshipReasonLength)),
				map[string]interface{}{"minLength": MinInternshipReasonLength},
			)
		}
	}

	if err := s.repo.UpdateStatus(ctx, update); err != nil {
		return nil, storeError(err, "internship application not found", "failed to update internship status")
	}

	application.Status = update.To
	application.RejectionReason = update.RejectionReason
	application.UpdatedAt = update.UpdatedAt

	s.metrics.RecordTransition(string(models.KindInternship), string(application.Status))
	if s.hub != nil {
		if application.Status == models.InternshipPending {
			s.hub.Upsert(models.InternshipNotification(application))
		} else {
			s.hub.Retract(models.NotificationID(models.KindInternship, application.ID))
		}
	}
	if application.Status != models.InternshipPending {
		s.mailer.InternshipDecided(application)
	}
	s.logger.Info("internship status changed",
		zap.Int64("internship_id", application.ID),
		zap.String("from", string(update.From)),
		zap.String("to", string(application.Status)),
	)
	return application, nil
}

// Delete removes an application and its documents.
func (s *InternshipService) Delete(ctx context.Context, caller *models.JWTClaims, id int64) error {
	if err := authorize(caller, internshipAdminRoles...); err != nil {
		return err
	}
	application, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeError(err, "internship application not found", "failed to delete internship application")
	}
	s.documents.RemoveAll(ctx, application.Documents()...)
	if s.hub != nil {
		s.hub.Retract(models.NotificationID(models.KindInternship, application.ID))
	}
	s.logger.Info("internship application deleted", zap.Int64("internship_id", application.ID))
	return nil
}

// DownloadDocument opens one of the application's documents.
func (s *InternshipService) DownloadDocument(ctx context.Context, caller *models.JWTClaims, id int64, rawCategory string) (*Download, error) {
	if err := authorize(caller, internshipAdminRoles...); err != nil {
		return nil, err
	}
	category, ok := models.ParseDocumentCategory(rawCategory)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown internship document %q", rawCategory))
	}
	application, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := application.Document(category)
	if ref == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return s.documents.Open(ctx, *ref)
}

// LookupStatus finds the newest application by e-mail or student number.
func (s *InternshipService) LookupStatus(ctx context.Context, keyword string) (*models.StatusLookup, error) {
	application, err := s.repo.FindLatestByIdentity(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, storeError(err, "no internship application matches the given keyword", "failed to look up internship status")
	}
	return &models.StatusLookup{
		Kind:            models.KindInternship,
		RequestID:       application.ID,
		Applicant:       application.FullName,
		Status:          string(application.Status),
		Message:         internshipStatusMessage(application.Status),
		Date:            application.StartDate.Format(models.DateLayout),
		RejectionReason: application.RejectionReason,
		SubmittedAt:     application.CreatedAt,
	}, nil
}

// PendingNotifications lists hub entries for every pending application.
func (s *InternshipService) PendingNotifications(ctx context.Context) ([]models.Notification, error) {
	items, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(items))
	for i := range items {
		out = append(out, models.InternshipNotification(&items[i]))
	}
	return out, nil
}

func internshipStatusMessage(status models.InternshipStatus) string {
	switch status {
	case models.InternshipApproved:
		return "Your internship application has been approved."
	case models.InternshipRejected:
		return "Your internship application was not approved."
	default:
		return "Your internship application is waiting for review."
	}
}
