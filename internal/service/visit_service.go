package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/storage"
)

type visitStore interface {
	CreateWithinCapacity(ctx context.Context, visit *models.VisitRequest, capacity int) error
	GetByID(ctx context.Context, id int64) (*models.VisitRequest, error)
	List(ctx context.Context, filter models.VisitFilter) ([]models.VisitRequest, error)
	ListPending(ctx context.Context) ([]models.VisitRequest, error)
	UpdateStatus(ctx context.Context, update models.VisitStatusUpdate) error
	UpdateStatusWithinCapacity(ctx context.Context, update models.VisitStatusUpdate, date time.Time, session models.Session, capacity int) error
	Reschedule(ctx context.Context, change models.VisitReschedule, capacity int) error
	Delete(ctx context.Context, id int64) (*models.VisitRequest, error)
	FindLatestByContact(ctx context.Context, keyword string) (*models.VisitRequest, error)
}

var visitAdminRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleVisitAdmin}

// VisitService runs visit admission and the visit status lifecycle.
type VisitService struct {
	repo      visitStore
	ledger    *SlotLedger
	documents *DocumentService
	validator *validator.Validate
	logger    *zap.Logger

	hub     *NotificationHub
	mailer  *DecisionMailer
	signer  *storage.SignedURLSigner
	metrics *MetricsService
	now     func() time.Time
}

// VisitServiceOption configures optional collaborators.
type VisitServiceOption func(*VisitService)

// WithVisitNotifications publishes pending-visit changes to hub.
func WithVisitNotifications(hub *NotificationHub) VisitServiceOption {
	return func(s *VisitService) { s.hub = hub }
}

// WithVisitMailer sends decision e-mails through mailer.
func WithVisitMailer(mailer *DecisionMailer) VisitServiceOption {
	return func(s *VisitService) { s.mailer = mailer }
}

// WithVisitSigner enables signed public links to response letters.
func WithVisitSigner(signer *storage.SignedURLSigner) VisitServiceOption {
	return func(s *VisitService) { s.signer = signer }
}

// WithVisitMetrics records admission and transition metrics.
func WithVisitMetrics(metrics *MetricsService) VisitServiceOption {
	return func(s *VisitService) { s.metrics = metrics }
}

// WithVisitClock overrides the timestamp source.
func WithVisitClock(now func() time.Time) VisitServiceOption {
	return func(s *VisitService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewVisitService constructs the service.
func NewVisitService(repo visitStore, ledger *SlotLedger, documents *DocumentService, validate *validator.Validate, logger *zap.Logger, opts ...VisitServiceOption) *VisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &VisitService{
		repo:      repo,
		ledger:    ledger,
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

// CheckAvailability reports per-session occupancy for a date.
func (s *VisitService) CheckAvailability(ctx context.Context, rawDate string) (*models.Availability, error) {
	return s.ledger.CheckAvailability(ctx, rawDate)
}

// Submit admits a new visit into its slot. The introduction letter is optional.
// Either the row and its letter both persist or neither does.
func (s *VisitService) Submit(ctx context.Context, req dto.SubmitVisitRequest, intro *DocumentUpload) (*models.VisitRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid visit request")
	}
	policy := s.ledger.Policy()
	date, session, err := policy.ValidateSlot(req.VisitDate, req.Session)
	if err != nil {
		s.metrics.RecordAdmission(errorCode(err))
		return nil, err
	}

	var introRef *string
	if intro != nil {
		ref, err := s.documents.Store(ctx, models.DocumentIntroductionLetter, intro)
		if err != nil {
			return nil, err
		}
		introRef = &ref
	}

	visit := &models.VisitRequest{
		OrganizationName:   strings.TrimSpace(req.OrganizationName),
		ContactPerson:      strings.TrimSpace(req.ContactPerson),
		Email:              strings.TrimSpace(req.Email),
		Phone:              strings.TrimSpace(req.Phone),
		ParticipantCount:   req.ParticipantCount,
		VisitDate:          date,
		Session:            session,
		Status:             models.VisitPending,
		IntroductionLetter: introRef,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.repo.CreateWithinCapacity(ctx, visit, policy.Capacity); err != nil {
		if introRef != nil {
			s.documents.Remove(ctx, *introRef)
		}
		mapped := storeError(err, "visit not found", "failed to create visit request")
		s.metrics.RecordAdmission(errorCode(mapped))
		return nil, mapped
	}

	s.metrics.RecordAdmission("admitted")
	s.ledger.Invalidate(ctx, date)
	if s.hub != nil {
		s.hub.Announce(models.VisitNotification(visit))
	}
	s.logger.Info("visit admitted",
		zap.Int64("visit_id", visit.ID),
		zap.String("date", visit.DateString()),
		zap.String("session", string(visit.Session)),
	)
	return visit, nil
}

// Get returns a visit by id.
func (s *VisitService) Get(ctx context.Context, id int64) (*models.VisitRequest, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "visit not found", "failed to load visit request")
	}
	return visit, nil
}

// List returns visits newest first, optionally filtered by status.
func (s *VisitService) List(ctx context.Context, query dto.VisitListQuery) ([]models.VisitRequest, error) {
	filter := models.VisitFilter{Limit: query.Limit, Offset: query.Offset}
	if strings.TrimSpace(query.Status) != "" {
		status, ok := models.ParseVisitStatus(query.Status)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visit status %q", query.Status))
		}
		filter.Status = status
	}
	visits, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "visit not found", "failed to list visit requests")
	}
	if visits == nil {
		visits = []models.VisitRequest{}
	}
	return visits, nil
}

// Transition moves a visit to req.Status. Accepting requires a response letter;
// rejecting requires a non-blank reason. The update is conditional on the
// status read at the start, so a concurrent transition yields CONFLICT.
func (s *VisitService) Transition(ctx context.Context, caller *models.JWTClaims, id int64, req dto.UpdateVisitStatusRequest, letter *DocumentUpload) (*models.VisitRequest, error) {
	if err := authorize(caller, visitAdminRoles...); err != nil {
		return nil, err
	}
	target, ok := models.ParseVisitStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be PENDING, ACCEPTED or REJECTED")
	}
	visit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visit.Status.CanTransitionTo(target) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
			"from": visit.Status,
			"to":   target,
		})
	}

	update := models.VisitStatusUpdate{ID: visit.ID, From: visit.Status, To: target, UpdatedAt: s.now().UTC()}
	switch target {
	case models.VisitAccepted:
		if letter == nil {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrMissingArtifact, "a response letter is required to accept a visit"),
				map[string]interface{}{"field": string(models.DocumentResponseLetter)})
		}
		ref, err := s.documents.Store(ctx, models.DocumentResponseLetter, letter)
		if err != nil {
			return nil, err
		}
		update.ResponseLetter = &ref
	case models.VisitRejected:
		update.RejectionReason = optionalString(req.Reason)
		if update.RejectionReason == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidReason, "a rejection reason is required")
		}
	}

	if target.OccupiesSlot() && !visit.Status.OccupiesSlot() {
		err = s.repo.UpdateStatusWithinCapacity(ctx, update, visit.VisitDate, visit.Session, s.ledger.Policy().Capacity)
	} else {
		err = s.repo.UpdateStatus(ctx, update)
	}
	if err != nil {
		if update.ResponseLetter != nil {
			s.documents.Remove(ctx, *update.ResponseLetter)
		}
		return nil, storeError(err, "visit not found", "failed to update visit status")
	}

	previousLetter := visit.ResponseLetter
	visit.Status = update.To
	visit.RejectionReason = update.RejectionReason
	visit.ResponseLetter = update.ResponseLetter
	visit.UpdatedAt = update.UpdatedAt
	if previousLetter != nil && (visit.ResponseLetter == nil || *visit.ResponseLetter != *previousLetter) {
		s.documents.Remove(ctx, *previousLetter)
	}

	s.afterTransition(ctx, visit, update.From)
	return visit, nil
}

func (s *VisitService) afterTransition(ctx context.Context, visit *models.VisitRequest, from models.VisitStatus) {
	s.metrics.RecordTransition(string(models.KindVisit), string(visit.Status))
	if from.OccupiesSlot() != visit.Status.OccupiesSlot() {
		s.ledger.Invalidate(ctx, visit.VisitDate)
	}
	if s.hub != nil {
		if visit.Status == models.VisitPending {
			s.hub.Upsert(models.VisitNotification(visit))
		} else {
			s.hub.Retract(models.NotificationID(models.KindVisit, visit.ID))
		}
	}
	if visit.Status != models.VisitPending {
		s.mailer.VisitDecided(visit)
	}
	s.logger.Info("visit status changed",
		zap.Int64("visit_id", visit.ID),
		zap.String("from", string(from)),
		zap.String("to", string(visit.Status)),
	)
}

// Reschedule moves a visit to another slot. Empty fields keep the current value.
// Visits holding a slot must find room in the target slot.
func (s *VisitService) Reschedule(ctx context.Context, caller *models.JWTClaims, id int64, req dto.RescheduleVisitRequest) (*models.VisitRequest, error) {
	if err := authorize(caller, visitAdminRoles...); err != nil {
		return nil, err
	}
	visit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rawDate := strings.TrimSpace(req.VisitDate)
	if rawDate == "" {
		rawDate = visit.DateString()
	}
	rawSession := strings.TrimSpace(req.Session)
	if rawSession == "" {
		rawSession = string(visit.Session)
	}
	policy := s.ledger.Policy()
	date, session, err := policy.ValidateSlot(rawDate, rawSession)
	if err != nil {
		return nil, err
	}
	if date.Equal(visit.VisitDate) && session == visit.Session {
		return visit, nil
	}

	change := models.VisitReschedule{ID: visit.ID, VisitDate: date, Session: session, UpdatedAt: s.now().UTC()}
	if err := s.repo.Reschedule(ctx, change, policy.Capacity); err != nil {
		return nil, storeError(err, "visit not found", "failed to reschedule visit")
	}

	previous := visit.VisitDate
	visit.VisitDate = change.VisitDate
	visit.Session = change.Session
	visit.UpdatedAt = change.UpdatedAt
	s.ledger.Invalidate(ctx, previous, visit.VisitDate)
	if s.hub != nil && visit.Status == models.VisitPending {
		s.hub.Upsert(models.VisitNotification(visit))
	}
	s.logger.Info("visit rescheduled",
		zap.Int64("visit_id", visit.ID),
		zap.String("date", visit.DateString()),
		zap.String("session", string(visit.Session)),
	)
	return visit, nil
}

// Delete removes a visit, releases its slot and removes its documents.
func (s *VisitService) Delete(ctx context.Context, caller *models.JWTClaims, id int64) error {
	if err := authorize(caller, visitAdminRoles...); err != nil {
		return err
	}
	visit, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeError(err, "visit not found", "failed to delete visit request")
	}
	s.documents.RemoveAll(ctx, visit.Documents()...)
	s.ledger.Invalidate(ctx, visit.VisitDate)
	if s.hub != nil {
		s.hub.Retract(models.NotificationID(models.KindVisit, visit.ID))
	}
	s.logger.Info("visit deleted", zap.Int64("visit_id", visit.ID))
	return nil
}

// DownloadDocument opens one of the visit's documents.
func (s *VisitService) DownloadDocument(ctx context.Context, caller *models.JWTClaims, id int64, rawCategory string) (*Download, error) {
	if err := authorize(caller, visitAdminRoles...); err != nil {
		return nil, err
	}
	category, ok := models.ParseDocumentCategory(rawCategory)
	if !ok || (category != models.DocumentIntroductionLetter && category != models.DocumentResponseLetter) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visit document %q", rawCategory))
	}
	visit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := visit.Document(category)
	if ref == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return s.documents.Open(ctx, *ref)
}

// OpenSignedResponseLetter serves the response letter behind a signed link
// sent to the applicant. The link stops working once the letter is replaced.
func (s *VisitService) OpenSignedResponseLetter(ctx context.Context, id int64, token string) (*Download, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	if claims.Resource != fmt.Sprintf("%s-%d", VisitResponseResource, id) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	visit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.Status != models.VisitAccepted || visit.ResponseLetter == nil || *visit.ResponseLetter != claims.Name {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return s.documents.Open(ctx, claims.Name)
}

// LookupStatus finds the newest visit by e-mail or contact person.
func (s *VisitService) LookupStatus(ctx context.Context, keyword string) (*models.StatusLookup, error) {
	visit, err := s.repo.FindLatestByContact(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, storeError(err, "no visit request matches the given keyword", "failed to look up visit status")
	}
	return &models.StatusLookup{
		Kind:            models.KindVisit,
		RequestID:       visit.ID,
		Applicant:       visit.OrganizationName,
		Status:          string(visit.Status),
		Message:         visitStatusMessage(visit.Status),
		Date:            visit.DateString(),
		Session:         visit.Session,
		RejectionReason: visit.RejectionReason,
		SubmittedAt:     visit.CreatedAt,
	}, nil
}

// PendingNotifications lists hub entries for every pending visit.
func (s *VisitService) PendingNotifications(ctx context.Context) ([]models.Notification, error) {
	visits, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(visits))
	for i := range visits {
		out = append(out, models.VisitNotification(&visits[i]))
	}
	return out, nil
}

func visitStatusMessage(status models.VisitStatus) string {
	switch status {
	case models.VisitAccepted:
		return "Your visit has been accepted. Please check your e-mail for the response letter."
	case models.VisitRejected:
		return "Your visit request was not accepted."
	default:
		return "Your visit request is waiting for review."
	}
}

func errorCode(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return appErrors.ErrInternal.Code
}
