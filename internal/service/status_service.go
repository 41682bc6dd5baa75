package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
)

type statusLookup interface {
	LookupStatus(ctx context.Context, keyword string) (*models.StatusLookup, error)
}

// StatusService answers public "where is my request" queries.
type StatusService struct {
	visits      statusLookup
	internships statusLookup
	validator   *validator.Validate
}

// NewStatusService constructs the service.
func NewStatusService(visits, internships statusLookup, validate *validator.Validate) *StatusService {
	if validate == nil {
		validate = validator.New()
	}
	return &StatusService{visits: visits, internships: internships, validator: validate}
}

// Check returns the newest request of req.Type matching req.Keyword.
func (s *StatusService) Check(ctx context.Context, req dto.StatusCheckRequest) (*models.StatusLookup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status check")
	}
	kind, _ := models.ParseRequestKind(req.Type)
	if kind == models.KindInternship {
		return s.internships.LookupStatus(ctx, req.Keyword)
	}
	return s.visits.LookupStatus(ctx, req.Keyword)
}
