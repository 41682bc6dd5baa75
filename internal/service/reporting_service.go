package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/export"
)

const exportPageSize = 200

type visitReportSource interface {
	List(ctx context.Context, filter models.VisitFilter) ([]models.VisitRequest, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type internshipReportSource interface {
	List(ctx context.Context, filter models.InternshipFilter) ([]models.InternshipRequest, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportingService produces statistics and list exports.
type ReportingService struct {
	visits      visitReportSource
	internships internshipReportSource
	logger      *zap.Logger
	now         func() time.Time
}

// NewReportingService constructs the service.
func NewReportingService(visits visitReportSource, internships internshipReportSource, logger *zap.Logger) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{visits: visits, internships: internships, logger: logger, now: time.Now}
}

// Statistics counts requests per status for the kinds the caller may see.
func (s *ReportingService) Statistics(ctx context.Context, caller *models.JWTClaims) (*models.Statistics, error) {
	if err := authorize(caller, models.RoleSuperAdmin, models.RoleVisitAdmin, models.RoleInternshipAdmin); err != nil {
		return nil, err
	}
	stats := &models.Statistics{GeneratedAt: s.now().UTC()}
	if caller.HasRole(visitAdminRoles...) {
		counts, err := s.visits.CountByStatus(ctx)
		if err != nil {
			return nil, storeError(err, "", "failed to count visit requests")
		}
		stats.Visits = newStatusCounts(counts, models.VisitPending, models.VisitAccepted, models.VisitRejected)
	}
	if caller.HasRole(internshipAdminRoles...) {
		counts, err := s.internships.CountByStatus(ctx)
		if err != nil {
			return nil, storeError(err, "", "failed to count internship applications")
		}
		stats.Internships = newStatusCounts(counts, models.InternshipPending, models.InternshipApproved, models.InternshipRejected)
	}
	return stats, nil
}

// Export renders every request of kind, optionally filtered by status, as CSV or PDF.
func (s *ReportingService) Export(ctx context.Context, caller *models.JWTClaims, rawKind string, query dto.ExportQuery) (*ExportFile, error) {
	kind, ok := models.ParseRequestKind(rawKind)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export type %q", rawKind))
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}

	var table export.Table
	switch kind {
	case models.KindVisit:
		if err := authorize(caller, visitAdminRoles...); err != nil {
			return nil, err
		}
		table, err = s.visitTable(ctx, query.Status)
	case models.KindInternship:
		if err := authorize(caller, internshipAdminRoles...); err != nil {
			return nil, err
		}
		table, err = s.internshipTable(ctx, query.Status)
	}
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s-requests-%s%s", kind, s.now().UTC().Format("20060102-150405"), renderer.Extension())
	s.logger.Info("export generated", zap.String("kind", string(kind)), zap.String("format", renderer.Extension()), zap.Int("rows", len(table.Rows)))
	return &ExportFile{Filename: filename, ContentType: renderer.ContentType(), Data: data}, nil
}

func (s *ReportingService) visitTable(ctx context.Context, rawStatus string) (export.Table, error) {
	filter := models.VisitFilter{Limit: exportPageSize}
	if strings.TrimSpace(rawStatus) != "" {
		status, ok := models.ParseVisitStatus(rawStatus)
		if !ok {
			return export.Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visit status %q", rawStatus))
		}
		filter.Status = status
	}
	table := export.Table{
		Title: "Visit requests",
		Columns: []export.Column{
			{Title: "ID"}, {Title: "Organization", Weight: 3}, {Title: "Contact", Weight: 2}, {Title: "Email", Weight: 3},
			{Title: "Phone", Weight: 2}, {Title: "Participants"}, {Title: "Date", Weight: 1.5}, {Title: "Session", Weight: 1.5},
			{Title: "Status", Weight: 1.5}, {Title: "Submitted", Weight: 2},
		},
	}
	for {
		page, err := s.visits.List(ctx, filter)
		if err != nil {
			return export.Table{}, storeError(err, "", "failed to list visit requests")
		}
		for _, v := range page {
			table.Rows = append(table.Rows, []string{
				strconv.FormatInt(v.ID, 10), v.OrganizationName, v.ContactPerson, v.Email, v.Phone,
				strconv.Itoa(v.ParticipantCount), v.DateString(), v.Session.Label(), string(v.Status),
				v.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(page) < filter.Limit {
			return table, nil
		}
		filter.Offset += filter.Limit
	}
}

func (s *ReportingService) internshipTable(ctx context.Context, rawStatus string) (export.Table, error) {
	filter := models.InternshipFilter{Limit: exportPageSize}
	if strings.TrimSpace(rawStatus) != "" {
		status, ok := models.ParseInternshipStatus(rawStatus)
		if !ok {
			return export.Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown internship status %q", rawStatus))
		}
		filter.Status = status
	}
	table := export.Table{
		Title: "Internship applications",
		Columns: []export.Column{
			{Title: "ID"}, {Title: "Name", Weight: 2.5}, {Title: "Institution", Weight: 3}, {Title: "Student No.", Weight: 1.5},
			{Title: "Major", Weight: 2}, {Title: "Email", Weight: 3}, {Title: "Work Unit", Weight: 2},
			{Title: "Start", Weight: 1.5}, {Title: "End", Weight: 1.5}, {Title: "Status", Weight: 1.5},
		},
	}
	for {
		page, err := s.internships.List(ctx, filter)
		if err != nil {
			return export.Table{}, storeError(err, "", "failed to list internship applications")
		}
		for _, r := range page {
			table.Rows = append(table.Rows, []string{
				strconv.FormatInt(r.ID, 10), r.FullName, r.Institution, r.StudentNumber, r.Major, r.Email, r.WorkUnit,
				r.StartDate.Format(models.DateLayout), r.EndDate.Format(models.DateLayout), string(r.Status),
			})
		}
		if len(page) < filter.Limit {
			return table, nil
		}
		filter.Offset += filter.Limit
	}
}

func newStatusCounts[S ~string](counts map[string]int, statuses ...S) models.StatusCounts {
	out := models.StatusCounts{ByStatus: make(map[string]int, len(statuses))}
	for _, status := range statuses {
		n := counts[string(status)]
		out.ByStatus[string(status)] = n
		out.Total += n
	}
	return out
}
