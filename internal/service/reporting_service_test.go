package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/visit-intake-api/internal/dto"
	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

type visitReportStub struct {
	rows    []models.VisitRequest
	counts  map[string]int
	filters []models.VisitFilter
	err     error
}

func (s *visitReportStub) List(ctx context.Context, filter models.VisitFilter) ([]models.VisitRequest, error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return nil, s.err
	}
	var matched []models.VisitRequest
	for _, v := range s.rows {
		if filter.Status == "" || v.Status == filter.Status {
			matched = append(matched, v)
		}
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (s *visitReportStub) CountByStatus(ctx context.Context) (map[string]int, error) {
	return s.counts, s.err
}

type internshipReportStub struct {
	rows   []models.InternshipRequest
	counts map[string]int
}

func (s *internshipReportStub) List(ctx context.Context, filter models.InternshipFilter) ([]models.InternshipRequest, error) {
	if filter.Offset > 0 {
		return nil, nil
	}
	return s.rows, nil
}

func (s *internshipReportStub) CountByStatus(ctx context.Context) (map[string]int, error) {
	return s.counts, nil
}

func TestReportingStatisticsScopedByRole(t *testing.T) {
	visits := &visitReportStub{counts: map[string]int{"PENDING": 2, "ACCEPTED": 3}}
	internships := &internshipReportStub{counts: map[string]int{"REJECTED": 1}}
	svc := NewReportingService(visits, internships, nil)
	ctx := context.Background()

	all, err := svc.Statistics(ctx, &models.JWTClaims{Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Visits.Total)
	assert.Equal(t, 0, all.Visits.ByStatus["REJECTED"])
	assert.Equal(t, 1, all.Internships.Total)
	assert.Len(t, all.Internships.ByStatus, 3)

	visitOnly, err := svc.Statistics(ctx, visitAdmin())
	require.NoError(t, err)
	assert.Equal(t, 5, visitOnly.Visits.Total)
	assert.Nil(t, visitOnly.Internships.ByStatus)

	_, err = svc.Statistics(ctx, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	visits.err = errors.New("db down")
	_, err = svc.Statistics(ctx, visitAdmin())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestReportingExportVisitsCSVPagesThroughAllRows(t *testing.T) {
	rows := make([]models.VisitRequest, 0, 450)
	for i := 1; i <= 450; i++ {
		status := models.VisitPending
		if i%3 == 0 {
			status = models.VisitAccepted
		}
		rows = append(rows, models.VisitRequest{
			ID:               int64(i),
			OrganizationName: "Org, Inc",
			Email:            "org@example.org",
			VisitDate:        time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
			Session:          models.SessionTwo,
			Status:           status,
		})
	}
	visits := &visitReportStub{rows: rows}
	svc := NewReportingService(visits, &internshipReportStub{}, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 10, 4, 5, 0, time.UTC) }

	file, err := svc.Export(context.Background(), visitAdmin(), "visit", dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "visit-requests-20240603-100405.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Len(t, visits.filters, 3)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 451)
	assert.Equal(t, "Organization", records[0][1])
	assert.Equal(t, "Org, Inc", records[1][1])
	assert.Equal(t, "Session 2", records[1][7])

	accepted, err := svc.Export(context.Background(), visitAdmin(), "VISIT", dto.ExportQuery{Status: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, 151, strings.Count(string(accepted.Data), "\n"))
}

func TestReportingExportPDFAndErrors(t *testing.T) {
	internships := &internshipReportStub{rows: []models.InternshipRequest{{
		ID: 1, FullName: "Siti", Institution: "UI", StudentNumber: "21", Major: "CS", Email: "s@example.org", WorkUnit: "IT",
		StartDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		Status: models.InternshipApproved,
	}}}
	svc := NewReportingService(&visitReportStub{}, internships, nil)
	ctx := context.Background()

	file, err := svc.Export(ctx, internshipAdmin(), "internship", dto.ExportQuery{Format: "PDF"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = svc.Export(ctx, internshipAdmin(), "visit", dto.ExportQuery{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Export(ctx, internshipAdmin(), "letters", dto.ExportQuery{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Export(ctx, internshipAdmin(), "internship", dto.ExportQuery{Format: "xlsx"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Export(ctx, internshipAdmin(), "internship", dto.ExportQuery{Status: "ACCEPTED"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
