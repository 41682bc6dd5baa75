package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/visit-intake-api/internal/models"
)

func TestInternshipRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newVisitRepoMock(t)
	defer cleanup()
	repo := NewInternshipRepository(db)

	mock.ExpectQuery("INSERT INTO internship_requests").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	req := &models.InternshipRequest{FullName: "Sari", Email: "sari@example.org", CoverLetter: "cover_letter/a.pdf"}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, int64(11), req.ID)
	assert.Equal(t, models.InternshipPending, req.Status)
	assert.False(t, req.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newVisitRepoMock(t)
	defer cleanup()
	repo := NewInternshipRepository(db)
	reason := "Quota for this period is full"
	update := models.InternshipStatusUpdate{ID: 4, From: models.InternshipPending, To: models.InternshipRejected, RejectionReason: &reason, UpdatedAt: time.Now()}

	mock.ExpectExec("UPDATE internship_requests").
		WithArgs("REJECTED", reason, sqlmock.AnyArg(), int64(4), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), update))

	mock.ExpectExec("UPDATE internship_requests").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM internship_requests WHERE id = $1)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	require.ErrorIs(t, repo.UpdateStatus(context.Background(), update), ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newVisitRepoMock(t)
	defer cleanup()
	repo := NewInternshipRepository(db)

	mock.ExpectQuery("DELETE FROM internship_requests WHERE id = \\$1 RETURNING").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Delete(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newVisitRepoMock(t)
	defer cleanup()
	repo := NewInternshipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM internship_requests GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("PENDING", 3).AddRow("APPROVED", 1))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"PENDING": 3, "APPROVED": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipRepositoryDocumentReferences(t *testing.T) {
	db, mock, cleanup := newVisitRepoMock(t)
	defer cleanup()
	repo := NewInternshipRepository(db)

	mock.ExpectQuery("SELECT doc FROM internship_requests").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow("cv/a.pdf").AddRow("id_photo/b.png"))

	refs, err := repo.DocumentReferences(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cv/a.pdf", "id_photo/b.png"}, refs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
