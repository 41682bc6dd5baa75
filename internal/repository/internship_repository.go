package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/visit-intake-api/internal/models"
)

const internshipColumns = `id, full_name, institution, student_number, major, phone, email, education_level,
	birth_place, birth_date, work_unit, internship_month, duration, duration_other, start_date, end_date,
	motivation, self_description, portfolio_link, cover_letter, cv, transcript, student_card, id_photo,
	status, rejection_reason, created_at, updated_at`

// InternshipRepository persists internship applications.
type InternshipRepository struct {
	db *sqlx.DB
}

// NewInternshipRepository constructs an InternshipRepository.
func NewInternshipRepository(db *sqlx.DB) *InternshipRepository {
	return &InternshipRepository{db: db}
}

// Create inserts a new application and fills its generated fields.
func (r *InternshipRepository) Create(ctx context.Context, req *models.InternshipRequest) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	if req.Status == "" {
		req.Status = models.InternshipPending
	}
	query := `INSERT INTO internship_requests (full_name, institution, student_number, major, phone, email,
		education_level, birth_place, birth_date, work_unit, internship_month, duration, duration_other,
		start_date, end_date, motivation, self_description, portfolio_link, cover_letter, cv, transcript,
		student_card, id_photo, status, created_at, updated_at)
		VALUES (:full_name, :institution, :student_number, :major, :phone, :email,
		:education_level, :birth_place, :birth_date, :work_unit, :internship_month, :duration, :duration_other,
		:start_date, :end_date, :motivation, :self_description, :portfolio_link, :cover_letter, :cv, :transcript,
		:student_card, :id_photo, :status, :created_at, :updated_at)
		RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("insert internship request: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert internship request: %w", err)
		}
		return fmt.Errorf("insert internship request: no id returned")
	}
	if err := rows.Scan(&req.ID); err != nil {
		return fmt.Errorf("scan internship id: %w", err)
	}
	return nil
}

// GetByID fetches an application. It returns sql.ErrNoRows when absent.
func (r *InternshipRepository) GetByID(ctx context.Context, id int64) (*models.InternshipRequest, error) {
	var req models.InternshipRequest
	query := `SELECT ` + internshipColumns + ` FROM internship_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns applications newest first.
func (r *InternshipRepository) List(ctx context.Context, filter models.InternshipFilter) ([]models.InternshipRequest, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + internshipColumns + ` FROM internship_requests`)
	args := make([]interface{}, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		sb.WriteString(fmt.Sprintf(" WHERE status = $%d", len(args)))
	}
	limit, offset := clampPage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	var items []models.InternshipRequest
	if err := r.db.SelectContext(ctx, &items, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list internship requests: %w", err)
	}
	return items, nil
}

// ListPending returns every pending application newest first.
func (r *InternshipRepository) ListPending(ctx context.Context) ([]models.InternshipRequest, error) {
	var items []models.InternshipRequest
	query := `SELECT ` + internshipColumns + ` FROM internship_requests WHERE status = 'PENDING' ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list pending internship requests: %w", err)
	}
	return items, nil
}

// UpdateStatus applies update only while the row is still in update.From.
func (r *InternshipRepository) UpdateStatus(ctx context.Context, update models.InternshipStatusUpdate) error {
	query := `UPDATE internship_requests
		SET status = $1, rejection_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, update.To, update.RejectionReason, update.UpdatedAt, update.ID, update.From)
	if err != nil {
		return fmt.Errorf("update internship status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("internship status rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return classifyMiss(ctx, r.db, "internship_requests", update.ID)
}

// Delete removes the application and returns the deleted row.
func (r *InternshipRepository) Delete(ctx context.Context, id int64) (*models.InternshipRequest, error) {
	var req models.InternshipRequest
	query := `DELETE FROM internship_requests WHERE id = $1 RETURNING ` + internshipColumns
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindLatestByIdentity returns the newest application matching an e-mail or student number.
func (r *InternshipRepository) FindLatestByIdentity(ctx context.Context, keyword string) (*models.InternshipRequest, error) {
	var req models.InternshipRequest
	query := `SELECT ` + internshipColumns + ` FROM internship_requests
		WHERE LOWER(email) = LOWER($1) OR student_number = $1
		ORDER BY id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &req, query, keyword); err != nil {
		return nil, err
	}
	return &req, nil
}

// CountByStatus tallies applications per status.
func (r *InternshipRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return countByStatus(ctx, r.db, "internship_requests")
}

// DocumentReferences lists every document name referenced by an application.
func (r *InternshipRepository) DocumentReferences(ctx context.Context) ([]string, error) {
	var refs []string
	query := `SELECT doc FROM internship_requests,
		LATERAL (VALUES (cover_letter), (cv), (transcript), (student_card), (id_photo)) AS d(doc)
		WHERE doc IS NOT NULL`
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list internship documents: %w", err)
	}
	return refs, nil
}
