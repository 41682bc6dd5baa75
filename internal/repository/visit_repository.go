package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/visit-intake-api/internal/models"
)

const visitColumns = `id, organization_name, contact_person, email, phone, participant_count, visit_date, session,
	status, rejection_reason, response_letter, introduction_letter, created_at, updated_at`

// slotLockNamespace is the first key of the two-key advisory lock taken per (date, session).
const slotLockNamespace int32 = 0x5649

// VisitRepository persists visit requests and serialises slot admission.
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository constructs a VisitRepository.
func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Occupancy counts visits holding a slot (PENDING or ACCEPTED) per session on date.
func (r *VisitRepository) Occupancy(ctx context.Context, date time.Time) (map[models.Session]int, error) {
	var rows []struct {
		Session models.Session `db:"session"`
		Total   int            `db:"total"`
	}
	query := `SELECT session, COUNT(*) AS total FROM visit_requests
		WHERE visit_date = $1 AND status IN ('PENDING', 'ACCEPTED')
		GROUP BY session`
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("count slot occupancy: %w", err)
	}
	counts := make(map[models.Session]int, len(models.Sessions))
	for _, row := range rows {
		counts[row.Session] = row.Total
	}
	return counts, nil
}

// CreateWithinCapacity inserts visit only if its slot holds fewer than capacity
// occupying visits. The count and insert share one transaction serialised per
// slot by an advisory lock, so concurrent callers cannot both take the last seat.
func (r *VisitRepository) CreateWithinCapacity(ctx context.Context, visit *models.VisitRequest, capacity int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visit admission: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	count, err := lockAndCountSlot(ctx, tx, visit.VisitDate, visit.Session, 0)
	if err != nil {
		return err
	}
	if count >= capacity {
		return &SlotFullError{Count: count, Capacity: capacity}
	}

	query := `INSERT INTO visit_requests (organization_name, contact_person, email, phone, participant_count,
		visit_date, session, status, introduction_letter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	now := time.Now().UTC()
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = now
	}
	visit.UpdatedAt = visit.CreatedAt
	if visit.Status == "" {
		visit.Status = models.VisitPending
	}
	if err = tx.QueryRowxContext(ctx, query,
		visit.OrganizationName,
		visit.ContactPerson,
		visit.Email,
		visit.Phone,
		visit.ParticipantCount,
		visit.VisitDate,
		visit.Session,
		visit.Status,
		visit.IntroductionLetter,
		visit.CreatedAt,
		visit.UpdatedAt,
	).Scan(&visit.ID, &visit.CreatedAt, &visit.UpdatedAt); err != nil {
		return fmt.Errorf("insert visit request: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit visit admission: %w", err)
	}
	return nil
}

// GetByID fetches a visit. It returns sql.ErrNoRows when absent.
func (r *VisitRepository) GetByID(ctx context.Context, id int64) (*models.VisitRequest, error) {
	var visit models.VisitRequest
	query := `SELECT ` + visitColumns + ` FROM visit_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, err
	}
	return &visit, nil
}

// List returns visits newest first.
func (r *VisitRepository) List(ctx context.Context, filter models.VisitFilter) ([]models.VisitRequest, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + visitColumns + ` FROM visit_requests`)
	args := make([]interface{}, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		sb.WriteString(fmt.Sprintf(" WHERE status = $%d", len(args)))
	}
	limit, offset := clampPage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	var visits []models.VisitRequest
	if err := r.db.SelectContext(ctx, &visits, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list visit requests: %w", err)
	}
	return visits, nil
}

// ListPending returns every pending visit newest first.
func (r *VisitRepository) ListPending(ctx context.Context) ([]models.VisitRequest, error) {
	var visits []models.VisitRequest
	query := `SELECT ` + visitColumns + ` FROM visit_requests WHERE status = 'PENDING' ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &visits, query); err != nil {
		return nil, fmt.Errorf("list pending visit requests: %w", err)
	}
	return visits, nil
}

// UpdateStatus applies update only while the row is still in update.From.
// It returns sql.ErrNoRows for unknown ids and ErrStatusChanged when another
// writer moved the row first.
func (r *VisitRepository) UpdateStatus(ctx context.Context, update models.VisitStatusUpdate) error {
	return updateVisitStatus(ctx, r.db, update)
}

// UpdateStatusWithinCapacity applies update while holding the slot lock and
// only if the slot still has room for the visit. Used when a visit re-enters
// an occupying status. The row must still sit in (date, session); a visit moved
// by a concurrent reschedule yields ErrStatusChanged.
func (r *VisitRepository) UpdateStatusWithinCapacity(ctx context.Context, update models.VisitStatusUpdate, date time.Time, session models.Session, capacity int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visit status change: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Row lock first, same order as Reschedule.
	var current struct {
		VisitDate time.Time      `db:"visit_date"`
		Session   models.Session `db:"session"`
	}
	if err = tx.GetContext(ctx, &current, `SELECT visit_date, session FROM visit_requests WHERE id = $1 FOR UPDATE`, update.ID); err != nil {
		return err
	}
	if !sameSlot(current.VisitDate, current.Session, date, session) {
		return ErrStatusChanged
	}

	count, err := lockAndCountSlot(ctx, tx, date, session, update.ID)
	if err != nil {
		return err
	}
	if count >= capacity {
		return &SlotFullError{Count: count, Capacity: capacity}
	}
	if err = updateVisitStatus(ctx, tx, update); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit visit status change: %w", err)
	}
	return nil
}

// Reschedule moves a visit to another slot. Visits currently occupying a slot
// are admitted into the target slot under its lock.
func (r *VisitRepository) Reschedule(ctx context.Context, change models.VisitReschedule, capacity int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visit reschedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status models.VisitStatus
	if err = tx.GetContext(ctx, &status, `SELECT status FROM visit_requests WHERE id = $1 FOR UPDATE`, change.ID); err != nil {
		return err
	}
	if status.OccupiesSlot() {
		count, countErr := lockAndCountSlot(ctx, tx, change.VisitDate, change.Session, change.ID)
		if countErr != nil {
			return countErr
		}
		if count >= capacity {
			return &SlotFullError{Count: count, Capacity: capacity}
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE visit_requests SET visit_date = $1, session = $2, updated_at = $3 WHERE id = $4`,
		change.VisitDate, change.Session, change.UpdatedAt, change.ID); err != nil {
		return fmt.Errorf("reschedule visit request: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit visit reschedule: %w", err)
	}
	return nil
}

// Delete removes the visit and returns the deleted row so its documents can be released.
func (r *VisitRepository) Delete(ctx context.Context, id int64) (*models.VisitRequest, error) {
	var visit models.VisitRequest
	query := `DELETE FROM visit_requests WHERE id = $1 RETURNING ` + visitColumns
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, err
	}
	return &visit, nil
}

// FindLatestByContact returns the newest visit whose e-mail equals keyword or
// whose contact person contains it.
func (r *VisitRepository) FindLatestByContact(ctx context.Context, keyword string) (*models.VisitRequest, error) {
	var visit models.VisitRequest
	query := `SELECT ` + visitColumns + ` FROM visit_requests
		WHERE LOWER(email) = LOWER($1) OR contact_person ILIKE $2
		ORDER BY id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &visit, query, keyword, "%"+escapeLike(keyword)+"%"); err != nil {
		return nil, err
	}
	return &visit, nil
}

// CountByStatus tallies visits per status.
func (r *VisitRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return countByStatus(ctx, r.db, "visit_requests")
}

// DocumentReferences lists every document name referenced by a visit row.
func (r *VisitRepository) DocumentReferences(ctx context.Context) ([]string, error) {
	var refs []string
	query := `SELECT introduction_letter FROM visit_requests WHERE introduction_letter IS NOT NULL
		UNION ALL
		SELECT response_letter FROM visit_requests WHERE response_letter IS NOT NULL`
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list visit documents: %w", err)
	}
	return refs, nil
}

func lockAndCountSlot(ctx context.Context, tx *sqlx.Tx, date time.Time, session models.Session, excludeID int64) (int, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, slotLockNamespace, slotLockKey(date, session)); err != nil {
		return 0, fmt.Errorf("lock slot: %w", err)
	}
	var count int
	query := `SELECT COUNT(*) FROM visit_requests
		WHERE visit_date = $1 AND session = $2 AND status IN ('PENDING', 'ACCEPTED') AND id <> $3`
	if err := tx.GetContext(ctx, &count, query, date, session, excludeID); err != nil {
		return 0, fmt.Errorf("count slot: %w", err)
	}
	return count, nil
}

func sameSlot(aDate time.Time, aSession models.Session, bDate time.Time, bSession models.Session) bool {
	ay, am, ad := aDate.Date()
	by, bm, bd := bDate.Date()
	return ay == by && am == bm && ad == bd && aSession == bSession
}

// slotLockKey encodes (date, session) as YYYYMMDDs.
func slotLockKey(date time.Time, session models.Session) int32 {
	day := date.Year()*10000 + int(date.Month())*100 + date.Day()
	idx := 1
	if session == models.SessionTwo {
		idx = 2
	}
	return int32(day*10 + idx)
}

func updateVisitStatus(ctx context.Context, exec sqlx.ExtContext, update models.VisitStatusUpdate) error {
	query := `UPDATE visit_requests
		SET status = $1, rejection_reason = $2, response_letter = $3, updated_at = $4
		WHERE id = $5 AND status = $6`
	res, err := exec.ExecContext(ctx, query, update.To, update.RejectionReason, update.ResponseLetter, update.UpdatedAt, update.ID, update.From)
	if err != nil {
		return fmt.Errorf("update visit status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("visit status rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return classifyMiss(ctx, exec, "visit_requests", update.ID)
}

// classifyMiss distinguishes a missing row from a lost conditional update.
func classifyMiss(ctx context.Context, q sqlx.QueryerContext, table string, id int64) error {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check %s existence: %w", table, err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrStatusChanged
}

func countByStatus(ctx context.Context, db *sqlx.DB, table string) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS total FROM `+table+` GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func escapeLike(raw string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(raw)
}
