package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/repository"
)

// memVisitStore mimics the locking semantics of the Postgres repository with a mutex.
type memVisitStore struct {
	mu        sync.Mutex
	visits    map[int64]models.VisitRequest
	nextID    int64
	updateErr error
	createErr error
	// beforeUpdate runs ahead of status writes to interleave a concurrent writer.
	beforeUpdate func()
}

func newMemVisitStore() *memVisitStore {
	return &memVisitStore{visits: make(map[int64]models.VisitRequest)}
}

func (m *memVisitStore) countLocked(date time.Time, session models.Session, exclude int64) int {
	n := 0
	for id, v := range m.visits {
		if id != exclude && v.VisitDate.Equal(date) && v.Session == session && v.Status.OccupiesSlot() {
			n++
		}
	}
	return n
}

func (m *memVisitStore) Occupancy(ctx context.Context, date time.Time) (map[models.Session]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[models.Session]int{
		models.SessionOne: m.countLocked(date, models.SessionOne, 0),
		models.SessionTwo: m.countLocked(date, models.SessionTwo, 0),
	}, nil
}

func (m *memVisitStore) CreateWithinCapacity(ctx context.Context, visit *models.VisitRequest, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if n := m.countLocked(visit.VisitDate, visit.Session, 0); n >= capacity {
		return &repository.SlotFullError{Count: n, Capacity: capacity}
	}
	m.nextID++
	visit.ID = m.nextID
	visit.UpdatedAt = visit.CreatedAt
	m.visits[visit.ID] = *visit
	return nil
}

func (m *memVisitStore) GetByID(ctx context.Context, id int64) (*models.VisitRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (m *memVisitStore) List(ctx context.Context, filter models.VisitFilter) ([]models.VisitRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.VisitRequest
	for _, v := range m.visits {
		if filter.Status == "" || v.Status == filter.Status {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memVisitStore) ListPending(ctx context.Context) ([]models.VisitRequest, error) {
	return m.List(ctx, models.VisitFilter{Status: models.VisitPending})
}

func (m *memVisitStore) applyLocked(update models.VisitStatusUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	v, ok := m.visits[update.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if v.Status != update.From {
		return repository.ErrStatusChanged
	}
	v.Status = update.To
	v.RejectionReason = update.RejectionReason
	v.ResponseLetter = update.ResponseLetter
	v.UpdatedAt = update.UpdatedAt
	m.visits[update.ID] = v
	return nil
}

func (m *memVisitStore) UpdateStatus(ctx context.Context, update models.VisitStatusUpdate) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(update)
}

func (m *memVisitStore) UpdateStatusWithinCapacity(ctx context.Context, update models.VisitStatusUpdate, date time.Time, session models.Session, capacity int) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[update.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if !v.VisitDate.Equal(date) || v.Session != session {
		return repository.ErrStatusChanged
	}
	if n := m.countLocked(date, session, update.ID); n >= capacity {
		return &repository.SlotFullError{Count: n, Capacity: capacity}
	}
	return m.applyLocked(update)
}

func (m *memVisitStore) Reschedule(ctx context.Context, change models.VisitReschedule, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[change.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if v.Status.OccupiesSlot() {
		if n := m.countLocked(change.VisitDate, change.Session, change.ID); n >= capacity {
			return &repository.SlotFullError{Count: n, Capacity: capacity}
		}
	}
	v.VisitDate = change.VisitDate
	v.Session = change.Session
	v.UpdatedAt = change.UpdatedAt
	m.visits[change.ID] = v
	return nil
}

func (m *memVisitStore) Delete(ctx context.Context, id int64) (*models.VisitRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.visits, id)
	return &v, nil
}

func (m *memVisitStore) FindLatestByContact(ctx context.Context, keyword string) (*models.VisitRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.VisitRequest
	for _, v := range m.visits {
		v := v
		if strings.EqualFold(v.Email, keyword) || strings.Contains(strings.ToLower(v.ContactPerson), strings.ToLower(keyword)) {
			if best == nil || v.ID > best.ID {
				best = &v
			}
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	return best, nil
}

func (m *memVisitStore) occupancy(date time.Time, session models.Session) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(date, session, 0)
}
