package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

type occupancyReader interface {
	Occupancy(ctx context.Context, date time.Time) (map[models.Session]int, error)
}

// SlotLedger answers availability questions from durable occupancy counts.
// Results may be cached briefly; every slot-affecting write invalidates the date.
type SlotLedger struct {
	repo   occupancyReader
	policy AdmissionPolicy
	cache  *AvailabilityCache
	logger *zap.Logger
}

// NewSlotLedger constructs a ledger. cache may be nil.
func NewSlotLedger(repo occupancyReader, policy AdmissionPolicy, cache *AvailabilityCache, logger *zap.Logger) *SlotLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotLedger{repo: repo, policy: policy, cache: cache, logger: logger}
}

// Policy exposes the admission rules used by the ledger.
func (l *SlotLedger) Policy() AdmissionPolicy {
	return l.policy
}

// Occupancy counts occupying visits per session on date.
func (l *SlotLedger) Occupancy(ctx context.Context, date time.Time) (map[models.Session]int, error) {
	counts, err := l.repo.Occupancy(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read slot occupancy")
	}
	return counts, nil
}

// CheckAvailability projects occupancy for a date given as YYYY-MM-DD.
// The date must pass the same calendar rules as a booking.
func (l *SlotLedger) CheckAvailability(ctx context.Context, rawDate string) (*models.Availability, error) {
	date, err := l.policy.ValidateDate(rawDate)
	if err != nil {
		return nil, err
	}
	if cached, ok := l.cache.Lookup(ctx, date); ok {
		l.logger.Debug("availability served from cache", zap.String("date", cached.Date))
		return cached, nil
	}

	counts, err := l.Occupancy(ctx, date)
	if err != nil {
		return nil, err
	}
	availability := models.NewAvailability(date.Format(models.DateLayout), counts, l.policy.Capacity)
	_ = l.cache.Store(ctx, date, availability)
	return &availability, nil
}

// Invalidate drops cached availability for the given dates.
func (l *SlotLedger) Invalidate(ctx context.Context, dates ...time.Time) {
	// Failures are logged by the cache; entries still expire on their TTL.
	_ = l.cache.Forget(ctx, dates...)
}
