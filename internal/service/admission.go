package service

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/repository"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

// AdmissionPolicy holds the calendar rules a visit slot must satisfy before
// capacity is checked. "Today" is derived in Location; parsed dates are
// returned as UTC midnights so they round-trip through DATE columns unchanged.
type AdmissionPolicy struct {
	Capacity int
	Location *time.Location
	Now      func() time.Time
}

// NewAdmissionPolicy builds a policy with sane fallbacks for zero values.
func NewAdmissionPolicy(capacity int, loc *time.Location) AdmissionPolicy {
	if capacity <= 0 {
		capacity = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return AdmissionPolicy{Capacity: capacity, Location: loc, Now: time.Now}
}

func (p AdmissionPolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p AdmissionPolicy) today() time.Time {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return civilDate(now().In(p.location()))
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func (p AdmissionPolicy) ParseDate(raw string) (time.Time, error) {
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, appErrors.ErrInvalidDate.Message)
	}
	return date, nil
}

// ValidateDate applies the date rules in order: parseable, not past, business day.
func (p AdmissionPolicy) ValidateDate(raw string) (time.Time, error) {
	date, err := p.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if date.Before(p.today()) {
		return time.Time{}, appErrors.WithDetails(appErrors.ErrPastDate, map[string]interface{}{"date": date.Format(models.DateLayout)})
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return time.Time{}, appErrors.WithDetails(appErrors.ErrNonBusinessDay, map[string]interface{}{"weekday": wd.String()})
	}
	return date, nil
}

// ValidateSlot applies the date rules followed by the session rule.
func (p AdmissionPolicy) ValidateSlot(rawDate, rawSession string) (time.Time, models.Session, error) {
	date, err := p.ValidateDate(rawDate)
	if err != nil {
		return time.Time{}, "", err
	}
	session, ok := models.ParseSession(rawSession)
	if !ok {
		return time.Time{}, "", appErrors.WithDetails(appErrors.ErrInvalidSession, map[string]interface{}{"session": rawSession})
	}
	return date, session, nil
}

// admissionError maps a repository capacity rejection onto SLOT_FULL.
// Any other error is returned unchanged.
func admissionError(err error) error {
	var full *repository.SlotFullError
	if errors.As(err, &full) {
		return appErrors.WithDetails(appErrors.ErrSlotFull, map[string]interface{}{
			"currentCount": full.Count,
			"capacity":     full.Capacity,
		})
	}
	return err
}
