package models

import "strings"

// Session is one of the two fixed daily visit slots.
type Session string

const (
	SessionOne Session = "SESSION_1"
	SessionTwo Session = "SESSION_2"
)

// Sessions lists the daily slots in order.
var Sessions = []Session{SessionOne, SessionTwo}

// ParseSession normalises raw into a Session.
func ParseSession(raw string) (Session, bool) {
	s := Session(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case SessionOne, SessionTwo:
		return s, true
	}
	return "", false
}

// Label is the human readable session name.
func (s Session) Label() string {
	switch s {
	case SessionOne:
		return "Session 1"
	case SessionTwo:
		return "Session 2"
	}
	return string(s)
}

// SessionAvailability is the occupancy of one slot.
type SessionAvailability struct {
	Count    int  `json:"count"`
	Capacity int  `json:"capacity"`
	IsFull   bool `json:"isFull"`
}

// Availability projects slot occupancy for one date.
type Availability struct {
	Date          string              `json:"date"`
	Session1      SessionAvailability `json:"session1"`
	Session2      SessionAvailability `json:"session2"`
	IsFullyBooked bool                `json:"isFullyBooked"`
}

// NewAvailability builds the projection from per-session counts.
func NewAvailability(date string, counts map[Session]int, capacity int) Availability {
	project := func(s Session) SessionAvailability {
		count := counts[s]
		return SessionAvailability{Count: count, Capacity: capacity, IsFull: count >= capacity}
	}
	a := Availability{
		Date:     date,
		Session1: project(SessionOne),
		Session2: project(SessionTwo),
	}
	a.IsFullyBooked = a.Session1.IsFull && a.Session2.IsFull
	return a
}
