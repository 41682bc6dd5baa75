package models

import (
	"strings"
	"time"
)

// VisitStatus enumerates visit lifecycle states.
type VisitStatus string

const (
	VisitPending  VisitStatus = "PENDING"
	VisitAccepted VisitStatus = "ACCEPTED"
	VisitRejected VisitStatus = "REJECTED"
)

var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitPending:  {VisitAccepted, VisitRejected},
	VisitAccepted: {VisitPending},
	VisitRejected: {VisitPending},
}

// ParseVisitStatus normalises raw into a VisitStatus.
func ParseVisitStatus(raw string) (VisitStatus, bool) {
	s := VisitStatus(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := visitTransitions[s]
	return s, ok
}

// OccupiesSlot reports whether a visit in this status counts against capacity.
func (s VisitStatus) OccupiesSlot() bool {
	return s == VisitPending || s == VisitAccepted
}

// CanTransitionTo reports whether the lifecycle permits s -> to.
func (s VisitStatus) CanTransitionTo(to VisitStatus) bool {
	for _, allowed := range visitTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// VisitRequest is a request by an organization to visit on a date and session.
type VisitRequest struct {
	ID                 int64       `db:"id" json:"id"`
	OrganizationName   string      `db:"organization_name" json:"organizationName"`
	ContactPerson      string      `db:"contact_person" json:"contactPerson"`
	Email              string      `db:"email" json:"email"`
	Phone              string      `db:"phone" json:"phone"`
	ParticipantCount   int         `db:"participant_count" json:"participantCount"`
	VisitDate          time.Time   `db:"visit_date" json:"visitDate"`
	Session            Session     `db:"session" json:"session"`
	Status             VisitStatus `db:"status" json:"status"`
	RejectionReason    *string     `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ResponseLetter     *string     `db:"response_letter" json:"responseLetter,omitempty"`
	IntroductionLetter *string     `db:"introduction_letter" json:"introductionLetter,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updatedAt"`
}

// DateString renders the visit date as YYYY-MM-DD.
func (v *VisitRequest) DateString() string {
	return v.VisitDate.Format(DateLayout)
}

// Document returns the stored reference for category, or nil.
func (v *VisitRequest) Document(category DocumentCategory) *string {
	switch category {
	case DocumentIntroductionLetter:
		return v.IntroductionLetter
	case DocumentResponseLetter:
		return v.ResponseLetter
	}
	return nil
}

// Documents returns every document reference owned by the request.
func (v *VisitRequest) Documents() []string {
	return collectRefs(v.IntroductionLetter, v.ResponseLetter)
}

// VisitFilter narrows visit listings.
type VisitFilter struct {
	Status VisitStatus
	Limit  int
	Offset int
}

// VisitStatusUpdate is a conditional status change guarded by From.
type VisitStatusUpdate struct {
	ID              int64
	From            VisitStatus
	To              VisitStatus
	RejectionReason *string
	ResponseLetter  *string
	UpdatedAt       time.Time
}

// VisitReschedule moves a visit to another slot.
type VisitReschedule struct {
	ID        int64
	VisitDate time.Time
	Session   Session
	UpdatedAt time.Time
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

func collectRefs(refs ...*string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref != nil && *ref != "" {
			out = append(out, *ref)
		}
	}
	return out
}
