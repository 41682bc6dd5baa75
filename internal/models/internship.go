package models

import (
	"strings"
	"time"
)

// InternshipStatus enumerates internship lifecycle states.
type InternshipStatus string

const (
	InternshipPending  InternshipStatus = "PENDING"
	InternshipApproved InternshipStatus = "APPROVED"
	InternshipRejected InternshipStatus = "REJECTED"
)

var internshipTransitions = map[InternshipStatus][]InternshipStatus{
	InternshipPending:  {InternshipApproved, InternshipRejected},
	InternshipApproved: {InternshipPending},
	InternshipRejected: {InternshipPending},
}

// ParseInternshipStatus normalises raw into an InternshipStatus.
func ParseInternshipStatus(raw string) (InternshipStatus, bool) {
	s := InternshipStatus(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := internshipTransitions[s]
	return s, ok
}

// CanTransitionTo reports whether the lifecycle permits s -> to.
func (s InternshipStatus) CanTransitionTo(to InternshipStatus) bool {
	for _, allowed := range internshipTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InternshipRequest is an application for an internship placement.
type InternshipRequest struct {
	ID              int64            `db:"id" json:"id"`
	FullName        string           `db:"full_name" json:"fullName"`
	Institution     string           `db:"institution" json:"institution"`
	StudentNumber   string           `db:"student_number" json:"studentNumber"`
	Major           string           `db:"major" json:"major"`
	Phone           string           `db:"phone" json:"phone"`
	Email           string           `db:"email" json:"email"`
	EducationLevel  string           `db:"education_level" json:"educationLevel"`
	BirthPlace      string           `db:"birth_place" json:"birthPlace"`
	BirthDate       time.Time        `db:"birth_date" json:"birthDate"`
	WorkUnit        string           `db:"work_unit" json:"workUnit"`
	InternshipMonth string           `db:"internship_month" json:"internshipMonth"`
	Duration        string           `db:"duration" json:"duration"`
	DurationOther   *string          `db:"duration_other" json:"durationOther,omitempty"`
	StartDate       time.Time        `db:"start_date" json:"startDate"`
	EndDate         time.Time        `db:"end_date" json:"endDate"`
	Motivation      string           `db:"motivation" json:"motivation"`
	SelfDescription *string          `db:"self_description" json:"selfDescription,omitempty"`
	PortfolioLink   *string          `db:"portfolio_link" json:"portfolioLink,omitempty"`
	CoverLetter     string           `db:"cover_letter" json:"coverLetter"`
	CV              string           `db:"cv" json:"cv"`
	Transcript      string           `db:"transcript" json:"transcript"`
	StudentCard     string           `db:"student_card" json:"studentCard"`
	IDPhoto         string           `db:"id_photo" json:"idPhoto"`
	Status          InternshipStatus `db:"status" json:"status"`
	RejectionReason *string          `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// Document returns the stored reference for category, or nil.
func (r *InternshipRequest) Document(category DocumentCategory) *string {
	var ref string
	switch category {
	case DocumentCoverLetter:
		ref = r.CoverLetter
	case DocumentCV:
		ref = r.CV
	case DocumentTranscript:
		ref = r.Transcript
	case DocumentStudentCard:
		ref = r.StudentCard
	case DocumentIDPhoto:
		ref = r.IDPhoto
	}
	if ref == "" {
		return nil
	}
	return &ref
}

// SetDocument assigns the reference for category.
func (r *InternshipRequest) SetDocument(category DocumentCategory, ref string) {
	switch category {
	case DocumentCoverLetter:
		r.CoverLetter = ref
	case DocumentCV:
		r.CV = ref
	case DocumentTranscript:
		r.Transcript = ref
	case DocumentStudentCard:
		r.StudentCard = ref
	case DocumentIDPhoto:
		r.IDPhoto = ref
	}
}

// Documents returns every document reference owned by the request.
func (r *InternshipRequest) Documents() []string {
	return collectRefs(&r.CoverLetter, &r.CV, &r.Transcript, &r.StudentCard, &r.IDPhoto)
}

// InternshipFilter narrows internship listings.
type InternshipFilter struct {
	Status InternshipStatus
	Limit  int
	Offset int
}

// InternshipStatusUpdate is a conditional status change guarded by From.
type InternshipStatusUpdate struct {
	ID              int64
	From            InternshipStatus
	To              InternshipStatus
	RejectionReason *string
	UpdatedAt       time.Time
}
