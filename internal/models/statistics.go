package models

import "time"

// StatusCounts tallies requests of one kind by status.
type StatusCounts struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// Statistics summarises both intake flows.
type Statistics struct {
	Visits      StatusCounts `json:"visits"`
	Internships StatusCounts `json:"internships"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// StatusLookup is the public view of a request's progress.
type StatusLookup struct {
	Kind            RequestKind `json:"type"`
	RequestID       int64       `json:"requestId"`
	Applicant       string      `json:"applicant"`
	Status          string      `json:"status"`
	Message         string      `json:"message"`
	Date            string      `json:"date"`
	Session         Session     `json:"session,omitempty"`
	RejectionReason *string     `json:"rejectionReason,omitempty"`
	SubmittedAt     time.Time   `json:"submittedAt"`
}
