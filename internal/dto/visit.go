package dto

// SubmitVisitRequest is the multipart form of a public visit booking.
type SubmitVisitRequest struct {
	OrganizationName string `form:"organizationName" json:"organizationName" validate:"required,max=255"`
	ContactPerson    string `form:"contactPerson" json:"contactPerson" validate:"required,max=255"`
	Email            string `form:"email" json:"email" validate:"required,email,max=255"`
	Phone            string `form:"phone" json:"phone" validate:"required,min=6,max=32"`
	ParticipantCount int    `form:"participantCount" json:"participantCount" validate:"required,min=1,max=1000"`
	VisitDate        string `form:"visitDate" json:"visitDate"`
	Session          string `form:"session" json:"session"`
}

// UpdateVisitStatusRequest drives a visit transition. The response letter
// travels as a separate multipart file.
type UpdateVisitStatusRequest struct {
	Status string `form:"status" json:"status"`
	Reason string `form:"reason" json:"reason"`
}

// RescheduleVisitRequest moves a visit to a new slot. An empty date keeps the current one.
type RescheduleVisitRequest struct {
	VisitDate string `json:"visitDate"`
	Session   string `json:"session"`
}

// VisitListQuery captures list query parameters.
type VisitListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// VisitSubmission is returned to the applicant after booking.
type VisitSubmission struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	VisitDate string `json:"visitDate"`
	Session   string `json:"session"`
	Message   string `json:"message"`
}
