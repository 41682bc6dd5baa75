package dto

// SubmitInternshipRequest is the multipart form of an internship application.
type SubmitInternshipRequest struct {
	FullName        string `form:"fullName" json:"fullName" validate:"required,max=255"`
	Institution     string `form:"institution" json:"institution" validate:"required,max=255"`
	StudentNumber   string `form:"studentNumber" json:"studentNumber" validate:"required,max=64"`
	Major           string `form:"major" json:"major" validate:"required,max=255"`
	Phone           string `form:"phone" json:"phone" validate:"required,min=6,max=32"`
	Email           string `form:"email" json:"email" validate:"required,email,max=255"`
	EducationLevel  string `form:"educationLevel" json:"educationLevel" validate:"required,max=64"`
	BirthPlace      string `form:"birthPlace" json:"birthPlace" validate:"required,max=128"`
	BirthDate       string `form:"birthDate" json:"birthDate" validate:"required,datetime=2006-01-02"`
	WorkUnit        string `form:"workUnit" json:"workUnit" validate:"required,max=255"`
	InternshipMonth string `form:"internshipMonth" json:"internshipMonth" validate:"required,max=32"`
	Duration        string `form:"duration" json:"duration" validate:"required,max=64"`
	DurationOther   string `form:"durationOther" json:"durationOther" validate:"omitempty,max=255"`
	StartDate       string `form:"startDate" json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string `form:"endDate" json:"endDate" validate:"required,datetime=2006-01-02"`
	Motivation      string `form:"motivation" json:"motivation" validate:"required"`
	SelfDescription string `form:"selfDescription" json:"selfDescription"`
	PortfolioLink   string `form:"portfolioLink" json:"portfolioLink" validate:"omitempty,url,max=512"`
}

// UpdateInternshipStatusRequest drives an internship transition.
type UpdateInternshipStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// InternshipListQuery captures list query parameters.
type InternshipListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// InternshipSubmission is returned to the applicant after applying.
type InternshipSubmission struct {
	ID      int64  `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
