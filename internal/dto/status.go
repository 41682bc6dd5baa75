package dto

// StatusCheckRequest looks up the latest request of a kind by applicant keyword.
type StatusCheckRequest struct {
	Type    string `json:"type" validate:"required,oneof=visit internship"`
	Keyword string `json:"keyword" validate:"required,min=3,max=255"`
}

// ExportQuery selects the export format and status filter.
type ExportQuery struct {
	Format string `form:"format"`
	Status string `form:"status"`
}
