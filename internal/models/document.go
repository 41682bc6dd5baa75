package models

// DocumentCategory identifies the role an uploaded document plays.
type DocumentCategory string

const (
	DocumentIntroductionLetter DocumentCategory = "introduction_letter"
	DocumentResponseLetter     DocumentCategory = "response_letter"
	DocumentCoverLetter        DocumentCategory = "cover_letter"
	DocumentCV                 DocumentCategory = "cv"
	DocumentTranscript         DocumentCategory = "transcript"
	DocumentStudentCard        DocumentCategory = "student_card"
	DocumentIDPhoto            DocumentCategory = "id_photo"
)

// InternshipDocumentCategories lists the mandatory internship uploads in form order.
var InternshipDocumentCategories = []DocumentCategory{
	DocumentCoverLetter,
	DocumentCV,
	DocumentTranscript,
	DocumentStudentCard,
	DocumentIDPhoto,
}

// ParseDocumentCategory validates raw as a known category.
func ParseDocumentCategory(raw string) (DocumentCategory, bool) {
	c := DocumentCategory(raw)
	switch c {
	case DocumentIntroductionLetter, DocumentResponseLetter, DocumentCoverLetter, DocumentCV,
		DocumentTranscript, DocumentStudentCard, DocumentIDPhoto:
		return c, true
	}
	return "", false
}
