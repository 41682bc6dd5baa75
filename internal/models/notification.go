package models

import (
	"fmt"
	"time"
)

// Notification announces a request awaiting review.
type Notification struct {
	ID        string      `json:"id"`
	Kind      RequestKind `json:"type"`
	RequestID int64       `json:"requestId"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NotificationEventType names fan-out events.
type NotificationEventType string

const (
	NotificationCreated  NotificationEventType = "created"
	NotificationSnapshot NotificationEventType = "snapshot"
)

// NotificationEvent is pushed to subscribers. Snapshots always carry the
// list, even when it is empty.
type NotificationEvent struct {
	Type          NotificationEventType `json:"type"`
	Notification  *Notification         `json:"notification,omitempty"`
	Notifications []Notification        `json:"notifications"`
}

// NotificationID derives the stable entry id for a request.
func NotificationID(kind RequestKind, id int64) string {
	return fmt.Sprintf("%s-%d", kind, id)
}

// VisitNotification builds the pending entry for a visit.
func VisitNotification(v *VisitRequest) Notification {
	return Notification{
		ID:        NotificationID(KindVisit, v.ID),
		Kind:      KindVisit,
		RequestID: v.ID,
		Message:   fmt.Sprintf("Visit request from %s on %s (%s)", v.OrganizationName, v.DateString(), v.Session.Label()),
		CreatedAt: v.CreatedAt,
	}
}

// InternshipNotification builds the pending entry for an internship application.
func InternshipNotification(r *InternshipRequest) Notification {
	return Notification{
		ID:        NotificationID(KindInternship, r.ID),
		Kind:      KindInternship,
		RequestID: r.ID,
		Message:   fmt.Sprintf("Internship application from %s starting %s", r.FullName, r.StartDate.Format(DateLayout)),
		CreatedAt: r.CreatedAt,
	}
}
