package domain

import "time"

// NotificationKind labels an in-app notification for inbox filtering.
type NotificationKind string

const (
	KindApplicationReceived  NotificationKind = "application_received"
	KindApplicationApproved  NotificationKind = "application_approved"
	KindApplicationRejected  NotificationKind = "application_rejected"
	KindApplicationWithdrawn NotificationKind = "application_withdrawn"
	KindRenewalApproved      NotificationKind = "renewal_approved"
	KindSemesterReminder     NotificationKind = "semester_reminder"
	KindSemesterExpired      NotificationKind = "semester_expired_notice"
)

func (k NotificationKind) String() string { return string(k) }

// Notification is one in-app inbox message. Delivery is best effort and never
// blocks the operation that produced it.
type Notification struct {
	ID        string
	UserID    string
	Kind      NotificationKind
	Title     string
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}
