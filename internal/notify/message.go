package notify

import (
	"fmt"
	"strings"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
)

const (
	// MailQueueName is the outbound email work queue consumed by the host
	// application's mailer.
	MailQueueName = "mail.outbound"

	// MailDLQName receives messages the mailer gave up on.
	MailDLQName = "dlq.mail.outbound"
)

// EmailMessage is the broker payload handed to the mailer. The template is
// rendered by the mail host, not here.
type EmailMessage struct {
	UserID   string            `json:"userId"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars,omitempty"`
}

func (m EmailMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("userId is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(m.Template) == "" {
		return fmt.Errorf("template is required")
	}
	return nil
}

// Event is one user-facing occurrence: an in-app notification plus the email
// that mirrors it.
type Event struct {
	UserID   string
	Kind     domain.NotificationKind
	Title    string
	Message  string
	Template string
	Vars     map[string]string
}

// InApp returns the inbox row for the event. ID and CreatedAt are assigned at
// delivery time.
func (e Event) InApp() domain.Notification {
	return domain.Notification{
		UserID:  e.UserID,
		Kind:    e.Kind,
		Title:   e.Title,
		Message: e.Message,
	}
}

// Email returns the outbound mail for the event.
func (e Event) Email() EmailMessage {
	return EmailMessage{
		UserID:   e.UserID,
		Subject:  e.Title,
		Template: e.Template,
		Vars:     e.Vars,
	}
}
