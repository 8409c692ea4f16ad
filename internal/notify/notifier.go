package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/observability"
	"github.com/Mliaj/scholarsphere-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers the two legs of an event: the in-app inbox row and the
// outbound email. Both are best effort from the caller's point of view.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
	Email(ctx context.Context, msg EmailMessage) error
}

// Service is the default Notifier: inbox rows go to the notifications table,
// emails to the mail queue.
type Service struct {
	notifications repository.NotificationRepository
	mail          MailPublisher

	now   func() time.Time
	newID func() string
}

func NewService(notifications repository.NotificationRepository, mail MailPublisher) *Service {
	return &Service{
		notifications: notifications,
		mail:          mail,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *Service) Notify(ctx context.Context, n domain.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	n.ID = s.newID()
	n.CreatedAt = s.now()

	return s.notifications.Create(ctx, &n)
}

func (s *Service) Email(ctx context.Context, msg EmailMessage) error {
	if s.mail == nil {
		return fmt.Errorf("mail publisher is not configured")
	}
	return s.mail.Publish(ctx, msg)
}

// Outbox accumulates events raised inside a transaction so nothing
// user-visible goes out unless the transaction commits.
type Outbox struct {
	events []Event
}

func NewOutbox() *Outbox { return &Outbox{} }

func (o *Outbox) Add(e Event) {
	o.events = append(o.events, e)
}

func (o *Outbox) Events() []Event { return o.events }

func (o *Outbox) Len() int { return len(o.events) }

// Dispatcher flushes outboxes after commit. Delivery failures are logged and
// swallowed; inability to notify is not inability to decide.
type Dispatcher struct {
	notifier Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewDispatcher(notifier Notifier, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Flush delivers every event in the outbox and returns how many had both
// legs succeed.
func (d *Dispatcher) Flush(ctx context.Context, outbox *Outbox) int {
	if outbox == nil {
		return 0
	}

	delivered := 0
	for _, e := range outbox.Events() {
		ok := true

		if err := d.notifier.Notify(ctx, e.InApp()); err != nil {
			d.logger.Warn("in-app notification delivery failed",
				zap.String("user_id", e.UserID),
				zap.String("kind", e.Kind.String()),
				zap.Error(err))
			ok = false
		}

		if err := d.notifier.Email(ctx, e.Email()); err != nil {
			d.logger.Warn("email delivery failed",
				zap.String("user_id", e.UserID),
				zap.String("kind", e.Kind.String()),
				zap.Error(err))
			d.metrics.IncMailPublishFailure()
			ok = false
		}

		if ok {
			delivered++
		}
	}

	return delivered
}
