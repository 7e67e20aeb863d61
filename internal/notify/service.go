// Package notify turns status changes into notification intents and hands
// them to a delivery channel. The scheduling core only decides *that* a
// notification should fire; delivery stays behind EmailSender / the outbox.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/vetline/clinic-portal/internal/observability/metrics"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Intent describes one notification the scheduling core decided to emit.
type Intent struct {
	Contact   string `json:"contact"`
	Recipient string `json:"recipient,omitempty"`
	Summary   string `json:"summary"`
	NewStatus string `json:"new_status"`
}

// Service decides whether to notify and routes intents to delivery.
// When an outbox is configured, intents are persisted and delivered
// asynchronously so a slow mail provider never blocks a transition.
type Service struct {
	email   EmailSender
	outbox  *Outbox
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

// NewService creates a notification service. Both email and outbox may be
// nil; intents are then logged and dropped.
func NewService(email EmailSender, outbox *Outbox, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:   email,
		outbox:  outbox,
		metrics: m,
		logger:  logger,
	}
}

// StatusChanged emits a notification for a status change. A missing contact
// address means the requester opted out of email entirely; that is not an
// error.
func (s *Service) StatusChanged(ctx context.Context, intent Intent) error {
	if strings.TrimSpace(intent.Contact) == "" {
		s.logger.Debug("notify: no contact address, skipping", "status", intent.NewStatus)
		return nil
	}
	s.metrics.ObserveNotificationIntent()

	if s.outbox != nil {
		if _, err := s.outbox.Enqueue(ctx, intent); err != nil {
			return fmt.Errorf("notify: enqueue intent: %w", err)
		}
		return nil
	}

	if s.email == nil {
		s.logger.Info("notify: no delivery channel configured, dropping intent",
			"contact", intent.Contact, "status", intent.NewStatus)
		return nil
	}
	return s.email.Send(ctx, BuildEmail(intent))
}

// BuildEmail renders the staff-approved status change email for an intent.
func BuildEmail(intent Intent) EmailMessage {
	subject := fmt.Sprintf("Your appointment is now %s", intent.NewStatus)
	body := intent.Summary
	if body == "" {
		body = fmt.Sprintf("The status of your appointment changed to %s.", intent.NewStatus)
	} else {
		body = fmt.Sprintf("%s\n\nNew status: %s", intent.Summary, intent.NewStatus)
	}
	return EmailMessage{
		To:      intent.Contact,
		ToName:  intent.Recipient,
		Subject: subject,
		Body:    body,
	}
}
