package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
)

// NotificationKind labels the reason a notification was sent.
type NotificationKind string

const (
	NotificationTicketAssigned  NotificationKind = "ticket_assigned"
	NotificationStatusChanged   NotificationKind = "status_changed"
	NotificationTicketEscalated NotificationKind = "ticket_escalated"
)

// NotificationService delivers fire-and-forget notifications in response to
// ticket events. Delivery currently logs; a mail or webhook sender can be
// slotted in behind Notify without touching the subscriptions.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService constructs the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, cfg: cfg}
}

// RegisterHandlers subscribes the service to the ticket events it cares about.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketSubmitted, s.onTicketSubmitted)
	dispatcher.Subscribe(events.EventStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventTicketEscalated, s.onTicketEscalated)
}

// Notify records one delivery attempt. Errors never propagate to callers.
func (s *NotificationService) Notify(ctx context.Context, recipientType domain.SubjectType, recipientID, ticketID string, kind NotificationKind, message string) {
	s.logger.Info("notification",
		zap.String("recipient_type", string(recipientType)),
		zap.String("recipient_id", recipientID),
		zap.String("ticket_id", ticketID),
		zap.String("kind", string(kind)),
		zap.String("message", message))
	if s.cfg.WebhookURL != "" {
		s.logger.Debug("notification webhook delivery queued",
			zap.String("webhook_url", s.cfg.WebhookURL),
			zap.String("ticket_id", ticketID))
	}
}

func (s *NotificationService) onTicketSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSubmittedPayload)
	if !ok {
		return nil
	}
	if payload.AssignedAuthorityID == nil {
		return nil
	}
	s.Notify(ctx, domain.SubjectTypeAuthority, *payload.AssignedAuthorityID, event.TicketID,
		NotificationTicketAssigned, "a new grievance has been assigned to you: "+payload.Subject)
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return nil
	}
	s.Notify(ctx, domain.SubjectTypeUser, payload.SubmitterID, event.TicketID,
		NotificationStatusChanged, "your grievance moved to "+string(payload.NewStatus))
	return nil
}

func (s *NotificationService) onTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	s.Notify(ctx, domain.SubjectTypeAuthority, payload.NewAuthorityID, event.TicketID,
		NotificationTicketEscalated, "a grievance has been escalated to you")
	s.Notify(ctx, domain.SubjectTypeUser, payload.SubmitterID, event.TicketID,
		NotificationTicketEscalated, "your grievance was escalated to a higher authority")
	return nil
}
