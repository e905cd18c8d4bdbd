package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/events"
)

// AuditService logs every engine event for operational visibility.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketOpened,
		events.EventTicketClosed,
		events.EventPageBatchQueued,
		events.EventSubscribersRotated,
		events.EventSubscriberDeactivated,
		events.EventSubscriberReactivated,
		events.EventTicketAcknowledged,
		events.EventTicketRejected,
	} {
		a.dispatcher.Subscribe(eventType, a.logEvent)
	}
}

func (a *AuditService) logEvent(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("group", event.GroupName),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
