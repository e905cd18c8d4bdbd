package events

import (
	"time"

	"github.com/PagerNation/escalator/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened           EventType = "ticket_opened"
	EventTicketClosed           EventType = "ticket_closed"
	EventPageBatchQueued        EventType = "page_batch_queued"
	EventSubscribersRotated     EventType = "subscribers_rotated"
	EventSubscriberDeactivated  EventType = "subscriber_deactivated"
	EventSubscriberReactivated  EventType = "subscriber_reactivated"
	EventTicketAcknowledged     EventType = "ticket_acknowledged"
	EventTicketRejected         EventType = "ticket_rejected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GroupName string      `json:"group_name,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PageBatchQueuedPayload payload.
type PageBatchQueuedPayload struct {
	PageIDs  []string `json:"page_ids"`
	Requests int      `json:"requests"`
}

// SubscribersRotatedPayload payload.
type SubscribersRotatedPayload struct {
	OnCallUserID string    `json:"on_call_user_id,omitempty"`
	NextRotation time.Time `json:"next_rotation"`
}

// SubscriberTransitionPayload payload for deactivation/reactivation.
type SubscriberTransitionPayload struct {
	UserID       string     `json:"user_id"`
	Active       bool       `json:"active"`
	ReactivateAt *time.Time `json:"reactivate_at,omitempty"`
}

// TicketActionPayload payload for audit-trail appends.
type TicketActionPayload struct {
	Action domain.TicketActionType `json:"action"`
	UserID string                  `json:"user_id,omitempty"`
	Note   string                  `json:"note,omitempty"`
}
