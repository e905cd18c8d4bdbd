package domain

import "time"

// TicketActionType enumerates audit trail entries on a ticket.
type TicketActionType string

const (
	ActionCreated      TicketActionType = "CREATED"
	ActionPageSent     TicketActionType = "PAGE_SENT"
	ActionAcknowledged TicketActionType = "ACKNOWLEDGED"
	ActionRejected     TicketActionType = "REJECTED"
	ActionClosed       TicketActionType = "CLOSED"
)

// TicketAction is an append-only audit entry.
type TicketAction struct {
	Type      TicketActionType `json:"type"`
	UserID    string           `json:"user_id,omitempty"`
	Note      string           `json:"note,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Ticket is the aggregate for incidents that trigger escalation. PageIDs
// records queue handles from the submitted fan-out batch so that closing the
// ticket can cancel pages that have not fired yet.
type Ticket struct {
	ID          string
	GroupName   string
	Title       string
	Description string
	IsOpen      bool
	Actions     []TicketAction
	PageIDs     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppendAction records an audit entry on the ticket.
func (t *Ticket) AppendAction(actionType TicketActionType, userID, note string, at time.Time) {
	t.Actions = append(t.Actions, TicketAction{
		Type:      actionType,
		UserID:    userID,
		Note:      note,
		Timestamp: at,
	})
}
