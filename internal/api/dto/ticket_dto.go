package dto

import (
	"time"

	"github.com/PagerNation/escalator/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	GroupName   string `json:"group_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TicketFeedbackRequest payload for acknowledge/reject callbacks.
type TicketFeedbackRequest struct {
	UserID string `json:"user_id"`
}

// DirectSendRequest payload for a queue delivery callback.
type DirectSendRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// TicketResponse response.
type TicketResponse struct {
	ID          string               `json:"id"`
	GroupName   string               `json:"group_name"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	IsOpen      bool                 `json:"is_open"`
	Actions     []TicketActionEntry  `json:"actions"`
	PageIDs     []string             `json:"page_ids"`
	Pages       []PageRequestSummary `json:"pages,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// TicketActionEntry audit entry.
type TicketActionEntry struct {
	Type      domain.TicketActionType `json:"type"`
	UserID    string                  `json:"user_id,omitempty"`
	Note      string                  `json:"note,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// PageRequestSummary describes one queued page attempt.
type PageRequestSummary struct {
	UserID      string            `json:"user_id"`
	DeviceID    string            `json:"device_id"`
	DeviceType  domain.DeviceType `json:"device_type"`
	DelayMillis int64             `json:"delay_millis"`
}

// TicketFromDomain maps a ticket to its response shape.
func TicketFromDomain(ticket *domain.Ticket, requests []domain.PageRequest) TicketResponse {
	resp := TicketResponse{
		ID:          ticket.ID,
		GroupName:   ticket.GroupName,
		Title:       ticket.Title,
		Description: ticket.Description,
		IsOpen:      ticket.IsOpen,
		Actions:     make([]TicketActionEntry, 0, len(ticket.Actions)),
		PageIDs:     ticket.PageIDs,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
	for _, action := range ticket.Actions {
		resp.Actions = append(resp.Actions, TicketActionEntry{
			Type:      action.Type,
			UserID:    action.UserID,
			Note:      action.Note,
			Timestamp: action.Timestamp,
		})
	}
	for _, req := range requests {
		resp.Pages = append(resp.Pages, PageRequestSummary{
			UserID:      req.UserID,
			DeviceID:    req.Device.ID,
			DeviceType:  req.Device.Type,
			DelayMillis: req.DelayMillis,
		})
	}
	return resp
}
