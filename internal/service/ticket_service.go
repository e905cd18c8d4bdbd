package service

import (
	"context"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	"github.com/PagerNation/escalator/internal/events"
	"github.com/PagerNation/escalator/internal/paging"
	"github.com/PagerNation/escalator/internal/repository"
	util "github.com/PagerNation/escalator/pkg/util"
)

// TicketService coordinates the ticket lifecycle around the escalation
// engine: opening triggers alert fan-out, callbacks append to the audit
// trail, closing cancels whatever pages have not fired.
type TicketService struct {
	tickets    repository.TicketRepository
	groups     repository.GroupRepository
	alerts     *AlertService
	queue      paging.Queue
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	GroupRepo  repository.GroupRepository
	Alerts     *AlertService
	Queue      paging.Queue
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	GroupName   string
	Title       string
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		groups:     deps.GroupRepo,
		alerts:     deps.Alerts,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// OpenTicket persists a new open ticket and fans it out to the group's
// escalation policy. The ticket survives a failed fan-out; the transport
// error propagates so the caller can retry the paging side.
func (s *TicketService) OpenTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, []domain.PageRequest, error) {
	title := strings.TrimSpace(input.Title)
	if input.GroupName == "" || title == "" {
		return nil, nil, util.NewValidationError("group_name and title required", nil)
	}
	if _, err := s.groups.GetByName(ctx, input.GroupName); err != nil {
		return nil, nil, err
	}

	ticket := &domain.Ticket{
		GroupName:   input.GroupName,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		IsOpen:      true,
	}
	ticket.AppendAction(domain.ActionCreated, "", "", s.clock.Now())
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketOpened,
		GroupName: ticket.GroupName,
		TicketID:  ticket.ID,
		Payload: events.TicketActionPayload{
			Action: domain.ActionCreated,
			Note:   ticket.Title,
		},
	})

	requests, err := s.alerts.CreateAlert(ctx, ticket)
	if err != nil {
		return ticket, nil, err
	}
	return ticket, requests, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// AcknowledgeTicket records delivery feedback from a paged user.
func (s *TicketService) AcknowledgeTicket(ctx context.Context, ticketID, userID string) (*domain.Ticket, error) {
	return s.appendFeedback(ctx, ticketID, userID, domain.ActionAcknowledged, events.EventTicketAcknowledged)
}

// RejectTicket records a paged user declining the incident.
func (s *TicketService) RejectTicket(ctx context.Context, ticketID, userID string) (*domain.Ticket, error) {
	return s.appendFeedback(ctx, ticketID, userID, domain.ActionRejected, events.EventTicketRejected)
}

// CloseTicket closes an open ticket and requests cancellation of its
// not-yet-fired pages. A cancel failure is logged but does not block
// closure: pages against a closed ticket are ignorable at delivery time.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID, userID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen {
		return nil, util.NewConflict("ticket already closed", map[string]any{"id": ticketID})
	}

	if len(ticket.PageIDs) > 0 {
		if err := s.queue.Cancel(ctx, ticket.PageIDs); err != nil {
			s.logger.Warn("failed to cancel pending pages",
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
	}

	ticket.IsOpen = false
	ticket.AppendAction(domain.ActionClosed, userID, "", s.clock.Now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketClosed,
		GroupName: ticket.GroupName,
		TicketID:  ticket.ID,
		Payload: events.TicketActionPayload{
			Action: domain.ActionClosed,
			UserID: userID,
		},
	})
	return ticket, nil
}

func (s *TicketService) appendFeedback(ctx context.Context, ticketID, userID string, action domain.TicketActionType, eventType events.EventType) (*domain.Ticket, error) {
	if userID == "" {
		return nil, util.NewValidationError("user_id required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen {
		return nil, util.NewConflict("ticket is closed", map[string]any{"id": ticketID})
	}

	ticket.AppendAction(action, userID, "", s.clock.Now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      eventType,
		GroupName: ticket.GroupName,
		TicketID:  ticket.ID,
		Payload: events.TicketActionPayload{
			Action: action,
			UserID: userID,
		},
	})
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
