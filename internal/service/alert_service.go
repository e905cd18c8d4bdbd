package service

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	"github.com/PagerNation/escalator/internal/events"
	"github.com/PagerNation/escalator/internal/notify"
	"github.com/PagerNation/escalator/internal/paging"
	"github.com/PagerNation/escalator/internal/repository"
	util "github.com/PagerNation/escalator/pkg/util"
)

const millisPerMinute = 60_000

// RetryStrategy wraps paging-queue submission attempts. The default performs
// a single attempt; callers can inject backoff without touching the fan-out.
type RetryStrategy func(ctx context.Context, op func() error) error

// SingleAttempt runs the operation once and propagates its error.
func SingleAttempt(ctx context.Context, op func() error) error {
	return op()
}

// AlertService turns an open ticket and its group's live escalation policy
// into a delay-annotated batch of per-device page requests. The paging queue
// is the authority that waits out each delay; this service's job ends at
// producing a correctly ordered, correctly delayed batch.
type AlertService struct {
	groups          repository.GroupRepository
	users           repository.UserRepository
	tickets         repository.TicketRepository
	queue           paging.Queue
	notifier        notify.Client
	dispatcher      events.Dispatcher
	clock           clock.Clock
	logger          *zap.Logger
	retry           RetryStrategy
	defaultDelayMin int
}

// AlertDependencies bundles collaborators for the alert service.
type AlertDependencies struct {
	GroupRepo             repository.GroupRepository
	UserRepo              repository.UserRepository
	TicketRepo            repository.TicketRepository
	Queue                 paging.Queue
	Notifier              notify.Client
	Dispatcher            events.Dispatcher
	Clock                 clock.Clock
	Logger                *zap.Logger
	Retry                 RetryStrategy
	DefaultDeviceDelayMin int
}

// NewAlertService constructs the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	retry := deps.Retry
	if retry == nil {
		retry = SingleAttempt
	}
	return &AlertService{
		groups:          deps.GroupRepo,
		users:           deps.UserRepo,
		tickets:         deps.TicketRepo,
		queue:           deps.Queue,
		notifier:        deps.Notifier,
		dispatcher:      deps.Dispatcher,
		clock:           deps.Clock,
		logger:          deps.Logger,
		retry:           retry,
		defaultDelayMin: deps.DefaultDeviceDelayMin,
	}
}

// CreateAlert fans the ticket out across the group's active subscribers and
// submits the whole batch to the paging queue. Returned page ids are recorded
// on the ticket so closing it can cancel pages that have not fired yet.
func (s *AlertService) CreateAlert(ctx context.Context, ticket *domain.Ticket) ([]domain.PageRequest, error) {
	group, err := s.groups.GetByName(ctx, ticket.GroupName)
	if err != nil {
		return nil, err
	}
	if group.Policy == nil {
		return nil, util.NewValidationError("group has no escalation policy", map[string]any{"group": group.Name})
	}

	requests, err := s.generateAllPageRequests(ctx, group.Policy, ticket)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		s.logger.Warn("no pageable subscribers for ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("group", group.Name))
		return requests, nil
	}

	var handles []domain.PageHandle
	err = s.retry(ctx, func() error {
		var submitErr error
		handles, submitErr = s.queue.SubmitBatch(ctx, requests)
		return submitErr
	})
	if err != nil {
		return nil, err
	}

	for _, handle := range handles {
		ticket.PageIDs = append(ticket.PageIDs, handle.PageID)
	}
	ticket.AppendAction(domain.ActionPageSent, "", fmt.Sprintf("queued %d page requests", len(requests)), s.clock.Now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventPageBatchQueued,
		GroupName: group.Name,
		TicketID:  ticket.ID,
		Payload: events.PageBatchQueuedPayload{
			PageIDs:  ticket.PageIDs,
			Requests: len(requests),
		},
	})
	return requests, nil
}

// SendDirect performs one page immediately. The paging queue calls back into
// this when a queued request's delay elapses; unknown device types fail here,
// before any transport is touched.
func (s *AlertService) SendDirect(ctx context.Context, ticketID, userID, deviceID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	var device *domain.Device
	for i := range user.Devices {
		if user.Devices[i].ID == deviceID {
			device = &user.Devices[i]
			break
		}
	}
	if device == nil {
		return util.NewNotFound("device", map[string]any{"user_id": userID, "device_id": deviceID})
	}

	if err := s.notifier.Send(ctx, ticket, user, *device); err != nil {
		return err
	}

	ticket.AppendAction(domain.ActionPageSent, userID, string(device.Type), s.clock.Now())
	return s.tickets.Update(ctx, ticket)
}

// generateAllPageRequests staggers active subscribers by the policy-wide
// paging interval. Inactive subscribers are filtered out before slot
// assignment, so they never consume an interval slot.
func (s *AlertService) generateAllPageRequests(ctx context.Context, policy *domain.EscalationPolicy, ticket *domain.Ticket) ([]domain.PageRequest, error) {
	requests := []domain.PageRequest{}
	currentDelayMin := 0
	for _, sub := range policy.ActiveSubscribers() {
		user, err := s.users.GetByID(ctx, sub.UserID)
		if err != nil {
			if util.IsNotFound(err) {
				// Subscriber references are weak; a deleted user is skipped
				// without consuming a slot.
				s.logger.Warn("subscriber references missing user",
					zap.String("ticket_id", ticket.ID),
					zap.String("user_id", sub.UserID))
				continue
			}
			return nil, err
		}
		requests = append(requests, s.generateUserPageRequests(ticket.ID, user, currentDelayMin, ticket.Title)...)
		currentDelayMin += policy.PagingIntervalMinutes
	}
	return requests, nil
}

// generateUserPageRequests emits one request per device in the user's stored
// priority order. Every delay is relative to ticket-open time.
func (s *AlertService) generateUserPageRequests(ticketID string, user *domain.User, baseDelayMin int, title string) []domain.PageRequest {
	requests := make([]domain.PageRequest, 0, len(user.Devices))
	withinDelayMin := 0
	for i, device := range user.Devices {
		if i > 0 {
			withinDelayMin += user.DelayAfterDevice(i-1, s.defaultDelayMin)
		}
		requests = append(requests, domain.PageRequest{
			TicketID:    ticketID,
			UserID:      user.ID,
			Device:      device,
			DelayMillis: int64(baseDelayMin+withinDelayMin) * millisPerMinute,
			Title:       title,
		})
	}
	return requests
}

func (s *AlertService) publish(ctx context.Context, event events.Event) {
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
