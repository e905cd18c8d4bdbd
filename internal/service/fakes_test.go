package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PagerNation/escalator/internal/domain"
	util "github.com/PagerNation/escalator/pkg/util"
)

// fakeGroupRepo mimics a document store: reads return deep copies so a
// caller's in-memory mutations are only visible after Save, and Save
// enforces the optimistic version token.
type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*domain.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[string]*domain.Group)}
}

func (r *fakeGroupRepo) Create(ctx context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[group.Name]; ok {
		return util.NewConflict("group already exists", nil)
	}
	r.groups[group.Name] = copyGroup(group)
	return nil
}

func (r *fakeGroupRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[name]
	if !ok {
		return nil, util.NewNotFound("group", map[string]any{"name": name})
	}
	return copyGroup(group), nil
}

func (r *fakeGroupRepo) Save(ctx context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.groups[group.Name]
	if !ok {
		return util.NewNotFound("group", map[string]any{"name": group.Name})
	}
	if stored.Version != group.Version {
		return util.NewConflict("group modified concurrently", nil)
	}
	group.Version++
	r.groups[group.Name] = copyGroup(group)
	return nil
}

func (r *fakeGroupRepo) List(ctx context.Context) ([]domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Group, 0, len(r.groups))
	for _, group := range r.groups {
		result = append(result, *copyGroup(group))
	}
	return result, nil
}

func (r *fakeGroupRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[name]; !ok {
		return util.NewNotFound("group", map[string]any{"name": name})
	}
	delete(r.groups, name)
	return nil
}

func copyGroup(group *domain.Group) *domain.Group {
	clone := *group
	if group.Policy != nil {
		policy := *group.Policy
		policy.Subscribers = make([]domain.Subscriber, len(group.Policy.Subscribers))
		for i, sub := range group.Policy.Subscribers {
			entry := sub
			if sub.DeactivateAt != nil {
				t := *sub.DeactivateAt
				entry.DeactivateAt = &t
			}
			if sub.ReactivateAt != nil {
				t := *sub.ReactivateAt
				entry.ReactivateAt = &t
			}
			policy.Subscribers[i] = entry
		}
		clone.Policy = &policy
	}
	return &clone
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, util.NewNotFound("user", map[string]any{"id": id})
	}
	return user, nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return util.NewNotFound("user", map[string]any{"id": user.ID})
	}
	r.users[user.ID] = user
	return nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	ticket.CreatedAt = time.Now()
	r.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"id": id})
	}
	return copyTicket(ticket), nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return util.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	r.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) ListOpenByGroup(ctx context.Context, groupName string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.GroupName == groupName && ticket.IsOpen {
			result = append(result, *copyTicket(ticket))
		}
	}
	return result, nil
}

func copyTicket(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	clone.Actions = append([]domain.TicketAction(nil), ticket.Actions...)
	clone.PageIDs = append([]string(nil), ticket.PageIDs...)
	return &clone
}

type fakeQueue struct {
	mu        sync.Mutex
	submitted [][]domain.PageRequest
	cancelled []string
	submitErr error
	nextPage  int
}

func (q *fakeQueue) SubmitBatch(ctx context.Context, requests []domain.PageRequest) ([]domain.PageHandle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.submitErr != nil {
		return nil, q.submitErr
	}
	q.submitted = append(q.submitted, requests)
	handles := make([]domain.PageHandle, 0, len(requests))
	for _, req := range requests {
		q.nextPage++
		handles = append(handles, domain.PageHandle{
			PageID:   fmt.Sprintf("page-%d", q.nextPage),
			TicketID: req.TicketID,
		})
	}
	return handles, nil
}

func (q *fakeQueue) Cancel(ctx context.Context, pageIDs []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, pageIDs...)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Device
}

func (n *fakeNotifier) Send(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	if !domain.ValidDeviceType(device.Type) {
		return util.NewValidationError("invalid device type", map[string]any{"type": string(device.Type)})
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, device)
	return nil
}

func (n *fakeNotifier) SendEmail(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	return n.Send(ctx, ticket, user, device)
}

func (n *fakeNotifier) SendSMS(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	return n.Send(ctx, ticket, user, device)
}

func (n *fakeNotifier) SendVoiceCall(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	return n.Send(ctx, ticket, user, device)
}
