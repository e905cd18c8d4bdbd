package service

import (
	"context"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	"github.com/PagerNation/escalator/internal/repository"
	util "github.com/PagerNation/escalator/pkg/util"
)

// GroupService manages groups and their escalation policies. Policy updates
// replace the subscriber list wholesale and re-arm rotation; everything else
// mutates it in place through the rotation/availability services.
type GroupService struct {
	groups       repository.GroupRepository
	users        repository.UserRepository
	rotation     *RotationService
	availability *AvailabilityService
	clock        clock.Clock
	locker       *groupLocker
	logger       *zap.Logger

	defaultRotationDays int
	defaultIntervalMin  int
}

// GroupDependencies bundles collaborators for the group service.
type GroupDependencies struct {
	GroupRepo           repository.GroupRepository
	UserRepo            repository.UserRepository
	Rotation            *RotationService
	Availability        *AvailabilityService
	Clock               clock.Clock
	Locker              *groupLocker
	Logger              *zap.Logger
	DefaultRotationDays int
	DefaultIntervalMin  int
}

// PolicyInput describes an escalation policy payload.
type PolicyInput struct {
	RotationIntervalDays  *int
	PagingIntervalMinutes *int
	SubscriberUserIDs     []string
}

// NewGroupService constructs the service.
func NewGroupService(deps GroupDependencies) *GroupService {
	locker := deps.Locker
	if locker == nil {
		locker = newGroupLocker()
	}
	return &GroupService{
		groups:              deps.GroupRepo,
		users:               deps.UserRepo,
		rotation:            deps.Rotation,
		availability:        deps.Availability,
		clock:               deps.Clock,
		locker:              locker,
		logger:              deps.Logger,
		defaultRotationDays: deps.DefaultRotationDays,
		defaultIntervalMin:  deps.DefaultIntervalMin,
	}
}

// CreateGroup persists a group with its policy and arms the first rotation.
func (s *GroupService) CreateGroup(ctx context.Context, name string, input PolicyInput) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.NewValidationError("group name required", nil)
	}
	policy, err := s.buildPolicy(ctx, input)
	if err != nil {
		return nil, err
	}

	group := &domain.Group{
		Name:        name,
		Policy:      policy,
		LastRotated: s.clock.Now(),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	if _, err := s.rotation.ScheduleRotation(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// GetGroup fetches a group by name.
func (s *GroupService) GetGroup(ctx context.Context, name string) (*domain.Group, error) {
	return s.groups.GetByName(ctx, name)
}

// UpdatePolicy replaces the group's policy wholesale and re-arms rotation
// against the existing lastRotated anchor.
func (s *GroupService) UpdatePolicy(ctx context.Context, name string, input PolicyInput) (*domain.Group, error) {
	policy, err := s.buildPolicy(ctx, input)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(name)
	group, err := s.groups.GetByName(ctx, name)
	if err != nil {
		unlock()
		return nil, err
	}
	group.Policy = policy
	if err := s.groups.Save(ctx, group); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	if _, err := s.rotation.ScheduleRotation(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes the group. Pending rotation/availability timers are
// left armed; they fire against a missing document and no-op.
func (s *GroupService) DeleteGroup(ctx context.Context, name string) error {
	if err := s.groups.Delete(ctx, name); err != nil {
		return err
	}
	s.locker.forget(name)
	return nil
}

// RequestDeactivation validates and forwards a deactivation window for one
// subscriber to the availability scheduler.
func (s *GroupService) RequestDeactivation(ctx context.Context, name, userID string, deactivateAt time.Time, reactivateAt *time.Time) (time.Time, error) {
	if userID == "" {
		return time.Time{}, util.NewValidationError("user_id required", nil)
	}
	return s.availability.ScheduleDeactivation(ctx, name, userID, deactivateAt, reactivateAt)
}

func (s *GroupService) buildPolicy(ctx context.Context, input PolicyInput) (*domain.EscalationPolicy, error) {
	rotationDays := s.defaultRotationDays
	if input.RotationIntervalDays != nil {
		rotationDays = *input.RotationIntervalDays
	}
	intervalMin := s.defaultIntervalMin
	if input.PagingIntervalMinutes != nil {
		intervalMin = *input.PagingIntervalMinutes
	}
	if rotationDays < 0 || intervalMin < 0 {
		return nil, util.NewValidationError("intervals must be non-negative", nil)
	}

	subscribers := make([]domain.Subscriber, 0, len(input.SubscriberUserIDs))
	for _, userID := range input.SubscriberUserIDs {
		exists, err := s.users.Exists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, util.NewNotFound("user", map[string]any{"id": userID})
		}
		subscribers = append(subscribers, domain.Subscriber{UserID: userID, Active: true})
	}

	return &domain.EscalationPolicy{
		RotationIntervalDays:  rotationDays,
		PagingIntervalMinutes: intervalMin,
		Subscribers:           subscribers,
	}, nil
}
