package service

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/events"
	"github.com/PagerNation/escalator/internal/repository"
	"github.com/PagerNation/escalator/internal/scheduler"
	util "github.com/PagerNation/escalator/pkg/util"
)

// AvailabilityService schedules subscriber deactivation/reactivation windows.
// The intent is persisted on the subscriber before any timer is armed, so a
// restart can rebuild the schedule from the group document alone. Due-ness is
// always judged against the clock at decision time, never at request time.
type AvailabilityService struct {
	groups     repository.GroupRepository
	sched      *scheduler.Scheduler
	clock      clock.Clock
	locker     *groupLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AvailabilityDependencies bundles collaborators for the availability service.
type AvailabilityDependencies struct {
	GroupRepo  repository.GroupRepository
	Scheduler  *scheduler.Scheduler
	Clock      clock.Clock
	Locker     *groupLocker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(deps AvailabilityDependencies) *AvailabilityService {
	locker := deps.Locker
	if locker == nil {
		locker = newGroupLocker()
	}
	return &AvailabilityService{
		groups:     deps.GroupRepo,
		sched:      deps.Scheduler,
		clock:      deps.Clock,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

func deactivateKey(groupName, userID string) string {
	return "deactivate:" + groupName + ":" + userID
}

func reactivateKey(groupName, userID string) string {
	return "reactivate:" + groupName + ":" + userID
}

// ScheduleDeactivation records the window on the subscriber, then either
// deactivates immediately (window already open) or arms a one-shot job for
// the deactivation instant. It returns the effective deactivation time. A nil
// reactivateAt means the subscriber stays inactive until a new request.
func (s *AvailabilityService) ScheduleDeactivation(ctx context.Context, groupName, userID string, deactivateAt time.Time, reactivateAt *time.Time) (time.Time, error) {
	if reactivateAt != nil && !reactivateAt.After(deactivateAt) {
		return time.Time{}, util.NewValidationError("reactivate date must be after deactivate date", nil)
	}

	unlock := s.locker.Lock(groupName)
	group, err := s.groups.GetByName(ctx, groupName)
	if err != nil {
		unlock()
		return time.Time{}, err
	}
	sub := group.Policy.FindSubscriber(userID)
	if sub == nil {
		unlock()
		return time.Time{}, util.NewNotFound("subscriber", map[string]any{"group": groupName, "user_id": userID})
	}
	deactivate := deactivateAt
	sub.DeactivateAt = &deactivate
	sub.ReactivateAt = reactivateAt
	if err := s.groups.Save(ctx, group); err != nil {
		unlock()
		return time.Time{}, err
	}
	unlock()

	now := s.clock.Now()
	if !deactivateAt.After(now) {
		// Window already open: transition inline. A past deactivate with a
		// future reactivate lands in "inactive, reactivation pending" here.
		if err := s.deactivate(ctx, groupName, userID); err != nil {
			return time.Time{}, err
		}
		return now, nil
	}

	s.sched.Schedule(deactivateKey(groupName, userID), deactivateAt, func(jobCtx context.Context) error {
		return s.deactivate(jobCtx, groupName, userID)
	})
	s.logger.Debug("deactivation armed",
		zap.String("group", groupName),
		zap.String("user_id", userID),
		zap.Time("at", deactivateAt))
	return deactivateAt, nil
}

// ScheduleReactivation evaluates the subscriber's stored reactivation date:
// due means reactivate now, future means arm a one-shot job. Reactivation is
// terminal; it never re-arms anything.
func (s *AvailabilityService) ScheduleReactivation(ctx context.Context, groupName, userID string) (time.Time, error) {
	unlock := s.locker.Lock(groupName)
	group, err := s.groups.GetByName(ctx, groupName)
	if err != nil {
		unlock()
		return time.Time{}, err
	}
	sub := group.Policy.FindSubscriber(userID)
	if sub == nil {
		unlock()
		return time.Time{}, util.NewNotFound("subscriber", map[string]any{"group": groupName, "user_id": userID})
	}
	if sub.ReactivateAt == nil {
		unlock()
		return time.Time{}, nil
	}
	reactivateAt := *sub.ReactivateAt
	unlock()

	now := s.clock.Now()
	if !reactivateAt.After(now) {
		if err := s.reactivate(ctx, groupName, userID); err != nil {
			return time.Time{}, err
		}
		return now, nil
	}

	s.sched.Schedule(reactivateKey(groupName, userID), reactivateAt, func(jobCtx context.Context) error {
		return s.reactivate(jobCtx, groupName, userID)
	})
	s.logger.Debug("reactivation armed",
		zap.String("group", groupName),
		zap.String("user_id", userID),
		zap.Time("at", reactivateAt))
	return reactivateAt, nil
}

func (s *AvailabilityService) deactivate(ctx context.Context, groupName, userID string) error {
	unlock := s.locker.Lock(groupName)
	group, err := s.groups.GetByName(ctx, groupName)
	if err != nil {
		unlock()
		if util.IsNotFound(err) {
			s.logger.Info("deactivation skipped for missing group", zap.String("group", groupName))
			return nil
		}
		return err
	}
	sub := group.Policy.FindSubscriber(userID)
	if sub == nil {
		unlock()
		s.logger.Info("deactivation skipped for missing subscriber",
			zap.String("group", groupName),
			zap.String("user_id", userID))
		return nil
	}
	sub.Active = false
	sub.DeactivateAt = nil
	reactivateAt := sub.ReactivateAt
	if err := s.groups.Save(ctx, group); err != nil {
		unlock()
		return err
	}
	unlock()

	s.logger.Info("subscriber deactivated",
		zap.String("group", groupName),
		zap.String("user_id", userID))
	s.publish(ctx, events.Event{
		Type:      events.EventSubscriberDeactivated,
		GroupName: groupName,
		Payload: events.SubscriberTransitionPayload{
			UserID:       userID,
			Active:       false,
			ReactivateAt: reactivateAt,
		},
	})

	_, err = s.ScheduleReactivation(ctx, groupName, userID)
	return err
}

func (s *AvailabilityService) reactivate(ctx context.Context, groupName, userID string) error {
	unlock := s.locker.Lock(groupName)
	group, err := s.groups.GetByName(ctx, groupName)
	if err != nil {
		unlock()
		if util.IsNotFound(err) {
			s.logger.Info("reactivation skipped for missing group", zap.String("group", groupName))
			return nil
		}
		return err
	}
	sub := group.Policy.FindSubscriber(userID)
	if sub == nil {
		unlock()
		s.logger.Info("reactivation skipped for missing subscriber",
			zap.String("group", groupName),
			zap.String("user_id", userID))
		return nil
	}
	sub.Active = true
	sub.ReactivateAt = nil
	if err := s.groups.Save(ctx, group); err != nil {
		unlock()
		return err
	}
	unlock()

	s.logger.Info("subscriber reactivated",
		zap.String("group", groupName),
		zap.String("user_id", userID))
	s.publish(ctx, events.Event{
		Type:      events.EventSubscriberReactivated,
		GroupName: groupName,
		Payload: events.SubscriberTransitionPayload{
			UserID: userID,
			Active: true,
		},
	})
	return nil
}

func (s *AvailabilityService) publish(ctx context.Context, event events.Event) {
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
