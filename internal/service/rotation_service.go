package service

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	"github.com/PagerNation/escalator/internal/events"
	"github.com/PagerNation/escalator/internal/repository"
	"github.com/PagerNation/escalator/internal/scheduler"
	util "github.com/PagerNation/escalator/pkg/util"
)

// RotationService arms and performs periodic on-call rotation. Each cycle is
// a one-shot job that rotates the subscriber order and re-arms itself; a
// crash between the two is recovered by the bulk loader at next startup.
type RotationService struct {
	groups     repository.GroupRepository
	sched      *scheduler.Scheduler
	clock      clock.Clock
	locker     *groupLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RotationDependencies bundles collaborators for the rotation service.
type RotationDependencies struct {
	GroupRepo  repository.GroupRepository
	Scheduler  *scheduler.Scheduler
	Clock      clock.Clock
	Locker     *groupLocker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewRotationService constructs the service.
func NewRotationService(deps RotationDependencies) *RotationService {
	locker := deps.Locker
	if locker == nil {
		locker = newGroupLocker()
	}
	return &RotationService{
		groups:     deps.GroupRepo,
		sched:      deps.Scheduler,
		clock:      deps.Clock,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

func rotationKey(groupName string) string {
	return "rotation:" + groupName
}

// ScheduleRotation arms the next rotation for the group and returns the
// instant it fires. Re-arming replaces any pending rotation job for the same
// group, so calling this twice cannot double-fire.
func (s *RotationService) ScheduleRotation(ctx context.Context, group *domain.Group) (time.Time, error) {
	if group == nil || group.Policy == nil {
		return time.Time{}, util.NewValidationError("group has no escalation policy", nil)
	}

	next := nextRotationInstant(group.LastRotated, group.Policy.RotationIntervalDays)
	groupName := group.Name
	s.sched.Schedule(rotationKey(groupName), next, func(jobCtx context.Context) error {
		return s.rotate(jobCtx, groupName)
	})

	s.logger.Debug("rotation armed",
		zap.String("group", groupName),
		zap.Time("next", next))
	return next, nil
}

// CancelRotation disarms a pending rotation, if any.
func (s *RotationService) CancelRotation(groupName string) bool {
	return s.sched.Cancel(rotationKey(groupName))
}

func (s *RotationService) rotate(ctx context.Context, groupName string) error {
	unlock := s.locker.Lock(groupName)

	group, err := s.groups.GetByName(ctx, groupName)
	if err != nil {
		unlock()
		if util.IsNotFound(err) {
			// Group deleted after arming; the timer fires harmlessly.
			s.logger.Info("rotation skipped for missing group", zap.String("group", groupName))
			return nil
		}
		return err
	}
	if group.Policy == nil {
		unlock()
		return nil
	}

	group.Policy.Rotate()
	group.LastRotated = s.clock.Now()
	if err := s.groups.Save(ctx, group); err != nil {
		unlock()
		return err
	}
	unlock()

	onCall := ""
	if len(group.Policy.Subscribers) > 0 {
		onCall = group.Policy.Subscribers[0].UserID
	}
	s.logger.Info("subscribers rotated",
		zap.String("group", groupName),
		zap.String("on_call", onCall))

	next, err := s.ScheduleRotation(ctx, group)
	if err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:      events.EventSubscribersRotated,
		GroupName: groupName,
		Payload: events.SubscribersRotatedPayload{
			OnCallUserID: onCall,
			NextRotation: next,
		},
	})
	return nil
}

func (s *RotationService) publish(ctx context.Context, event events.Event) {
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

// nextRotationInstant anchors the rotation to 23:59:00 on the day the
// interval elapses, sidestepping timezone-boundary ambiguity for day
// granularity.
func nextRotationInstant(lastRotated time.Time, intervalDays int) time.Time {
	day := lastRotated.AddDate(0, 0, intervalDays)
	next := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 0, 0, day.Location())
	if !next.After(lastRotated) {
		// A zero-day interval anchored after 23:59 would otherwise re-fire
		// in a tight loop; roll to the following end of day.
		next = next.AddDate(0, 0, 1)
	}
	return next
}
