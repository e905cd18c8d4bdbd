package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	"github.com/PagerNation/escalator/internal/scheduler"
	"github.com/PagerNation/escalator/internal/service"
)

func newRotationFixture(t *testing.T) (*service.RotationService, *fakeGroupRepo, *scheduler.Scheduler, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC))
	sched := scheduler.New(mock, zap.NewNop())
	repo := newFakeGroupRepo()
	svc := service.NewRotationService(service.RotationDependencies{
		GroupRepo: repo,
		Scheduler: sched,
		Clock:     mock,
		Logger:    zap.NewNop(),
	})
	return svc, repo, sched, mock
}

func seedGroup(t *testing.T, repo *fakeGroupRepo, name string, lastRotated time.Time, userIDs ...string) *domain.Group {
	t.Helper()
	subscribers := make([]domain.Subscriber, 0, len(userIDs))
	for _, id := range userIDs {
		subscribers = append(subscribers, domain.Subscriber{UserID: id, Active: true})
	}
	group := &domain.Group{
		Name:        name,
		LastRotated: lastRotated,
		Policy: &domain.EscalationPolicy{
			RotationIntervalDays:  7,
			PagingIntervalMinutes: 10,
			Subscribers:           subscribers,
		},
	}
	require.NoError(t, repo.Create(context.Background(), group))
	return group
}

func TestScheduleRotationComputesEndOfDayInstant(t *testing.T) {
	svc, repo, _, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "ops", mock.Now(), "alice", "bob")

	next, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)

	want := time.Date(2024, time.March, 11, 23, 59, 0, 0, time.UTC)
	require.Equal(t, want, next)
}

func TestScheduleRotationRequiresPolicy(t *testing.T) {
	svc, repo, _, mock := newRotationFixture(t)
	group := &domain.Group{Name: "empty", LastRotated: mock.Now()}
	require.NoError(t, repo.Create(context.Background(), group))

	_, err := svc.ScheduleRotation(context.Background(), group)
	require.Error(t, err)
}

func TestRotationShiftsFirstSubscriberToEnd(t *testing.T) {
	svc, repo, sched, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "ops", mock.Now(), "alice", "bob", "carol")

	next, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)

	mock.Set(next)
	require.Equal(t, 1, sched.RunDue(context.Background()))

	rotated, err := repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)

	ids := make([]string, 0, 3)
	for _, sub := range rotated.Policy.Subscribers {
		ids = append(ids, sub.UserID)
	}
	require.Equal(t, []string{"bob", "carol", "alice"}, ids)
	require.Equal(t, next, rotated.LastRotated)

	// The cycle re-arms itself for the following interval.
	require.Equal(t, 1, sched.Pending())
}

func TestRotationOfSingleSubscriberIsNoOp(t *testing.T) {
	svc, repo, sched, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "solo", mock.Now(), "alice")

	next, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)

	mock.Set(next)
	sched.RunDue(context.Background())

	rotated, err := repo.GetByName(context.Background(), "solo")
	require.NoError(t, err)
	require.Equal(t, "alice", rotated.Policy.Subscribers[0].UserID)
	require.Equal(t, next, rotated.LastRotated)
}

func TestRotationOfEmptyListIsNoOp(t *testing.T) {
	svc, repo, sched, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "vacant", mock.Now())

	next, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)

	mock.Set(next)
	sched.RunDue(context.Background())

	rotated, err := repo.GetByName(context.Background(), "vacant")
	require.NoError(t, err)
	require.Empty(t, rotated.Policy.Subscribers)
	require.Equal(t, next, rotated.LastRotated)
}

func TestScheduleRotationTwiceArmsSingleJob(t *testing.T) {
	svc, repo, sched, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "ops", mock.Now(), "alice", "bob")

	_, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)
	next, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)

	require.Equal(t, 1, sched.Pending())

	// A single fire, not two.
	mock.Set(next)
	require.Equal(t, 1, sched.RunDue(context.Background()))

	rotated, err := repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	require.Equal(t, "bob", rotated.Policy.Subscribers[0].UserID)
}

func TestRotationAgainstDeletedGroupIsIgnored(t *testing.T) {
	svc, repo, sched, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "doomed", mock.Now(), "alice", "bob")

	next, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(context.Background(), "doomed"))

	mock.Set(next)
	require.Equal(t, 1, sched.RunDue(context.Background()))
	require.Equal(t, 0, sched.Pending())
}

func TestCancelRotationDisarmsPendingJob(t *testing.T) {
	svc, repo, sched, mock := newRotationFixture(t)
	group := seedGroup(t, repo, "ops", mock.Now(), "alice")

	_, err := svc.ScheduleRotation(context.Background(), group)
	require.NoError(t, err)

	require.True(t, svc.CancelRotation("ops"))
	require.Equal(t, 0, sched.Pending())
	require.False(t, svc.CancelRotation("ops"))
}
