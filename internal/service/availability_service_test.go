package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/scheduler"
	"github.com/PagerNation/escalator/internal/service"
	util "github.com/PagerNation/escalator/pkg/util"
)

func newAvailabilityFixture(t *testing.T) (*service.AvailabilityService, *fakeGroupRepo, *scheduler.Scheduler, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC))
	sched := scheduler.New(mock, zap.NewNop())
	repo := newFakeGroupRepo()
	svc := service.NewAvailabilityService(service.AvailabilityDependencies{
		GroupRepo: repo,
		Scheduler: sched,
		Clock:     mock,
		Logger:    zap.NewNop(),
	})
	return svc, repo, sched, mock
}

func TestDeactivationDueNowFlipsImmediately(t *testing.T) {
	svc, repo, sched, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice", "bob")

	effective, err := svc.ScheduleDeactivation(context.Background(), "ops", "alice", mock.Now().Add(-time.Minute), nil)
	require.NoError(t, err)
	require.Equal(t, mock.Now(), effective)

	group, err := repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub := group.Policy.FindSubscriber("alice")
	require.False(t, sub.Active)
	require.Nil(t, sub.DeactivateAt)
	require.Nil(t, sub.ReactivateAt)
	require.Equal(t, 0, sched.Pending())
}

func TestDeactivationAndReactivationBothDueEndFullyActive(t *testing.T) {
	svc, repo, _, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice")

	reactivateAt := mock.Now().Add(-time.Minute)
	_, err := svc.ScheduleDeactivation(context.Background(), "ops", "alice", mock.Now().Add(-time.Hour), &reactivateAt)
	require.NoError(t, err)

	group, err := repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub := group.Policy.FindSubscriber("alice")
	require.True(t, sub.Active)
	require.Nil(t, sub.DeactivateAt)
	require.Nil(t, sub.ReactivateAt)
}

func TestPastDeactivationWithFutureReactivationArmsReturn(t *testing.T) {
	svc, repo, sched, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice")

	reactivateAt := mock.Now().Add(2 * time.Hour)
	_, err := svc.ScheduleDeactivation(context.Background(), "ops", "alice", mock.Now(), &reactivateAt)
	require.NoError(t, err)

	group, err := repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub := group.Policy.FindSubscriber("alice")
	require.False(t, sub.Active)
	require.Nil(t, sub.DeactivateAt)
	require.NotNil(t, sub.ReactivateAt)
	require.Equal(t, 1, sched.Pending())

	mock.Set(reactivateAt)
	require.Equal(t, 1, sched.RunDue(context.Background()))

	group, err = repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub = group.Policy.FindSubscriber("alice")
	require.True(t, sub.Active)
	require.Nil(t, sub.ReactivateAt)
	require.Equal(t, 0, sched.Pending())
}

func TestFutureDeactivationWaitsForItsInstant(t *testing.T) {
	svc, repo, sched, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice", "bob")

	deactivateAt := mock.Now().Add(time.Hour)
	reactivateAt := mock.Now().Add(3 * time.Hour)
	effective, err := svc.ScheduleDeactivation(context.Background(), "ops", "alice", deactivateAt, &reactivateAt)
	require.NoError(t, err)
	require.Equal(t, deactivateAt, effective)

	// Intent is durable before the timer fires.
	group, err := repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub := group.Policy.FindSubscriber("alice")
	require.True(t, sub.Active)
	require.NotNil(t, sub.DeactivateAt)
	require.NotNil(t, sub.ReactivateAt)

	mock.Set(deactivateAt)
	require.Equal(t, 1, sched.RunDue(context.Background()))

	group, err = repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub = group.Policy.FindSubscriber("alice")
	require.False(t, sub.Active)
	require.Nil(t, sub.DeactivateAt)
	require.NotNil(t, sub.ReactivateAt)

	// The reactivation leg armed itself when deactivation fired.
	require.Equal(t, 1, sched.Pending())

	mock.Set(reactivateAt)
	require.Equal(t, 1, sched.RunDue(context.Background()))

	group, err = repo.GetByName(context.Background(), "ops")
	require.NoError(t, err)
	sub = group.Policy.FindSubscriber("alice")
	require.True(t, sub.Active)
	require.Nil(t, sub.ReactivateAt)
}

func TestDeactivationRejectsInvertedWindow(t *testing.T) {
	svc, repo, _, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice")

	reactivateAt := mock.Now().Add(time.Hour)
	_, err := svc.ScheduleDeactivation(context.Background(), "ops", "alice", mock.Now().Add(2*time.Hour), &reactivateAt)
	require.Error(t, err)

	domainErr := util.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestDeactivationOfUnknownSubscriberFails(t *testing.T) {
	svc, repo, _, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice")

	_, err := svc.ScheduleDeactivation(context.Background(), "ops", "mallory", mock.Now(), nil)
	require.True(t, util.IsNotFound(err))
}

func TestReactivationWithoutStoredDateIsTerminal(t *testing.T) {
	svc, repo, sched, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "ops", mock.Now(), "alice")

	effective, err := svc.ScheduleReactivation(context.Background(), "ops", "alice")
	require.NoError(t, err)
	require.True(t, effective.IsZero())
	require.Equal(t, 0, sched.Pending())
}

func TestTransitionAgainstDeletedGroupIsIgnored(t *testing.T) {
	svc, repo, sched, mock := newAvailabilityFixture(t)
	seedGroup(t, repo, "doomed", mock.Now(), "alice")

	deactivateAt := mock.Now().Add(time.Hour)
	_, err := svc.ScheduleDeactivation(context.Background(), "doomed", "alice", deactivateAt, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(context.Background(), "doomed"))

	mock.Set(deactivateAt)
	require.Equal(t, 1, sched.RunDue(context.Background()))
	require.Equal(t, 0, sched.Pending())
}
