package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	util "github.com/PagerNation/escalator/pkg/util"
)

func (l *groupLocker) entryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func TestLockSerializesSameGroup(t *testing.T) {
	locker := newGroupLocker()

	var inRegion int
	var peak int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("ops")
			inRegion++
			if inRegion > peak {
				peak = inRegion
			}
			inRegion--
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
	assert.Equal(t, 0, inRegion)
}

func TestLockKeysAreIndependent(t *testing.T) {
	locker := newGroupLocker()

	unlockOps := locker.Lock("ops")
	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("net")
		unlock()
		close(done)
	}()

	<-done // net must not block behind ops
	unlockOps()
}

func TestForgetEvictsEntry(t *testing.T) {
	locker := newGroupLocker()

	unlock := locker.Lock("ops")
	unlock()
	unlock = locker.Lock("net")
	unlock()
	require.Equal(t, 2, locker.entryCount())

	locker.forget("ops")
	assert.Equal(t, 1, locker.entryCount())

	// Forgetting an unknown name is a no-op.
	locker.forget("ops")
	assert.Equal(t, 1, locker.entryCount())

	// A reused name gets a fresh mutex.
	unlock = locker.Lock("ops")
	unlock()
	assert.Equal(t, 2, locker.entryCount())
}

type stubGroupRepo struct {
	names map[string]bool
}

func (r *stubGroupRepo) Create(ctx context.Context, group *domain.Group) error { return nil }

func (r *stubGroupRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	return nil, util.NewNotFound("group", nil)
}

func (r *stubGroupRepo) Save(ctx context.Context, group *domain.Group) error { return nil }

func (r *stubGroupRepo) List(ctx context.Context) ([]domain.Group, error) { return nil, nil }

func (r *stubGroupRepo) Delete(ctx context.Context, name string) error {
	if !r.names[name] {
		return util.NewNotFound("group", nil)
	}
	delete(r.names, name)
	return nil
}

func TestDeleteGroupEvictsLock(t *testing.T) {
	locker := newGroupLocker()
	svc := NewGroupService(GroupDependencies{
		GroupRepo: &stubGroupRepo{names: map[string]bool{"ops": true}},
		Locker:    locker,
		Logger:    zap.NewNop(),
	})

	unlock := locker.Lock("ops")
	unlock()
	require.Equal(t, 1, locker.entryCount())

	require.NoError(t, svc.DeleteGroup(context.Background(), "ops"))
	assert.Equal(t, 0, locker.entryCount())

	// A failed delete leaves the entry alone.
	unlock = locker.Lock("net")
	unlock()
	require.Error(t, svc.DeleteGroup(context.Background(), "net"))
	assert.Equal(t, 1, locker.entryCount())
}
