package service

import "sync"

// groupLocker serializes read-modify-write cycles per group. Rotation and
// availability transitions mutate the same embedded subscriber list; without
// this region two jobs firing at the same instant could drop each other's
// writes. Groups are independent, so locking is keyed by name.
type groupLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGroupLocker() *groupLocker {
	return &groupLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the group's mutex and returns its unlock func.
func (l *groupLocker) Lock(name string) func() {
	l.mu.Lock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// forget drops the group's mutex entry after the group is deleted. A job
// already blocked on the old mutex still runs, unserialized against later
// lockers of a reused name; the repository version token catches that race.
func (l *groupLocker) forget(name string) {
	l.mu.Lock()
	delete(l.locks, name)
	l.mu.Unlock()
}
