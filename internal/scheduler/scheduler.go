package scheduler

import (
	"container/heap"
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Ensure the job list implements [heap.Interface].
var _ heap.Interface = (*jobHeap)(nil)

// JobFunc is a scheduled unit of work. A returned error is logged and the
// job is considered done; failed jobs are not retried here, restart
// recovery reconstructs whatever schedule the persisted state implies.
type JobFunc func(ctx context.Context) error

type job struct {
	key   string
	at    time.Time
	fn    JobFunc
	index int
}

type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return h[i].key < h[j].key
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	entry := x.(*job)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil  // avoid memory leak
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// Scheduler holds one-shot, absolute-instant jobs in a min-heap keyed by job
// id. Scheduling an already-present key replaces the pending job, so
// re-arming the same recurrence can never double-fire. Fired jobs for
// independent keys run concurrently; each runs to completion before the
// scheduler forgets it.
type Scheduler struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger *zap.Logger
	jobs   jobHeap
	byKey  map[string]*job
	wakeCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler driven by the given clock.
func New(clk clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger,
		jobs:   make(jobHeap, 0),
		byKey:  make(map[string]*job),
		wakeCh: make(chan struct{}, 1),
	}
}

// Schedule arms a one-shot job for the given instant, replacing any pending
// job with the same key.
func (s *Scheduler) Schedule(key string, at time.Time, fn JobFunc) {
	s.mu.Lock()
	if existing, ok := s.byKey[key]; ok {
		heap.Remove(&s.jobs, existing.index)
	}
	entry := &job{key: key, at: at, fn: fn}
	heap.Push(&s.jobs, entry)
	s.byKey[key] = entry
	s.mu.Unlock()

	s.wake()
}

// Cancel removes a pending job. It reports whether a job was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&s.jobs, entry.index)
	delete(s.byKey, key)
	return true
}

// Pending returns the number of armed jobs.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// NextAt returns the instant the given key fires, if armed.
func (s *Scheduler) NextAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byKey[key]
	if !ok {
		return time.Time{}, false
	}
	return entry.at, true
}

// Run drives the scheduler until ctx is cancelled, then waits for in-flight
// jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		now := s.clock.Now()
		for len(s.jobs) > 0 && !s.jobs[0].at.After(now) {
			entry := heap.Pop(&s.jobs).(*job)
			delete(s.byKey, entry.key)
			s.wg.Add(1)
			go s.execute(ctx, entry)
		}

		var timer *clock.Timer
		var waitC <-chan time.Time
		if len(s.jobs) > 0 {
			timer = s.clock.Timer(s.jobs[0].at.Sub(now))
			waitC = timer.C
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.wg.Wait()
			return
		case <-waitC:
		case <-s.wakeCh:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}

// RunDue fires every job due at the clock's current instant and waits for
// them to complete. Callers that do not run the loop (tests, shutdown
// drains) use this to drive the heap directly.
func (s *Scheduler) RunDue(ctx context.Context) int {
	s.mu.Lock()
	now := s.clock.Now()
	fired := 0
	for len(s.jobs) > 0 && !s.jobs[0].at.After(now) {
		entry := heap.Pop(&s.jobs).(*job)
		delete(s.byKey, entry.key)
		s.wg.Add(1)
		go s.execute(ctx, entry)
		fired++
	}
	s.mu.Unlock()

	s.wg.Wait()
	return fired
}

func (s *Scheduler) execute(ctx context.Context, entry *job) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked",
				zap.String("key", entry.key),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	if err := entry.fn(ctx); err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("key", entry.key),
			zap.Time("at", entry.at),
			zap.Error(err))
	}
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}
