package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"intakeflow/internal/pkg/logger"
)

// Scheduler executes pipeline runs out of band. At most `concurrency` runs
// execute at once; further runs wait for a slot in their own goroutine so
// Schedule never blocks the caller.
type Scheduler struct {
	runner *Runner
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	base   context.Context
	cancel context.CancelFunc
	log    *logger.Logger
}

func NewScheduler(runner *Runner, concurrency int, log *logger.Logger) *Scheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		base:   base,
		cancel: cancel,
		log:    log.With("component", "PipelineScheduler"),
	}
}

// Schedule queues a run with the process default mode.
func (s *Scheduler) Schedule(fileID, actor string) {
	s.ScheduleMode(fileID, actor, nil)
}

// ScheduleMode queues a run. A non-nil mock overrides the process default
// for this run only. It returns false once the scheduler is shutting down.
func (s *Scheduler) ScheduleMode(fileID, actor string, mock *bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn("scheduler closed, run dropped", "file_id", fileID)
		return false
	}

	ctx := s.base
	if mock != nil {
		ctx = WithMockMode(ctx, *mock)
	}

	// Add stays under the read lock so it never overlaps Wait in Shutdown.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.log.Warn("run not started", "file_id", fileID, "error", err)
			return
		}
		defer s.sem.Release(1)
		s.execute(ctx, fileID, actor)
	}()
	return true
}

func (s *Scheduler) execute(ctx context.Context, fileID, actor string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("pipeline run panicked",
				"file_id", fileID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	// Started runs finish even during shutdown; only queued runs are dropped.
	if err := s.runner.Run(context.WithoutCancel(ctx), fileID, actor); err != nil {
		s.log.Error("pipeline run failed", "file_id", fileID, "error", err)
	}
}

// Shutdown stops accepting runs and waits for in-flight ones until ctx ends.
// Runs still waiting for a slot when ctx ends are abandoned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
