// Package sched runs prioritized, optionally delayed jobs on a bounded pool of
// workers and keeps a snapshot history of every process it has seen.
//
// Priorities are ascending: a numerically smaller priority is dequeued first.
// Equal priorities are dequeued in insertion order.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultWorkers is the number of jobs that may run at once.
	DefaultWorkers = 4
	// DefaultIdle is how long the loop sleeps when nothing could be dispatched.
	DefaultIdle = 10 * time.Millisecond

	// InitPID is the fixed pid of an instance's root process.
	InitPID uint32 = 0
	// InitPriority is the priority given to the root process.
	InitPriority uint32 = 1
)

// Config holds scheduler settings. Zero values select the defaults.
type Config struct {
	Workers int
	Idle    time.Duration
	Logger  *slog.Logger
}

// Scheduler dequeues processes by priority and hands eligible ones to workers.
//
// The run queue and the snapshot list are guarded by separate locks and no
// lock is held while a job runs.
type Scheduler struct {
	logger  *slog.Logger
	idle    time.Duration
	workers int64
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	now     func() time.Time

	lastPID atomic.Uint32

	qmu   sync.Mutex
	queue runQueue
	seq   uint64

	imu   sync.RWMutex
	infos []ProcessInfo
	index map[uint32]int
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Idle <= 0 {
		cfg.Idle = DefaultIdle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{
		logger:  cfg.Logger,
		idle:    cfg.Idle,
		workers: int64(cfg.Workers),
		sem:     semaphore.NewWeighted(int64(cfg.Workers)),
		now:     time.Now,
		index:   make(map[uint32]int),
	}
}

// AddProcess records a ready snapshot and enqueues job. The job becomes
// eligible once delay has elapsed. It returns the new pid; pids start at 1.
func (s *Scheduler) AddProcess(job Job, priority uint32, delay time.Duration, parent *uint32) uint32 {
	pid := s.lastPID.Add(1)

	info := ProcessInfo{
		ID:       pid,
		Priority: priority,
		Status:   StatusReady,
	}
	if parent != nil {
		p := *parent
		info.ParentPID = &p
	}
	s.record(info)

	s.enqueue(&entry{
		pid:      pid,
		priority: priority,
		readyAt:  s.now().Add(delay),
		job:      job,
	})

	s.logger.Debug("process added", "pid", pid, "priority", priority, "delay", delay)
	return pid
}

// AddInit enqueues job as the root process under InitPID. Calling it again
// resets the root snapshot to ready instead of adding a second entry.
func (s *Scheduler) AddInit(job Job) uint32 {
	s.record(ProcessInfo{
		ID:       InitPID,
		Priority: InitPriority,
		Status:   StatusReady,
	})
	s.enqueue(&entry{
		pid:      InitPID,
		priority: InitPriority,
		readyAt:  s.now(),
		job:      job,
	})
	return InitPID
}

// ListProcesses returns every snapshot recorded so far, in insertion order.
func (s *Scheduler) ListProcesses() []ProcessInfo {
	s.imu.RLock()
	defer s.imu.RUnlock()
	out := make([]ProcessInfo, len(s.infos))
	copy(out, s.infos)
	return out
}

// Process returns the snapshot for pid.
func (s *Scheduler) Process(pid uint32) (ProcessInfo, bool) {
	s.imu.RLock()
	defer s.imu.RUnlock()
	i, ok := s.index[pid]
	if !ok {
		return ProcessInfo{}, false
	}
	return s.infos[i], true
}

// Len returns the number of queued processes.
func (s *Scheduler) Len() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.queue.Len()
}

// Workers returns the size of the worker pool.
func (s *Scheduler) Workers() int {
	return int(s.workers)
}

// Step makes one dispatch attempt: it takes the most urgent eligible process
// and starts it on a free worker. It reports whether a process was started.
// Step never blocks on a busy pool; the candidate goes back to the queue.
func (s *Scheduler) Step(ctx context.Context) bool {
	e := s.next()
	if e == nil {
		return false
	}

	if !s.sem.TryAcquire(1) {
		s.enqueue(e)
		return false
	}

	s.setStatus(e.pid, StatusRunning)
	s.wg.Add(1)
	go s.execute(ctx, e)
	return true
}

// Run dispatches processes until ctx is cancelled. Jobs already started keep
// running; use Wait to join them.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Debug("scheduler loop started", "workers", s.workers, "idle", s.idle)
	defer s.logger.Debug("scheduler loop stopped")

	timer := time.NewTimer(s.idle)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.Step(ctx) {
			continue
		}

		timer.Reset(s.idle)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Wait blocks until every started job has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// next pops in priority order until it finds an entry whose ready time has
// passed. Entries popped on the way are pushed back unchanged.
func (s *Scheduler) next() *entry {
	now := s.now()

	s.qmu.Lock()
	defer s.qmu.Unlock()

	var (
		found   *entry
		skipped []*entry
	)
	for s.queue.Len() > 0 {
		e := s.queue.pop()
		if !e.readyAt.After(now) {
			found = e
			break
		}
		skipped = append(skipped, e)
	}
	for _, e := range skipped {
		s.queue.push(e)
	}
	return found
}

func (s *Scheduler) enqueue(e *entry) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if e.seq == 0 {
		s.seq++
		e.seq = s.seq
	}
	s.queue.push(e)
}

func (s *Scheduler) record(info ProcessInfo) {
	s.imu.Lock()
	defer s.imu.Unlock()
	if i, ok := s.index[info.ID]; ok {
		s.infos[i] = info
		return
	}
	s.index[info.ID] = len(s.infos)
	s.infos = append(s.infos, info)
}

func (s *Scheduler) setStatus(pid uint32, status Status) {
	s.imu.Lock()
	defer s.imu.Unlock()
	if i, ok := s.index[pid]; ok {
		s.infos[i].Status = status
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry) {
	defer s.wg.Done()
	defer s.sem.Release(1)

	status := StatusCompleted
	if err := s.runJob(context.WithoutCancel(ctx), e); err != nil {
		status = StatusFailed
		s.logger.Error("process failed", "pid", e.pid, "error", err)
	}
	s.setStatus(e.pid, status)
}

func (s *Scheduler) runJob(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if e.job == nil {
		return nil
	}
	return e.job.Run(ctx)
}
