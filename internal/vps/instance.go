package vps

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/codebymarcos/vbox/internal/sched"
)

// BootPriority runs the boot job ahead of the root process.
const BootPriority uint32 = 0

// Instance is one isolated machine: its own disk, filesystem and scheduler.
type Instance struct {
	id     string
	name   string
	logger *slog.Logger
	env    *Env
	dir    string
	state  *StateFile

	mu     sync.Mutex
	cfg    Config
	procs  []uint32
	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the instance id.
func (i *Instance) ID() string { return i.id }

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// Config returns a copy of the instance description.
func (i *Instance) Config() Config {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg
}

// Status returns the lifecycle state.
func (i *Instance) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg.Status
}

// Env returns the machine environment.
func (i *Instance) Env() *Env {
	return i.env
}

// Processes returns the pids spawned by this instance.
func (i *Instance) Processes() []uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]uint32(nil), i.procs...)
}

// Spawn enqueues job as a child of the root process.
func (i *Instance) Spawn(job sched.Job, priority uint32, delay time.Duration) uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.spawnLocked(job, priority, delay)
}

func (i *Instance) spawnLocked(job sched.Job, priority uint32, delay time.Duration) uint32 {
	parent := sched.InitPID
	pid := i.env.Scheduler.AddProcess(job, priority, delay, &parent)
	i.procs = append(i.procs, pid)
	return pid
}

// Attach hands in and out to the root process as a new session and blocks
// until the root ends it or ctx is done. It fails with ErrNotRunning when the
// instance is stopped.
func (i *Instance) Attach(ctx context.Context, in io.Reader, out io.Writer, prompt bool) error {
	return i.env.Console.dial(ctx, in, out, prompt)
}

// start opens a new console generation, enqueues the root built by rootFn as
// pid 0 and the optional boot job as its first child, then runs the scheduler
// loop.
func (i *Instance) start(ctx context.Context, rootFn, bootFn func(*Env) sched.Job) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cfg.Status == StatusRunning {
		return ErrAlreadyRunning
	}

	i.env.Console.open()

	var root sched.Job
	if rootFn != nil {
		root = rootFn(i.env)
	}
	pid := i.env.Scheduler.AddInit(root)
	if !slices.Contains(i.procs, pid) {
		i.procs = append(i.procs, pid)
	}
	if bootFn != nil {
		i.spawnLocked(bootFn(i.env), BootPriority, 0)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = i.env.Scheduler.Run(loopCtx)
	}()

	i.cancel = cancel
	i.done = done
	i.cfg.Status = StatusRunning

	if i.state != nil {
		if err := i.state.RecordBoot(i.cfg); err != nil {
			i.logger.Warn("failed to record boot", "id", i.cfg.ID, "error", err)
		}
	}
	return nil
}

// stop halts dequeuing and closes the console. Jobs already running are left
// to finish, including a root still serving a session.
func (i *Instance) stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cfg.Status == StatusStopped {
		return ErrAlreadyStopped
	}

	i.env.Console.shut()
	if i.cancel != nil {
		i.cancel()
		<-i.done
		i.cancel, i.done = nil, nil
	}
	i.cfg.Status = StatusStopped

	if i.state != nil {
		if err := i.state.RecordShutdown(i.cfg, true); err != nil {
			i.logger.Warn("failed to record shutdown", "id", i.cfg.ID, "error", err)
		}
	}
	return nil
}
