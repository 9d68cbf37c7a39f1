package sched

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle state of a scheduled process.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Job is the work carried by a process.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// ProcessInfo is a snapshot of a process.
type ProcessInfo struct {
	ID          uint32  `json:"id"`
	Priority    uint32  `json:"priority"`
	Status      Status  `json:"status"`
	ParentPID   *uint32 `json:"parent_pid"`
	MemoryUsage uint64  `json:"memory_usage"`
}

// Parent renders the parent pid, or "none".
func (p ProcessInfo) Parent() string {
	if p.ParentPID == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *p.ParentPID)
}

// entry is a queued process.
type entry struct {
	pid      uint32
	priority uint32
	seq      uint64
	readyAt  time.Time
	job      Job
}
