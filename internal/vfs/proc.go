package vfs

import (
	"fmt"
	"strconv"

	"github.com/codebymarcos/vbox/internal/sched"
)

// ProcessLister supplies the process snapshots shown under /proc.
type ProcessLister interface {
	ListProcesses() []sched.ProcessInfo
}

// ProcDir renders one read-only node per known process. Listings are built
// from the snapshot history on every call.
type ProcDir struct {
	procs ProcessLister
}

// NewProcDir returns a /proc view over procs.
func NewProcDir(procs ProcessLister) *ProcDir {
	return &ProcDir{procs: procs}
}

func (*ProcDir) Name() string { return "proc" }
func (*ProcDir) Kind() Kind   { return KindDirectory }
func (*ProcDir) node()        {}

// List returns every pid as a decimal string.
func (p *ProcDir) List() []string {
	infos := p.procs.ListProcesses()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, strconv.FormatUint(uint64(info.ID), 10))
	}
	return names
}

// Lookup parses name as a pid and renders its snapshot.
func (p *ProcDir) Lookup(name string) (Node, bool) {
	pid, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return nil, false
	}
	for _, info := range p.procs.ListProcesses() {
		if uint64(info.ID) == pid {
			return NewText(name, FormatProcess(info)), true
		}
	}
	return nil, false
}

// Add is a no-op: entries come from the scheduler.
func (*ProcDir) Add(Node) {}

// FormatProcess renders the /proc/<pid> text for info.
func FormatProcess(info sched.ProcessInfo) string {
	return fmt.Sprintf("PID: %d\nPriority: %d\nStatus: %s\nParent PID: %s\nMemory Usage: %d bytes\n",
		info.ID, info.Priority, info.Status, info.Parent(), info.MemoryUsage)
}
