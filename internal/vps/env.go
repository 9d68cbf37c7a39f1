package vps

import (
	"fmt"

	"github.com/codebymarcos/vbox/internal/disk"
	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/vfs"
)

// Env bundles the block store, filesystem and scheduler of one machine. Jobs
// receive it explicitly instead of capturing shared handles.
type Env struct {
	Name      string
	Disk      disk.Store
	FS        *vfs.FS
	Scheduler *sched.Scheduler
	Network   *vfs.NetworkDir

	// Console carries attached sessions to the root process.
	Console *Console
}

// skeleton is created in every new filesystem.
var skeleton = []string{"/network", "/home", "/etc"}

// NewEnv builds a machine over store: a fresh scheduler, a filesystem with
// /proc, /dev and /network mounted, and the base directories.
func NewEnv(name string, store disk.Store, sc sched.Config) (*Env, error) {
	s := sched.New(sc)
	network := vfs.NewNetworkDir()

	fs := vfs.New()
	fs.Mount("proc", vfs.NewProcDir(s))
	fs.Mount("dev", vfs.NewDevDir())
	fs.Mount("network", network)

	for _, dir := range skeleton {
		if _, err := fs.CreateDir(dir); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return &Env{
		Name:      name,
		Disk:      store,
		FS:        fs,
		Scheduler: s,
		Network:   network,
		Console:   newConsole(),
	}, nil
}
