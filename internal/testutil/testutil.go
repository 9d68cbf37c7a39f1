// Package testutil provides common test helpers for vbox tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebymarcos/vbox/internal/disk"
	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/vps"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SchedulerConfig returns a scheduler configuration with a short idle interval.
func SchedulerConfig() sched.Config {
	return sched.Config{
		Workers: 2,
		Idle:    time.Millisecond,
		Logger:  Logger(),
	}
}

// ManagerConfig returns a vps.ManagerConfig whose data lives in t.TempDir().
func ManagerConfig(t *testing.T) vps.ManagerConfig {
	t.Helper()

	return vps.ManagerConfig{
		DataDir:   t.TempDir(),
		Scheduler: SchedulerConfig(),
		Logger:    Logger(),
	}
}

// NewEnv returns a machine environment over a RAM disk.
func NewEnv(t *testing.T, name string) *vps.Env {
	t.Helper()

	env, err := vps.NewEnv(name, disk.NewMemStore(), SchedulerConfig())
	if err != nil {
		t.Fatalf("failed to build env %s: %v", name, err)
	}
	return env
}

// WriteImage writes blocks to a fresh disk image in a temporary directory and
// returns its path.
func WriteImage(t *testing.T, blocks map[uint64][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "disk.img")
	store := disk.OpenFile(path, disk.WithLogger(Logger()))
	for id, data := range blocks {
		if err := store.Write(id, data); err != nil {
			t.Fatalf("failed to write block %d to %s: %v", id, path, err)
		}
	}
	return path
}
