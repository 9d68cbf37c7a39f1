package testutil

import (
	"os"
	"testing"

	"github.com/codebymarcos/vbox/internal/disk"
)

func TestManagerConfig(t *testing.T) {
	cfg := ManagerConfig(t)

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		t.Errorf("DataDir %s does not exist", cfg.DataDir)
	}
	if cfg.Scheduler.Workers <= 0 {
		t.Errorf("Workers should be positive, got %d", cfg.Scheduler.Workers)
	}
	if cfg.Logger == nil {
		t.Error("Logger should not be nil")
	}
}

func TestNewEnv(t *testing.T) {
	env := NewEnv(t, "test")

	if env.Name != "test" {
		t.Errorf("Name = %q, want %q", env.Name, "test")
	}
	if _, err := env.FS.Get("/home"); err != nil {
		t.Errorf("/home should exist: %v", err)
	}
	if env.Disk.AllocatedCount() != 0 {
		t.Errorf("fresh disk has %d blocks", env.Disk.AllocatedCount())
	}
}

func TestWriteImage(t *testing.T) {
	path := WriteImage(t, map[uint64][]byte{0: []byte("a"), 3: []byte("bcd")})

	store := disk.OpenFile(path, disk.WithLogger(Logger()))
	if got := store.AllocatedCount(); got != 2 {
		t.Errorf("AllocatedCount = %d, want 2", got)
	}
	if got := store.TotalBytes(); got != 4 {
		t.Errorf("TotalBytes = %d, want 4", got)
	}
	if got := store.Cursor(); got != 4 {
		t.Errorf("Cursor = %d, want 4", got)
	}
}
