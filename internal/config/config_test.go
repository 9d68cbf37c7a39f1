package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testPaths(t *testing.T) *Paths {
	t.Helper()
	dir := t.TempDir()
	return &Paths{
		DataDir:    dir,
		ConfigDir:  filepath.Join(dir, "config"),
		ConfigFile: filepath.Join(dir, "config.yaml"),
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig should not return nil")
	}
	if cfg.Scheduler.Workers != 4 {
		t.Errorf("Workers should be 4, got %d", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.Idle() != 10*time.Millisecond {
		t.Errorf("Idle should be 10ms, got %s", cfg.Scheduler.Idle())
	}
	if cfg.VPS.SubnetPrefix != "192.168.1" || cfg.VPS.HostBase != 100 {
		t.Errorf("unexpected address defaults %s.%d", cfg.VPS.SubnetPrefix, cfg.VPS.HostBase)
	}
	if cfg.Dashboard.Enabled {
		t.Error("dashboard should be disabled by default")
	}
	if errs := ValidateConfig(cfg); len(errs) != 0 {
		t.Errorf("defaults should validate, got:\n%s", FormatValidationErrors(errs))
	}
}

func TestDiskPath(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	if got := cfg.DiskPath(); got != filepath.Join("/data", "disk.img") {
		t.Errorf("DiskPath() = %q", got)
	}
	cfg.DiskFile = "/elsewhere/host.img"
	if got := cfg.DiskPath(); got != "/elsewhere/host.img" {
		t.Errorf("DiskPath() = %q", got)
	}
}

func TestLoadFromDefaults(t *testing.T) {
	paths := testPaths(t)

	cfg, used, err := LoadFrom(paths, "")
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if used != "" {
		t.Errorf("no config file expected, got %q", used)
	}
	if cfg.DataDir != paths.DataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, paths.DataDir)
	}
	if cfg.VPS.DefaultMemoryMB != 512 {
		t.Errorf("DefaultMemoryMB = %d, want 512", cfg.VPS.DefaultMemoryMB)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	paths := testPaths(t)

	yaml := strings.Join([]string{
		"log_level: debug",
		"dashboard:",
		"  enabled: true",
		"  addr: 127.0.0.1:9999",
		"scheduler:",
		"  workers: 2",
		"vps:",
		"  host_base: 10",
	}, "\n")
	if err := os.WriteFile(filepath.Join(paths.DataDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VBOX_SCHEDULER_WORKERS", "8")

	cfg, used, err := LoadFrom(paths, "")
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if used != filepath.Join(paths.DataDir, "config.yaml") {
		t.Errorf("config file used = %q", used)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Addr != "127.0.0.1:9999" {
		t.Errorf("Dashboard = %+v", cfg.Dashboard)
	}
	if cfg.Scheduler.Workers != 8 {
		t.Errorf("Workers = %d, want 8 from the environment", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.IdleMS != 10 {
		t.Errorf("IdleMS = %d, want default 10", cfg.Scheduler.IdleMS)
	}
	if cfg.VPS.HostBase != 10 {
		t.Errorf("HostBase = %d, want 10", cfg.VPS.HostBase)
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	paths := testPaths(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("VBOX_LOG_FORMAT=json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides existing variables; t.Setenv restores the
	// previous value once the test ends.
	t.Setenv("VBOX_LOG_FORMAT", "")
	os.Unsetenv("VBOX_LOG_FORMAT")

	cfg, _, err := LoadFrom(paths, envFile)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestLoadFromMissingDotEnv(t *testing.T) {
	if _, _, err := LoadFrom(testPaths(t), filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadFromBadFile(t *testing.T) {
	paths := testPaths(t)
	if err := os.WriteFile(filepath.Join(paths.DataDir, "config.yaml"), []byte("scheduler: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFrom(paths, ""); err == nil {
		t.Error("malformed config should fail")
	}
}

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	if err != nil {
		t.Fatalf("GetPaths failed: %v", err)
	}
	if paths.DataDir == "" || paths.ConfigDir == "" || paths.ConfigFile == "" {
		t.Errorf("paths should be set: %+v", paths)
	}
	if !filepath.IsAbs(paths.DataDir) {
		t.Error("DataDir should be absolute path")
	}
	if filepath.Base(paths.DataDir) != ".vbox" {
		t.Errorf("DataDir = %q, want ~/.vbox", paths.DataDir)
	}
}

func TestEnsureDirectories(t *testing.T) {
	paths := testPaths(t)
	paths.DataDir = filepath.Join(paths.DataDir, "nested", "data")

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{paths.DataDir, paths.ConfigDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s should be a directory", dir)
		}
	}
}
