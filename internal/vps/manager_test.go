package vps

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/vfs"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, dataDir string, root func(*Env) sched.Job) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{
		DataDir:   dataDir,
		Scheduler: sched.Config{Workers: 2, Idle: time.Millisecond},
		RootJob:   root,
		Logger:    quietLogger(),
	})
	t.Cleanup(m.StopAll)
	return m
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   string
	}{
		{"stopped", StatusStopped, "stopped"},
		{"running", StatusRunning, "running"},
		{"unknown/invalid", Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"web", false},
		{"db-01", false},
		{"", true},
		{"   ", true},
		{"a/b", true},
		{`a\b`, true},
		{"a:b", true},
		{"a*b", true},
		{"a?b", true},
		{`a"b`, true},
		{"a<b", true},
		{"a|b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidName)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	requireT := require.New(t)
	m := newTestManager(t, "", nil)
	ctx := context.Background()

	id, err := m.Create("web", 512, 1024, 1)
	requireT.NoError(err)
	requireT.NotEmpty(id)

	requireT.NoError(m.Start(ctx, id))
	requireT.ErrorIs(m.Start(ctx, id), ErrAlreadyRunning)

	requireT.NoError(m.Stop(id))
	requireT.ErrorIs(m.Stop(id), ErrAlreadyStopped)

	requireT.NoError(m.Delete(id))
	requireT.Empty(m.List())

	_, err = m.Get(id)
	requireT.ErrorIs(err, ErrInstanceNotFound)
}

func TestDeleteStopsRunningInstance(t *testing.T) {
	requireT := require.New(t)
	m := newTestManager(t, "", nil)

	id, err := m.Create("web", 512, 1024, 1)
	requireT.NoError(err)
	requireT.NoError(m.Start(context.Background(), "web"))

	requireT.NoError(m.Delete("web"))
	requireT.Equal(0, m.Len())
	requireT.ErrorIs(m.Stop(id), ErrInstanceNotFound)
}

func TestCreateRejectsInvalidName(t *testing.T) {
	m := newTestManager(t, "", nil)
	_, err := m.Create("a/b", 512, 1024, 1)
	require.ErrorIs(t, err, ErrInvalidName)
	require.Equal(t, 0, m.Len())
}

func TestAddressesFollowRegistrySize(t *testing.T) {
	requireT := require.New(t)
	m := newTestManager(t, "", nil)

	for _, name := range []string{"a", "b", "c"} {
		_, err := m.Create(name, 256, 512, 1)
		requireT.NoError(err)
	}

	list := m.List()
	requireT.Len(list, 3)
	requireT.Equal("192.168.1.100", list[0].IPAddress)
	requireT.Equal("192.168.1.101", list[1].IPAddress)
	requireT.Equal("192.168.1.102", list[2].IPAddress)
	for _, cfg := range list {
		requireT.Equal(StatusStopped, cfg.Status)
	}
}

func TestLookupByName(t *testing.T) {
	requireT := require.New(t)
	m := newTestManager(t, "", nil)

	first, err := m.Create("dup", 256, 512, 1)
	requireT.NoError(err)
	second, err := m.Create("dup", 256, 512, 1)
	requireT.NoError(err)

	inst, err := m.Get("dup")
	requireT.NoError(err)
	requireT.Equal(first, inst.ID())

	inst, err = m.Get(second)
	requireT.NoError(err)
	requireT.Equal(second, inst.ID())

	_, err = m.Get("missing")
	requireT.ErrorIs(err, ErrInstanceNotFound)
}

func TestNewInstanceEnvironment(t *testing.T) {
	requireT := require.New(t)
	m := newTestManager(t, "", nil)

	id, err := m.Create("web", 512, 1024, 1)
	requireT.NoError(err)
	inst, err := m.Get(id)
	requireT.NoError(err)
	env := inst.Env()

	for _, dir := range []string{"/home", "/etc", "/proc", "/dev", "/network"} {
		n, err := env.FS.Get(dir)
		requireT.NoError(err, dir)
		requireT.Equal(vfs.KindDirectory, n.Kind(), dir)
	}

	requireT.Equal(1, env.Disk.AllocatedCount())
	label, ok := env.Disk.Read(0)
	requireT.True(ok)
	requireT.Equal("VPS web Disk", string(label))
}

func TestStartRunsRootJob(t *testing.T) {
	requireT := require.New(t)
	ran := make(chan string, 1)
	m := newTestManager(t, "", func(env *Env) sched.Job {
		return sched.JobFunc(func(context.Context) error {
			ran <- env.Name
			return nil
		})
	})

	id, err := m.Create("web", 512, 1024, 1)
	requireT.NoError(err)
	requireT.NoError(m.Start(context.Background(), id))

	select {
	case name := <-ran:
		requireT.Equal("web", name)
	case <-time.After(time.Second):
		t.Fatal("root job did not run")
	}

	inst, _ := m.Get(id)
	requireT.Equal([]uint32{sched.InitPID}, inst.Processes())
	requireT.Eventually(func() bool {
		info, ok := inst.Env().Scheduler.Process(sched.InitPID)
		return ok && info.Status == sched.StatusCompleted
	}, time.Second, time.Millisecond)
}

func TestSpawnRecordsChild(t *testing.T) {
	requireT := require.New(t)
	m := newTestManager(t, "", nil)

	id, err := m.Create("web", 512, 1024, 1)
	requireT.NoError(err)
	inst, _ := m.Get(id)

	pid := inst.Spawn(nil, 5, 0)
	requireT.Contains(inst.Processes(), pid)

	info, ok := inst.Env().Scheduler.Process(pid)
	requireT.True(ok)
	requireT.NotNil(info.ParentPID)
	requireT.Equal(sched.InitPID, *info.ParentPID)
}

func TestPersistentInstances(t *testing.T) {
	requireT := require.New(t)
	dataDir := t.TempDir()
	m := newTestManager(t, dataDir, nil)

	id, err := m.Create("db", 1024, 2048, 2)
	requireT.NoError(err)
	inst, _ := m.Get(id)
	dir := inst.dir
	requireT.Equal(filepath.Join(dataDir, "vps", "db-"+id), dir)

	_, err = os.Stat(filepath.Join(dir, "disk.img"))
	requireT.NoError(err)

	requireT.NoError(m.Start(context.Background(), id))
	requireT.NoError(m.Stop(id))

	state, err := NewStateFile(dir).Load()
	requireT.NoError(err)
	requireT.Equal(1, state.BootCount)
	requireT.True(state.CleanShutdown)
	requireT.Equal("db", state.Config.Name)

	restored := newTestManager(t, dataDir, nil)
	n, err := restored.Restore()
	requireT.NoError(err)
	requireT.Equal(1, n)

	again, err := restored.Get("db")
	requireT.NoError(err)
	requireT.Equal(id, again.ID())
	requireT.Equal(StatusStopped, again.Status())
	label, ok := again.Env().Disk.Read(0)
	requireT.True(ok)
	requireT.Equal("VPS db Disk", string(label))

	requireT.NoError(restored.Delete(id))
	_, err = os.Stat(dir)
	requireT.True(os.IsNotExist(err))
}

func TestRestoreWithoutDataDir(t *testing.T) {
	m := newTestManager(t, "", nil)
	n, err := m.Restore()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
