package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/testutil"
	"github.com/codebymarcos/vbox/internal/vps"
)

func newTestShell(t *testing.T, opts ...Option) (*Shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	env := testutil.NewEnv(t, "host")
	opts = append([]Option{WithLogger(testutil.Logger())}, opts...)
	return New(env, strings.NewReader(""), &out, opts...), &out
}

// run executes each line and returns what the shell printed.
func run(s *Shell, out *bytes.Buffer, lines ...string) string {
	out.Reset()
	for _, l := range lines {
		s.Execute(context.Background(), l)
	}
	return out.String()
}

func TestFilesystemCommands(t *testing.T) {
	requireT := require.New(t)
	s, out := newTestShell(t)

	run(s, out, "mkdir docs", "cd docs", "touch notes.txt", "echo hello world > notes.txt", "echo ! > notes.txt")
	requireT.Equal("/docs", s.Cwd())

	requireT.Equal("hello world!\n", run(s, out, "cat notes.txt"))
	requireT.Equal("notes.txt\n", run(s, out, "ls"))

	run(s, out, "cd ..")
	requireT.Equal("/", s.Cwd())
	requireT.Equal("hello world!\n", run(s, out, "cat /docs/notes.txt"))

	listing := run(s, out, "ls /")
	requireT.Equal("docs\netc\nhome\nnetwork\n", listing)
}

func TestCommandErrors(t *testing.T) {
	s, out := newTestShell(t)

	tests := []struct {
		line string
		want string
	}{
		{"frobnicate", "Unknown command: frobnicate\n"},
		{"cd", "Usage: cd <dir>\n"},
		{"cat /missing", "cat: vfs: path not found: /missing\n"},
		{"mkdir /a/b", "mkdir: vfs: parent not found: /a\n"},
		{"cd /dev/null", "cd: vfs: not a directory: /dev/null\n"},
		{"calc 1 / 0", "calc: division by zero\n"},
		{"calc 1 % 2", "calc: unknown operator: %\n"},
		{"calc one + 2", "calc: invalid number: one\n"},
		{"route", "Usage: route <list|add> [destination] [gateway]\n"},
		{"vps list", "vps: not available inside a vps\n"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require.Equal(t, tt.want, run(s, out, tt.line))
		})
	}
}

func TestCalc(t *testing.T) {
	s, out := newTestShell(t)

	tests := []struct {
		line string
		want string
	}{
		{"calc 10 + 5", "10 + 5 = 15\n"},
		{"calc 2.5 * 4", "2.5 * 4 = 10\n"},
		{"calc 7 / 2", "7 / 2 = 3.5\n"},
		{"calc 1 - 3", "1 - 3 = -2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require.Equal(t, tt.want, run(s, out, tt.line))
		})
	}
}

func TestMemAndClearMem(t *testing.T) {
	requireT := require.New(t)
	s, out := newTestShell(t)

	requireT.NoError(s.env.Disk.Write(s.env.Disk.Allocate(), []byte("12345")))
	run(s, out, "touch /a", "echo abc > /a")

	got := run(s, out, "mem")
	requireT.Contains(got, "Blocks allocated: 1\n")
	requireT.Contains(got, "Total data size: 5 bytes\n")
	requireT.Contains(got, "Directories: 4\n")
	requireT.Contains(got, "Files: 1\n")
	requireT.Contains(got, "Total file data: 3 bytes\n")

	requireT.Equal("Disk memory cleared.\n", run(s, out, "freeram"))
	requireT.Contains(run(s, out, "memory"), "Blocks allocated: 0\n")
}

func TestPsAndProc(t *testing.T) {
	requireT := require.New(t)
	s, out := newTestShell(t)

	parent := s.env.Scheduler.AddProcess(nil, 3, time.Hour, nil)
	s.env.Scheduler.AddProcess(nil, 4, time.Hour, &parent)

	got := run(s, out, "ps")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	requireT.Len(lines, 3)
	requireT.Equal([]string{"1", "3", "ready", "none", "0", "bytes"}, strings.Fields(lines[1]))
	requireT.Equal([]string{"2", "4", "ready", "1", "0", "bytes"}, strings.Fields(lines[2]))

	requireT.Equal("1\n2\n", run(s, out, "ls /proc"))
	requireT.Contains(run(s, out, "cat /proc/2"), "Parent PID: 1\n")
}

func TestRoute(t *testing.T) {
	requireT := require.New(t)
	s, out := newTestShell(t)

	requireT.Equal("Route added: 10.0.0.0/8 -> 10.0.0.1\n", run(s, out, "route add 10.0.0.0/8 10.0.0.1"))
	requireT.Equal("10.0.0.0/8 -> 10.0.0.1\ndefault -> 0.0.0.0/0 via 192.168.1.1\n", run(s, out, "route list"))
	requireT.Equal("Destination: 10.0.0.0/8\nGateway: 10.0.0.1\n", run(s, out, "cat /network/10.0.0.0/8"))
}

func TestRunLoop(t *testing.T) {
	requireT := require.New(t)
	var out bytes.Buffer
	env := testutil.NewEnv(t, "host")

	in := strings.NewReader("mkdir /tmp\n\ntouch /tmp/x\nexit\nmkdir /never\n")
	s := New(env, in, &out, WithPrompt(true), WithLogger(testutil.Logger()))
	requireT.NoError(s.Run(context.Background()))

	requireT.True(strings.HasPrefix(out.String(), Banner+"\n"))
	requireT.Contains(out.String(), "/> ")
	_, err := env.FS.Get("/tmp/x")
	requireT.NoError(err)
	_, err = env.FS.Get("/never")
	requireT.Error(err, "lines after exit are not executed")
}

func TestRunStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	env := testutil.NewEnv(t, "host")

	s := New(env, strings.NewReader("mkdir /last"), &out, WithLogger(testutil.Logger()))
	require.NoError(t, s.Run(context.Background()))
	require.NotContains(t, out.String(), "> ", "no prompt without a terminal")

	_, err := env.FS.Get("/last")
	require.NoError(t, err, "a final line without newline is executed")
}

func TestHelpListsCommands(t *testing.T) {
	s, out := newTestShell(t)
	got := run(s, out, "help")
	for _, name := range []string{"ls", "cd", "mem/memory", "clearmem/freeram", "vps", "exit"} {
		require.Contains(t, got, name)
	}
}

func TestBoot(t *testing.T) {
	requireT := require.New(t)
	env := testutil.NewEnv(t, "web")

	requireT.NoError(Boot(env).Run(context.Background()))
	requireT.NoError(Boot(env).Run(context.Background()), "boot is repeatable")

	data, err := env.FS.ReadFile("/etc/hostname")
	requireT.NoError(err)
	requireT.Equal("web", string(data))

	log, err := env.FS.ReadFile("/etc/boot.log")
	requireT.NoError(err)
	requireT.Equal(2, strings.Count(string(log), "boot "))

	_, err = env.FS.Get("/home/root")
	requireT.NoError(err)
}

func TestVpsCommands(t *testing.T) {
	requireT := require.New(t)

	cfg := testutil.ManagerConfig(t)
	cfg.RootJob = Root
	cfg.BootJob = Boot
	m := vps.NewManager(cfg)
	t.Cleanup(m.StopAll)

	s, out := newTestShell(t, WithManager(m, Defaults{MemoryMB: 512, DiskMB: 1024, CPUCores: 1}))

	requireT.Equal("No VPS instances found.\n", run(s, out, "vps list"))
	requireT.Contains(run(s, out, "vps create web"), "VPS 'web' created with ID: ")
	requireT.Equal("vps: invalid size: big\n", run(s, out, "vps create db big"))

	list := run(s, out, "vps list")
	requireT.Contains(list, "web")
	requireT.Contains(list, "512MB")
	requireT.Contains(list, "192.168.1.100")
	requireT.Contains(list, "stopped")

	requireT.Equal("VPS web started\n", run(s, out, "vps start web"))
	requireT.Contains(run(s, out, "vps start web"), "already running")

	inst, err := m.Get("web")
	requireT.NoError(err)
	requireT.Eventually(func() bool {
		hostname, err := inst.Env().FS.ReadFile("/etc/hostname")
		return err == nil && string(hostname) == "web"
	}, time.Second, time.Millisecond)
	requireT.Eventually(func() bool {
		info, ok := inst.Env().Scheduler.Process(sched.InitPID)
		return ok && info.Status == sched.StatusRunning
	}, time.Second, time.Millisecond)

	requireT.Equal("VPS web stopped\n", run(s, out, "vps stop web"))
	requireT.Equal("VPS web deleted\n", run(s, out, "vps delete web"))
	requireT.Contains(run(s, out, "vps start web"), "instance not found")
}

func TestVpsAttach(t *testing.T) {
	requireT := require.New(t)

	cfg := testutil.ManagerConfig(t)
	cfg.RootJob = Root
	m := vps.NewManager(cfg)
	t.Cleanup(m.StopAll)

	_, err := m.Create("web", 512, 1024, 1)
	requireT.NoError(err)

	var out bytes.Buffer
	host := testutil.NewEnv(t, "host")
	in := strings.NewReader(strings.Join([]string{
		"vps attach web",
		"mkdir /inside",
		"cd /inside",
		"exit",
		"vps attach web",
		"mkdir nested",
		"exit",
		"mkdir /outside",
	}, "\n") + "\n")
	s := New(host, in, &out, WithManager(m, Defaults{}), WithLogger(testutil.Logger()))

	requireT.Equal("vps: vps: not running: web\n", run(s, &out, "vps attach web"))
	requireT.NoError(m.Start(context.Background(), "web"))

	out.Reset()
	requireT.NoError(s.Run(context.Background()))
	requireT.Equal(2, strings.Count(out.String(), "Detached from web\n"))

	inst, _ := m.Get("web")
	_, err = inst.Env().FS.Get("/inside/nested")
	requireT.NoError(err, "working directory carries over between sessions")
	_, err = host.FS.Get("/outside")
	requireT.NoError(err)
	_, err = host.FS.Get("/inside")
	requireT.Error(err)

	// Sessions are served by the root process itself.
	requireT.Equal([]uint32{sched.InitPID}, inst.Processes())
	info, ok := inst.Env().Scheduler.Process(sched.InitPID)
	requireT.True(ok)
	requireT.Equal(sched.StatusRunning, info.Status)

	requireT.NoError(m.Stop("web"))
	requireT.Eventually(func() bool {
		info, _ := inst.Env().Scheduler.Process(sched.InitPID)
		return info.Status == sched.StatusCompleted
	}, time.Second, time.Millisecond)
}
