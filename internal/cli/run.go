package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codebymarcos/vbox/internal/config"
	"github.com/codebymarcos/vbox/internal/dashboard"
	"github.com/codebymarcos/vbox/internal/disk"
	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/shell"
	"github.com/codebymarcos/vbox/internal/timing"
	"github.com/codebymarcos/vbox/internal/vps"
)

// HostName names the environment the host shell runs in.
const HostName = "host"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the host machine and its shell",
	Long: `Start the host machine: open the disk image, restore known virtual
servers, optionally serve the status dashboard, and run the shell as the init
process on stdin/stdout.

The session ends when the shell exits or on SIGINT/SIGTERM. Running servers
are stopped and their state is saved.`,
	RunE: runRun,
}

var (
	runDashboard bool
	runAddr      string
	runTiming    bool
)

func init() {
	runCmd.Flags().BoolVar(&runDashboard, "dashboard", false, "serve the status dashboard")
	runCmd.Flags().StringVar(&runAddr, "addr", "", "dashboard listen address (overrides dashboard.addr)")
	runCmd.Flags().BoolVar(&runTiming, "timing", false, "print startup timing")
}

// host is everything one vbox session owns.
type host struct {
	cfg     *config.Config
	logger  *slog.Logger
	env     *vps.Env
	manager *vps.Manager
}

// newHost opens the host disk, builds its environment and restores the
// instances persisted under the data directory.
func newHost(cfg *config.Config, logger *slog.Logger, timer *timing.Timer) (*host, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	schedCfg := sched.Config{
		Workers: cfg.Scheduler.Workers,
		Idle:    cfg.Scheduler.Idle(),
		Logger:  logger,
	}

	store := disk.OpenFile(cfg.DiskPath(), disk.WithLogger(logger))
	env, err := vps.NewEnv(HostName, store, schedCfg)
	if err != nil {
		return nil, fmt.Errorf("build host environment: %w", err)
	}
	timer.Mark("host_env")

	manager := vps.NewManager(vps.ManagerConfig{
		DataDir:      cfg.DataDir,
		SubnetPrefix: cfg.VPS.SubnetPrefix,
		HostBase:     cfg.VPS.HostBase,
		Scheduler:    schedCfg,
		RootJob:      shell.Root,
		BootJob:      shell.Boot,
		Logger:       logger,
	})
	n, err := manager.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore instances: %w", err)
	}
	if n > 0 {
		logger.Info("restored instances", "count", n)
	}
	timer.Mark("restore")

	return &host{cfg: cfg, logger: logger, env: env, manager: manager}, nil
}

// serve runs the host shell as init over in and out until it exits or ctx is
// cancelled, together with the scheduler loop and the optional dashboard.
func (h *host) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sh := shell.New(h.env, in, out,
		shell.WithManager(h.manager, shell.Defaults{
			MemoryMB: h.cfg.VPS.DefaultMemoryMB,
			DiskMB:   h.cfg.VPS.DefaultDiskMB,
			CPUCores: h.cfg.VPS.DefaultCPUCores,
		}),
		shell.WithLogger(h.logger),
	)
	h.env.Scheduler.AddInit(initJob(sh, cancel))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.env.Scheduler.Run(gctx)
	})
	if h.cfg.Dashboard.Enabled {
		// Route dumps would interleave with the shell on stdout.
		gin.SetMode(gin.ReleaseMode)
		srv := dashboard.New(h.env, h.manager, h.logger)
		g.Go(func() error {
			return srv.Serve(gctx, h.cfg.Dashboard.Addr)
		})
	}

	err := g.Wait()
	h.manager.StopAll()
	return err
}

// initJob runs the shell and ends the session when it returns.
func initJob(sh *shell.Shell, done context.CancelFunc) sched.Job {
	return sched.JobFunc(func(ctx context.Context) error {
		defer done()
		return sh.Run(ctx)
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	timer := timing.New()

	cfg := config.Global
	if runDashboard {
		cfg.Dashboard.Enabled = true
	}
	if runAddr != "" {
		cfg.Dashboard.Addr = runAddr
	}

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), config.FormatValidationErrors(errs))
		if config.HasFatal(errs) {
			return errors.New("invalid configuration")
		}
	}
	timer.Mark("config")

	logger := slog.Default()
	h, err := newHost(cfg, logger, timer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("startup complete", "timing", timer)
	if runTiming {
		timer.Report(cmd.ErrOrStderr())
	}

	// A signal leaves the init shell blocked on its read; it is not joined.
	return h.serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
