// Package cli provides the command-line interface for vbox.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codebymarcos/vbox/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "vbox",
	Short: "vbox - a simulated machine with nested virtual servers",
	Long: `vbox runs a small simulated machine in your terminal: a block disk,
an in-memory filesystem with /proc, /dev and /network, a priority scheduler
and a shell. From the shell you can create, start and attach to isolated
virtual servers, each with its own disk, filesystem and scheduler.

Running vbox without a subcommand is the same as "vbox run".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		switch cmd.Name() {
		case "version", "completion":
			return nil
		}
		if err := config.Load(); err != nil {
			return err
		}
		slog.SetDefault(newLogger(config.Global, cmd.ErrOrStderr()))
		return nil
	},
	RunE: runRun,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diskCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger builds the process logger from the configured level and format.
// Unknown values fall back to info and text.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
