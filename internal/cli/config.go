package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebymarcos/vbox/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration and any validation warnings",
	Long: `Print the configuration after defaults, config.yaml, .env and VBOX_*
environment variables have been applied, followed by validation results.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Global
	out := cmd.OutOrStdout()

	file := config.ConfigFileUsed()
	if file == "" {
		file = "(none, using defaults)"
	}

	fmt.Fprintln(out, "vbox Configuration")
	fmt.Fprintln(out, "==================")
	fmt.Fprintf(out, "Config file:        %s\n", file)
	fmt.Fprintf(out, "Data dir:           %s\n", cfg.DataDir)
	fmt.Fprintf(out, "Disk image:         %s\n", cfg.DiskPath())
	fmt.Fprintf(out, "Log:                %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Fprintf(out, "Dashboard:          %s on %s\n", formatBool(cfg.Dashboard.Enabled), cfg.Dashboard.Addr)
	fmt.Fprintf(out, "Scheduler:          %d workers, idle %s\n", cfg.Scheduler.Workers, cfg.Scheduler.Idle())
	fmt.Fprintf(out, "VPS addresses:      %s.%d and up\n", cfg.VPS.SubnetPrefix, cfg.VPS.HostBase)
	fmt.Fprintf(out, "VPS defaults:       %d MB memory, %d MB disk, %d cores\n",
		cfg.VPS.DefaultMemoryMB, cfg.VPS.DefaultDiskMB, cfg.VPS.DefaultCPUCores)

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, config.FormatValidationErrors(errs))
	}
	return nil
}

// formatBool formats a boolean for display.
func formatBool(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
