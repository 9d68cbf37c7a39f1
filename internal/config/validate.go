package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// ValidationError represents a configuration issue.
type ValidationError struct {
	Field   string
	Message string
	Fatal   bool // true = can't proceed, false = will be ignored
}

// ValidateConfig checks cfg for values the runtime cannot use.
func ValidateConfig(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, msg string, fatal bool) {
		errs = append(errs, ValidationError{Field: field, Message: msg, Fatal: fatal})
	}

	if cfg.DataDir == "" {
		add("data_dir", "must not be empty", true)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		add("log_level", fmt.Sprintf("unknown level %q, using info", cfg.LogLevel), false)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		add("log_format", fmt.Sprintf("unknown format %q, using text", cfg.LogFormat), false)
	}

	if cfg.Dashboard.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Dashboard.Addr); err != nil {
			add("dashboard.addr", fmt.Sprintf("invalid listen address %q", cfg.Dashboard.Addr), true)
		}
	}

	if cfg.Scheduler.Workers < 1 {
		add("scheduler.workers", "must be at least 1", true)
	}
	if cfg.Scheduler.IdleMS < 1 {
		add("scheduler.idle_ms", "must be at least 1", true)
	}

	ip := net.ParseIP(cfg.VPS.SubnetPrefix + ".0")
	if ip == nil || ip.To4() == nil {
		add("vps.subnet_prefix", fmt.Sprintf("%q is not three IPv4 octets", cfg.VPS.SubnetPrefix), true)
	}
	if cfg.VPS.HostBase < 1 || cfg.VPS.HostBase > 254 {
		add("vps.host_base", "must be between 1 and 254", true)
	}
	if cfg.VPS.DefaultMemoryMB < 1 {
		add("vps.default_memory_mb", "must be positive", true)
	}
	if cfg.VPS.DefaultDiskMB < 1 {
		add("vps.default_disk_mb", "must be positive", true)
	}
	if cfg.VPS.DefaultCPUCores < 1 {
		add("vps.default_cpu_cores", "must be positive", true)
	}

	return errs
}

// HasFatal reports whether any error prevents startup.
func HasFatal(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Fatal {
			return true
		}
	}
	return false
}

// FormatValidationErrors returns human-readable error summary.
func FormatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Configuration warnings:\n")
	for _, e := range errs {
		prefix := "Warning"
		if e.Fatal {
			prefix = "Error"
		}
		fmt.Fprintf(&b, "  %s [%s]: %s\n", prefix, e.Field, e.Message)
	}
	return b.String()
}
