package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VBOX_DATA_DIR.
const EnvPrefix = "VBOX"

// Config holds all vbox configuration.
type Config struct {
	// DataDir holds the host disk image and per-vps data.
	DataDir string `mapstructure:"data_dir"`

	// DiskFile is the host disk image. Empty means <data_dir>/disk.img.
	DiskFile string `mapstructure:"disk_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format"`

	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	VPS       VPSConfig       `mapstructure:"vps"`
}

// DashboardConfig controls the HTTP status view.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SchedulerConfig sizes every scheduler.
type SchedulerConfig struct {
	// Workers is the number of jobs that may run at once.
	Workers int `mapstructure:"workers"`

	// IdleMS is the loop sleep when nothing could be dispatched.
	IdleMS int `mapstructure:"idle_ms"`
}

// Idle returns IdleMS as a duration.
func (s SchedulerConfig) Idle() time.Duration {
	return time.Duration(s.IdleMS) * time.Millisecond
}

// VPSConfig holds address assignment and creation defaults.
type VPSConfig struct {
	// SubnetPrefix is the first three octets, e.g. 192.168.1.
	SubnetPrefix string `mapstructure:"subnet_prefix"`

	// HostBase is the host octet of the first instance.
	HostBase int `mapstructure:"host_base"`

	DefaultMemoryMB int `mapstructure:"default_memory_mb"`
	DefaultDiskMB   int `mapstructure:"default_disk_mb"`
	DefaultCPUCores int `mapstructure:"default_cpu_cores"`
}

// DiskPath returns the host disk image path.
func (c *Config) DiskPath() string {
	if c.DiskFile != "" {
		return c.DiskFile
	}
	return filepath.Join(c.DataDir, "disk.img")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	paths, err := GetPaths()
	if err != nil {
		paths = &Paths{
			DataDir: "/tmp/vbox",
		}
	}

	return &Config{
		DataDir:   paths.DataDir,
		DiskFile:  "",
		LogLevel:  "info",
		LogFormat: "text",
		Dashboard: DashboardConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8080",
		},
		Scheduler: SchedulerConfig{
			Workers: 4,
			IdleMS:  10,
		},
		VPS: VPSConfig{
			SubnetPrefix:    "192.168.1",
			HostBase:        100,
			DefaultMemoryMB: 512,
			DefaultDiskMB:   1024,
			DefaultCPUCores: 1,
		},
	}
}

// Global holds the loaded configuration.
var Global *Config

var configFileUsed string

// Load reads configuration from .env, the config file, the environment and
// defaults, and stores the result in Global.
func Load() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to determine paths: %w", err)
	}

	cfg, used, err := LoadFrom(paths, ".env")
	if err != nil {
		return err
	}

	Global = cfg
	configFileUsed = used
	return nil
}

// LoadFrom loads configuration using paths for the config file search and
// envFile for dotenv overrides. It returns the config file used, if any.
func LoadFrom(paths *Paths, envFile string) (*Config, string, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()

	defaults := DefaultConfig()
	defaults.DataDir = paths.DataDir
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("disk_file", defaults.DiskFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("dashboard.enabled", defaults.Dashboard.Enabled)
	v.SetDefault("dashboard.addr", defaults.Dashboard.Addr)
	v.SetDefault("scheduler.workers", defaults.Scheduler.Workers)
	v.SetDefault("scheduler.idle_ms", defaults.Scheduler.IdleMS)
	v.SetDefault("vps.subnet_prefix", defaults.VPS.SubnetPrefix)
	v.SetDefault("vps.host_base", defaults.VPS.HostBase)
	v.SetDefault("vps.default_memory_mb", defaults.VPS.DefaultMemoryMB)
	v.SetDefault("vps.default_disk_mb", defaults.VPS.DefaultDiskMB)
	v.SetDefault("vps.default_cpu_cores", defaults.VPS.DefaultCPUCores)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.DataDir)
	if paths.ConfigDir != "" {
		v.AddConfigPath(paths.ConfigDir)
	}

	// VBOX_DATA_DIR, VBOX_DASHBOARD_ENABLED, VBOX_SCHEDULER_WORKERS, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}

// ConfigFileUsed returns the path of the config file being used, if any.
func ConfigFileUsed() string {
	return configFileUsed
}
