package vps

import (
	"fmt"
	"strings"
)

// Status represents the VPS lifecycle state.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stopped":
		*s = StatusStopped
	case "running":
		*s = StatusRunning
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Config describes one VPS instance.
type Config struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MemoryMB  int    `json:"memory_mb"`
	DiskMB    int    `json:"disk_mb"`
	CPUCores  int    `json:"cpu_cores"`
	IPAddress string `json:"ip_address"`
	Status    Status `json:"status"`
}

// invalidNameChars cannot appear in names because names end up in paths.
const invalidNameChars = `/\:*?"<>|`

// ValidateName reports whether name can be used for an instance.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("%w: %q contains one of %s", ErrInvalidName, name, invalidNameChars)
	}
	return nil
}
