// Package vps manages isolated virtual machines, each owning a block store,
// a filesystem and a scheduler.
package vps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/codebymarcos/vbox/internal/disk"
	"github.com/codebymarcos/vbox/internal/sched"
)

const (
	DefaultSubnetPrefix = "192.168.1"
	DefaultHostBase     = 100
)

// ManagerConfig holds configuration for the VPS manager.
type ManagerConfig struct {
	// DataDir holds one directory per instance. Empty keeps disks in memory.
	DataDir string

	// SubnetPrefix is the first three octets of assigned addresses.
	SubnetPrefix string

	// HostBase is the host octet given to the first instance.
	HostBase int

	// Scheduler configures every instance scheduler.
	Scheduler sched.Config

	// RootJob builds the root process of a starting instance. It runs as pid
	// 0 for the whole boot and serves the sessions passed to Attach.
	RootJob func(*Env) sched.Job

	// BootJob, when set, builds a one-shot child spawned at every start ahead
	// of the root.
	BootJob func(*Env) sched.Job

	Logger *slog.Logger
}

// Manager is the registry of instances.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	// openStore opens the disk image of a persistent instance.
	openStore func(path string) disk.Store

	mu        sync.RWMutex
	instances map[string]*Instance
	order     []string
}

// NewManager creates an empty manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.SubnetPrefix == "" {
		cfg.SubnetPrefix = DefaultSubnetPrefix
	}
	if cfg.HostBase == 0 {
		cfg.HostBase = DefaultHostBase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scheduler.Logger == nil {
		cfg.Scheduler.Logger = cfg.Logger
	}

	m := &Manager{
		cfg:       cfg,
		logger:    cfg.Logger,
		instances: make(map[string]*Instance),
	}
	m.openStore = func(path string) disk.Store {
		return disk.OpenFile(path, disk.WithLogger(m.logger))
	}
	return m
}

// Create registers a stopped instance and returns its id. The address is
// derived from the number of registered instances.
func (m *Manager) Create(name string, memoryMB, diskMB, cpuCores int) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	id := uuid.New().String()

	m.mu.RLock()
	host := m.cfg.HostBase + len(m.instances)
	m.mu.RUnlock()

	cfg := Config{
		ID:        id,
		Name:      name,
		MemoryMB:  memoryMB,
		DiskMB:    diskMB,
		CPUCores:  cpuCores,
		IPAddress: fmt.Sprintf("%s.%d", m.cfg.SubnetPrefix, host),
		Status:    StatusStopped,
	}

	inst, err := m.newInstance(cfg)
	if err != nil {
		return "", err
	}

	label := inst.env.Disk.Allocate()
	if err := inst.env.Disk.Write(label, []byte(fmt.Sprintf("VPS %s Disk", name))); err != nil {
		m.discard(inst)
		return "", fmt.Errorf("write disk label: %w", err)
	}
	if inst.state != nil {
		if err := inst.state.Update(func(s *PersistentState) { s.Config = cfg }); err != nil {
			m.logger.Warn("failed to save state", "id", id, "error", err)
		}
	}

	m.register(inst)
	m.logger.Info("vps created", "id", id, "name", name, "ip", cfg.IPAddress)
	return id, nil
}

func (m *Manager) newInstance(cfg Config) (*Instance, error) {
	var (
		store disk.Store
		dir   string
		state *StateFile
	)
	if m.cfg.DataDir == "" {
		store = disk.NewMemStore()
	} else {
		dir = filepath.Join(m.cfg.DataDir, "vps", cfg.Name+"-"+cfg.ID)
		store = m.openStore(filepath.Join(dir, "disk.img"))
		state = NewStateFile(dir)
	}

	env, err := NewEnv(cfg.Name, store, m.cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("build environment: %w", err)
	}

	return &Instance{
		id:     cfg.ID,
		name:   cfg.Name,
		logger: m.logger,
		env:    env,
		dir:    dir,
		state:  state,
		cfg:    cfg,
	}, nil
}

// discard stops the disk of an unregistered instance from persisting and
// removes its data directory.
func (m *Manager) discard(inst *Instance) {
	if c, ok := inst.env.Disk.(io.Closer); ok {
		if err := c.Close(); err != nil {
			m.logger.Warn("failed to close vps disk", "id", inst.id, "error", err)
		}
	}
	if inst.dir == "" {
		return
	}
	if err := os.RemoveAll(inst.dir); err != nil {
		m.logger.Warn("failed to remove vps data", "id", inst.id, "dir", inst.dir, "error", err)
	}
}

func (m *Manager) register(inst *Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.id] = inst
	m.order = append(m.order, inst.id)
}

// Get resolves ident as an id first, then as a name. When several instances
// share a name the earliest registered one wins.
func (m *Manager) Get(ident string) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := uuid.Parse(ident); err == nil {
		if inst, ok := m.instances[ident]; ok {
			return inst, nil
		}
	}
	for _, id := range m.order {
		inst := m.instances[id]
		if inst.name == ident {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, ident)
}

// Start boots the instance and enqueues its root process.
func (m *Manager) Start(ctx context.Context, ident string) error {
	inst, err := m.Get(ident)
	if err != nil {
		return err
	}

	if err := inst.start(ctx, m.cfg.RootJob, m.cfg.BootJob); err != nil {
		return fmt.Errorf("cannot start %s: %w", ident, err)
	}

	cfg := inst.Config()
	m.logger.Info("vps started", "id", cfg.ID, "name", cfg.Name)
	return nil
}

// Stop halts the instance scheduler. Running jobs are not interrupted.
func (m *Manager) Stop(ident string) error {
	inst, err := m.Get(ident)
	if err != nil {
		return err
	}
	if err := inst.stop(); err != nil {
		return fmt.Errorf("cannot stop %s: %w", ident, err)
	}

	cfg := inst.Config()
	m.logger.Info("vps stopped", "id", cfg.ID, "name", cfg.Name)
	return nil
}

// Delete stops the instance if needed, unregisters it, closes its disk and
// removes its data directory. Cleanup failures are logged.
func (m *Manager) Delete(ident string) error {
	inst, err := m.Get(ident)
	if err != nil {
		return err
	}
	if inst.Status() == StatusRunning {
		if err := m.Stop(ident); err != nil {
			return err
		}
	}

	cfg := inst.Config()

	m.mu.Lock()
	delete(m.instances, cfg.ID)
	for i, id := range m.order {
		if id == cfg.ID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	// Jobs left running keep their in-memory disk but no longer write it.
	m.discard(inst)

	m.logger.Info("vps deleted", "id", cfg.ID, "name", cfg.Name)
	return nil
}

// List returns a snapshot of every instance description in creation order.
func (m *Manager) List() []Config {
	m.mu.RLock()
	insts := make([]*Instance, 0, len(m.order))
	for _, id := range m.order {
		insts = append(insts, m.instances[id])
	}
	m.mu.RUnlock()

	out := make([]Config, len(insts))
	for i, inst := range insts {
		out[i] = inst.Config()
	}
	return out
}

// Len returns the number of registered instances.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// StopAll stops every running instance.
func (m *Manager) StopAll() {
	for _, cfg := range m.List() {
		if cfg.Status != StatusRunning {
			continue
		}
		if err := m.Stop(cfg.ID); err != nil {
			m.logger.Warn("failed to stop vps", "id", cfg.ID, "error", err)
		}
	}
}

// Restore registers the instances saved under DataDir, all stopped. It
// returns how many were loaded.
func (m *Manager) Restore() (int, error) {
	if m.cfg.DataDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(filepath.Join(m.cfg.DataDir, "vps"))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read vps dir: %w", err)
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(m.cfg.DataDir, "vps", e.Name())
		state, err := NewStateFile(dir).Load()
		if err != nil {
			m.logger.Warn("skipping vps", "dir", dir, "error", err)
			continue
		}
		cfg := state.Config
		if cfg.ID == "" {
			continue
		}
		if _, err := m.Get(cfg.ID); err == nil {
			continue
		}
		cfg.Status = StatusStopped

		inst, err := m.newInstance(cfg)
		if err != nil {
			m.logger.Warn("skipping vps", "dir", dir, "error", err)
			continue
		}
		m.register(inst)
		n++
	}
	return n, nil
}
