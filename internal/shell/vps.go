package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/codebymarcos/vbox/internal/vps"
)

var errNoManager = errors.New("not available inside a vps")

func runVps(ctx context.Context, s *Shell, args []string) error {
	if s.manager == nil {
		return errNoManager
	}
	if len(args) == 0 {
		return errUsage
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return vpsCreate(s, rest)
	case "list":
		vpsList(s)
		return nil
	case "start", "stop", "delete", "attach":
		if len(rest) == 0 {
			return errUsage
		}
	default:
		return fmt.Errorf("unknown subcommand: %s (available: create, list, start, stop, delete, attach)", sub)
	}

	ident := rest[0]
	switch sub {
	case "start":
		if err := s.manager.Start(ctx, ident); err != nil {
			return err
		}
		s.printf("VPS %s started\n", ident)
	case "stop":
		if err := s.manager.Stop(ident); err != nil {
			return err
		}
		s.printf("VPS %s stopped\n", ident)
	case "delete":
		if err := s.manager.Delete(ident); err != nil {
			return err
		}
		s.printf("VPS %s deleted\n", ident)
	case "attach":
		return vpsAttach(ctx, s, ident)
	}
	return nil
}

func vpsCreate(s *Shell, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	name := args[0]
	sizes := []int{s.defaults.MemoryMB, s.defaults.DiskMB, s.defaults.CPUCores}
	for i, arg := range args[1:] {
		if i >= len(sizes) {
			break
		}
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid size: %s", arg)
		}
		sizes[i] = v
	}

	id, err := s.manager.Create(name, sizes[0], sizes[1], sizes[2])
	if err != nil {
		return err
	}
	s.printf("VPS '%s' created with ID: %s\n", name, id)
	return nil
}

func vpsList(s *Shell) {
	list := s.manager.List()
	if len(list) == 0 {
		s.println("No VPS instances found.")
		return
	}

	const row = "%-36s %-20s %-8s %-8s %-4s %-15s %s\n"
	s.printf(row, "ID", "NAME", "MEMORY", "DISK", "CPU", "IP", "STATUS")
	s.println(strings.Repeat("-", 104))
	for _, c := range list {
		s.printf(row, c.ID, c.Name,
			strconv.Itoa(c.MemoryMB)+"MB", strconv.Itoa(c.DiskMB)+"MB",
			strconv.Itoa(c.CPUCores), c.IPAddress, c.Status)
	}
}

// vpsAttach hands this shell's input and output to the root shell of the
// instance and waits for that session to end.
func vpsAttach(ctx context.Context, s *Shell, ident string) error {
	inst, err := s.manager.Get(ident)
	if err != nil {
		return err
	}

	if err := inst.Attach(ctx, s.in, s.out, s.prompt); err != nil {
		if errors.Is(err, vps.ErrNotRunning) {
			return fmt.Errorf("%w: %s", err, ident)
		}
		return err
	}
	s.printf("Detached from %s\n", inst.Name())
	return nil
}
