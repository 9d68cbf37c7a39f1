package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/codebymarcos/vbox/internal/vfs"
)

type command struct {
	name    string
	aliases []string
	usage   string
	summary string
	run     func(ctx context.Context, s *Shell, args []string) error
}

type usageError struct{}

func (usageError) Error() string { return "usage" }

var errUsage = usageError{}

// table is in help order. It is filled in init because help reads it.
var table []*command

var commands = map[string]*command{}

func init() {
	table = []*command{
		{name: "ls", usage: "ls [dir]", summary: "List directory contents", run: runLs},
		{name: "cd", usage: "cd <dir>", summary: "Change directory", run: runCd},
		{name: "mkdir", usage: "mkdir <dir>", summary: "Create directory", run: runMkdir},
		{name: "touch", usage: "touch <file>", summary: "Create file", run: runTouch},
		{name: "cat", usage: "cat <file>", summary: "Display file contents", run: runCat},
		{name: "echo", usage: "echo <text> [> <file>]", summary: "Print text or append it to a file", run: runEcho},
		{name: "mem", aliases: []string{"memory"}, usage: "mem", summary: "Show memory usage", run: runMem},
		{name: "clearmem", aliases: []string{"freeram"}, usage: "clearmem", summary: "Clear disk memory", run: runClearMem},
		{name: "ps", usage: "ps", summary: "List processes", run: runPs},
		{name: "calc", usage: "calc <num1> <op> <num2>", summary: "Simple calculator", run: runCalc},
		{name: "route", usage: "route <list|add> [destination] [gateway]", summary: "Manage network routes", run: runRoute},
		{name: "vps", usage: "vps <create|list|start|stop|delete|attach> [args...]", summary: "Manage virtual private servers", run: runVps},
		{name: "clear", usage: "clear", summary: "Clear the screen", run: runClear},
		{name: "help", usage: "help", summary: "Show this help", run: runHelp},
	}

	for _, c := range table {
		commands[c.name] = c
		for _, a := range c.aliases {
			commands[a] = c
		}
	}
}

func runHelp(_ context.Context, s *Shell, _ []string) error {
	s.println("Commands:")
	for _, c := range table {
		name := c.usage
		if len(c.aliases) > 0 {
			name = strings.Join(append([]string{c.name}, c.aliases...), "/")
		}
		s.printf("  %-28s - %s\n", name, c.summary)
	}
	s.printf("  %-28s - %s\n", "exit", "Exit shell")
	return nil
}

func runClear(_ context.Context, s *Shell, _ []string) error {
	fmt.Fprint(s.out, "\x1b[2J\x1b[1;1H")
	return nil
}

func runLs(_ context.Context, s *Shell, args []string) error {
	p := s.cwd
	if len(args) > 0 {
		p = s.resolve(args[0])
	}
	names, err := s.env.FS.ListDir(p)
	if err != nil {
		return err
	}
	for _, name := range names {
		s.println(name)
	}
	return nil
}

func runCd(_ context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	p := s.resolve(args[0])
	n, err := s.env.FS.Get(p)
	if err != nil {
		return err
	}
	if n.Kind() != vfs.KindDirectory {
		return fmt.Errorf("%w: %s", vfs.ErrNotADirectory, p)
	}
	s.cwd = p
	return nil
}

func runMkdir(_ context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	_, err := s.env.FS.CreateDir(s.resolve(args[0]))
	return err
}

func runTouch(_ context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	_, err := s.env.FS.CreateFile(s.resolve(args[0]))
	return err
}

func runCat(_ context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	data, err := s.env.FS.ReadFile(s.resolve(args[0]))
	if err != nil {
		return err
	}
	s.println(string(data))
	return nil
}

func runEcho(_ context.Context, s *Shell, args []string) error {
	n := len(args)
	if n >= 2 && args[n-2] == ">" {
		text := strings.Join(args[:n-2], " ")
		return s.env.FS.WriteFile(s.resolve(args[n-1]), []byte(text))
	}
	if n > 0 && args[n-1] == ">" {
		return errUsage
	}
	s.println(strings.Join(args, " "))
	return nil
}

type digester interface {
	Digest() (digest.Digest, error)
}

func runMem(_ context.Context, s *Shell, _ []string) error {
	d := s.env.Disk
	s.println("Disk Memory:")
	s.printf("  Blocks allocated: %d\n", d.AllocatedCount())
	s.printf("  Total data size: %d bytes\n", d.TotalBytes())
	if dg, ok := d.(digester); ok {
		sum, err := dg.Digest()
		if err != nil {
			return err
		}
		if sum != "" {
			s.printf("  Image digest: %s\n", sum)
		}
	}

	st := s.env.FS.Stats()
	s.println("VFS Stats:")
	s.printf("  Directories: %d\n", st.Directories)
	s.printf("  Files: %d\n", st.Files)
	s.printf("  Total file data: %d bytes\n", st.Bytes)
	return nil
}

func runClearMem(_ context.Context, s *Shell, _ []string) error {
	if err := s.env.Disk.ClearAll(); err != nil {
		return err
	}
	s.println("Disk memory cleared.")
	return nil
}

func runPs(_ context.Context, s *Shell, _ []string) error {
	s.printf("%-6s %-9s %-10s %-11s %s\n", "PID", "PRIORITY", "STATUS", "PARENT PID", "MEMORY")
	for _, p := range s.env.Scheduler.ListProcesses() {
		s.printf("%-6d %-9d %-10s %-11s %d bytes\n", p.ID, p.Priority, p.Status, p.Parent(), p.MemoryUsage)
	}
	return nil
}

var errDivisionByZero = errors.New("division by zero")

func runCalc(_ context.Context, s *Shell, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	a, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid number: %s", args[0])
	}
	b, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid number: %s", args[2])
	}

	var result float64
	switch op := args[1]; op {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*", "x":
		result = a * b
	case "/":
		if b == 0 {
			return errDivisionByZero
		}
		result = a / b
	default:
		return fmt.Errorf("unknown operator: %s", op)
	}

	s.printf("%s %s %s = %s\n", formatNumber(a), args[1], formatNumber(b), formatNumber(result))
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func runRoute(_ context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "list":
		for _, r := range s.env.Network.Routes() {
			s.printf("%s -> %s\n", r.Destination, r.Gateway)
		}
	case "add":
		if len(args) < 3 {
			return errUsage
		}
		s.env.Network.AddRoute(args[1], args[2])
		s.printf("Route added: %s -> %s\n", args[1], args[2])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
	return nil
}
