// Package shell implements the line-oriented command interpreter bound to one
// machine environment.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"golang.org/x/term"

	"github.com/codebymarcos/vbox/internal/vps"
)

// Banner is printed when a session starts.
const Banner = "VBOX Shell - Type 'help' for commands, 'exit' to quit."

// Defaults are the sizes used by "vps create" when they are omitted.
type Defaults struct {
	MemoryMB int
	DiskMB   int
	CPUCores int
}

// Shell reads commands from in and writes results to out. It is not safe for
// concurrent use.
type Shell struct {
	env      *vps.Env
	manager  *vps.Manager
	defaults Defaults
	in       *bufio.Reader
	out      io.Writer
	prompt   bool
	label    string
	cwd      string
	logger   *slog.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithManager enables the vps command.
func WithManager(m *vps.Manager, d Defaults) Option {
	return func(s *Shell) {
		s.manager = m
		s.defaults = d
	}
}

// WithPrompt forces the prompt on or off.
func WithPrompt(on bool) Option {
	return func(s *Shell) { s.prompt = on }
}

// WithLabel prefixes the prompt, e.g. with a machine name.
func WithLabel(label string) Option {
	return func(s *Shell) { s.label = label }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

// New creates a shell over env. The prompt is shown only when in is a terminal
// unless WithPrompt says otherwise.
func New(env *vps.Env, in io.Reader, out io.Writer, opts ...Option) *Shell {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}

	s := &Shell{
		env:    env,
		in:     br,
		out:    out,
		prompt: Interactive(in),
		cwd:    "/",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interactive reports whether r is a terminal.
func Interactive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Cwd returns the working directory.
func (s *Shell) Cwd() string {
	return s.cwd
}

// Run reads and executes lines until "exit" or end of input. A blocked read
// is not interrupted by ctx.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, Banner)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.prompt {
			fmt.Fprintf(s.out, "%s%s> ", s.label, s.cwd)
		}

		line, err := s.in.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if s.Execute(ctx, line) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// Execute runs one command line. It reports whether the session should end.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]

	if name == "exit" {
		return true
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(s.out, "Unknown command: %s\n", name)
		return false
	}

	s.logger.Debug("shell command", "machine", s.env.Name, "command", name, "args", len(args))
	if err := cmd.run(ctx, s, args); err != nil {
		var u usageError
		if errors.As(err, &u) {
			fmt.Fprintf(s.out, "Usage: %s\n", cmd.usage)
		} else {
			fmt.Fprintf(s.out, "%s: %v\n", name, err)
		}
	}
	return false
}

// resolve turns arg into an absolute, cleaned path relative to cwd.
func (s *Shell) resolve(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return path.Clean(arg)
	}
	return path.Clean(path.Join(s.cwd, arg))
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}
