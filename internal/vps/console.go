package vps

import (
	"context"
	"io"
	"sync"
)

// Session is one attachment to a running instance. The root process serves it
// by reading In and writing Out, then calls Finish.
type Session struct {
	In     io.Reader
	Out    io.Writer
	Prompt bool

	done chan error
}

// Finish ends the session and releases the attached caller with err.
func (s Session) Finish(err error) {
	s.done <- err
}

// Console hands sessions from Attach to the root process. Every boot opens a
// new generation; stopping the instance closes it, so a root from an earlier
// boot never receives a session meant for a later one.
type Console struct {
	mu       sync.Mutex
	sessions chan Session
	closed   chan struct{}
}

func newConsole() *Console {
	closed := make(chan struct{})
	close(closed)
	return &Console{sessions: make(chan Session), closed: closed}
}

func (c *Console) open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		c.sessions = make(chan Session)
		c.closed = make(chan struct{})
	default:
	}
}

func (c *Console) shut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

func (c *Console) current() (chan Session, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions, c.closed
}

// Listen binds a listener to the current generation.
func (c *Console) Listen() *Listener {
	sessions, closed := c.current()
	return &Listener{sessions: sessions, closed: closed}
}

// Listener receives the sessions of one boot.
type Listener struct {
	sessions <-chan Session
	closed   <-chan struct{}
}

// Accept waits for the next session. It returns false once the boot it was
// bound to has ended or ctx is done.
func (l *Listener) Accept(ctx context.Context) (Session, bool) {
	select {
	case <-l.closed:
		return Session{}, false
	default:
	}

	select {
	case s := <-l.sessions:
		return s, true
	case <-l.closed:
		return Session{}, false
	case <-ctx.Done():
		return Session{}, false
	}
}

// dial delivers a new session to the current listener and waits for it to
// end. Delivery fails with ErrNotRunning when no boot is open.
func (c *Console) dial(ctx context.Context, in io.Reader, out io.Writer, prompt bool) error {
	sessions, closed := c.current()
	s := Session{In: in, Out: out, Prompt: prompt, done: make(chan error, 1)}

	select {
	case sessions <- s:
	case <-closed:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
