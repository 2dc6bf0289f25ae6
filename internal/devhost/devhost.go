// Package devhost starts device session processes for the session
// manager. The interactive REPL runs the device tool under a pty so a
// local terminal can attach to it; one-shot executions run as plain
// subprocesses.
package devhost

import (
	"context"
	"log"
	"os"
	"os/exec"
	"sync"

	gopty "github.com/aymanbagabas/go-pty"

	"github.com/embedworks/picosync/internal/devtool"
	"github.com/embedworks/picosync/internal/session"
)

// Host implements session.Host over the device tool binary.
type Host struct {
	bin    string
	port   string
	logger *log.Logger
}

var _ session.Host = (*Host)(nil)

// New creates a Host for the given tool binary and serial port.
func New(bin, port string, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.New(os.Stderr, "[devhost] ", log.LstdFlags)
	}
	return &Host{bin: bin, port: port, logger: logger}
}

// StartInteractive spawns `<tool> connect <port> repl` under a pty.
func (h *Host) StartInteractive(ctx context.Context) (session.TerminalHandle, error) {
	if h.port == "" {
		return nil, devtool.ErrChannelUnavailable
	}

	p, err := gopty.New()
	if err != nil {
		return nil, err
	}

	cmd := p.Command(h.bin, "connect", h.port, "repl")
	if err := cmd.Start(); err != nil {
		p.Close()
		return nil, err
	}

	t := &replHandle{pty: p, cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(t.done)
	}()
	// The pty API has no CommandContext equivalent; mirror its
	// semantics by tearing the REPL down when ctx is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-t.done:
		}
	}()
	return t, nil
}

// StartOneShot runs a single device command as a transient process.
func (h *Host) StartOneShot(ctx context.Context, cmd devtool.Command) (session.Handle, error) {
	if h.port == "" {
		return nil, devtool.ErrChannelUnavailable
	}

	argv := make([]string, 0, len(cmd.Args)+2)
	argv = append(argv, "connect", h.port)
	argv = append(argv, cmd.Args...)

	proc := exec.CommandContext(ctx, h.bin, argv...)
	proc.Stdout = os.Stdout
	proc.Stderr = os.Stderr
	if err := proc.Start(); err != nil {
		return nil, err
	}

	o := &oneShotHandle{proc: proc, done: make(chan struct{})}
	go func() {
		o.err = proc.Wait()
		close(o.done)
	}()
	return o, nil
}

// replHandle is the pty-backed interactive session process.
type replHandle struct {
	pty  gopty.Pty
	cmd  *gopty.Cmd
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func (t *replHandle) Alive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *replHandle) Read(p []byte) (int, error)  { return t.pty.Read(p) }
func (t *replHandle) Write(p []byte) (int, error) { return t.pty.Write(p) }

// SendLine writes a line of input followed by carriage return.
func (t *replHandle) SendLine(s string) error {
	_, err := t.pty.Write([]byte(s + "\r"))
	return err
}

// Interrupt sends Ctrl-C through the pty.
func (t *replHandle) Interrupt() error {
	_, err := t.pty.Write([]byte{0x03})
	return err
}

// Close kills the REPL process and releases the pty.
func (t *replHandle) Close() error {
	t.closeOnce.Do(func() {
		if t.Alive() && t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		<-t.done
		t.closeErr = t.pty.Close()
	})
	return t.closeErr
}

// Wait blocks until the REPL process exits.
func (t *replHandle) Wait() {
	<-t.done
}

// oneShotHandle is a transient device tool process.
type oneShotHandle struct {
	proc *exec.Cmd
	done chan struct{}
	err  error

	closeOnce sync.Once
}

func (o *oneShotHandle) Alive() bool {
	select {
	case <-o.done:
		return false
	default:
		return true
	}
}

// Interrupt sends SIGINT so the tool can detach from the device cleanly.
func (o *oneShotHandle) Interrupt() error {
	if !o.Alive() || o.proc.Process == nil {
		return nil
	}
	return o.proc.Process.Signal(os.Interrupt)
}

// Close kills the process if it is still running.
func (o *oneShotHandle) Close() error {
	o.closeOnce.Do(func() {
		if o.Alive() && o.proc.Process != nil {
			_ = o.proc.Process.Kill()
		}
		<-o.done
	})
	return nil
}

// Wait blocks until the process exits and returns its error, if any.
func (o *oneShotHandle) Wait() error {
	<-o.done
	return o.err
}
