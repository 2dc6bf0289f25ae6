// Package devtool provides the subprocess contract for talking to the
// attached device.
//
// Every device operation is issued as a single invocation of an external
// device-communication binary (an mpremote-style tool). The rest of the
// system depends only on this contract:
//
//	invoke(argv) -> {stdout, stderr, exit code}
//
// The wire protocol between the tool and the physical device is a black
// box; picosync never speaks to the serial port directly.
//
// # Usage
//
//	tool := devtool.New("mpremote", "/dev/ttyACM0", nil)
//	res, err := tool.Invoke(ctx, devtool.NewCommand("fs", "ls", ":"))
//	if err != nil {
//	    return err
//	}
package devtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// Command is a typed argument vector for the device tool. Commands are
// built from discrete tokens and handed to the process-invocation API
// as-is; there is no string concatenation or shell quoting anywhere.
type Command struct {
	Args []string
}

// NewCommand builds a Command from argument tokens.
func NewCommand(args ...string) Command {
	return Command{Args: args}
}

// String renders the command for log output.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// IsZero reports whether the command carries no arguments.
func (c Command) IsZero() bool {
	return len(c.Args) == 0
}

// Result carries the outcome of a single tool invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Invoker abstracts tool invocation so the coordinator and sync applier
// can be tested against a fake device.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (Result, error)
}

// Tool invokes the configured device-communication binary against a
// single serial port. The port is injected into every invocation via the
// tool's connect arguments, so callers only supply the operation itself.
type Tool struct {
	bin    string
	port   string
	logger *log.Logger
}

var _ Invoker = (*Tool)(nil)

// New creates a Tool for the given binary and serial port.
//
// If logger is nil, a default logger writing to stderr is used.
func New(bin, port string, logger *log.Logger) *Tool {
	if logger == nil {
		logger = log.New(os.Stderr, "[devtool] ", log.LstdFlags)
	}
	return &Tool{bin: bin, port: port, logger: logger}
}

// Port returns the serial port this tool is bound to.
func (t *Tool) Port() string {
	return t.port
}

// Invoke runs the device tool once and returns its output.
//
// A non-zero exit code is surfaced as a *SubprocessError carrying the
// stderr text, alongside the partial Result. Transport-level conditions
// ("no device", "could not enter raw repl") are mapped onto the package
// error taxonomy so callers can classify them with IsRetryable/IsFatal.
func (t *Tool) Invoke(ctx context.Context, cmd Command) (Result, error) {
	if t.port == "" {
		return Result{}, ErrChannelUnavailable
	}

	argv := make([]string, 0, len(cmd.Args)+2)
	argv = append(argv, "connect", t.port)
	argv = append(argv, cmd.Args...)
	return t.run(ctx, cmd, argv)
}

// InvokeGlobal runs the tool without binding to a port, for operations
// like enumerating candidate devices.
func (t *Tool) InvokeGlobal(ctx context.Context, cmd Command) (Result, error) {
	return t.run(ctx, cmd, cmd.Args)
}

func (t *Tool) run(ctx context.Context, cmd Command, argv []string) (Result, error) {
	proc := exec.CommandContext(ctx, t.bin, argv...)

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if proc.ProcessState != nil {
		res.ExitCode = proc.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The binary itself could not be started.
		return res, fmt.Errorf("%w: %s: %v", ErrChannelUnavailable, t.bin, err)
	}

	t.logger.Printf("tool exited %d: %s", res.ExitCode, cmd)
	return res, classifyStderr(cmd, res)
}

// classifyStderr maps well-known tool failure texts onto the error
// taxonomy; everything else becomes a plain SubprocessError.
func classifyStderr(cmd Command, res Result) error {
	msg := strings.ToLower(string(res.Stderr))
	sub := &SubprocessError{
		Cmd:      cmd.String(),
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(string(res.Stderr)),
	}

	switch {
	case strings.Contains(msg, "no device"),
		strings.Contains(msg, "failed to access"),
		strings.Contains(msg, "no such file or directory"):
		sub.kind = ErrChannelUnavailable
	case strings.Contains(msg, "could not enter raw repl"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "device busy"),
		strings.Contains(msg, "resource busy"):
		sub.kind = ErrHandshakeTimeout
	}

	return sub
}
