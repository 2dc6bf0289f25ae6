package devtool

import (
	"errors"
	"testing"
)

func TestCommand(t *testing.T) {
	cmd := NewCommand("fs", "cp", "a.py", ":a.py")
	if got := cmd.String(); got != "fs cp a.py :a.py" {
		t.Errorf("String() = %q", got)
	}
	if cmd.IsZero() {
		t.Error("non-empty command should not be zero")
	}
	if !(Command{}).IsZero() {
		t.Error("empty command should be zero")
	}
}

func TestClassifyStderr(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"no device", "mpremote: no device found", ErrChannelUnavailable},
		{"port vanished", "failed to access /dev/ttyACM0", ErrChannelUnavailable},
		{"raw repl", "could not enter raw repl", ErrHandshakeTimeout},
		{"timeout", "timeout waiting for response", ErrHandshakeTimeout},
		{"busy", "device busy", ErrHandshakeTimeout},
		{"unclassified", "SyntaxError: invalid syntax", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStderr(NewCommand("eval", "1"), Result{Stderr: []byte(tt.stderr), ExitCode: 1})

			var sub *SubprocessError
			if !errors.As(err, &sub) {
				t.Fatalf("classifyStderr returned %T, want *SubprocessError", err)
			}
			if tt.want == nil {
				if sub.Unwrap() != nil {
					t.Errorf("expected unclassified error, got wrapped %v", sub.Unwrap())
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(err, %v) = false for stderr %q", tt.want, tt.stderr)
			}
		})
	}
}

func TestSubprocessErrorMessage(t *testing.T) {
	err := &SubprocessError{Cmd: "fs ls :", ExitCode: 1, Stderr: "no device found"}
	want := "device tool failed (exit 1): fs ls :: no device found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &SubprocessError{Cmd: "reset", ExitCode: 2}
	if bare.Error() != "device tool failed (exit 2): reset" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		fatal     bool
	}{
		{"nil", nil, false, false},
		{"handshake timeout", ErrHandshakeTimeout, true, false},
		{"channel unavailable", ErrChannelUnavailable, false, true},
		{"configuration", ErrConfiguration, false, true},
		{"filesystem", ErrFilesystem, false, false},
		{"preempted", ErrPreempted, false, false},
		{
			"wrapped timeout",
			&SubprocessError{Cmd: "eval 1", kind: ErrHandshakeTimeout},
			true, false,
		},
		{
			"wrapped unavailable",
			&SubprocessError{Cmd: "eval 1", kind: ErrChannelUnavailable},
			false, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal = %v, want %v", got, tt.fatal)
			}
		})
	}
}
