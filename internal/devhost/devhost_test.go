package devhost

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/embedworks/picosync/internal/devtool"
)

// fakeTool writes a stand-in device tool that ignores its arguments and
// sleeps, so session processes stay alive until torn down.
func fakeTool(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faketool")
	script := "#!/bin/sh\nsleep 30\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func waitDead(t *testing.T, alive func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !alive() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("process still alive")
}

func TestStartInteractiveRequiresPort(t *testing.T) {
	h := New(fakeTool(t), "", quietLogger())
	if _, err := h.StartInteractive(context.Background()); !errors.Is(err, devtool.ErrChannelUnavailable) {
		t.Errorf("StartInteractive without a port = %v, want ErrChannelUnavailable", err)
	}
	if _, err := h.StartOneShot(context.Background(), devtool.NewCommand("run", "a.py")); !errors.Is(err, devtool.ErrChannelUnavailable) {
		t.Errorf("StartOneShot without a port = %v, want ErrChannelUnavailable", err)
	}
}

func TestStartInteractiveHonorsContext(t *testing.T) {
	h := New(fakeTool(t), "p0", quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := h.StartInteractive(ctx)
	if err != nil {
		t.Fatalf("StartInteractive: %v", err)
	}
	if !handle.Alive() {
		t.Fatal("session should be alive after start")
	}

	cancel()
	waitDead(t, handle.Alive)
}

func TestInteractiveCloseIsIdempotent(t *testing.T) {
	h := New(fakeTool(t), "p0", quietLogger())
	handle, err := h.StartInteractive(context.Background())
	if err != nil {
		t.Fatalf("StartInteractive: %v", err)
	}

	if err := handle.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if handle.Alive() {
		t.Error("closed session reports alive")
	}
}

func TestOneShotLifecycle(t *testing.T) {
	h := New(fakeTool(t), "p0", quietLogger())
	handle, err := h.StartOneShot(context.Background(), devtool.NewCommand("run", "a.py"))
	if err != nil {
		t.Fatalf("StartOneShot: %v", err)
	}
	if !handle.Alive() {
		t.Fatal("one-shot should be alive after start")
	}

	if err := handle.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	waitDead(t, handle.Alive)
}
