package session

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/embedworks/picosync/internal/devtool"
)

func TestParseRestoreBehavior(t *testing.T) {
	tests := []struct {
		in   string
		want RestoreBehavior
	}{
		{"none", RestoreNone},
		{"", RestoreNone},
		{"garbage", RestoreNone},
		{"open-empty", RestoreOpenEmpty},
		{"OPEN_EMPTY", RestoreOpenEmpty},
		{"soft-reset", RestoreSoftReset},
		{"replay-import", RestoreReplayImport},
		{" import ", RestoreReplayImport},
	}

	for _, tt := range tests {
		if got := ParseRestoreBehavior(tt.in); got != tt.want {
			t.Errorf("ParseRestoreBehavior(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRestoreReopensInteractive(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if _, err := m.OpenInteractive(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := m.Suspend(time.Millisecond)

	if err := m.Restore(context.Background(), snap, RestoreOpenEmpty, ""); err != nil {
		t.Fatal(err)
	}
	if !m.InteractiveOpen() {
		t.Error("interactive session should be reopened")
	}
	if host.interactiveStarts() != 2 {
		t.Errorf("host started %d sessions, want 2", host.interactiveStarts())
	}
}

func TestRestoreNoneDoesNotReopen(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if _, err := m.OpenInteractive(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := m.Suspend(time.Millisecond)

	if err := m.Restore(context.Background(), snap, RestoreNone, ""); err != nil {
		t.Fatal(err)
	}
	if m.InteractiveOpen() {
		t.Error("RestoreNone must not reopen the session")
	}
}

func TestRestoreSkipsUserClosedSession(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if _, err := m.OpenInteractive(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := m.Suspend(time.Millisecond)

	// The user closes the session while the exclusive work runs.
	if err := m.CloseInteractive(true); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(context.Background(), snap, RestoreOpenEmpty, ""); err != nil {
		t.Fatal(err)
	}
	if m.InteractiveOpen() {
		t.Error("restore must not override an explicit user close")
	}
}

func TestRestoreReplayTakesPriority(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if _, err := m.OpenInteractive(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RunOneShot(context.Background(), devtool.NewCommand("run", "main.py")); err != nil {
		t.Fatal(err)
	}
	snap := m.Suspend(time.Millisecond)

	if err := m.Restore(context.Background(), snap, RestoreOpenEmpty, ""); err != nil {
		t.Fatal(err)
	}

	if !m.OneShotOpen() {
		t.Error("remembered one-shot command should be replayed")
	}
	if m.InteractiveOpen() {
		t.Error("replay takes priority; the interactive session stays closed")
	}
	if len(host.oneShotCmds) != 2 || host.oneShotCmds[1].String() != "run main.py" {
		t.Errorf("replayed commands: %v", host.oneShotCmds)
	}
}

func TestRestoreSoftReset(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if _, err := m.OpenInteractive(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := m.Suspend(time.Millisecond)

	if err := m.Restore(context.Background(), snap, RestoreSoftReset, ""); err != nil {
		t.Fatal(err)
	}

	reopened := host.terminals[1]
	if !bytes.Contains([]byte(reopened.wrote()), []byte{0x04}) {
		t.Errorf("soft reset byte not sent, wrote %q", reopened.wrote())
	}
}

func TestRestoreReplayImport(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if _, err := m.OpenInteractive(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := m.Suspend(time.Millisecond)

	if err := m.Restore(context.Background(), snap, RestoreReplayImport, "main"); err != nil {
		t.Fatal(err)
	}

	reopened := host.terminals[1]
	if got := reopened.wrote(); got != "import main\r" {
		t.Errorf("wrote %q, want %q", got, "import main\r")
	}
}

func TestRestoreEmptySnapshotIsNoop(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, quietLogger())

	if err := m.Restore(context.Background(), Snapshot{}, RestoreOpenEmpty, ""); err != nil {
		t.Fatal(err)
	}
	if host.interactiveStarts() != 0 {
		t.Error("nothing was open; nothing should be reopened")
	}
}
