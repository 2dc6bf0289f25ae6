// Package session tracks the lifecycle of the two device session
// variants: the long-lived interactive REPL and the transient one-shot
// script execution.
//
// At most one of each variant may be open at a time, and only one variant
// may hold the physical channel. The manager tracks lifecycle and
// remembered state; actually opening and closing processes is delegated
// to a Host. Session state is the single source of truth for "is a
// session open", reconciled against the live handle on every query.
package session

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/embedworks/picosync/internal/devtool"
)

// State is the lifecycle state of one session variant.
type State int

const (
	Closed State = iota
	Opening
	Open
	Closing
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Handle is a live session process.
type Handle interface {
	// Alive reports whether the underlying process is still running.
	Alive() bool

	// Interrupt sends an interrupt to the process (Ctrl-C semantics).
	Interrupt() error

	// Close tears the process down. Closing an already dead handle is
	// not an error.
	Close() error
}

// TerminalHandle is an interactive session process attached to a pty.
// Read and Write move raw bytes between the local terminal and the REPL.
type TerminalHandle interface {
	Handle
	io.ReadWriter

	// SendLine writes a line of input followed by carriage return.
	SendLine(s string) error
}

// Host starts session processes. The concrete implementation lives in
// internal/devhost and shells out to the device tool.
type Host interface {
	// StartInteractive spawns the REPL under a pty.
	StartInteractive(ctx context.Context) (TerminalHandle, error)

	// StartOneShot runs a single device command as a transient session.
	StartOneShot(ctx context.Context, cmd devtool.Command) (Handle, error)
}

// Snapshot captures which sessions were open at suspend time. It is an
// immutable value consumed exactly once at restore time.
type Snapshot struct {
	InteractiveWasOpen bool
	OneShotWasOpen     bool

	// Remembered is the exact command the one-shot session last ran,
	// when there is one to replay.
	Remembered *devtool.Command
}

// Manager owns at most one interactive and one one-shot session handle.
type Manager struct {
	mu     sync.Mutex
	host   Host
	logger *log.Logger

	interactive      TerminalHandle
	interactiveState State
	lastKnownGood    bool
	userClosed       bool

	oneShot      Handle
	oneShotState State
	remembered   *devtool.Command
}

// NewManager creates a Manager backed by the given host.
//
// If logger is nil, a default logger writing to stderr is used.
func NewManager(host Host, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}
	return &Manager{host: host, logger: logger}
}

// OpenInteractive opens the interactive session, returning the existing
// handle if one is already open (idempotent). Mutual exclusion against
// the one-shot variant is enforced by the coordinator, not here.
func (m *Manager) OpenInteractive(ctx context.Context) (TerminalHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interactiveState == Open && m.interactive != nil && m.interactive.Alive() {
		return m.interactive, nil
	}

	m.interactiveState = Opening
	h, err := m.host.StartInteractive(ctx)
	if err != nil {
		m.interactiveState = Closed
		m.lastKnownGood = false
		return nil, err
	}

	m.interactive = h
	m.interactiveState = Open
	m.lastKnownGood = true
	m.userClosed = false
	return h, nil
}

// CloseInteractive fully disposes the interactive session. When
// userInitiated is true, automatic reopen on the next restore is
// suppressed until the user opens a session again.
func (m *Manager) CloseInteractive(userInitiated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeInteractiveLocked(userInitiated)
}

func (m *Manager) closeInteractiveLocked(userInitiated bool) error {
	if userInitiated {
		m.userClosed = true
	}
	if m.interactive == nil {
		m.interactiveState = Closed
		return nil
	}

	m.interactiveState = Closing
	err := m.interactive.Close()
	m.interactive = nil
	m.interactiveState = Closed
	return err
}

// InteractiveOpen reconciles tracked state against the live handle: the
// process may have died or been closed externally. Stale state is
// self-corrected.
func (m *Manager) InteractiveOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interactiveState != Open || m.interactive == nil {
		return false
	}
	if !m.interactive.Alive() {
		m.logger.Printf("interactive session handle is gone, correcting state")
		m.interactive = nil
		m.interactiveState = Closed
		m.lastKnownGood = false
		return false
	}
	return true
}

// InteractiveHandle returns the open interactive handle, if any.
func (m *Manager) InteractiveHandle() (TerminalHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interactiveState == Open && m.interactive != nil && m.interactive.Alive() {
		return m.interactive, true
	}
	return nil, false
}

// UserClosedInteractive reports whether the user explicitly closed the
// interactive session since it was last opened.
func (m *Manager) UserClosedInteractive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userClosed
}

// RunOneShot starts a one-shot session for cmd and remembers the command
// for later replay. The handle for any previous one-shot session is
// closed first.
func (m *Manager) RunOneShot(ctx context.Context, cmd devtool.Command) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.oneShot != nil && m.oneShot.Alive() {
		m.oneShotState = Closing
		_ = m.oneShot.Close()
	}

	m.oneShotState = Opening
	h, err := m.host.StartOneShot(ctx, cmd)
	if err != nil {
		m.oneShotState = Closed
		return nil, err
	}

	m.oneShot = h
	m.oneShotState = Open
	remembered := cmd
	m.remembered = &remembered
	return h, nil
}

// CloseOneShot interrupts and disposes the one-shot session. The
// remembered command survives so it can be replayed on restore.
func (m *Manager) CloseOneShot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeOneShotLocked()
}

func (m *Manager) closeOneShotLocked() error {
	if m.oneShot == nil {
		m.oneShotState = Closed
		return nil
	}

	m.oneShotState = Closing
	if m.oneShot.Alive() {
		_ = m.oneShot.Interrupt()
	}
	err := m.oneShot.Close()
	m.oneShot = nil
	m.oneShotState = Closed
	return err
}

// OneShotOpen reconciles one-shot state against the live handle.
func (m *Manager) OneShotOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.oneShotState != Open || m.oneShot == nil {
		return false
	}
	if !m.oneShot.Alive() {
		m.oneShot = nil
		m.oneShotState = Closed
		return false
	}
	return true
}

// RememberedCommand returns the last one-shot command, if any.
func (m *Manager) RememberedCommand() (devtool.Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remembered == nil {
		return devtool.Command{}, false
	}
	return *m.remembered, true
}

// Suspend captures a snapshot of the current session state and
// force-closes everything that is open.
//
// The one-shot session is interrupted and disposed. The interactive
// session receives a clean-exit byte, waits the settle interval, then is
// fully disposed rather than merely disconnected so that a later restore
// always re-establishes a fresh, known-good connection. The settle wait
// is a fixed interval because the channel driver offers no reliable
// drained signal.
func (m *Manager) Suspend(settle time.Duration) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		InteractiveWasOpen: m.interactiveState == Open && m.interactive != nil && m.interactive.Alive(),
		OneShotWasOpen:     m.oneShotState == Open && m.oneShot != nil && m.oneShot.Alive(),
	}
	if snap.OneShotWasOpen && m.remembered != nil {
		remembered := *m.remembered
		snap.Remembered = &remembered
	}

	if snap.OneShotWasOpen {
		if err := m.closeOneShotLocked(); err != nil {
			m.logger.Printf("closing one-shot session: %v", err)
		}
	}

	if snap.InteractiveWasOpen {
		// Ask the REPL to exit cleanly before tearing the pty down.
		if _, err := m.interactive.Write([]byte{0x18}); err != nil {
			m.logger.Printf("sending clean-exit to REPL: %v", err)
		}
		time.Sleep(settle)
		if err := m.closeInteractiveLocked(false); err != nil {
			m.logger.Printf("closing interactive session: %v", err)
		}
	}

	return snap
}
