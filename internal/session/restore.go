package session

import (
	"context"
	"fmt"
	"strings"
)

// RestoreBehavior selects what happens to the interactive session after
// an exclusive operation completes.
type RestoreBehavior int

const (
	// RestoreNone does not reopen the interactive session.
	RestoreNone RestoreBehavior = iota

	// RestoreOpenEmpty reopens the session with nothing sent.
	RestoreOpenEmpty

	// RestoreSoftReset reopens the session and sends a device soft
	// reset so autostart files re-execute.
	RestoreSoftReset

	// RestoreReplayImport reopens the session and sends an import
	// statement derived from the synced file's module path.
	RestoreReplayImport
)

// ParseRestoreBehavior maps a configuration string onto a behavior.
// Unknown values fall back to RestoreNone.
func ParseRestoreBehavior(s string) RestoreBehavior {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open-empty", "open_empty", "open":
		return RestoreOpenEmpty
	case "soft-reset", "soft_reset", "reset":
		return RestoreSoftReset
	case "replay-import", "replay_import", "import":
		return RestoreReplayImport
	default:
		return RestoreNone
	}
}

// String returns the configuration form of the behavior.
func (b RestoreBehavior) String() string {
	switch b {
	case RestoreOpenEmpty:
		return "open-empty"
	case RestoreSoftReset:
		return "soft-reset"
	case RestoreReplayImport:
		return "replay-import"
	default:
		return "none"
	}
}

// Restore re-establishes sessions from a suspend snapshot.
//
// A remembered one-shot command takes priority over reopening the
// interactive session: one-shot execution is cheaper to race back onto
// an uncontended channel. Otherwise the interactive session is reopened
// per behavior, unless the user explicitly closed it in the interim.
//
// importHint is the module path used by RestoreReplayImport; ignored for
// other behaviors.
func (m *Manager) Restore(ctx context.Context, snap Snapshot, behavior RestoreBehavior, importHint string) error {
	if snap.OneShotWasOpen && snap.Remembered != nil {
		// Replaying the one-shot needs the channel to itself.
		if m.InteractiveOpen() {
			if err := m.CloseInteractive(false); err != nil {
				m.logger.Printf("closing interactive before replay: %v", err)
			}
		}
		if _, err := m.RunOneShot(ctx, *snap.Remembered); err != nil {
			return fmt.Errorf("failed to replay one-shot command: %w", err)
		}
		return nil
	}

	if !snap.InteractiveWasOpen || behavior == RestoreNone {
		return nil
	}
	if m.UserClosedInteractive() {
		m.logger.Printf("interactive session was closed by the user, not reopening")
		return nil
	}

	h, err := m.OpenInteractive(ctx)
	if err != nil {
		return fmt.Errorf("failed to reopen interactive session: %w", err)
	}

	switch behavior {
	case RestoreSoftReset:
		// Ctrl-D at the REPL prompt soft-resets the device.
		if _, err := h.Write([]byte{0x04}); err != nil {
			return fmt.Errorf("failed to send soft reset: %w", err)
		}
	case RestoreReplayImport:
		if importHint != "" {
			if err := h.SendLine("import " + importHint); err != nil {
				return fmt.Errorf("failed to send import statement: %w", err)
			}
		}
	}
	return nil
}
