// Package coordinator arbitrates exclusive access to the device channel.
//
// Every operation that needs the channel to itself is wrapped in
// RunExclusive: it is admitted to a strict FIFO queue, whichever sessions
// are open are suspended, the work runs, and sessions are restored
// afterward regardless of the work's outcome. A single worker goroutine
// drains the queue, so coordinator-wrapped work never overlaps in time no
// matter how many callers invoke RunExclusive concurrently.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/embedworks/picosync/internal/devtool"
	"github.com/embedworks/picosync/internal/retry"
	"github.com/embedworks/picosync/internal/session"
)

// Config carries the coordinator's tunables. The delays are empirically
// chosen short intervals, not load-bearing invariants; the channel driver
// offers no reliable drained signal to wait on instead.
type Config struct {
	// AutoSuspend enables session suspend/restore around exclusive
	// operations. When false, work runs directly with no session
	// juggling.
	AutoSuspend bool

	// SettleDelay is how long to wait after asking the REPL to exit
	// before disposing its handle.
	SettleDelay time.Duration

	// HandshakeTimeout bounds the idle probe before work runs.
	HandshakeTimeout time.Duration

	// RetryBackoff is the fixed wait before the single strict-connect
	// retry.
	RetryBackoff time.Duration

	// Logger for coordinator activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutoSuspend:      true,
		SettleDelay:      300 * time.Millisecond,
		HandshakeTimeout: 2 * time.Second,
		RetryBackoff:     500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[coordinator] ", log.LstdFlags),
	}
}

// Options configure a single RunExclusive call.
type Options struct {
	// Preempt discards queued-but-not-started operations before
	// admission. Their waiters observe ErrPreempted. Anything already
	// mid-flight still runs to completion.
	Preempt bool

	// Restore selects the interactive session restore behavior.
	Restore session.RestoreBehavior

	// ImportHint is the module path sent by RestoreReplayImport.
	ImportHint string

	// StrictConnect makes the pre-work handshake mandatory: a transient
	// failure is retried once with backoff, then surfaced. Without it
	// the handshake is best-effort and failures are only logged.
	StrictConnect bool
}

// Coordinator serializes exclusive device operations.
type Coordinator struct {
	cfg      Config
	sessions *session.Manager
	dev      devtool.Invoker

	mu      sync.Mutex
	queue   []*operation
	running bool
}

type operation struct {
	id        uuid.UUID
	ctx       context.Context
	opts      Options
	work      func(context.Context) error
	done      chan error
	preempted bool
}

// New creates a Coordinator over the given session manager and device
// invoker.
func New(cfg Config, sessions *session.Manager, dev devtool.Invoker) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[coordinator] ", log.LstdFlags)
	}
	return &Coordinator{cfg: cfg, sessions: sessions, dev: dev}
}

// RunExclusive runs work with exclusive ownership of the device channel.
//
// The call blocks until the work has run (or was preempted). Operations
// complete in enqueue order; there is no mid-operation cancellation —
// once started, work runs to completion. Restoration failures are logged
// and never mask the work's own result.
func (c *Coordinator) RunExclusive(ctx context.Context, opts Options, work func(context.Context) error) error {
	// Fast path: no session juggling when auto-suspend is disabled.
	if !c.cfg.AutoSuspend {
		return work(ctx)
	}

	op := &operation{
		id:   uuid.New(),
		ctx:  ctx,
		opts: opts,
		work: work,
		done: make(chan error, 1),
	}

	c.mu.Lock()
	if opts.Preempt && len(c.queue) > 0 {
		c.cfg.Logger.Printf("preempting %d queued operation(s)", len(c.queue))
		for _, pending := range c.queue {
			pending.preempted = true
			pending.done <- devtool.ErrPreempted
		}
		c.queue = c.queue[:0]
	}
	c.queue = append(c.queue, op)
	if !c.running {
		c.running = true
		go c.drain()
	}
	c.mu.Unlock()

	return <-op.done
}

// RunExclusiveResult is RunExclusive for work that produces a value.
func RunExclusiveResult[T any](ctx context.Context, c *Coordinator, opts Options, work func(context.Context) (T, error)) (T, error) {
	var result T
	err := c.RunExclusive(ctx, opts, func(ctx context.Context) error {
		var werr error
		result, werr = work(ctx)
		return werr
	})
	return result, err
}

// drain executes queued operations one at a time until the queue is
// empty, then exits. A new worker is started on the next admission.
func (c *Coordinator) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.running = false
			c.mu.Unlock()
			return
		}
		op := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if op.preempted {
			continue
		}
		op.done <- c.execute(op)
	}
}

// execute performs one operation's suspend / handshake / work / restore
// cycle.
func (c *Coordinator) execute(op *operation) (err error) {
	c.cfg.Logger.Printf("op %s: suspending sessions", shortID(op.id))
	snap := c.sessions.Suspend(c.cfg.SettleDelay)

	defer func() {
		// Restore always runs, success or failure, and never masks the
		// work's result.
		if rerr := c.sessions.Restore(op.ctx, snap, op.opts.Restore, op.opts.ImportHint); rerr != nil {
			c.cfg.Logger.Printf("op %s: session restore failed: %v", shortID(op.id), rerr)
		}
	}()

	if herr := c.handshake(op.ctx, op.opts.StrictConnect); herr != nil {
		if op.opts.StrictConnect {
			return herr
		}
		c.cfg.Logger.Printf("op %s: idle check failed (continuing): %v", shortID(op.id), herr)
	}

	return op.work(op.ctx)
}

// handshake probes the channel with a trivial eval before work runs.
// In strict mode a transient busy/not-configured condition is retried
// exactly once with fixed backoff, then raised.
func (c *Coordinator) handshake(ctx context.Context, strict bool) error {
	probe := func() error {
		hctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
		_, err := c.dev.Invoke(hctx, devtool.NewCommand("eval", "1"))
		return err
	}

	if !strict {
		return probe()
	}

	cfg := retry.Config{MaxAttempts: 2, Wait: c.cfg.RetryBackoff, Multiplier: 1.0}
	if err := retry.Do(ctx, cfg, devtool.IsRetryable, probe); err != nil {
		return fmt.Errorf("strict connect failed: %w", err)
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
