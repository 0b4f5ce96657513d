package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/signalsfoundry/holo-globe/internal/logging"
)

// ErrLoopClosed is returned by Do after Close.
var ErrLoopClosed = errors.New("engine loop closed")

// Loop owns an Engine and serialises access to it. Commands queued with Do
// run on the ticking goroutine right before the next frame, and a snapshot is
// published after every frame for lock-free readers.
type Loop struct {
	engine *Engine
	log    logging.Logger

	cmds   chan command
	closed chan struct{}
	once   atomic.Bool

	snapshot atomic.Pointer[Snapshot]
}

type command struct {
	fn   func(context.Context, *Engine)
	ctx  context.Context
	done chan struct{}
}

// NewLoop wraps e. queue bounds how many commands may wait for the next
// frame; Do blocks once it is full.
func NewLoop(e *Engine, queue int, log logging.Logger) *Loop {
	if queue <= 0 {
		queue = 64
	}
	l := &Loop{
		engine: e,
		log:    logging.OrNoop(log),
		cmds:   make(chan command, queue),
		closed: make(chan struct{}),
	}
	s := e.Snapshot()
	l.snapshot.Store(&s)
	return l
}

// Do queues fn for the next frame and waits until it has run. It must not
// be called from the ticking goroutine.
func (l *Loop) Do(ctx context.Context, fn func(context.Context, *Engine)) error {
	select {
	case <-l.closed:
		return ErrLoopClosed
	default:
	}

	cmd := command{fn: fn, ctx: ctx, done: make(chan struct{})}
	select {
	case l.cmds <- cmd:
	case <-l.closed:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-l.closed:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn without waiting. It returns false when the queue is full
// or the loop is closed.
func (l *Loop) Post(ctx context.Context, fn func(context.Context, *Engine)) bool {
	select {
	case <-l.closed:
		return false
	default:
	}
	select {
	case l.cmds <- command{fn: fn, ctx: ctx}:
		return true
	default:
		return false
	}
}

// Step runs the commands queued so far and advances the engine one frame.
// It is meant to be registered as a timectrl listener.
func (l *Loop) Step(time.Time) {
	for n := len(l.cmds); n > 0; n-- {
		l.run(<-l.cmds)
	}

	l.engine.Tick(context.Background())
	s := l.engine.Snapshot()
	l.snapshot.Store(&s)
}

func (l *Loop) run(cmd command) {
	if cmd.done != nil {
		defer close(cmd.done)
	}
	ctx := cmd.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	cmd.fn(ctx, l.engine)
}

// Snapshot returns the state published after the latest frame.
func (l *Loop) Snapshot() Snapshot {
	return *l.snapshot.Load()
}

// Close rejects further commands. Commands already waiting are dropped.
func (l *Loop) Close() {
	if l.once.CompareAndSwap(false, true) {
		close(l.closed)
		l.log.Debug(context.Background(), "engine loop closed")
	}
}
