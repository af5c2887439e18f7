// Package operation tracks the single motion operation a robot may have in flight and
// provides the poll loop used to wait for it.
package operation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/utils"

	"github.com/roplat/hans/roboterr"
)

// SingleOperationManager ensures only one operation is tracked at a time.
// A nested operation (one started from an operation's own context) shares its parent.
type SingleOperationManager struct {
	// Clock measures wait timeouts. Nil means the wall clock.
	Clock clock.Clock

	mu        sync.Mutex
	current *inflight
}

type opCtxKey byte

const motionOpKey = opCtxKey(iota)

type inflight struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// New starts an operation, cancelling the previous one, and returns its context and the
// function to call when it is done.
func (sm *SingleOperationManager) New(ctx context.Context) (context.Context, func()) {
	if ctx.Value(motionOpKey) != nil {
		return ctx, func() {}
	}

	sm.mu.Lock()
	sm.cancelLocked(ctx)
	op := &inflight{}
	ctx = context.WithValue(ctx, motionOpKey, op)
	op.ctx, op.cancelFunc = context.WithCancel(ctx)
	sm.current = op
	sm.mu.Unlock()

	return op.ctx, func() {
		op.cancelFunc()
		sm.mu.Lock()
		if op == sm.current {
			sm.current = nil
		}
		sm.mu.Unlock()
	}
}

// OpRunning returns whether an operation is in progress.
func (sm *SingleOperationManager) OpRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current != nil
}

// CancelRunning cancels the current operation unless ctx belongs to it.
func (sm *SingleOperationManager) CancelRunning(ctx context.Context) {
	if ctx.Value(motionOpKey) != nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancelLocked(ctx)
}

func (sm *SingleOperationManager) cancelLocked(ctx context.Context) {
	op := sm.current
	if op == nil || ctx.Value(motionOpKey) == op {
		return
	}
	op.cancelFunc()
	sm.current = nil
}

func (sm *SingleOperationManager) clock() clock.Clock {
	if sm.Clock == nil {
		return clock.New()
	}
	return sm.Clock
}

// WaitForSuccess calls testFunc every pollTime until it returns true or an error.
// A positive timeout bounds the wait and its expiry returns a Timeout error.
// Cancelling ctx, or the operation, returns a Timeout error wrapping ctx.Err().
func (sm *SingleOperationManager) WaitForSuccess(
	ctx context.Context,
	pollTime time.Duration,
	timeout time.Duration,
	testFunc func(ctx context.Context) (bool, error),
) error {
	ctx, finish := sm.New(ctx)
	defer finish()

	clk := sm.clock()
	start := clk.Now()
	for {
		res, err := testFunc(ctx)
		if err != nil {
			return err
		}
		if res {
			return nil
		}
		if elapsed := clk.Since(start); timeout > 0 && elapsed >= timeout {
			return roboterr.NewTimeoutError("operation still running after %s", elapsed)
		}
		if !utils.SelectContextOrWait(ctx, pollTime) {
			return roboterr.NewWaitAbortedError(ctx.Err())
		}
	}
}
