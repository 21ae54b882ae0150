// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lifecycle

import (
	"context"
)

// Termination is the handle returned by Terminate and TerminateNow.
// It resolves once every worker has exited, yielding the number of tasks
// consumed successfully over the component's lifetime.
type Termination struct {
	done     chan struct{}
	consumed int64
}

// NewTermination returns an unresolved Termination.
func NewTermination() *Termination {
	return &Termination{done: make(chan struct{})}
}

// Resolve completes the termination with the consumed count.
// It must be called exactly once.
func (t *Termination) Resolve(consumed int64) {
	t.consumed = consumed
	close(t.done)
}

// Done returns a channel closed when the termination resolves.
func (t *Termination) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the termination resolves or ctx is done.
// On resolution it returns the consumed count.
func (t *Termination) Wait(ctx context.Context) (int64, error) {
	select {
	case <-t.done:
		return t.consumed, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Consumed returns the consumed count and whether the termination has
// resolved. It does not block.
func (t *Termination) Consumed() (int64, bool) {
	select {
	case <-t.done:
		return t.consumed, true
	default:
		return 0, false
	}
}
