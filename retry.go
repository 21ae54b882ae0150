// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// Policy selects what a RetryStrategy does when its queue is full or empty.
type Policy uint8

const (
	// Block parks on a condition variable until signaled.
	Block Policy = iota
	// Loop never waits; the caller owns the retry cadence.
	Loop
	// Spin polls a bounded number of times, then behaves like Block.
	Spin
)

// DefaultSpins is the spin budget used by NewRetryStrategy for Spin when
// none is given.
const DefaultSpins = 64

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Block:
		return "block"
	case Loop:
		return "loop"
	case Spin:
		return "spin"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// Running reports whether the owner of a strategy still accepts work.
// Strategies call it before every wait and after every wake-up.
type Running func() bool

// RetryStrategy arbitrates access to a Queue when it is full or empty.
//
// A strategy holds synchronization state only, never queue contents. The
// wait state must not be shared between unrelated queues: use Copy to give
// each queue its own instance.
type RetryStrategy[T any] interface {
	// Submit enqueues elem without waiting for room and wakes one
	// blocked retriever if any is recorded.
	// Returns ErrWouldBlock if the queue is full.
	Submit(q Queue[T], elem *T) error

	// SubmitWait enqueues elem, suspending according to the policy while
	// the queue is full. Returns ErrWouldBlock once running reports false
	// or the strategy is released.
	SubmitWait(q Queue[T], elem *T, running Running) error

	// Retrieve dequeues one element according to the policy.
	// Returns (zero-value, ErrWouldBlock) if nothing was obtained: the
	// queue is empty (Loop), or the wait was abandoned because running
	// reported false or the strategy was released.
	Retrieve(q Queue[T], running Running) (T, error)

	// Release wakes every goroutine blocked in Retrieve or SubmitWait.
	// After Release, waits return immediately.
	Release()

	// Copy returns a fresh strategy with the same policy and parameters
	// and no wait state.
	Copy() RetryStrategy[T]

	// Policy returns the strategy's policy.
	Policy() Policy
}

// NewRetryStrategy creates a strategy for policy p.
// spins is the Spin budget; values below 1 select DefaultSpins. Other
// policies ignore it.
func NewRetryStrategy[T any](p Policy, spins int) RetryStrategy[T] {
	switch p {
	case Loop:
		return NewLoop[T]()
	case Spin:
		if spins < 1 {
			spins = DefaultSpins
		}
		return NewSpin[T](spins)
	default:
		return NewBlock[T]()
	}
}

// LoopStrategy is a RetryStrategy that never suspends in Retrieve or
// Submit: both return the queue's outcome immediately.
type LoopStrategy[T any] struct{}

// NewLoop creates a Loop strategy.
func NewLoop[T any]() *LoopStrategy[T] {
	return &LoopStrategy[T]{}
}

// Submit enqueues elem and returns the queue's result.
func (*LoopStrategy[T]) Submit(q Queue[T], elem *T) error {
	return q.Enqueue(elem)
}

// SubmitWait retries Enqueue with adaptive backoff until it succeeds or
// running reports false.
func (*LoopStrategy[T]) SubmitWait(q Queue[T], elem *T, running Running) error {
	backoff := iox.Backoff{}
	for {
		err := q.Enqueue(elem)
		if !IsWouldBlock(err) {
			return err
		}
		if !running() {
			return ErrWouldBlock
		}
		backoff.Wait()
	}
}

// Retrieve dequeues one element, or returns ErrWouldBlock at once.
func (*LoopStrategy[T]) Retrieve(q Queue[T], _ Running) (T, error) {
	return q.Dequeue()
}

// Release is a no-op: nothing ever waits on a Loop strategy.
func (*LoopStrategy[T]) Release() {}

// Copy returns a new Loop strategy.
func (*LoopStrategy[T]) Copy() RetryStrategy[T] {
	return NewLoop[T]()
}

// Policy returns Loop.
func (*LoopStrategy[T]) Policy() Policy {
	return Loop
}
