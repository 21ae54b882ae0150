// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BlockStrategy is a RetryStrategy that parks on a condition variable.
//
// An empty Retrieve records itself in a waiter count and waits on notEmpty;
// a successful push signals one waiter if any is recorded. SubmitWait on a
// full queue waits on notFull, which a successful Retrieve signals. Release
// broadcasts both conditions and latches, so shutdown wakes everyone and
// later waits return at once.
type BlockStrategy[T any] struct {
	mu         sync.Mutex
	notEmpty   sync.Cond
	notFull    sync.Cond
	_          pad
	retrievers atomix.Int64
	_          pad
	submitters atomix.Int64
	_          pad
	released   atomix.Bool
}

// NewBlock creates a Block strategy.
func NewBlock[T any]() *BlockStrategy[T] {
	b := &BlockStrategy[T]{}
	b.init()
	return b
}

func (b *BlockStrategy[T]) init() {
	b.notEmpty.L = &b.mu
	b.notFull.L = &b.mu
}

// Submit enqueues elem and wakes one blocked retriever on success.
// Returns ErrWouldBlock if the queue is full.
func (b *BlockStrategy[T]) Submit(q Queue[T], elem *T) error {
	if err := q.Enqueue(elem); err != nil {
		return err
	}
	b.signal(&b.notEmpty, &b.retrievers)
	return nil
}

// SubmitWait enqueues elem, waiting on notFull while the queue is full.
// Returns ErrWouldBlock if running reports false or the strategy is
// released before room appears.
func (b *BlockStrategy[T]) SubmitWait(q Queue[T], elem *T, running Running) error {
	if err := b.Submit(q, elem); !IsWouldBlock(err) {
		return err
	}

	b.submitters.AddAcqRel(1)
	b.mu.Lock()
	var err error
	for {
		err = q.Enqueue(elem)
		if err == nil || b.released.LoadAcquire() || !running() {
			break
		}
		b.notFull.Wait()
	}
	b.mu.Unlock()
	b.submitters.AddAcqRel(-1)

	if err != nil {
		return ErrWouldBlock
	}
	b.signal(&b.notEmpty, &b.retrievers)
	return nil
}

// Retrieve dequeues one element, waiting on notEmpty while the queue is
// empty. Returns (zero-value, ErrWouldBlock) if running reports false or
// the strategy is released first.
func (b *BlockStrategy[T]) Retrieve(q Queue[T], running Running) (T, error) {
	if elem, err := q.Dequeue(); err == nil {
		b.signal(&b.notFull, &b.submitters)
		return elem, nil
	}
	return b.await(q, running)
}

func (b *BlockStrategy[T]) await(q Queue[T], running Running) (T, error) {
	b.retrievers.AddAcqRel(1)
	b.mu.Lock()
	var (
		elem T
		err  error
	)
	for {
		elem, err = q.Dequeue()
		if err == nil || b.released.LoadAcquire() || !running() {
			break
		}
		b.notEmpty.Wait()
	}
	b.mu.Unlock()
	b.retrievers.AddAcqRel(-1)

	if err != nil {
		var zero T
		return zero, ErrWouldBlock
	}
	b.signal(&b.notFull, &b.submitters)
	return elem, nil
}

// signal wakes one goroutine waiting on c if waiters is non-zero.
// The count is read with an RMW rather than a load so the queue operation
// that precedes it cannot be reordered after the read; the waiter
// increments the count before re-checking the queue under mu.
func (b *BlockStrategy[T]) signal(c *sync.Cond, waiters *atomix.Int64) {
	if waiters.AddAcqRel(0) == 0 {
		return
	}
	b.mu.Lock()
	c.Signal()
	b.mu.Unlock()
}

// Release wakes every waiter and makes later waits return immediately.
func (b *BlockStrategy[T]) Release() {
	b.released.StoreRelease(true)
	b.mu.Lock()
	b.notEmpty.Broadcast()
	b.notFull.Broadcast()
	b.mu.Unlock()
}

// Waiters returns the number of goroutines currently parked or about to
// park in Retrieve and SubmitWait.
func (b *BlockStrategy[T]) Waiters() (retrievers, submitters int) {
	return int(b.retrievers.Load()), int(b.submitters.Load())
}

// Copy returns a new Block strategy with no wait state.
func (b *BlockStrategy[T]) Copy() RetryStrategy[T] {
	return NewBlock[T]()
}

// Policy returns Block.
func (b *BlockStrategy[T]) Policy() Policy {
	return Block
}

// SpinStrategy is a RetryStrategy that polls up to a fixed budget before
// falling back to Block's wait.
//
// The owner's running state is re-checked before every poll so a shutdown
// cuts the spin short instead of exhausting the budget.
type SpinStrategy[T any] struct {
	BlockStrategy[T]
	spins int
}

// NewSpin creates a Spin strategy with the given poll budget.
// A budget below 1 skips polling and blocks straight away.
func NewSpin[T any](spins int) *SpinStrategy[T] {
	s := &SpinStrategy[T]{spins: spins}
	s.init()
	return s
}

// Retrieve polls the queue up to the spin budget, then waits like Block.
func (s *SpinStrategy[T]) Retrieve(q Queue[T], running Running) (T, error) {
	sw := spin.Wait{}
	for range s.spins {
		if !running() {
			var zero T
			return zero, ErrWouldBlock
		}
		if elem, err := q.Dequeue(); err == nil {
			s.signal(&s.notFull, &s.submitters)
			return elem, nil
		}
		sw.Once()
	}
	return s.await(q, running)
}

// Spins returns the poll budget.
func (s *SpinStrategy[T]) Spins() int {
	return s.spins
}

// Copy returns a new Spin strategy with the same budget and no wait state.
func (s *SpinStrategy[T]) Copy() RetryStrategy[T] {
	return NewSpin[T](s.spins)
}

// Policy returns Spin.
func (s *SpinStrategy[T]) Policy() Policy {
	return Spin
}
