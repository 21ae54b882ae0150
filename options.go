// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import "fmt"

// Options configures queue creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines queue type)
	singleProducer bool
	singleConsumer bool

	// Mutex-guarded ring regardless of constraints
	locked bool

	// Round capacity up to the next power of 2 for CAS variants
	roundUp bool

	capacity int
}

// Builder creates queues with fluent configuration.
//
// The builder selects the queue variant from the producer/consumer
// constraints. A Builder is a value description: Build may be called any
// number of times and returns a fresh queue each time, which is how a
// consumer constructs its queue when it starts.
//
// Example:
//
//	// SPSC queue (optimal for single producer/consumer)
//	q, err := taskq.Build[Event](taskq.New(1024).SingleProducer().SingleConsumer())
//
//	// MPMC queue (default, general purpose)
//	q, err := taskq.Build[Request](taskq.New(4096))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity is validated when the queue is built, not here: it must be
// positive, and a power of 2 for the CAS variants unless RoundUp is set.
func New(capacity int) *Builder {
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
// Enables the CAS-free producer path (SPSC or SPMC).
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// Enables the CAS-free consumer path (SPSC or MPSC).
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Locked selects the mutex-guarded queue. Producer/consumer constraints
// are ignored and any positive capacity is accepted.
func (b *Builder) Locked() *Builder {
	b.opts.locked = true
	return b
}

// RoundUp rounds capacity up to the next power of 2 for the CAS variants
// instead of rejecting it.
func (b *Builder) RoundUp() *Builder {
	b.opts.roundUp = true
	return b
}

// ForArity sets the producer/consumer constraints implied by a.
func (b *Builder) ForArity(a Arity) *Builder {
	b.opts.locked = a == LockedArity
	b.opts.singleProducer = a.SingleProducer()
	b.opts.singleConsumer = a.SingleConsumer()
	return b
}

// Arity returns the queue arity Build will produce.
func (b *Builder) Arity() Arity {
	switch {
	case b.opts.locked:
		return LockedArity
	case b.opts.singleProducer && b.opts.singleConsumer:
		return SPSC
	case b.opts.singleProducer:
		return SPMC
	case b.opts.singleConsumer:
		return MPSC
	default:
		return MPMC
	}
}

// Capacity returns the requested capacity.
func (b *Builder) Capacity() int {
	return b.opts.capacity
}

// Build creates a Queue[T] with algorithm selection by arity:
//
//	Locked()                        → Locked (mutex ring)
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	SingleProducer only             → SPMC (store producer, CAS consumers)
//	SingleConsumer only             → MPSC (CAS producers, store consumer)
//	Neither                         → MPMC (CAS on both cursors)
//
// Returns an error wrapping ErrInvalidCapacity for a rejected capacity.
func Build[T any](b *Builder) (Queue[T], error) {
	capacity := b.opts.capacity
	arity := b.Arity()
	if b.opts.roundUp && capacity > 0 && arity != SPSC && arity != LockedArity {
		capacity = RoundToPow2(capacity)
	}

	var (
		q   Queue[T]
		err error
	)
	switch arity {
	case LockedArity:
		q, err = NewLocked[T](capacity)
	case SPSC:
		q, err = NewSPSC[T](capacity)
	case SPMC:
		q, err = NewSPMC[T](capacity)
	case MPSC:
		q, err = NewMPSC[T](capacity)
	default:
		q, err = NewMPMC[T](capacity)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s queue: %w", arity, err)
	}
	return q, nil
}
