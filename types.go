// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

// Queue is the combined producer-consumer interface for a bounded FIFO queue.
//
// Enqueue and Dequeue never block on fullness or emptiness. Both return
// ErrWouldBlock when they cannot proceed (queue full or empty).
//
// Example:
//
//	q, _ := taskq.NewMPMC[int](1024)
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Enqueuer[T]
	Dequeuer[T]

	// Len returns the number of elements currently held.
	// Under concurrent use the value is a snapshot and may be stale
	// by the time it is observed; it never exceeds Cap.
	Len() int

	// IsEmpty reports whether Len is zero.
	IsEmpty() bool

	// Cap returns the queue capacity.
	Cap() int
}

// Enqueuer is the producer side of a queue.
//
// The element is passed by pointer to avoid copying large structs. The queue
// stores a copy of the pointed-to value, so the original can be modified
// after Enqueue returns.
type Enqueuer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// Returns nil on success, ErrWouldBlock if the queue is full.
	// A full queue is never overwritten.
	//
	// Thread safety depends on queue type:
	//   - SPSC/SPMC: single producer only
	//   - MPSC/MPMC/Locked: multiple producers safe
	Enqueue(elem *T) error
}

// Dequeuer is the consumer side of a queue.
//
// The element is returned by value. The slot it occupied is cleared before
// it is handed back to producers, so referenced objects can be collected.
type Dequeuer[T any] interface {
	// Dequeue removes and returns the oldest element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	//
	// Thread safety depends on queue type:
	//   - SPSC/MPSC: single consumer only
	//   - SPMC/MPMC/Locked: multiple consumers safe
	Dequeue() (T, error)
}

// Arity names the producer/consumer combination a queue is built for.
type Arity uint8

const (
	// MPMC allows any number of producers and consumers.
	MPMC Arity = iota
	// MPSC allows many producers and exactly one consumer.
	MPSC
	// SPMC allows exactly one producer and many consumers.
	SPMC
	// SPSC allows exactly one producer and one consumer.
	SPSC
	// LockedArity is a mutex-guarded queue usable with any arity.
	LockedArity
)

// String returns the conventional short name of the arity.
func (a Arity) String() string {
	switch a {
	case MPMC:
		return "MPMC"
	case MPSC:
		return "MPSC"
	case SPMC:
		return "SPMC"
	case SPSC:
		return "SPSC"
	case LockedArity:
		return "Locked"
	default:
		return "Arity(?)"
	}
}

// SingleProducer reports whether at most one goroutine may enqueue.
func (a Arity) SingleProducer() bool {
	return a == SPSC || a == SPMC
}

// SingleConsumer reports whether at most one goroutine may dequeue.
func (a Arity) SingleConsumer() bool {
	return a == SPSC || a == MPSC
}
