// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is a CAS-based multi-producer multi-consumer bounded queue.
//
// Both cursors are arbitrated with compare-and-swap. A producer owns slot
// tail mod n once its CAS succeeds and publishes the element with a release
// store; a consumer owns slot head mod n once its CAS succeeds and
// acquire-spins until that element is visible.
//
// Memory: n slots for capacity n (one cache line per slot)
type MPMC[T any] struct {
	_    pad
	tail atomix.Uint64 // Producers CAS here
	_    pad
	head atomix.Uint64 // Consumers CAS here
	_    pad
	ring[T]
}

// NewMPMC creates a new MPMC queue.
// Capacity must be a positive power of 2.
func NewMPMC[T any](capacity int) (*MPMC[T], error) {
	r, err := newRing[T](capacity)
	if err != nil {
		return nil, err
	}
	return &MPMC[T]{ring: r}, nil
}

// Enqueue adds an element to the queue (multiple producers safe).
// Returns ErrWouldBlock if the queue is full.
func (q *MPMC[T]) Enqueue(elem *T) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()
		if tail >= head+q.capacity {
			return ErrWouldBlock
		}
		if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
			q.publish(tail, elem)
			return nil
		}
		sw.Once()
	}
}

// Dequeue removes and returns an element (multiple consumers safe).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPMC[T]) Dequeue() (T, error) {
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		tail := q.tail.LoadAcquire()
		if head >= tail {
			var zero T
			return zero, ErrWouldBlock
		}
		if q.head.CompareAndSwapAcqRel(head, head+1) {
			return q.consume(head), nil
		}
		sw.Once()
	}
}

// Len returns the number of reserved but not yet dequeued positions.
func (q *MPMC[T]) Len() int {
	head := q.head.LoadAcquire()
	return size(head, q.tail.LoadAcquire(), q.capacity)
}

// IsEmpty reports whether the queue holds no elements.
func (q *MPMC[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *MPMC[T]) Cap() int {
	return int(q.capacity)
}
