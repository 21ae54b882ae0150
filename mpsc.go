// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is a multi-producer single-consumer bounded queue.
//
// Producers use CAS to claim slots. The single consumer owns the read
// cursor and advances it with a plain release store.
//
// Memory: n slots for capacity n (one cache line per slot)
type MPSC[T any] struct {
	_    pad
	head atomix.Uint64 // Consumer reads from here
	_    pad
	tail atomix.Uint64 // Producers CAS here
	_    pad
	ring[T]
}

// NewMPSC creates a new MPSC queue.
// Capacity must be a positive power of 2.
func NewMPSC[T any](capacity int) (*MPSC[T], error) {
	r, err := newRing[T](capacity)
	if err != nil {
		return nil, err
	}
	return &MPSC[T]{ring: r}, nil
}

// Enqueue adds an element to the queue (multiple producers safe).
// Returns ErrWouldBlock if the queue is full.
func (q *MPSC[T]) Enqueue(elem *T) error {
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

// Dequeue removes and returns an element (single consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.tail.LoadAcquire() {
		var zero T
		return zero, ErrWouldBlock
	}
	elem := q.consume(head)
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Len returns the number of reserved but not yet dequeued positions.
func (q *MPSC[T]) Len() int {
	head := q.head.LoadAcquire()
	return size(head, q.tail.LoadAcquire(), q.capacity)
}

// IsEmpty reports whether the queue holds no elements.
func (q *MPSC[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *MPSC[T]) Cap() int {
	return int(q.capacity)
}
