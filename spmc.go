// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SPMC is a single-producer multi-consumer bounded queue.
//
// The single producer publishes and then advances the write cursor with a
// plain release store. Consumers use CAS to claim slots.
//
// Memory: n slots for capacity n (one cache line per slot)
type SPMC[T any] struct {
	_    pad
	head atomix.Uint64 // Consumers CAS here
	_    pad
	tail atomix.Uint64 // Producer writes here
	_    pad
	ring[T]
}

// NewSPMC creates a new SPMC queue.
// Capacity must be a positive power of 2.
func NewSPMC[T any](capacity int) (*SPMC[T], error) {
	r, err := newRing[T](capacity)
	if err != nil {
		return nil, err
	}
	return &SPMC[T]{ring: r}, nil
}

// Enqueue adds an element to the queue (single producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPMC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail >= q.head.LoadAcquire()+q.capacity {
		return ErrWouldBlock
	}
	q.publish(tail, elem)
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (multiple consumers safe).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPMC[T]) Dequeue() (T, error) {
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

// Len returns the number of published but not yet dequeued elements.
func (q *SPMC[T]) Len() int {
	head := q.head.LoadAcquire()
	return size(head, q.tail.LoadAcquire(), q.capacity)
}

// IsEmpty reports whether the queue holds no elements.
func (q *SPMC[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *SPMC[T]) Cap() int {
	return int(q.capacity)
}
