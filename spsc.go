// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"code.hybscloud.com/atomix"
)

// SPSC is a single-producer single-consumer bounded queue.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's dequeue index, and vice versa,
// reducing cross-core cache line traffic. Neither cursor needs CAS since
// each has exactly one writer, and the element store is ordered before the
// cursor's release store, so there is no reserved-but-unpublished window.
//
// Capacity may be any positive integer; power-of-2 capacities index with a
// mask, others with a modulo.
//
// Memory: O(capacity) with minimal per-slot overhead
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	capacity   uint64
	mask       uint64
	pow2       bool // index with mask instead of modulo
}

// NewSPSC creates a new SPSC queue.
// Capacity must be positive.
func NewSPSC[T any](capacity int) (*SPSC[T], error) {
	if err := checkPositive(capacity); err != nil {
		return nil, err
	}
	n := uint64(capacity)
	q := &SPSC[T]{
		buffer:   make([]T, n),
		capacity: n,
	}
	if n&(n-1) == 0 {
		q.mask = n - 1
		q.pow2 = true
	}
	return q, nil
}

func (q *SPSC[T]) index(pos uint64) uint64 {
	if q.pow2 {
		return pos & q.mask
	}
	return pos % q.capacity
}

// Enqueue adds an element to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.capacity {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.capacity {
			return ErrWouldBlock
		}
	}

	q.buffer[q.index(tail)] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}

	i := q.index(head)
	elem := q.buffer[i]
	var zero T
	q.buffer[i] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Len returns the number of queued elements.
// Safe to call from any goroutine; the result is a snapshot.
func (q *SPSC[T]) Len() int {
	head := q.head.LoadAcquire()
	return size(head, q.tail.LoadAcquire(), q.capacity)
}

// IsEmpty reports whether the queue holds no elements.
func (q *SPSC[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.capacity)
}
