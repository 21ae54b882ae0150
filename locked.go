// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import "sync"

// Locked is a mutex-guarded bounded queue.
//
// Locked accepts any positive capacity and any number of producers and
// consumers. It is the reference implementation the lock-free variants are
// checked against, and a reasonable choice when contention is low and
// capacity must not be rounded.
type Locked[T any] struct {
	mu     sync.Mutex
	buffer []T
	head   uint64
	tail   uint64
}

// NewLocked creates a new mutex-guarded queue.
// Capacity must be positive.
func NewLocked[T any](capacity int) (*Locked[T], error) {
	if err := checkPositive(capacity); err != nil {
		return nil, err
	}
	return &Locked[T]{buffer: make([]T, capacity)}, nil
}

// Enqueue adds an element to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *Locked[T]) Enqueue(elem *T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := uint64(len(q.buffer))
	if q.tail-q.head == n {
		return ErrWouldBlock
	}
	q.buffer[q.tail%n] = *elem
	q.tail++
	return nil
}

// Dequeue removes and returns an element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Locked[T]) Dequeue() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if q.head == q.tail {
		return zero, ErrWouldBlock
	}
	i := q.head % uint64(len(q.buffer))
	elem := q.buffer[i]
	q.buffer[i] = zero
	q.head++
	return elem, nil
}

// Len returns the number of queued elements.
func (q *Locked[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}

// IsEmpty reports whether the queue holds no elements.
func (q *Locked[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *Locked[T]) Cap() int {
	return len(q.buffer)
}
