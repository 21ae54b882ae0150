// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"log/slog"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/taskq/consumer"
)

// Dispatcher decides which member serves a producer.
//
// Acquire never fails and never returns nil. Release returns a member
// obtained from Acquire; releasing a member that needs no release is a
// no-op.
type Dispatcher[T any] interface {
	Acquire() *consumer.Consumer[T]
	Release(c *consumer.Consumer[T])
}

// SingleProducerDispatch hands each producer exclusive use of a dedicated
// single-producer member while one is free, and the shared multi-producer
// member otherwise.
type SingleProducerDispatch[T any] struct {
	mu        sync.Mutex
	available []bool
	dedicated []*consumer.Consumer[T]
	shared    *consumer.Consumer[T]
	logger    *slog.Logger
}

// NewSingleProducerDispatch binds a dispatcher to its members. Every
// dedicated member starts available.
func NewSingleProducerDispatch[T any](dedicated []*consumer.Consumer[T], shared *consumer.Consumer[T], logger *slog.Logger) *SingleProducerDispatch[T] {
	if logger == nil {
		logger = slog.Default()
	}
	available := make([]bool, len(dedicated))
	for i := range available {
		available[i] = true
	}
	return &SingleProducerDispatch[T]{
		available: available,
		dedicated: dedicated,
		shared:    shared,
		logger:    logger,
	}
}

// Acquire returns the first available dedicated member and marks it in
// use. When none is free it returns the shared member.
func (d *SingleProducerDispatch[T]) Acquire() *consumer.Consumer[T] {
	if c, ok := d.AcquireDedicated(); ok {
		return c
	}
	d.logger.Debug("dispatch_shared_fallback",
		slog.String("shared", d.shared.Name()),
		slog.Int("dedicated", len(d.dedicated)),
	)
	return d.shared
}

// AcquireDedicated returns the first available dedicated member, or
// false if every one is in use.
func (d *SingleProducerDispatch[T]) AcquireDedicated() (*consumer.Consumer[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, free := range d.available {
		if free {
			d.available[i] = false
			return d.dedicated[i], true
		}
	}
	return nil, false
}

// Shared returns the shared member.
func (d *SingleProducerDispatch[T]) Shared() *consumer.Consumer[T] {
	return d.shared
}

// Release marks a dedicated member available again.
func (d *SingleProducerDispatch[T]) Release(c *consumer.Consumer[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, m := range d.dedicated {
		if m == c {
			d.available[i] = true
			return
		}
	}
}

// RoundRobinDispatch cycles through its members. Members are shared by
// any number of producers, so Release does nothing.
type RoundRobinDispatch[T any] struct {
	members []*consumer.Consumer[T]
	next    atomix.Uint64
}

// NewRoundRobinDispatch binds a dispatcher to members, which must not be
// empty.
func NewRoundRobinDispatch[T any](members []*consumer.Consumer[T]) *RoundRobinDispatch[T] {
	if len(members) == 0 {
		panic("pool: round robin over no members")
	}
	return &RoundRobinDispatch[T]{members: members}
}

// Acquire returns the next member in order.
func (d *RoundRobinDispatch[T]) Acquire() *consumer.Consumer[T] {
	i := d.next.Add(1) - 1
	return d.members[i%uint64(len(d.members))]
}

// Release is a no-op.
func (*RoundRobinDispatch[T]) Release(*consumer.Consumer[T]) {}
