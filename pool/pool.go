// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pool groups consumers behind a dispatcher.
//
// Two layouts are provided:
//
//	NewSingleProducer  Size-1 dedicated single-producer members and one
//	                   shared multi-producer member. A producer that
//	                   acquires a dedicated member owns it until Release;
//	                   when none is free it gets the shared one.
//	NewMultiProducer   Size multi-producer members handed out round robin.
//
// A pool follows the same Init -> Running -> Terminated lifecycle as its
// members. It is Running only if every member started; terminating the
// pool terminates every member concurrently and resolves with the summed
// consumed count.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/taskq"
	"code.hybscloud.com/taskq/consumer"
	"code.hybscloud.com/taskq/lifecycle"
	"golang.org/x/sync/errgroup"
)

// Stats is a point-in-time snapshot of a Pool and its members.
type Stats struct {
	State     lifecycle.State
	Members   []consumer.Stats
	Consumed  int64
	Failed    int64
	Discarded int64
}

// Pool is an ordered set of consumers with one Dispatcher bound to them.
type Pool[T any] struct {
	name     string
	members  []*consumer.Consumer[T]
	dispatch Dispatcher[T]
	logger   *slog.Logger

	mu    sync.Mutex // serializes Start
	state lifecycle.Cell
}

// NewSingleProducer creates a pool of cfg.Size-1 dedicated members and a
// shared member, dispatched by SingleProducerDispatch.
//
// Dedicated members are SPSC, or SPMC when cfg.Workers > 1. The shared
// member is MPSC, or MPMC when cfg.SharedWorkers > 1.
//
// Panics if cfg.Factory is nil.
func NewSingleProducer[T any](cfg Config[T]) *Pool[T] {
	cfg = cfg.withDefaults()
	n := cfg.Size - 1
	members := make([]*consumer.Consumer[T], 0, cfg.Size)
	for i := range n {
		b := taskq.New(cfg.Capacity).SingleProducer()
		if cfg.Workers == 1 {
			b.SingleConsumer()
		}
		members = append(members, cfg.member(b, i, cfg.Workers))
	}

	b := taskq.New(cfg.SharedCapacity)
	if cfg.SharedWorkers == 1 {
		b.SingleConsumer()
	}
	shared := cfg.member(b, n, cfg.SharedWorkers)
	members = append(members, shared)

	d := NewSingleProducerDispatch(members[:n:n], shared, cfg.Logger)
	return newPool(cfg, members, d)
}

// NewMultiProducer creates a pool of cfg.Size multi-producer members,
// dispatched by RoundRobinDispatch. Members are MPSC, or MPMC when
// cfg.Workers > 1.
//
// Panics if cfg.Factory is nil.
func NewMultiProducer[T any](cfg Config[T]) *Pool[T] {
	cfg = cfg.withDefaults()
	members := make([]*consumer.Consumer[T], 0, cfg.Size)
	for i := range cfg.Size {
		b := taskq.New(cfg.Capacity)
		if cfg.Workers == 1 {
			b.SingleConsumer()
		}
		members = append(members, cfg.member(b, i, cfg.Workers))
	}
	return newPool(cfg, members, NewRoundRobinDispatch(members))
}

func newPool[T any](cfg Config[T], members []*consumer.Consumer[T], d Dispatcher[T]) *Pool[T] {
	return &Pool[T]{
		name:     cfg.Name,
		members:  members,
		dispatch: d,
		logger:   cfg.Logger,
	}
}

// Start starts every member in order.
//
// If a member fails to start, the members already started are terminated
// immediately and waited for, the pool becomes Terminated, and the
// member's error is returned. Returns a *lifecycle.StateError unless the
// pool is in Init.
func (p *Pool[T]) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := lifecycle.CheckStart(p.name, p.state.Load()); err != nil {
		return err
	}
	for i, m := range p.members {
		if err := m.Start(); err != nil {
			p.abort(p.members[:i])
			p.state.Store(lifecycle.Terminated)
			return fmt.Errorf("%s: start member %d: %w", p.name, i, err)
		}
	}
	p.state.Store(lifecycle.Running)

	p.logger.Info("pool_start",
		slog.String("pool", p.name),
		slog.Int("members", len(p.members)),
	)
	return nil
}

func (p *Pool[T]) abort(started []*consumer.Consumer[T]) {
	for _, m := range started {
		t, err := m.TerminateNow()
		if err != nil {
			p.logger.Warn("pool_member_abort", slog.String("member", m.Name()), slog.Any("error", err))
			continue
		}
		<-t.Done()
	}
}

// Terminate drains and terminates every member. The returned Termination
// resolves with the members' summed consumed count once all of them have
// resolved. A member that fails to terminate is logged and skipped.
//
// Returns a *lifecycle.StateError unless the pool is Running.
func (p *Pool[T]) Terminate() (*lifecycle.Termination, error) {
	return p.terminate("terminate", (*consumer.Consumer[T]).Terminate)
}

// TerminateNow terminates every member, discarding queued tasks.
//
// Returns a *lifecycle.StateError unless the pool is Running.
func (p *Pool[T]) TerminateNow() (*lifecycle.Termination, error) {
	return p.terminate("terminate now", (*consumer.Consumer[T]).TerminateNow)
}

func (p *Pool[T]) terminate(op string, stop func(*consumer.Consumer[T]) (*lifecycle.Termination, error)) (*lifecycle.Termination, error) {
	if err := p.state.Transition(p.name, op, lifecycle.Running, lifecycle.Terminated); err != nil {
		return nil, err
	}
	t := lifecycle.NewTermination()
	go p.aggregate(t, stop)
	return t, nil
}

func (p *Pool[T]) aggregate(t *lifecycle.Termination, stop func(*consumer.Consumer[T]) (*lifecycle.Termination, error)) {
	var (
		total atomix.Int64
		g     errgroup.Group
	)
	for _, m := range p.members {
		g.Go(func() error {
			mt, err := stop(m)
			if err == nil {
				var n int64
				n, err = mt.Wait(context.Background())
				total.Add(n)
			}
			if err != nil {
				p.logger.Warn("pool_member_terminate",
					slog.String("pool", p.name),
					slog.String("member", m.Name()),
					slog.Any("error", err),
				)
			}
			return err
		})
	}
	failed := g.Wait() != nil

	consumed := total.Load()
	p.logger.Info("pool_terminated",
		slog.String("pool", p.name),
		slog.Int64("consumed", consumed),
		slog.Bool("member_failures", failed),
	)
	t.Resolve(consumed)
}

// Acquire returns a member chosen by the dispatcher. Pair it with Release.
//
// Returns a *lifecycle.StateError unless the pool is Running.
func (p *Pool[T]) Acquire() (*consumer.Consumer[T], error) {
	if err := lifecycle.CheckRunning(p.name, "acquire", p.state.Load()); err != nil {
		return nil, err
	}
	return p.dispatch.Acquire(), nil
}

// Release returns a member obtained from Acquire.
func (p *Pool[T]) Release(c *consumer.Consumer[T]) {
	p.dispatch.Release(c)
}

// Submit acquires a member, submits task to it without waiting, and
// releases the member.
func (p *Pool[T]) Submit(task T) error {
	c, err := p.Acquire()
	if err != nil {
		return err
	}
	defer p.dispatch.Release(c)
	return c.Submit(task)
}

// State returns the current lifecycle state.
func (p *Pool[T]) State() lifecycle.State {
	return p.state.Load()
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.name
}

// Members returns the members in order. For a single-producer pool the
// shared member is last.
func (p *Pool[T]) Members() []*consumer.Consumer[T] {
	return append([]*consumer.Consumer[T](nil), p.members...)
}

// Dispatcher returns the dispatcher bound to the members.
func (p *Pool[T]) Dispatcher() Dispatcher[T] {
	return p.dispatch
}

// Stats returns a snapshot of every member and the pool totals.
func (p *Pool[T]) Stats() Stats {
	s := Stats{
		State:   p.state.Load(),
		Members: make([]consumer.Stats, len(p.members)),
	}
	for i, m := range p.members {
		ms := m.Stats()
		s.Members[i] = ms
		s.Consumed += ms.Consumed
		s.Failed += ms.Failed
		s.Discarded += ms.Discarded
	}
	return s
}
