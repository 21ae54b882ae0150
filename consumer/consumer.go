// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package consumer runs a fixed set of worker threads over one bounded
// queue.
//
// A Consumer owns a queue built from a taskq.Builder, a retry strategy
// and a task handler. Producers call Submit or SubmitBlocking; workers
// retrieve tasks through the strategy and run the handler on each one.
// Handler errors and panics are isolated per task.
//
// Lifecycle:
//
//	c := consumer.New(taskq.New(1024).SingleProducer().SingleConsumer(), handle)
//	if err := c.Start(); err != nil {
//	    return err
//	}
//	_ = c.Submit(task)
//	t, _ := c.Terminate()      // stop workers, then drain what is queued
//	n, _ := t.Wait(ctx)         // tasks handled successfully
//
// TerminateNow stops the same way but discards queued tasks.
//
// The queue arity constrains callers: a single-producer arity admits one
// submitting goroutine at a time and a single-consumer arity admits one
// worker. The worker count is checked by Start; the producer side is the
// caller's contract.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
	"code.hybscloud.com/taskq"
	"code.hybscloud.com/taskq/internal/osthread"
	"code.hybscloud.com/taskq/lifecycle"
	"golang.org/x/sys/cpu"
)

// Stats is a point-in-time snapshot of a Consumer.
type Stats struct {
	State     lifecycle.State
	Workers   int   // workers currently running their loop
	Queued    int   // tasks waiting in the queue
	Consumed  int64 // tasks the handler completed without error
	Failed    int64 // tasks whose handler returned an error or panicked
	Discarded int64 // tasks dropped by TerminateNow or a cancelled rate wait
}

// Consumer processes tasks of type T on dedicated worker threads.
type Consumer[T any] struct {
	builder  taskq.Builder
	arity    taskq.Arity
	strategy taskq.RetryStrategy[T]
	handler  Handler[T]
	opts     options
	typeName string

	mu      sync.Mutex // serializes Start
	state   lifecycle.Cell
	queue   taskq.Queue[T]
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	_         cpu.CacheLinePad
	inflight  atomix.Int64
	_         cpu.CacheLinePad
	consumed  atomix.Int64
	_         cpu.CacheLinePad
	failed    atomix.Int64
	discarded atomix.Int64
	live      atomix.Int64
}

// New creates a Consumer in the Init state. The queue is built from b on
// Start; the retry strategy is chosen by WithRetryPolicy and WithSpins.
//
// Panics if b or h is nil.
func New[T any](b *taskq.Builder, h Handler[T], opts ...Option) *Consumer[T] {
	o := applyOptions(opts)
	return newConsumer(b, taskq.NewRetryStrategy[T](o.policy, o.spins), h, o)
}

// NewWithStrategy creates a Consumer that uses s as its retry strategy.
// s must not be shared with another queue; pass s.Copy() to reuse a
// prototype. A nil s falls back to the policy options.
//
// Panics if b or h is nil.
func NewWithStrategy[T any](b *taskq.Builder, s taskq.RetryStrategy[T], h Handler[T], opts ...Option) *Consumer[T] {
	o := applyOptions(opts)
	if s == nil {
		s = taskq.NewRetryStrategy[T](o.policy, o.spins)
	}
	return newConsumer(b, s, h, o)
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newConsumer[T any](b *taskq.Builder, s taskq.RetryStrategy[T], h Handler[T], o options) *Consumer[T] {
	if b == nil {
		panic("consumer: nil queue builder")
	}
	if h == nil {
		panic("consumer: nil handler")
	}
	c := &Consumer[T]{
		builder:  *b,
		arity:    b.Arity(),
		strategy: s,
		handler:  h,
		opts:     o,
	}
	c.typeName = c.arity.String() + "Consumer"
	if c.opts.name == "" {
		c.opts.name = c.typeName
	}
	if c.opts.logger == nil {
		c.opts.logger = slog.Default()
	}
	if c.opts.namer == nil {
		c.opts.namer = DefaultNamer
	}
	if c.opts.onError == nil {
		c.opts.onError = c.logFailure
	}
	return c
}

// Start builds the queue and launches the workers.
//
// Returns a *lifecycle.StateError unless the consumer is in Init. A queue
// construction error or a worker count the arity cannot serve is returned
// as is and leaves the consumer in Init.
func (c *Consumer[T]) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := lifecycle.CheckStart(c.opts.name, c.state.Load()); err != nil {
		return err
	}
	if c.opts.workers > 1 && c.arity.SingleConsumer() {
		return fmt.Errorf("%s: %d workers on a single-consumer queue: %w",
			c.opts.name, c.opts.workers, taskq.ErrArity)
	}
	q, err := taskq.Build[T](&c.builder)
	if err != nil {
		return fmt.Errorf("%s: %w", c.opts.name, err)
	}

	c.queue = q
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.workers.Add(c.opts.workers)
	c.state.Store(lifecycle.Running)
	for i := range c.opts.workers {
		go c.work(i)
	}

	c.opts.logger.Info("consumer_start",
		slog.String("consumer", c.opts.name),
		slog.String("arity", c.arity.String()),
		slog.String("policy", c.strategy.Policy().String()),
		slog.Int("workers", c.opts.workers),
		slog.Int("capacity", q.Cap()),
	)
	return nil
}

// Terminate stops the workers and then handles every task still queued.
// The returned Termination resolves once the queue is drained.
//
// Returns a *lifecycle.StateError unless the consumer is Running.
func (c *Consumer[T]) Terminate() (*lifecycle.Termination, error) {
	return c.terminate("terminate", true)
}

// TerminateNow stops the workers and discards every task still queued.
// Pending rate limit waits are abandoned. A task a worker is already
// handling runs to completion.
//
// Returns a *lifecycle.StateError unless the consumer is Running.
func (c *Consumer[T]) TerminateNow() (*lifecycle.Termination, error) {
	return c.terminate("terminate now", false)
}

func (c *Consumer[T]) terminate(op string, drain bool) (*lifecycle.Termination, error) {
	if err := c.state.Transition(c.opts.name, op, lifecycle.Running, lifecycle.Terminated); err != nil {
		return nil, err
	}
	if !drain {
		c.cancel()
	}
	c.strategy.Release()

	t := lifecycle.NewTermination()
	go c.finish(t, drain)
	return t, nil
}

// finish runs after the Running -> Terminated transition. Once the workers
// have exited and no submission is in flight it is the only party
// touching the queue.
func (c *Consumer[T]) finish(t *lifecycle.Termination, drain bool) {
	c.workers.Wait()
	backoff := iox.Backoff{}
	for c.inflight.Load() != 0 {
		backoff.Wait()
	}

	var dropped int64
	for {
		task, err := c.queue.Dequeue()
		if err != nil {
			break
		}
		if drain {
			c.process(c.ctx, task)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		c.discarded.Add(dropped)
		c.opts.logger.Debug("consumer_discard",
			slog.String("consumer", c.opts.name),
			slog.Int64("discarded", dropped),
		)
	}
	c.cancel()

	consumed := c.consumed.Load()
	c.opts.logger.Info("consumer_terminated",
		slog.String("consumer", c.opts.name),
		slog.Bool("drained", drain),
		slog.Int64("consumed", consumed),
		slog.Int64("failed", c.failed.Load()),
		slog.Int64("discarded", c.discarded.Load()),
	)
	t.Resolve(consumed)
}

// Submit enqueues task without waiting.
//
// Returns nil on success, ErrWouldBlock if the queue is full, or a
// *lifecycle.StateError if the consumer is not Running.
func (c *Consumer[T]) Submit(task T) error {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	if err := c.checkRunning(); err != nil {
		return err
	}
	return c.strategy.Submit(c.queue, &task)
}

// SubmitBlocking enqueues task, waiting for room according to the retry
// policy. It fails fast with a *lifecycle.StateError if the consumer is
// not Running, and returns one as soon as the consumer terminates while
// the call is waiting.
func (c *Consumer[T]) SubmitBlocking(task T) error {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	if err := c.checkRunning(); err != nil {
		return err
	}
	err := c.strategy.SubmitWait(c.queue, &task, c.running)
	if iox.IsWouldBlock(err) {
		if serr := c.checkRunning(); serr != nil {
			return serr
		}
	}
	return err
}

func (c *Consumer[T]) checkRunning() error {
	return lifecycle.CheckRunning(c.opts.name, "submit", c.state.Load())
}

func (c *Consumer[T]) running() bool {
	return c.state.Load() == lifecycle.Running
}

func (c *Consumer[T]) work(i int) {
	defer c.workers.Done()

	core := -1
	if c.opts.cpu >= 0 {
		core = c.opts.cpu + i
	}
	tid, unlock, err := osthread.Lock(core)
	defer unlock()

	name := c.opts.namer(c.typeName, tid)
	if err != nil {
		c.opts.logger.Warn("worker_affinity",
			slog.String("worker", name),
			slog.Int("cpu", core),
			slog.Any("error", err),
		)
	}

	c.live.Add(1)
	defer c.live.Add(-1)
	pprof.Do(c.ctx, pprof.Labels("consumer", c.opts.name, "worker", name), c.loop)
}

func (c *Consumer[T]) loop(ctx context.Context) {
	sw := spin.Wait{}
	for c.running() {
		task, err := c.strategy.Retrieve(c.queue, c.running)
		if err != nil {
			// Loop policy reports empty at once; others only on shutdown.
			sw.Once()
			continue
		}
		sw.Reset()
		c.process(ctx, task)
	}
}

func (c *Consumer[T]) process(ctx context.Context, task T) {
	if c.opts.limiter != nil {
		if err := c.opts.limiter.Wait(ctx); err != nil {
			c.discarded.Add(1)
			return
		}
	}
	err := c.invoke(task)
	if err == nil {
		c.consumed.Add(1)
		return
	}
	c.failed.Add(1)
	c.report(err)
}

func (c *Consumer[T]) invoke(task T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return c.handler(task)
}

// report calls the error handler. A panicking error handler is logged
// and does not take the worker down.
func (c *Consumer[T]) report(err error) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.logger.Error("error_handler_panic",
				slog.String("consumer", c.opts.name),
				slog.Any("panic", r),
				slog.Any("error", err),
			)
		}
	}()
	c.opts.onError(err)
}

func (c *Consumer[T]) logFailure(err error) {
	c.opts.logger.Error("task_failed",
		slog.String("consumer", c.opts.name),
		slog.Any("error", err),
	)
}

// State returns the current lifecycle state.
func (c *Consumer[T]) State() lifecycle.State {
	return c.state.Load()
}

// Stats returns a snapshot of the consumer's counters.
func (c *Consumer[T]) Stats() Stats {
	s := Stats{
		State:     c.state.Load(),
		Workers:   int(c.live.Load()),
		Consumed:  c.consumed.Load(),
		Failed:    c.failed.Load(),
		Discarded: c.discarded.Load(),
	}
	if s.State != lifecycle.Init {
		s.Queued = c.queue.Len()
	}
	return s
}

// Name returns the consumer name.
func (c *Consumer[T]) Name() string {
	return c.opts.name
}

// Arity returns the arity of the consumer's queue.
func (c *Consumer[T]) Arity() taskq.Arity {
	return c.arity
}

// Policy returns the retry policy of the consumer's strategy.
func (c *Consumer[T]) Policy() taskq.Policy {
	return c.strategy.Policy()
}
