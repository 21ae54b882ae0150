// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// Tasks reach workers through queues synchronized by ordered atomics,
// which the race detector cannot follow; these tests are excluded from
// race testing.

package pool_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/taskq"
	"code.hybscloud.com/taskq/consumer"
	"code.hybscloud.com/taskq/lifecycle"
	"code.hybscloud.com/taskq/pool"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func counting(n *atomic.Int64) pool.ActionFactory[int] {
	return func() consumer.Handler[int] {
		return func(int) error {
			n.Add(1)
			return nil
		}
	}
}

func wait(t *testing.T, term *lifecycle.Termination) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := term.Wait(ctx)
	require.NoError(t, err, "termination did not resolve")
	return n
}

// =============================================================================
// Dispatch
// =============================================================================

func TestSingleProducer_Dispatch(t *testing.T) {
	var n atomic.Int64
	p := pool.NewSingleProducer(pool.Config[int]{
		Size:    3,
		Factory: counting(&n),
		Logger:  quiet,
	})
	require.NoError(t, p.Start())
	defer p.TerminateNow()

	m := p.Members()
	require.Len(t, m, 3)
	assert.Equal(t, taskq.SPSC, m[0].Arity())
	assert.Equal(t, taskq.SPSC, m[1].Arity())
	assert.Equal(t, taskq.MPSC, m[2].Arity())

	acquire := func() *consumer.Consumer[int] {
		c, err := p.Acquire()
		require.NoError(t, err)
		return c
	}
	first := acquire()
	second := acquire()
	third := acquire()
	fourth := acquire()
	assert.Same(t, m[0], first)
	assert.Same(t, m[1], second)
	assert.Same(t, m[2], third)
	assert.Same(t, m[2], fourth)

	p.Release(first)
	p.Release(third)
	assert.Same(t, m[0], acquire())
	assert.Same(t, m[2], acquire())
}

func TestSingleProducer_Arities(t *testing.T) {
	p := pool.NewSingleProducer(pool.Config[int]{
		Size:          2,
		Workers:       2,
		SharedWorkers: 3,
		Factory:       counting(new(atomic.Int64)),
		Logger:        quiet,
	})
	m := p.Members()
	assert.Equal(t, taskq.SPMC, m[0].Arity())
	assert.Equal(t, taskq.MPMC, m[1].Arity())

	d, ok := p.Dispatcher().(*pool.SingleProducerDispatch[int])
	require.True(t, ok)
	assert.Same(t, m[1], d.Shared())
}

func TestSingleProducer_SizeOne(t *testing.T) {
	p := pool.NewSingleProducer(pool.Config[int]{Factory: counting(new(atomic.Int64)), Logger: quiet})
	require.NoError(t, p.Start())
	c, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, p.Members()[0], c)

	term, err := p.Terminate()
	require.NoError(t, err)
	wait(t, term)
}

func TestMultiProducer_RoundRobin(t *testing.T) {
	p := pool.NewMultiProducer(pool.Config[int]{
		Size:    3,
		Factory: counting(new(atomic.Int64)),
		Logger:  quiet,
	})
	require.NoError(t, p.Start())
	defer p.TerminateNow()

	m := p.Members()
	for i := range 7 {
		c, err := p.Acquire()
		require.NoError(t, err)
		assert.Same(t, m[i%3], c, "acquire %d", i)
		p.Release(c)
	}
	for _, c := range m {
		assert.Equal(t, taskq.MPSC, c.Arity())
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestPool_InvalidTransitions(t *testing.T) {
	p := pool.NewMultiProducer(pool.Config[int]{Size: 2, Factory: counting(new(atomic.Int64)), Logger: quiet})
	assert.Equal(t, lifecycle.Init, p.State())

	_, err := p.Acquire()
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	_, err = p.Terminate()
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	assert.ErrorIs(t, p.Submit(1), lifecycle.ErrInvalidState)

	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Start(), lifecycle.ErrInvalidState)

	term, err := p.TerminateNow()
	require.NoError(t, err)
	wait(t, term)
	assert.Equal(t, lifecycle.Terminated, p.State())

	_, err = p.Acquire()
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	_, err = p.TerminateNow()
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	for _, m := range p.Members() {
		assert.Equal(t, lifecycle.Terminated, m.State())
	}
}

func TestPool_StartFailureStopsStartedMembers(t *testing.T) {
	p := pool.NewSingleProducer(pool.Config[int]{
		Size:           3,
		Capacity:       16,
		SharedCapacity: 3, // not a power of 2: the shared MPSC member fails
		Factory:        counting(new(atomic.Int64)),
		Logger:         quiet,
	})
	err := p.Start()
	require.ErrorIs(t, err, taskq.ErrInvalidCapacity)
	assert.Equal(t, lifecycle.Terminated, p.State())

	m := p.Members()
	assert.Equal(t, lifecycle.Terminated, m[0].State())
	assert.Equal(t, lifecycle.Terminated, m[1].State())
	assert.Equal(t, lifecycle.Init, m[2].State())
	for _, c := range m {
		assert.Zero(t, c.Stats().Workers)
	}
}

func TestPool_TerminateSumsMembers(t *testing.T) {
	var n atomic.Int64
	p := pool.NewSingleProducer(pool.Config[int]{
		Size:     3,
		Capacity: 64,
		Factory:  counting(&n),
		Logger:   quiet,
	})
	require.NoError(t, p.Start())

	// Hold both dedicated members so tasks spread over all three.
	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)
	for i := range 10 {
		require.NoError(t, a.Submit(i))
		require.NoError(t, b.Submit(i))
		require.NoError(t, p.Submit(i))
	}
	p.Release(a)
	p.Release(b)

	term, err := p.Terminate()
	require.NoError(t, err)
	assert.Equal(t, int64(30), wait(t, term))
	assert.Equal(t, int64(30), n.Load())

	s := p.Stats()
	assert.Equal(t, lifecycle.Terminated, s.State)
	assert.Equal(t, int64(30), s.Consumed)
	require.Len(t, s.Members, 3)
	for _, ms := range s.Members {
		assert.Equal(t, int64(10), ms.Consumed)
	}
}

func TestPool_TerminateSkipsFailedMembers(t *testing.T) {
	var n atomic.Int64
	p := pool.NewMultiProducer(pool.Config[int]{Size: 2, Factory: counting(&n), Logger: quiet})
	require.NoError(t, p.Start())
	require.NoError(t, p.Members()[1].Submit(7))

	// Terminating a member directly makes the pool's terminate of it fail.
	mt, err := p.Members()[0].TerminateNow()
	require.NoError(t, err)
	wait(t, mt)

	term, err := p.Terminate()
	require.NoError(t, err)
	assert.Equal(t, int64(1), wait(t, term))
}

// =============================================================================
// Configuration
// =============================================================================

func TestPool_PerMemberFactoryAndStrategy(t *testing.T) {
	var made atomic.Int64
	p := pool.NewMultiProducer(pool.Config[int]{
		Size:     4,
		Workers:  2,
		Strategy: taskq.NewSpin[int](16),
		Factory: func() consumer.Handler[int] {
			made.Add(1)
			return func(int) error { return nil }
		},
		Logger: quiet,
	})
	assert.Equal(t, int64(4), made.Load())
	for _, m := range p.Members() {
		assert.Equal(t, taskq.Spin, m.Policy())
		assert.Equal(t, taskq.MPMC, m.Arity())
	}
	assert.Equal(t, "Pool.0", p.Members()[0].Name())
	assert.Equal(t, "Pool", p.Name())
}

func TestPool_MemberOptions(t *testing.T) {
	var errs atomic.Int64
	p := pool.NewMultiProducer(pool.Config[int]{
		Name: "ingest",
		Size: 2,
		Factory: func() consumer.Handler[int] {
			return func(n int) error {
				if n < 0 {
					panic("negative")
				}
				return nil
			}
		},
		ErrorHandler: func(error) { errs.Add(1) },
		Options:      []consumer.Option{consumer.WithRetryPolicy(taskq.Loop)},
		Logger:       quiet,
	})
	require.NoError(t, p.Start())
	assert.Equal(t, "ingest.1", p.Members()[1].Name())
	for _, m := range p.Members() {
		assert.Equal(t, taskq.Loop, m.Policy())
	}

	require.NoError(t, p.Submit(-1))
	require.NoError(t, p.Submit(1))
	term, err := p.Terminate()
	require.NoError(t, err)
	assert.Equal(t, int64(1), wait(t, term))
	assert.Equal(t, int64(1), errs.Load())
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestPool_NilFactory(t *testing.T) {
	assert.Panics(t, func() { pool.NewMultiProducer(pool.Config[int]{}) })
}
