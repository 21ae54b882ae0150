// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package consumer

import (
	"fmt"
	"log/slog"

	"code.hybscloud.com/taskq"
	"golang.org/x/time/rate"
)

// Handler processes one task. A non-nil error marks the task failed; it
// is routed to the ErrorHandler and the worker carries on.
type Handler[T any] func(task T) error

// ErrorHandler receives every task failure, including recovered panics
// as *PanicError. It runs on the worker that observed the failure.
type ErrorHandler func(err error)

// Namer names a worker from the consumer's type name (for example
// "SPSCConsumer") and the OS thread id the worker is locked to.
type Namer func(typeName string, tid int) string

// DefaultNamer returns "<typeName>-<tid>".
func DefaultNamer(typeName string, tid int) string {
	return fmt.Sprintf("%s-%d", typeName, tid)
}

// Option configures a Consumer.
type Option func(*options)

type options struct {
	name    string
	workers int
	policy  taskq.Policy
	spins   int
	onError ErrorHandler
	namer   Namer
	logger  *slog.Logger
	limiter *rate.Limiter
	cpu     int
}

func defaultOptions() options {
	return options{
		workers: 1,
		policy:  taskq.Block,
		cpu:     -1,
	}
}

// WithName sets the consumer name used in logs and state errors.
// The default is the type name, for example "MPSCConsumer".
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithWorkers sets the number of worker threads. More than one worker
// requires a multi-consumer queue arity; Start reports ErrArity otherwise.
// Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRetryPolicy selects the retry strategy policy. The default is Block.
// Ignored by NewWithStrategy.
func WithRetryPolicy(p taskq.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithSpins sets the poll budget of the Spin policy.
func WithSpins(n int) Option {
	return func(o *options) {
		o.spins = n
	}
}

// WithErrorHandler sets the callback for task failures.
// The default logs the failure at error level and continues.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.onError = h
	}
}

// WithNamer sets the worker naming policy. The default is DefaultNamer.
func WithNamer(n Namer) Option {
	return func(o *options) {
		o.namer = n
	}
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRateLimit caps handling throughput at tasksPerSecond with the given
// burst, shared by all workers of the consumer.
// Non-positive arguments disable the limit.
//
// Example:
//
//	WithRateLimit(100, 10) // 100 tasks/sec, bursts of 10
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(o *options) {
		if tasksPerSecond > 0 && burst > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		} else {
			o.limiter = nil
		}
	}
}

// WithAffinity pins worker i to CPU core (first+i) modulo the number of
// CPUs. Pinning is only supported on linux and is a no-op elsewhere.
// A negative first disables pinning, which is the default.
func WithAffinity(first int) Option {
	return func(o *options) {
		o.cpu = first
	}
}
