// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"fmt"
	"log/slog"

	"code.hybscloud.com/taskq"
	"code.hybscloud.com/taskq/consumer"
)

// ActionFactory returns the handler for one member. It is called once per
// member, so handlers holding state need no synchronization between
// members.
type ActionFactory[T any] func() consumer.Handler[T]

// Config describes a Pool. Zero fields take the defaults noted.
type Config[T any] struct {
	// Name prefixes member names and appears in logs. Default "Pool".
	Name string

	// Size is the number of members. Default 1. A single-producer pool
	// has Size-1 dedicated members and one shared member.
	Size int

	// Workers is the worker count of each dedicated member, or of every
	// member of a multi-producer pool. Default 1.
	Workers int

	// SharedWorkers is the worker count of the shared member of a
	// single-producer pool. Default 1.
	SharedWorkers int

	// Capacity is the queue capacity of each dedicated member, or of
	// every member of a multi-producer pool. Default 1024.
	Capacity int

	// SharedCapacity is the queue capacity of the shared member.
	// Default Capacity.
	SharedCapacity int

	// Factory creates each member's handler. Required.
	Factory ActionFactory[T]

	// Strategy is a prototype: each member receives Strategy.Copy().
	// Default is a Block strategy per member.
	Strategy taskq.RetryStrategy[T]

	// ErrorHandler, Namer and Logger are passed to every member.
	ErrorHandler consumer.ErrorHandler
	Namer        consumer.Namer
	Logger       *slog.Logger

	// Options are applied to every member after the fields above.
	Options []consumer.Option
}

// DefaultCapacity is the member queue capacity used when none is set.
const DefaultCapacity = 1024

func (cfg Config[T]) withDefaults() Config[T] {
	if cfg.Factory == nil {
		panic("pool: nil action factory")
	}
	if cfg.Name == "" {
		cfg.Name = "Pool"
	}
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SharedWorkers < 1 {
		cfg.SharedWorkers = 1
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.SharedCapacity < 1 {
		cfg.SharedCapacity = cfg.Capacity
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// member creates the i-th member in the Init state.
func (cfg *Config[T]) member(b *taskq.Builder, i, workers int) *consumer.Consumer[T] {
	opts := []consumer.Option{
		consumer.WithName(fmt.Sprintf("%s.%d", cfg.Name, i)),
		consumer.WithWorkers(workers),
		consumer.WithLogger(cfg.Logger),
	}
	if cfg.ErrorHandler != nil {
		opts = append(opts, consumer.WithErrorHandler(cfg.ErrorHandler))
	}
	if cfg.Namer != nil {
		opts = append(opts, consumer.WithNamer(cfg.Namer))
	}
	opts = append(opts, cfg.Options...)

	var s taskq.RetryStrategy[T]
	if cfg.Strategy != nil {
		s = cfg.Strategy.Copy()
	}
	return consumer.NewWithStrategy(b, s, cfg.Factory(), opts...)
}
