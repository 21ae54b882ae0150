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
	"fmt"

	"code.hybscloud.com/taskq/consumer"
	"code.hybscloud.com/taskq/pool"
)

func ExampleNewSingleProducer() {
	p := pool.NewSingleProducer(pool.Config[string]{
		Size: 3,
		Factory: func() consumer.Handler[string] {
			return func(string) error { return nil }
		},
		Logger: quiet,
	})
	if err := p.Start(); err != nil {
		panic(err)
	}

	// A producer goroutine owns a dedicated member until it releases it.
	c, _ := p.Acquire()
	for _, line := range []string{"a", "b", "c"} {
		c.SubmitBlocking(line)
	}
	p.Release(c)

	t, _ := p.Terminate()
	n, _ := t.Wait(context.Background())
	fmt.Println(c.Name(), c.Arity())
	fmt.Println("consumed:", n)

	// Output:
	// Pool.0 SPSC
	// consumed: 3
}
