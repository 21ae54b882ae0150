// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// Tasks reach workers through queues synchronized by ordered atomics,
// which the race detector cannot follow; these tests are excluded from
// race testing.

package consumer_test

import (
	"context"
	"fmt"

	"code.hybscloud.com/taskq"
	"code.hybscloud.com/taskq/consumer"
)

func ExampleConsumer() {
	var sum int
	c := consumer.New(taskq.New(16).SingleProducer().SingleConsumer(), func(n int) error {
		sum += n
		return nil
	}, consumer.WithLogger(quiet))

	if err := c.Start(); err != nil {
		panic(err)
	}
	for i := 1; i <= 10; i++ {
		c.SubmitBlocking(i)
	}

	t, _ := c.Terminate()
	n, _ := t.Wait(context.Background())
	fmt.Println("consumed:", n)
	fmt.Println("sum:", sum)

	// Output:
	// consumed: 10
	// sum: 55
}
