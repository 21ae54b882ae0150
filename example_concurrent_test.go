// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples with concurrent producer/consumer goroutines.
// These trigger false positives with Go's race detector because the ring
// variants synchronize payloads through slot sequences the detector cannot
// see. The examples are correct; they're excluded from race testing.

package taskq_test

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/taskq"
)

// Example_workerPool demonstrates workers parked on a Block strategy,
// woken one per submitted job and released together on shutdown.
func Example_workerPool() {
	type Job struct {
		ID    int
		Input int
	}

	jobs, _ := taskq.NewMPMC[Job](16)
	strategy := taskq.NewBlock[Job]()
	results := make([]int, 5)

	var running atomix.Bool
	running.Store(true)

	var wg sync.WaitGroup
	var done sync.WaitGroup
	done.Add(5)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for running.Load() {
				job, err := strategy.Retrieve(jobs, running.Load)
				if err != nil {
					continue // released
				}
				results[job.ID] = job.Input * job.Input
				done.Done()
			}
		}()
	}

	for i := range 5 {
		job := Job{ID: i, Input: i + 1}
		strategy.SubmitWait(jobs, &job, running.Load)
	}

	done.Wait()
	running.Store(false)
	strategy.Release()
	wg.Wait()

	for i, r := range results {
		fmt.Printf("Job %d: %d² = %d\n", i, i+1, r)
	}

	// Output:
	// Job 0: 1² = 1
	// Job 1: 2² = 4
	// Job 2: 3² = 9
	// Job 3: 4² = 16
	// Job 4: 5² = 25
}

// Example_pipeline demonstrates a multi-stage pipeline using SPSC queues.
func Example_pipeline() {
	// Pipeline: Generate → Double → Print
	stage1to2, _ := taskq.NewSPSC[int](8)
	stage2to3, _ := taskq.NewSPSC[int](8)

	var wg sync.WaitGroup
	results := make([]int, 0, 5)

	// Stage 1: Generate numbers 1-5
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := 1; i <= 5; i++ {
			v := i
			for stage1to2.Enqueue(&v) != nil {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	// Stage 2: Double each number
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoffDeq := iox.Backoff{}
		backoffEnq := iox.Backoff{}
		for processed := 0; processed < 5; {
			v, err := stage1to2.Dequeue()
			if err != nil {
				backoffDeq.Wait()
				continue
			}
			backoffDeq.Reset()
			doubled := v * 2
			for stage2to3.Enqueue(&doubled) != nil {
				backoffEnq.Wait()
			}
			backoffEnq.Reset()
			processed++
		}
	}()

	// Stage 3: Collect results
	backoff := iox.Backoff{}
	for len(results) < 5 {
		v, err := stage2to3.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		results = append(results, v)
	}
	wg.Wait()

	for i, v := range results {
		fmt.Printf("Stage output %d: %d\n", i, v)
	}

	// Output:
	// Stage output 0: 2
	// Stage output 1: 4
	// Stage output 2: 6
	// Stage output 3: 8
	// Stage output 4: 10
}
