// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package taskq provides bounded task queues and the retry strategies that
// arbitrate access to them when they are full or empty.
//
// Queues come in one variant per producer/consumer arity, plus a locked
// variant usable with any arity:
//
//   - SPSC: Single-Producer Single-Consumer (Lamport ring)
//   - MPSC: Multi-Producer Single-Consumer
//   - SPMC: Single-Producer Multi-Consumer
//   - MPMC: Multi-Producer Multi-Consumer
//   - Locked: mutex-guarded ring, any number of producers and consumers
//
// Worker threads, submission and the Init -> Running -> Terminated
// lifecycle are layered on top in the consumer and pool subpackages.
//
// # Quick Start
//
// Direct constructors:
//
//	q, err := taskq.NewSPSC[Event](1000)
//	q, err := taskq.NewMPMC[*Request](4096)
//
// Builder API selects the variant from the declared constraints:
//
//	q, err := taskq.Build[Event](taskq.New(1024).SingleProducer().SingleConsumer()) // → SPSC
//	q, err := taskq.Build[Event](taskq.New(1024).SingleConsumer())                  // → MPSC
//	q, err := taskq.Build[Event](taskq.New(1024).SingleProducer())                  // → SPMC
//	q, err := taskq.Build[Event](taskq.New(1024))                                   // → MPMC
//	q, err := taskq.Build[Event](taskq.New(1000).Locked())                          // → Locked
//
// # Basic Usage
//
// All queues share the same non-blocking interface:
//
//	q, _ := taskq.NewMPMC[int](1024)
//
//	value := 42
//	err := q.Enqueue(&value)
//	if taskq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	elem, err := q.Dequeue()
//	if taskq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// A full queue is never overwritten and an empty queue is left untouched.
//
// # Algorithm
//
// Each queue holds a read cursor (head) and a write cursor (tail), both
// monotonically increasing and never reset, so Len is tail-head and
// position i lives in slot i mod capacity.
//
// The SPMC, MPSC and MPMC variants share one slot layout. Every slot
// carries a sequence word that is written with a release store and read
// with an acquire load:
//
//	seq == pos       free, the producer that owns pos may write
//	seq == pos+1     published, the consumer that owns pos may read
//	seq == pos+cap   released for the producer of the next lap
//
// A multi-party end claims a position by CAS on its cursor and then spins
// on the slot sequence until the other party has finished with it. A
// single-party end needs no CAS: it writes or reads the slot and then
// advances its cursor with a release store.
//
// SPSC is a Lamport ring with cached copies of the opposite cursor, so
// the common path touches no shared cache line. It accepts any positive
// capacity; the CAS variants require a power of 2 unless the builder's
// RoundUp is set.
//
// Cursors are separated by cache-line padding from [golang.org/x/sys/cpu]
// to prevent false sharing.
//
// # Retry Strategies
//
// A [RetryStrategy] decides what a producer or consumer does when its
// queue is full or empty. It holds synchronization state only, never
// queue contents.
//
//	Loop   never suspends: Retrieve reports empty at once
//	Block  parks on a condition variable; a push wakes one retriever,
//	       Release wakes everyone
//	Spin   polls a bounded number of times, then behaves like Block
//
// Every wait re-checks a [Running] callback, so an owner shutting down
// can abandon waits with Release. An abandoned wait returns
// [ErrWouldBlock]; it is not a failure.
//
//	s := taskq.NewRetryStrategy[Job](taskq.Spin, 128)
//	job, err := s.Retrieve(q, running)
//
// Strategies must not be shared between queues; use Copy to derive one
// per queue from a prototype.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        break
//	    }
//	    if !taskq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// Construction errors wrap [ErrInvalidCapacity]:
//
//	_, err := taskq.NewMPMC[int](1000)
//	errors.Is(err, taskq.ErrInvalidCapacity) // true: not a power of 2
//
// # Thread Safety
//
// All queue operations are thread-safe within their access pattern constraints:
//
//   - SPSC: One producer goroutine, one consumer goroutine
//   - MPSC: Multiple producer goroutines, one consumer goroutine
//   - SPMC: One producer goroutine, multiple consumer goroutines
//   - MPMC, Locked: Multiple producer and consumer goroutines
//
// Violating these constraints (e.g., multiple producers on SPSC) causes
// undefined behavior including data corruption and races.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives but cannot
// observe happens-before relationships established through acquire-release
// orderings on separate atomic variables. The ring variants protect the
// non-atomic slot payload with the slot sequence word, so the detector may
// report false positives. Stress tests of those variants are skipped when
// it is enabled.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// and [golang.org/x/sys/cpu] for cache line padding.
package taskq
