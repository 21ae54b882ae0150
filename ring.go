// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskq

import (
	"fmt"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"golang.org/x/sys/cpu"
)

// cacheLineSize is the size of the platform cache line padding.
const cacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

// pad is cache line padding to prevent false sharing.
type pad = cpu.CacheLinePad

// padShort is padding to fill a cache line after an 8-byte field.
type padShort [cacheLineSize - 8]byte

// ring is the slot storage shared by the CAS variants.
//
// Slot i carries a sequence word that encodes who may touch it next:
//
//	seq == pos       free, the producer that owns pos may write
//	seq == pos+1     published, the consumer that owns pos may read
//	seq == pos+cap   released for the producer of the next lap
//
// Cursor arbitration (CAS or single-party store) is done by the variant;
// the ring only publishes and consumes owned positions.
type ring[T any] struct {
	slots    []ringSlot[T]
	mask     uint64
	capacity uint64
}

type ringSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort
}

func newRing[T any](capacity int) (ring[T], error) {
	if err := checkPow2(capacity); err != nil {
		return ring[T]{}, err
	}
	n := uint64(capacity)
	r := ring[T]{
		slots:    make([]ringSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}
	for i := uint64(0); i < n; i++ {
		r.slots[i].seq.StoreRelaxed(i)
	}
	return r, nil
}

// publish writes elem into the slot owned by pos.
// A consumer of the previous lap may still be reading the slot after it
// advanced the read cursor, so wait until the slot is released.
func (r *ring[T]) publish(pos uint64, elem *T) {
	s := &r.slots[pos&r.mask]
	if s.seq.LoadAcquire() != pos {
		sw := spin.Wait{}
		for s.seq.LoadAcquire() != pos {
			sw.Once()
		}
	}
	s.data = *elem
	s.seq.StoreRelease(pos + 1)
}

// consume reads and clears the slot owned by pos.
// The producer that reserved pos may not have stored the element yet;
// spin on the sequence instead of reporting an empty slot.
func (r *ring[T]) consume(pos uint64) T {
	s := &r.slots[pos&r.mask]
	if s.seq.LoadAcquire() != pos+1 {
		sw := spin.Wait{}
		for s.seq.LoadAcquire() != pos+1 {
			sw.Once()
		}
	}
	elem := s.data
	var zero T
	s.data = zero
	s.seq.StoreRelease(pos + r.capacity)
	return elem
}

// size converts a cursor snapshot into a length clamped to [0, capacity].
// head must be loaded before tail.
func size(head, tail, capacity uint64) int {
	if tail <= head {
		return 0
	}
	n := tail - head
	if n > capacity {
		n = capacity
	}
	return int(n)
}

func checkPositive(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("%w: %d is not positive", ErrInvalidCapacity, capacity)
	}
	return nil
}

func checkPow2(capacity int) error {
	if err := checkPositive(capacity); err != nil {
		return err
	}
	if capacity&(capacity-1) != 0 {
		return fmt.Errorf("%w: %d is not a power of 2", ErrInvalidCapacity, capacity)
	}
	return nil
}

// RoundToPow2 rounds n up to the next power of 2.
// Values below 1 round to 1.
func RoundToPow2(n int) int {
	if n < 2 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
