// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpq

import (
	"math"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"golang.org/x/sys/cpu"
)

// MPMC is a bounded multi-producer multi-consumer queue over a sequenced
// ring buffer.
//
// Each slot carries a sequence number that rotates through
// {n·capacity + i, n·capacity + i + 1}: the first form marks the slot free
// for the producer whose index equals the sequence, the second marks it
// filled for the consumer whose index is one less. Producers and consumers
// claim indices by CAS on their respective counters and publish slot
// ownership transitions with release stores, so no global lock is ever
// taken and a failed CAS always means another thread made progress.
//
// Offer and Poll honor exact full/empty laws by confirming the opposing
// index before reporting full or empty; RelaxedOffer and RelaxedPoll skip
// the confirmation and may report spuriously under contention.
//
// Memory: one padded slot (sequence cell + element pointer) per capacity.
type MPMC[E any] struct {
	_        cpu.CacheLinePad
	tail     atomix.Uint64 // producer index
	_        cpu.CacheLinePad
	head     atomix.Uint64 // consumer index
	_        cpu.CacheLinePad
	buffer   []mpmcSlot[E]
	mask     uint64
	capacity uint64
	_        cpu.CacheLinePad
}

type mpmcSlot[E any] struct {
	seq  atomix.Uint64
	elem atomic.Pointer[E]
	_    slotPad
}

// NewMPMC creates a bounded MPMC queue.
// Capacity rounds up to the next power of 2. Panics if capacity < 2.
func NewMPMC[E any](capacity int) *MPMC[E] {
	if capacity < 2 {
		panic(msgBadCapacity)
	}

	n := uint64(roundToPow2(capacity))
	q := &MPMC[E]{
		buffer:   make([]mpmcSlot[E], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// Offer adds an element to the queue (multiple producers safe).
// Returns false iff the queue holds exactly Capacity elements at the
// linearization point. Panics if e is nil.
func (q *MPMC[E]) Offer(e *E) bool {
	if e == nil {
		panic(msgNilElement)
	}

	// Bogus cached consumer index: forces one real load before the first
	// full verdict, then saves reloads on retries that cannot be full.
	cIndex := int64(math.MinInt64)
	capacity := int64(q.capacity)
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.elem.Store(e)
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 && int64(tail)-capacity >= cIndex {
			// The slot is still owned by a consumer a full lap behind.
			// Full iff that holds against the latest consumer index too.
			cIndex = int64(q.head.LoadAcquire())
			if int64(tail)-capacity >= cIndex {
				return false
			}
		}
		sw.Once()
	}
}

// RelaxedOffer is Offer without the consumer-index confirmation: the first
// lagging sequence observation reports full. Panics if e is nil.
func (q *MPMC[E]) RelaxedOffer(e *E) bool {
	if e == nil {
		panic(msgNilElement)
	}

	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.elem.Store(e)
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 {
			return false
		}
		sw.Once()
	}
}

// Poll removes and returns the next element (multiple consumers safe).
// Returns nil iff the producer and consumer indices coincide at the
// linearization point.
func (q *MPMC[E]) Poll() *E {
	// Bogus cached producer index, symmetric to Offer.
	pIndex := int64(-1)
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		slot := &q.buffer[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				e := slot.elem.Load()
				slot.elem.Store(nil)
				slot.seq.StoreRelease(head + q.capacity)
				return e
			}
		} else if diff < 0 && int64(head) >= pIndex {
			// Slot not yet filled. Empty iff the latest producer index
			// still equals our consumer index.
			pIndex = int64(q.tail.LoadAcquire())
			if int64(head) == pIndex {
				return nil
			}
		}
		sw.Once()
	}
}

// RelaxedPoll is Poll without the producer-index confirmation: the first
// lagging sequence observation reports empty.
func (q *MPMC[E]) RelaxedPoll() *E {
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		slot := &q.buffer[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				e := slot.elem.Load()
				slot.elem.Store(nil)
				slot.seq.StoreRelease(head + q.capacity)
				return e
			}
		} else if diff < 0 {
			return nil
		}
		sw.Once()
	}
}

// Peek returns the next element without removing it, or nil when the queue
// is empty. Another consumer may take the element at any moment; a nil slot
// is re-checked against the producer index so Peek only reports empty when
// the queue really was empty at some point during the call.
func (q *MPMC[E]) Peek() *E {
	for {
		head := q.head.LoadAcquire()
		e := q.buffer[head&q.mask].elem.Load()
		if e != nil || head == q.tail.LoadAcquire() {
			return e
		}
	}
}

// RelaxedPeek is a single read of the slot at the consumer index.
// May return nil on a non-empty queue.
func (q *MPMC[E]) RelaxedPeek() *E {
	return q.buffer[q.head.LoadRelaxed()&q.mask].elem.Load()
}

// Size returns the number of queued elements, in [0, Capacity].
// The consumer index is re-read until it is stable around the producer
// index read, so a concurrent poll cannot push the result negative; the
// value may still overestimate under contention.
func (q *MPMC[E]) Size() int {
	after := q.head.LoadAcquire()
	for {
		before := after
		p := q.tail.LoadAcquire()
		after = q.head.LoadAcquire()
		if before == after {
			return int(p - after)
		}
	}
}

// IsEmpty conservatively reports emptiness. The consumer index is loaded
// before the producer index, so concurrent offers cannot turn a non-empty
// queue into a false positive.
func (q *MPMC[E]) IsEmpty() bool {
	head := q.head.LoadAcquire()
	return head == q.tail.LoadAcquire()
}

// Capacity returns the fixed queue capacity.
func (q *MPMC[E]) Capacity() int {
	return int(q.capacity)
}

// CurrentProducerIndex returns the count of successfully reserved offers.
func (q *MPMC[E]) CurrentProducerIndex() uint64 {
	return q.tail.LoadAcquire()
}

// CurrentConsumerIndex returns the count of successfully claimed polls.
func (q *MPMC[E]) CurrentConsumerIndex() uint64 {
	return q.head.LoadAcquire()
}

// Drain passes up to limit elements to c using relaxed polls.
// Stops early on the first empty result; returns the number delivered.
func (q *MPMC[E]) Drain(c Consumer[E], limit int) int {
	for i := 0; i < limit; i++ {
		e := q.RelaxedPoll()
		if e == nil {
			return i
		}
		c(e)
	}
	return limit
}

// DrainAll drains up to one full capacity of elements.
func (q *MPMC[E]) DrainAll(c Consumer[E]) int {
	return q.Drain(c, int(q.capacity))
}

// DrainUntil drains while exit keeps running, idling through wait whenever
// a relaxed poll comes back empty.
func (q *MPMC[E]) DrainUntil(c Consumer[E], wait WaitStrategy, exit ExitCondition) {
	idle := 0
	for exit() {
		e := q.RelaxedPoll()
		if e == nil {
			idle = wait(idle)
			continue
		}
		idle = 0
		c(e)
	}
}

// Fill is unsupported on MPMC and panics: a failed offer inside the bulk
// would discard an element already obtained from the supplier. Use
// FillUntil, which retries the same element until it is accepted.
func (q *MPMC[E]) Fill(s Supplier[E], limit int) int {
	panic(msgUnsupportedFill)
}

// FillAll is unsupported on MPMC and panics. See Fill.
func (q *MPMC[E]) FillAll(s Supplier[E]) int {
	panic(msgUnsupportedFill)
}

// FillUntil obtains one element at a time from s and retries a relaxed
// offer under the idle strategy until the element is accepted, while exit
// keeps running. No element is discarded on a failed offer unless exit
// stops the loop mid-retry.
func (q *MPMC[E]) FillUntil(s Supplier[E], wait WaitStrategy, exit ExitCondition) {
	idle := 0
	for exit() {
		e := s()
		for !q.RelaxedOffer(e) {
			if !exit() {
				return
			}
			idle = wait(idle)
		}
		idle = 0
	}
}
