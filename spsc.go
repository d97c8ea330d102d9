// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpq

import (
	"math"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"golang.org/x/sys/cpu"
)

// SPSC is a bounded single-producer single-consumer queue.
//
// Based on Lamport's ring buffer with cached index optimization: the
// producer caches the consumer's index and the consumer caches the
// producer's, so the opposing cache line is only touched when the cached
// view runs out. With one thread per side there is no contention to relax
// away, so the strict and relaxed operations coincide except RelaxedPeek.
type SPSC[E any] struct {
	_          cpu.CacheLinePad
	head       atomix.Uint64 // consumer index
	cachedTail uint64        // consumer's cached view of tail
	_          cpu.CacheLinePad
	tail       atomix.Uint64 // producer index
	cachedHead uint64        // producer's cached view of head
	_          cpu.CacheLinePad
	buffer     []atomic.Pointer[E]
	mask       uint64
	_          cpu.CacheLinePad
}

// NewSPSC creates a bounded SPSC queue.
// Capacity rounds up to the next power of 2. Panics if capacity < 2.
func NewSPSC[E any](capacity int) *SPSC[E] {
	if capacity < 2 {
		panic(msgBadCapacity)
	}

	n := uint64(roundToPow2(capacity))
	return &SPSC[E]{
		buffer: make([]atomic.Pointer[E], n),
		mask:   n - 1,
	}
}

// Offer adds an element (producer only). Returns false iff the queue is
// full. Panics if e is nil.
func (q *SPSC[E]) Offer(e *E) bool {
	if e == nil {
		panic(msgNilElement)
	}

	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return false
		}
	}

	q.buffer[tail&q.mask].Store(e)
	q.tail.StoreRelease(tail + 1)
	return true
}

// RelaxedOffer equals Offer: a single producer has nothing to relax.
func (q *SPSC[E]) RelaxedOffer(e *E) bool {
	return q.Offer(e)
}

// Poll removes and returns the next element (consumer only).
// Returns nil iff the queue is empty.
func (q *SPSC[E]) Poll() *E {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return nil
		}
	}

	slot := &q.buffer[head&q.mask]
	e := slot.Load()
	slot.Store(nil)
	q.head.StoreRelease(head + 1)
	return e
}

// RelaxedPoll equals Poll.
func (q *SPSC[E]) RelaxedPoll() *E {
	return q.Poll()
}

// Peek returns the next element without removing it (consumer only), or
// nil when the queue is empty.
func (q *SPSC[E]) Peek() *E {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return nil
		}
	}
	return q.buffer[head&q.mask].Load()
}

// RelaxedPeek is a single read of the slot at the consumer index.
func (q *SPSC[E]) RelaxedPeek() *E {
	return q.buffer[q.head.LoadRelaxed()&q.mask].Load()
}

// Size returns the number of queued elements, in [0, Capacity].
func (q *SPSC[E]) Size() int {
	after := q.head.LoadAcquire()
	for {
		before := after
		tail := q.tail.LoadAcquire()
		after = q.head.LoadAcquire()
		if before == after {
			return int(tail - after)
		}
	}
}

// IsEmpty conservatively reports emptiness.
func (q *SPSC[E]) IsEmpty() bool {
	head := q.head.LoadAcquire()
	return head == q.tail.LoadAcquire()
}

// Capacity returns the fixed queue capacity.
func (q *SPSC[E]) Capacity() int {
	return int(q.mask + 1)
}

// CurrentProducerIndex returns the count of completed offers.
func (q *SPSC[E]) CurrentProducerIndex() uint64 {
	return q.tail.LoadAcquire()
}

// CurrentConsumerIndex returns the count of completed polls.
func (q *SPSC[E]) CurrentConsumerIndex() uint64 {
	return q.head.LoadAcquire()
}

// Drain passes up to limit elements to c, stopping early when the queue
// runs empty. Returns the number delivered.
func (q *SPSC[E]) Drain(c Consumer[E], limit int) int {
	for i := 0; i < limit; i++ {
		e := q.Poll()
		if e == nil {
			return i
		}
		c(e)
	}
	return limit
}

// DrainAll drains up to one full capacity of elements.
func (q *SPSC[E]) DrainAll(c Consumer[E]) int {
	return q.Drain(c, int(q.mask+1))
}

// DrainUntil drains while exit keeps running, idling through wait when the
// queue is empty.
func (q *SPSC[E]) DrainUntil(c Consumer[E], wait WaitStrategy, exit ExitCondition) {
	idle := 0
	for exit() {
		e := q.Poll()
		if e == nil {
			idle = wait(idle)
			continue
		}
		idle = 0
		c(e)
	}
}

// Fill offers up to limit elements obtained from s, stopping early when
// the queue is full. The supplier is only invoked after room for its
// element is known, so no supplied element is ever discarded.
func (q *SPSC[E]) Fill(s Supplier[E], limit int) int {
	tail := q.tail.LoadRelaxed()
	for i := 0; i < limit; i++ {
		if tail-q.cachedHead > q.mask {
			q.cachedHead = q.head.LoadAcquire()
			if tail-q.cachedHead > q.mask {
				return i
			}
		}
		q.buffer[tail&q.mask].Store(s())
		tail++
		q.tail.StoreRelease(tail)
	}
	return limit
}

// FillAll fills in batches of 4096 until the queue is full, bounded at
// about 2^31 elements.
func (q *SPSC[E]) FillAll(s Supplier[E]) int {
	total := 0
	for {
		filled := q.Fill(s, fillDrainBatch)
		total += filled
		if filled < fillDrainBatch || total > math.MaxInt32-fillDrainBatch {
			return total
		}
	}
}

// FillUntil fills while exit keeps running, idling through wait whenever
// the queue is full.
func (q *SPSC[E]) FillUntil(s Supplier[E], wait WaitStrategy, exit ExitCondition) {
	idle := 0
	for exit() {
		if q.Fill(s, fillDrainBatch) == 0 {
			idle = wait(idle)
			continue
		}
		idle = 0
	}
}
