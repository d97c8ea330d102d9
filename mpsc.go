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

// MPSC is an unbounded multi-producer single-consumer queue over an
// intrusive linked list.
//
// Producers append by atomically exchanging the producer node reference,
// then linking the previous tail to the new node. The exchange is the
// linearization point: no two producers can obtain the same previous node,
// so elements are delivered in exchange order. Between the exchange and
// the link store the chain is momentarily disconnected; a strict Poll or
// Peek that reaches the gap spins on the missing link, bounded by the
// winning producer's reschedule latency. RelaxedPoll and RelaxedPeek
// report empty instead of spinning.
//
// The node at the consumer reference is a movable stub whose value is
// always nil; each poll adopts the next node as the new stub and extracts
// its value, so drained nodes become unreachable one poll later.
//
// At most one goroutine may call Poll, Peek, Drain or their relaxed forms.
type MPSC[E any] struct {
	_            cpu.CacheLinePad
	producerNode atomic.Pointer[mpscNode[E]] // tail: last appended node
	_            cpu.CacheLinePad
	offered      atomix.Uint64
	_            cpu.CacheLinePad
	consumerNode atomic.Pointer[mpscNode[E]] // stub: value always nil
	_            cpu.CacheLinePad
	polled       atomix.Uint64
	_            cpu.CacheLinePad
}

type mpscNode[E any] struct {
	value *E
	next  atomic.Pointer[mpscNode[E]]
}

// NewMPSC creates an unbounded MPSC queue.
func NewMPSC[E any]() *MPSC[E] {
	q := &MPSC[E]{}
	stub := &mpscNode[E]{}
	q.producerNode.Store(stub)
	q.consumerNode.Store(stub)
	return q
}

// Offer appends an element (multiple producers safe, wait-free per
// producer). Always returns true. Panics if e is nil.
func (q *MPSC[E]) Offer(e *E) bool {
	if e == nil {
		panic(msgNilElement)
	}

	n := &mpscNode[E]{value: e}
	prev := q.producerNode.Swap(n)
	// A producer preempted here leaves the chain broken until it resumes;
	// strict polls spin on prev.next for exactly this window.
	prev.next.Store(n)
	q.offered.AddAcqRel(1)
	return true
}

// RelaxedOffer equals Offer: beyond the exchange there is nothing to relax.
func (q *MPSC[E]) RelaxedOffer(e *E) bool {
	return q.Offer(e)
}

// Poll removes and returns the next element (single consumer only).
// Returns nil iff the queue is empty: when the next link is missing but
// the producer node has moved on, Poll spins until the winning producer
// completes its link store.
func (q *MPSC[E]) Poll() *E {
	curr := q.consumerNode.Load()
	next := curr.next.Load()
	if next == nil {
		if curr == q.producerNode.Load() {
			return nil
		}
		next = q.spinForNext(curr)
	}

	e := next.value
	next.value = nil
	q.consumerNode.Store(next)
	q.bumpPolled()
	return e
}

// RelaxedPoll is Poll without the linking-gap spin: a missing next link
// reports empty even when an offer is mid-flight.
func (q *MPSC[E]) RelaxedPoll() *E {
	curr := q.consumerNode.Load()
	next := curr.next.Load()
	if next == nil {
		return nil
	}

	e := next.value
	next.value = nil
	q.consumerNode.Store(next)
	q.bumpPolled()
	return e
}

// Peek returns the next element without removing it (single consumer
// only). Same empty and spin rules as Poll.
func (q *MPSC[E]) Peek() *E {
	curr := q.consumerNode.Load()
	next := curr.next.Load()
	if next == nil {
		if curr == q.producerNode.Load() {
			return nil
		}
		next = q.spinForNext(curr)
	}
	return next.value
}

// RelaxedPeek is Peek without the linking-gap spin.
func (q *MPSC[E]) RelaxedPeek() *E {
	next := q.consumerNode.Load().next.Load()
	if next == nil {
		return nil
	}
	return next.value
}

// spinForNext waits out a producer that won the exchange on curr but has
// not yet stored the link. The wait is bounded by that producer's
// reschedule latency; this is the one unbounded-wait site in the package.
func (q *MPSC[E]) spinForNext(curr *mpscNode[E]) *mpscNode[E] {
	sw := spin.Wait{}
	for {
		if next := curr.next.Load(); next != nil {
			return next
		}
		sw.Once()
	}
}

func (q *MPSC[E]) bumpPolled() {
	q.polled.StoreRelease(q.polled.LoadRelaxed() + 1)
}

// Size counts the chain from the consumer stub, saturating at MaxInt32.
// Concurrent offers may or may not be counted.
func (q *MPSC[E]) Size() int {
	size := 0
	n := q.consumerNode.Load().next.Load()
	for n != nil && size < math.MaxInt32 {
		size++
		n = n.next.Load()
	}
	return size
}

// IsEmpty conservatively reports emptiness: the next link is read before
// the producer node, so a mid-link offer keeps the result false.
func (q *MPSC[E]) IsEmpty() bool {
	curr := q.consumerNode.Load()
	return curr.next.Load() == nil && curr == q.producerNode.Load()
}

// Capacity returns CapacityUnbounded.
func (q *MPSC[E]) Capacity() int {
	return CapacityUnbounded
}

// CurrentProducerIndex returns the number of completed offers.
func (q *MPSC[E]) CurrentProducerIndex() uint64 {
	return q.offered.LoadAcquire()
}

// CurrentConsumerIndex returns the number of completed polls.
func (q *MPSC[E]) CurrentConsumerIndex() uint64 {
	return q.polled.LoadAcquire()
}

// Drain advances a cursor through up to limit linked nodes, extracting
// each value and handing it to c. The cursor is written back into the
// consumer reference after every accepted element, so external observers
// see monotonic progress. Stops early on a missing link.
func (q *MPSC[E]) Drain(c Consumer[E], limit int) int {
	chaser := q.consumerNode.Load()
	for i := 0; i < limit; i++ {
		next := chaser.next.Load()
		if next == nil {
			return i
		}
		chaser = next
		e := chaser.value
		chaser.value = nil
		q.consumerNode.Store(chaser)
		q.bumpPolled()
		c(e)
	}
	return limit
}

// DrainAll drains in batches of 4096 until a batch comes up short,
// bounded at about 2^31 elements in total.
func (q *MPSC[E]) DrainAll(c Consumer[E]) int {
	total := 0
	for {
		drained := q.Drain(c, fillDrainBatch)
		total += drained
		if drained < fillDrainBatch || total > math.MaxInt32-fillDrainBatch {
			return total
		}
	}
}

// DrainUntil drains while exit keeps running, idling through wait on every
// missing link, in sweeps of 4096 steps between exit checks.
func (q *MPSC[E]) DrainUntil(c Consumer[E], wait WaitStrategy, exit ExitCondition) {
	idle := 0
	chaser := q.consumerNode.Load()
	for exit() {
		for i := 0; i < fillDrainBatch; i++ {
			next := chaser.next.Load()
			if next == nil {
				idle = wait(idle)
				continue
			}
			chaser = next
			idle = 0
			e := chaser.value
			chaser.value = nil
			q.consumerNode.Store(chaser)
			q.bumpPolled()
			c(e)
		}
	}
}

// Fill offers limit elements obtained from s. Offers on an unbounded
// queue always succeed, so the return value is always limit.
func (q *MPSC[E]) Fill(s Supplier[E], limit int) int {
	for i := 0; i < limit; i++ {
		q.Offer(s())
	}
	return limit
}

// FillAll fills in batches of 4096, bounded at about 2^31 elements.
// Callers that want a running producer loop should use FillUntil.
func (q *MPSC[E]) FillAll(s Supplier[E]) int {
	total := 0
	for {
		total += q.Fill(s, fillDrainBatch)
		if total > math.MaxInt32-fillDrainBatch {
			return total
		}
	}
}

// FillUntil fills in batches of 4096 while exit keeps running. The wait
// strategy is never consulted: offers on an unbounded queue cannot fail.
func (q *MPSC[E]) FillUntil(s Supplier[E], wait WaitStrategy, exit ExitCondition) {
	for exit() {
		q.Fill(s, fillDrainBatch)
	}
}

// fillDrainBatch bounds the work done between exit-condition checks in the
// unbounded bulk loops.
const fillDrainBatch = 4096
