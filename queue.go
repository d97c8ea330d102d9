// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpq

// CapacityUnbounded is returned by Capacity on queues without a bound.
const CapacityUnbounded = -1

// MessagePassingQueue is the uniform contract shared by every queue variant.
//
// Elements are pointers; nil is the empty sentinel returned by Poll and Peek
// to signal absence. Offering nil is a programming error and panics.
//
// Strict operations honor exact full/empty laws:
//
//   - Offer returns false iff the queue is full at the linearization point.
//   - Poll returns nil iff the queue is empty at the linearization point.
//
// Relaxed operations may report full or empty spuriously under contention
// but never corrupt state and never lose an element. They are the faster
// path for callers that retry anyway.
//
// Example:
//
//	q := mpq.NewMPMC[int](1024)
//
//	v := 42
//	if !q.Offer(&v) {
//	    // queue full - handle backpressure
//	}
//
//	if e := q.Poll(); e != nil {
//	    fmt.Println(*e)
//	}
type MessagePassingQueue[E any] interface {
	// Offer adds an element to the queue (non-blocking).
	// Returns false iff the queue is full at the linearization point.
	// Panics if e is nil.
	Offer(e *E) bool

	// RelaxedOffer is Offer without the exact-full guarantee: it may return
	// false under contention even when the queue briefly holds fewer than
	// Capacity elements. Panics if e is nil.
	RelaxedOffer(e *E) bool

	// Poll removes and returns the next element, or nil iff the queue is
	// empty at the linearization point.
	Poll() *E

	// RelaxedPoll is Poll without the exact-empty guarantee: it may return
	// nil under contention even when elements are mid-flight.
	RelaxedPoll() *E

	// Peek returns the next element without removing it, or nil when the
	// queue is empty. The returned element may already be taken by another
	// consumer by the time the caller acts on it.
	Peek() *E

	// RelaxedPeek is a single unsynchronized read of the next slot. It may
	// return nil on a non-empty queue.
	RelaxedPeek() *E

	// Size returns the number of queued elements. The value is computed
	// from racing index reads and may overestimate under contention, but is
	// always within [0, Capacity] for bounded queues and never negative.
	Size() int

	// IsEmpty conservatively reports whether the queue is empty. The
	// consumer index is read before the producer index, so concurrent
	// offers can only make a true result stale, never a false one invalid.
	IsEmpty() bool

	// Capacity returns the fixed capacity of a bounded queue, or
	// CapacityUnbounded.
	Capacity() int

	// CurrentProducerIndex returns the number of elements offered so far.
	// Monotone; intended for progress monitoring and tests.
	CurrentProducerIndex() uint64

	// CurrentConsumerIndex returns the number of elements polled so far.
	// Monotone; intended for progress monitoring and tests.
	CurrentConsumerIndex() uint64

	// Drain passes up to limit elements to c using relaxed polls, stopping
	// early on the first empty result. Returns the number delivered.
	Drain(c Consumer[E], limit int) int

	// DrainAll drains until the queue reports empty. On bounded queues one
	// pass over the capacity; on unbounded queues batches of 4096 bounded
	// at about 2^31 elements in total.
	DrainAll(c Consumer[E]) int

	// DrainUntil drains for as long as exit keeps running, idling through
	// wait whenever a relaxed poll comes back empty.
	DrainUntil(c Consumer[E], wait WaitStrategy, exit ExitCondition)

	// Fill offers up to limit elements obtained from s. Returns the number
	// accepted. Panics on MPMC queues: a failed offer inside the bulk would
	// discard an element already obtained from the supplier.
	Fill(s Supplier[E], limit int) int

	// FillAll fills in batches of 4096 bounded at about 2^31 elements.
	// Panics on MPMC queues.
	FillAll(s Supplier[E]) int

	// FillUntil obtains one element at a time from s and retries a relaxed
	// offer under the idle strategy until it is accepted, for as long as
	// exit keeps running. Supported on every variant: the element is not
	// discarded on a failed offer.
	FillUntil(s Supplier[E], wait WaitStrategy, exit ExitCondition)
}

// Consumer receives elements from bulk drain operations.
type Consumer[E any] func(e *E)

// Supplier produces elements for bulk fill operations.
// Must not return nil.
type Supplier[E any] func() *E

// WaitStrategy decides how to idle between unsuccessful relaxed operations
// in DrainUntil/FillUntil. It receives the current idle streak counter and
// returns the next one; a successful operation resets the counter to zero.
type WaitStrategy func(idleCount int) int

// ExitCondition is consulted between iterations of DrainUntil/FillUntil;
// the loop stops when it returns false.
type ExitCondition func() bool
