// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mpq provides lock-free message-passing queues specialized by
// producer/consumer concurrency class.
//
// The package offers three queue variants behind one contract:
//
//   - MPMC: bounded Multi-Producer Multi-Consumer sequenced ring buffer
//   - MPSC: unbounded Multi-Producer Single-Consumer intrusive linked queue
//   - SPSC: bounded Single-Producer Single-Consumer Lamport ring buffer
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := mpq.NewMPMC[Event](1024)
//	q := mpq.NewMPSC[*Request]()
//	q := mpq.NewSPSC[Sample](4096)
//
// Builder API selects the variant from declared constraints:
//
//	q := mpq.Build[Event](mpq.New(1024).SingleProducer().SingleConsumer()) // → SPSC
//	q := mpq.Build[Event](mpq.New(0).SingleConsumer().Unbounded())         // → MPSC
//	q := mpq.Build[Event](mpq.New(1024))                                   // → MPMC
//
// # Basic Usage
//
// Elements are pointers; nil is the empty sentinel and may never be
// offered:
//
//	q := mpq.NewMPMC[int](1024)
//
//	v := 42
//	if !q.Offer(&v) {
//	    // Queue is full - handle backpressure
//	}
//
//	if e := q.Poll(); e != nil {
//	    process(*e)
//	}
//
// # Strict vs Relaxed
//
// Offer and Poll honor exact laws: Offer returns false iff the queue is
// full at the linearization point, Poll returns nil iff it is empty at the
// linearization point. The strict forms pay for this with an extra
// confirmation read of the opposing index (MPMC) or a bounded spin over a
// producer's linking gap (MPSC).
//
// RelaxedOffer, RelaxedPoll and RelaxedPeek drop those laws for
// throughput: under contention they may report full or empty spuriously.
// They never corrupt state and never lose an element, so callers that
// retry anyway (most bulk loops do) should prefer them:
//
//	backoff := iox.Backoff{}
//	for {
//	    if e := q.RelaxedPoll(); e != nil {
//	        backoff.Reset()
//	        process(*e)
//	        continue
//	    }
//	    backoff.Wait()
//	}
//
// # Bulk Operations
//
// Drain and Fill move batches without per-element call overhead:
//
//	n := q.Drain(func(e *Event) { handle(e) }, 256)
//
// The Until forms run open loops governed by a WaitStrategy for idling and
// an ExitCondition for termination:
//
//	var stop atomix.Bool
//	q.DrainUntil(
//	    func(e *Event) { handle(e) },
//	    mpq.Backing(),
//	    func() bool { return !stop.Load() },
//	)
//
// MPMC panics on Fill and FillAll: a failed offer inside the bulk would
// discard an element already obtained from the supplier. FillUntil is
// supported everywhere because it retries the same element until accepted.
//
// # Concurrency Contracts
//
//   - MPMC: any number of goroutines on both sides.
//   - MPSC: any number of offering goroutines, exactly one goroutine ever
//     calling Poll, Peek, Drain or their relaxed forms.
//   - SPSC: one goroutine per side.
//
// Violating these contracts causes undefined behavior including data
// corruption. The builder exists to make the declared contract explicit at
// construction time.
//
// # Progress Guarantees
//
// All operations are lock-free: a failed CAS always means another
// operation succeeded. The single unbounded-wait site is the strict MPSC
// Poll/Peek spin across a preempted producer's linking gap; RelaxedPoll
// never spins.
//
// # Race Detection
//
// The claim/release protocol runs on atomix cells, which the Go race
// detector cannot observe; element hand-off itself goes through typed
// atomic pointer cells the detector does track, so the tests stay clean
// under -race. Stress tests consult RaceEnabled to scale their volume
// down to detector speed.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic cells with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions, [code.hybscloud.com/iox] for adaptive backoff, and
// [golang.org/x/sys/cpu] for cache-line-sized padding.
package mpq
