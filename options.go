// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpq

import "unsafe"

// Options configures queue creation and variant selection.
type Options struct {
	// Producer/Consumer constraints (determines queue variant)
	singleProducer bool
	singleConsumer bool

	// Unbounded selects the linked MPSC queue instead of a ring
	unbounded bool

	// Capacity (rounds up to next power of 2; ignored when unbounded)
	capacity int
}

// Builder creates queues with fluent configuration.
//
// The builder selects the variant from the declared producer/consumer
// constraints and the bounded/unbounded axis:
//
//	q := mpq.Build[Event](mpq.New(1024).SingleProducer().SingleConsumer()) // → SPSC
//	q := mpq.Build[Event](mpq.New(0).SingleConsumer().Unbounded())         // → MPSC
//	q := mpq.Build[Event](mpq.New(4096))                                   // → MPMC
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2 and is ignored by Unbounded()
// queues. Bounded construction panics if capacity < 2.
func New(capacity int) *Builder {
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will offer.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will poll.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Unbounded selects the linked queue with no capacity bound.
// Requires SingleConsumer: the linked algorithm is MPSC.
func (b *Builder) Unbounded() *Builder {
	b.opts.unbounded = true
	return b
}

// Build creates a MessagePassingQueue with automatic variant selection.
//
// Variant selection:
//
//	Unbounded + SingleConsumer      → MPSC (intrusive linked queue)
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	otherwise                       → MPMC (sequenced ring buffer)
//
// Panics if Unbounded() is requested without SingleConsumer(): there is no
// unbounded multi-consumer algorithm in this library.
func Build[E any](b *Builder) MessagePassingQueue[E] {
	switch {
	case b.opts.unbounded && b.opts.singleConsumer:
		return NewMPSC[E]()
	case b.opts.unbounded:
		panic("mpq: Unbounded requires SingleConsumer")
	case b.opts.singleProducer && b.opts.singleConsumer:
		return NewSPSC[E](b.opts.capacity)
	default:
		return NewMPMC[E](b.opts.capacity)
	}
}

// BuildSPSC creates an SPSC queue with compile-time type safety.
// Panics if the builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSC[E any](b *Builder) *SPSC[E] {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("mpq: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	return NewSPSC[E](b.opts.capacity)
}

// BuildMPSC creates an unbounded MPSC queue with compile-time type safety.
// Panics if the builder is not configured with SingleConsumer() only.
func BuildMPSC[E any](b *Builder) *MPSC[E] {
	if b.opts.singleProducer || !b.opts.singleConsumer {
		panic("mpq: BuildMPSC requires SingleConsumer() without SingleProducer()")
	}
	return NewMPSC[E]()
}

// BuildMPMC creates an MPMC queue with compile-time type safety.
// Panics if the builder has any constraints set.
func BuildMPMC[E any](b *Builder) *MPMC[E] {
	if b.opts.singleProducer || b.opts.singleConsumer || b.opts.unbounded {
		panic("mpq: BuildMPMC requires no constraints")
	}
	return NewMPMC[E](b.opts.capacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
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

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// slotPad fills a ring slot out to a full 64-byte line after its sequence
// cell and element pointer, so neighboring slots never share a line.
type slotPad [64 - 8 - ptrSize]byte
