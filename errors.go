// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpq

// Two kinds of conditions surface from queue operations.
//
// Programming errors panic eagerly and are never retried:
//
//   - offering a nil element
//   - constructing a bounded queue with capacity < 2
//   - calling a Fill form that MPMC cannot support
//
// Transient full/empty is never an error: Offer returns false, Poll and
// Peek return nil, and the caller retries as appropriate. Nothing inside
// the CAS loops ever propagates a failure.
const (
	msgNilElement      = "mpq: nil element"
	msgBadCapacity     = "mpq: capacity must be >= 2"
	msgUnsupportedFill = "mpq: fill with supplier unsupported on MPMC, use FillUntil"
)
