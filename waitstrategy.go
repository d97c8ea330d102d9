// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpq

import (
	"runtime"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// Spinning returns a WaitStrategy that burns CPU pause instructions.
// Lowest latency; appropriate when a dedicated core is available.
// The returned strategy carries state and must not be shared across
// goroutines.
func Spinning() WaitStrategy {
	sw := &spin.Wait{}
	return func(idleCount int) int {
		if idleCount == 0 {
			sw.Reset()
		}
		sw.Once()
		return idleCount + 1
	}
}

// Backing returns a WaitStrategy with adaptive backoff: short idle streaks
// spin, long ones progressively yield the processor. The returned strategy
// carries state and must not be shared across goroutines.
func Backing() WaitStrategy {
	backoff := &iox.Backoff{}
	return func(idleCount int) int {
		if idleCount == 0 {
			backoff.Reset()
		}
		backoff.Wait()
		return idleCount + 1
	}
}

// Yielding returns a WaitStrategy that hands the processor to the Go
// scheduler on every idle observation. Stateless and shareable.
func Yielding() WaitStrategy {
	return func(idleCount int) int {
		runtime.Gosched()
		return idleCount + 1
	}
}

// Forever returns an ExitCondition that never stops. Combine with an
// application flag for a stoppable loop:
//
//	var stop atomix.Bool
//	q.DrainUntil(handle, mpq.Backing(), func() bool { return !stop.Load() })
func Forever() ExitCondition {
	return func() bool { return true }
}
