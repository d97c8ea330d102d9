// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package mpq

// RaceEnabled is true when the race detector is active.
// Stress tests consult it to scale their volume down: the detector slows
// the hot loops by an order of magnitude.
const RaceEnabled = true
