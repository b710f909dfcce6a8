// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cycles provides monotonic cycle counters and the busy-wait delay
// built on them.
//
// Panel timings are expressed as a number of CPU cycles. On a host without a
// readable cycle counter, a Counter derives cycles from a monotonic clock and
// a nominal frequency.
package cycles

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Counter is a monotonically increasing tick counter.
//
// Reading it must have no side effect.
type Counter interface {
	// Cycles returns the current count.
	Cycles() uint64
	// Frequency returns the rate at which Cycles increases.
	Frequency() physic.Frequency
}

// Delay spins until n cycles have elapsed on c. It never yields.
func Delay(c Counter, n uint64) {
	target := c.Cycles() + n
	for c.Cycles() < target {
	}
}

// Micros converts a duration in microseconds to cycles of c.
func Micros(c Counter, us uint64) uint64 {
	return us * uint64(c.Frequency()/physic.MegaHertz)
}

// FromDuration converts d to cycles of c, rounding down.
func FromDuration(c Counter, d time.Duration) uint64 {
	return elapsed(d, c.Frequency())
}
