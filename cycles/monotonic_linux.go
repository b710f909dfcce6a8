// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cycles

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/physic"
)

// Monotonic is a Counter reading CLOCK_MONOTONIC_RAW, which is not slewed by
// NTP and is the closest thing to a cycle counter user space can read.
type Monotonic struct {
	start time.Duration
	f     physic.Frequency
}

// NewMonotonic returns a Counter ticking at f.
func NewMonotonic(f physic.Frequency) (*Monotonic, error) {
	if f <= 0 {
		return nil, fmt.Errorf("cycles: invalid frequency %s", f)
	}
	now, err := monotonicRaw()
	if err != nil {
		return nil, err
	}
	return &Monotonic{start: now, f: f}, nil
}

// Cycles implements Counter.
func (m *Monotonic) Cycles() uint64 {
	now, err := monotonicRaw()
	if err != nil {
		// Unreachable: the clock was readable in NewMonotonic.
		panic(err)
	}
	return elapsed(now-m.start, m.f)
}

// Frequency implements Counter.
func (m *Monotonic) Frequency() physic.Frequency {
	return m.f
}

func (m *Monotonic) String() string {
	return fmt.Sprintf("cycles.Monotonic{%s}", m.f)
}

func monotonicRaw() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0, fmt.Errorf("cycles: clock_gettime: %w", err)
	}
	return time.Duration(ts.Nano()), nil
}

var _ Counter = &Monotonic{}
