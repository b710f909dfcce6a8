// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package cycles

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Monotonic is a Counter reading the runtime monotonic clock.
type Monotonic struct {
	start time.Time
	f     physic.Frequency
}

// NewMonotonic returns a Counter ticking at f.
func NewMonotonic(f physic.Frequency) (*Monotonic, error) {
	if f <= 0 {
		return nil, fmt.Errorf("cycles: invalid frequency %s", f)
	}
	return &Monotonic{start: time.Now(), f: f}, nil
}

// Cycles implements Counter.
func (m *Monotonic) Cycles() uint64 {
	return elapsed(time.Since(m.start), m.f)
}

// Frequency implements Counter.
func (m *Monotonic) Frequency() physic.Frequency {
	return m.f
}

func (m *Monotonic) String() string {
	return fmt.Sprintf("cycles.Monotonic{%s}", m.f)
}

var _ Counter = &Monotonic{}
