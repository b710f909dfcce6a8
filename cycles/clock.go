// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cycles

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/physic"
)

// Clock is a Counter derived from a clockwork.Clock.
//
// It counts the cycles a core running at the nominal frequency would have
// executed since the Clock was created.
type Clock struct {
	clk   clockwork.Clock
	start time.Time
	f     physic.Frequency
}

// NewClock returns a Counter ticking at f on clk. A nil clk uses the real
// clock.
func NewClock(clk clockwork.Clock, f physic.Frequency) (*Clock, error) {
	if f <= 0 {
		return nil, fmt.Errorf("cycles: invalid frequency %s", f)
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Clock{clk: clk, start: clk.Now(), f: f}, nil
}

// Cycles implements Counter.
func (c *Clock) Cycles() uint64 {
	return elapsed(c.clk.Since(c.start), c.f)
}

// Frequency implements Counter.
func (c *Clock) Frequency() physic.Frequency {
	return c.f
}

func (c *Clock) String() string {
	return fmt.Sprintf("cycles.Clock{%s}", c.f)
}

// elapsed converts d to cycles at f without overflowing for durations up to
// several days at GHz rates.
func elapsed(d time.Duration, f physic.Frequency) uint64 {
	if d <= 0 {
		return 0
	}
	hz := uint64(f / physic.Hertz)
	sec := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return sec*hz + rem*hz/uint64(time.Second)
}

var _ Counter = &Clock{}
