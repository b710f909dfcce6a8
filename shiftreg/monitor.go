// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package shiftreg

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Monitor is a virtual shift register. It exposes the data, clock and latch
// lines as gpio.PinOut and decodes what is written to them back into words.
//
// Use it for dry runs without hardware, or to check what a Bus user put on
// the wire.
type Monitor struct {
	mu      sync.Mutex
	bits    int
	mask    gpio.GPIOValue
	levels  [3]gpio.Level
	shift   gpio.GPIOValue
	clocked int
	words   []gpio.GPIOValue
	onLatch func(v gpio.GPIOValue)
	pins    [3]Pin
}

const (
	lineData = iota
	lineClock
	lineLatch
)

// NewMonitor returns a Monitor for a register of the given width. onLatch,
// when not nil, is called with every latched word, outside of the monitor
// lock.
func NewMonitor(bits int, onLatch func(v gpio.GPIOValue)) (*Monitor, error) {
	if bits <= 0 || bits > 64 {
		return nil, fmt.Errorf("shiftreg: invalid register width %d", bits)
	}
	m := &Monitor{bits: bits, mask: ^gpio.GPIOValue(0) >> (64 - bits), onLatch: onLatch}
	for i, name := range [...]string{"DATA", "CLK", "STR"} {
		m.pins[i] = Pin{dev: m, line: i, name: "MON_" + name}
	}
	// Same idle levels as NewBus.
	m.levels = [3]gpio.Level{gpio.High, gpio.High, gpio.Low}
	return m, nil
}

// Data returns the serial data input.
func (m *Monitor) Data() gpio.PinOut { return &m.pins[lineData] }

// Clock returns the shift clock input.
func (m *Monitor) Clock() gpio.PinOut { return &m.pins[lineClock] }

// Latch returns the storage register clock input.
func (m *Monitor) Latch() gpio.PinOut { return &m.pins[lineLatch] }

// Words returns a copy of every word latched so far.
func (m *Monitor) Words() []gpio.GPIOValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gpio.GPIOValue(nil), m.words...)
}

// Clocked returns the number of rising clock edges seen since the last latch.
func (m *Monitor) Clocked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clocked
}

// Reset forgets the latched words.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words = nil
}

func (m *Monitor) String() string {
	return fmt.Sprintf("shiftreg.Monitor{%d bits}", m.bits)
}

func (m *Monitor) set(line int, l gpio.Level) {
	m.mu.Lock()
	prev := m.levels[line]
	m.levels[line] = l
	rising := bool(!prev && l)
	var latched bool
	var v gpio.GPIOValue
	switch {
	case line == lineClock && rising:
		m.shift = (m.shift << 1) & m.mask
		if m.levels[lineData] {
			m.shift |= 1
		}
		m.clocked++
	case line == lineLatch && rising:
		v = m.shift
		m.words = append(m.words, v)
		m.clocked = 0
		latched = true
	}
	cb := m.onLatch
	m.mu.Unlock()
	if latched && cb != nil {
		cb(v)
	}
}

// Pin is one input line of a Monitor.
type Pin struct {
	dev  *Monitor
	line int
	name string
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns the name of the line.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the line index: 0 data, 1 clock, 2 latch.
func (p *Pin) Number() int {
	return p.line
}

// Deprecated: returns "Out"
func (p *Pin) Function() string {
	return "Out"
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.dev.set(p.line, l)
	return nil
}

// PWM is not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return gpio.ErrGroupFeatureNotImplemented
}

func (p *Pin) String() string {
	return p.name
}

var _ gpio.PinOut = &Pin{}
