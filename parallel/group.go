// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package parallel

import (
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"
)

// PinGroup is a gpio.Group over individual output pins, for hosts where the
// data lines cannot be set in a single operation.
//
// Bit 0 of a value goes to the first pin.
type PinGroup struct {
	pins []gpio.PinOut
}

// NewPinGroup returns a Group of pins, in order.
func NewPinGroup(pins ...gpio.PinOut) (*PinGroup, error) {
	if len(pins) == 0 || len(pins) > 64 {
		return nil, fmt.Errorf("parallel: invalid group size %d", len(pins))
	}
	for i, p := range pins {
		if p == nil {
			return nil, fmt.Errorf("parallel: pin %d is nil", i)
		}
	}
	return &PinGroup{pins: append([]gpio.PinOut(nil), pins...)}, nil
}

// Pins implements gpio.Group.
func (gr *PinGroup) Pins() []pin.Pin {
	result := make([]pin.Pin, len(gr.pins))
	for ix, p := range gr.pins {
		result[ix] = p
	}
	return result
}

// ByOffset implements gpio.Group.
func (gr *PinGroup) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(gr.pins) {
		return nil
	}
	return gr.pins[offset]
}

// ByName implements gpio.Group.
func (gr *PinGroup) ByName(name string) pin.Pin {
	for _, p := range gr.pins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// ByNumber implements gpio.Group.
func (gr *PinGroup) ByNumber(number int) pin.Pin {
	for _, p := range gr.pins {
		if p.Number() == number {
			return p
		}
	}
	return nil
}

// Out implements gpio.Group. A zero mask writes every pin.
func (gr *PinGroup) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = ^gpio.GPIOValue(0)
	}
	for ix, p := range gr.pins {
		bit := gpio.GPIOValue(1) << ix
		if mask&bit == 0 {
			continue
		}
		if err := p.Out(gpio.Level(value&bit != 0)); err != nil {
			return err
		}
	}
	return nil
}

// Read is not available on output pins.
func (gr *PinGroup) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	return 0, gpio.ErrGroupFeatureNotImplemented
}

// WaitForEdge is not available on output pins.
func (gr *PinGroup) WaitForEdge(timeout time.Duration) (int, gpio.Edge, error) {
	return 0, gpio.NoEdge, gpio.ErrGroupFeatureNotImplemented
}

// Halt halts every pin of the group.
func (gr *PinGroup) Halt() error {
	for _, p := range gr.pins {
		if err := p.Halt(); err != nil {
			return err
		}
	}
	return nil
}

func (gr *PinGroup) String() string {
	names := make([]string, len(gr.pins))
	for ix, p := range gr.pins {
		names[ix] = p.Name()
	}
	return "[" + strings.Join(names, " ") + "]"
}

var _ gpio.Group = &PinGroup{}
