// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package shiftreg drives serial-in parallel-out shift registers, like the
// 74HC595 found on e-paper driver boards, by bit-banging three GPIO lines:
// data, clock and latch (storage register clock, sometimes named STR or
// RCLK).
//
// A transaction pulls the latch line low, clocks every bit in most
// significant bit first, then raises the latch line to move the shifted bits
// to the outputs in one step.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
package shiftreg

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

var (
	ErrReadNotSupported = errors.New("shiftreg: read not supported")
	ErrHalted           = errors.New("shiftreg: bus halted")
)

// Bus is a 3-wire bit-banged shift register bus.
//
// It implements conn.Conn so it can be used wherever an SPI connection to a
// shift register would be.
type Bus struct {
	mu    sync.Mutex
	data  gpio.PinOut
	clk   gpio.PinOut
	latch gpio.PinOut
}

// NewBus returns a Bus on the three pins. Data and clock idle high, latch
// idles low.
func NewBus(data, clk, latch gpio.PinOut) (*Bus, error) {
	if data == nil || clk == nil || latch == nil {
		return nil, errors.New("shiftreg: data, clock and latch pins are required")
	}
	b := &Bus{data: data, clk: clk, latch: latch}
	if err := data.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("shiftreg: %w", err)
	}
	if err := clk.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("shiftreg: %w", err)
	}
	if err := latch.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("shiftreg: %w", err)
	}
	return b, nil
}

// Tx implements conn.Conn.
//
// All of w is shifted out inside a single latch window, so chained registers
// update together. The whole transaction holds the bus lock; a partially
// shifted word is never interleaved with another one.
func (b *Bus) Tx(w, r []byte) error {
	if len(r) != 0 {
		return ErrReadNotSupported
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return ErrHalted
	}
	if err := b.latch.Out(gpio.Low); err != nil {
		return fmt.Errorf("shiftreg: latch: %w", err)
	}
	for _, v := range w {
		for bit := 7; bit >= 0; bit-- {
			if err := b.shiftBit(v&(1<<bit) != 0); err != nil {
				return err
			}
		}
	}
	if err := b.latch.Out(gpio.High); err != nil {
		return fmt.Errorf("shiftreg: latch: %w", err)
	}
	return nil
}

// shiftBit clocks one bit in. The register samples data on the rising clock
// edge.
func (b *Bus) shiftBit(v bool) error {
	if err := b.clk.Out(gpio.Low); err != nil {
		return fmt.Errorf("shiftreg: clock: %w", err)
	}
	if err := b.data.Out(gpio.Level(v)); err != nil {
		return fmt.Errorf("shiftreg: data: %w", err)
	}
	if err := b.clk.Out(gpio.High); err != nil {
		return fmt.Errorf("shiftreg: clock: %w", err)
	}
	return nil
}

// Duplex implements conn.Conn.
func (b *Bus) Duplex() conn.Duplex {
	return conn.Half
}

// Halt releases the pins. Further Tx calls fail.
func (b *Bus) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data, b.clk, b.latch = nil, nil, nil
	return nil
}

func (b *Bus) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return "shiftreg.Bus{halted}"
	}
	return fmt.Sprintf("shiftreg.Bus{data: %s, clk: %s, latch: %s}", b.data, b.clk, b.latch)
}

var _ conn.Conn = &Bus{}
