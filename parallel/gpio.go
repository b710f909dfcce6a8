// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package parallel

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

var errBusy = errors.New("parallel: transfer already in flight")

// GPIO is an Engine bit-banging the bus on a gpio.Group of 8 data lines plus
// the DC and WR control lines.
//
// Transfers run on their own goroutine, the way a DMA engine runs alongside
// the CPU.
type GPIO struct {
	data gpio.Group
	dc   gpio.PinOut
	wr   gpio.PinOut

	mu   sync.Mutex
	busy bool
}

// Levels driven on DC.
const (
	dcCommand = gpio.High
	dcData    = gpio.Low
	dcIdle    = gpio.Low
)

// NewGPIO returns an Engine on the pins. WR idles high, DC idles low.
func NewGPIO(data gpio.Group, dc, wr gpio.PinOut) (*GPIO, error) {
	if data == nil || dc == nil || wr == nil {
		return nil, errors.New("parallel: data group, dc and wr pins are required")
	}
	if n := len(data.Pins()); n < 8 {
		return nil, fmt.Errorf("parallel: data group has %d pins, need 8", n)
	}
	if err := wr.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("parallel: %w", err)
	}
	if err := dc.Out(dcIdle); err != nil {
		return nil, fmt.Errorf("parallel: %w", err)
	}
	return &GPIO{data: data, dc: dc, wr: wr}, nil
}

// Send implements Engine.
func (g *GPIO) Send(cmd uint8, buf *Buffer) (Transfer, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrTransfer)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return nil, fmt.Errorf("%w: %w", ErrTransfer, errBusy)
	}
	g.busy = true
	t := &gpioTransfer{g: g, buf: buf, done: make(chan struct{})}
	go t.run(cmd)
	return t, nil
}

// Halt releases the data group.
func (g *GPIO) Halt() error {
	return g.data.Halt()
}

func (g *GPIO) String() string {
	return fmt.Sprintf("parallel.GPIO{data: %s, dc: %s, wr: %s}", g.data, g.dc, g.wr)
}

// write puts v on the data lines and strobes WR. The panel samples on the
// rising edge.
func (g *GPIO) write(v byte) error {
	if err := g.wr.Out(gpio.Low); err != nil {
		return err
	}
	if err := g.data.Out(gpio.GPIOValue(v), 0xff); err != nil {
		return err
	}
	return g.wr.Out(gpio.High)
}

type gpioTransfer struct {
	g    *GPIO
	buf  *Buffer
	done chan struct{}
	err  error
}

func (t *gpioTransfer) run(cmd uint8) {
	defer close(t.done)
	defer func() {
		t.g.mu.Lock()
		t.g.busy = false
		t.g.mu.Unlock()
	}()
	defer func() {
		if err := t.g.dc.Out(dcIdle); t.err == nil {
			t.err = err
		}
	}()
	if t.err = t.g.dc.Out(dcCommand); t.err != nil {
		return
	}
	if t.err = t.g.write(cmd); t.err != nil {
		return
	}
	if t.err = t.g.dc.Out(dcData); t.err != nil {
		return
	}
	for _, v := range t.buf.Bytes() {
		if t.err = t.g.write(v); t.err != nil {
			return
		}
	}
}

// Wait implements Transfer.
func (t *gpioTransfer) Wait() (Engine, *Buffer, error) {
	<-t.done
	if t.err != nil {
		return t.g, t.buf, fmt.Errorf("%w: %w", ErrTransfer, t.err)
	}
	return t.g, t.buf, nil
}

var _ Engine = &GPIO{}
