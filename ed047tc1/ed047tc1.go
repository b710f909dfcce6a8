// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ed047tc1

import (
	"errors"
	"fmt"
	"image"

	"github.com/GermanBionicSystems/epd47/cycles"
	"github.com/GermanBionicSystems/epd47/parallel"
	"github.com/GermanBionicSystems/epd47/pulse"
	"github.com/GermanBionicSystems/epd47/shiftreg"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

var (
	// ErrResourceMissing means the row buffer, the bus engine or the pulse
	// channel was not held by the driver when it had to be. It points at a
	// sequencing bug.
	ErrResourceMissing = errors.New("ed047tc1: resource missing")
	// ErrRowTooLong is returned by SetBuffer when data exceeds a row.
	ErrRowTooLong = errors.New("ed047tc1: row data too long")
	// ErrControlWord is returned when writing the control shift register
	// failed.
	ErrControlWord = errors.New("ed047tc1: control word write failed")
)

// rowCommand is the command byte sent ahead of every row.
const rowCommand = 0

// Delays of the power sequences, in microseconds.
const (
	delayPowerOn    = 100
	delayNegRail    = 500
	delayPosRail    = 100
	delayPowerOff   = 10
	delayNegRailOff = 100
)

// Opts defines the panel geometry.
type Opts struct {
	Width  int
	Height int
	// RowBytes is the size of one row on the parallel bus.
	RowBytes int
	// Pulse is the pulse channel profile.
	Pulse pulse.Config
}

// ED047TC1 is the LilyGo T5 4.7" panel: 960x540 at 2 bits per pixel on the
// bus.
var ED047TC1 = Opts{
	Width:    960,
	Height:   540,
	RowBytes: 240,
	Pulse:    pulse.DefaultConfig,
}

// Dev is a handle to the panel.
type Dev struct {
	cfg     configWriter
	pulse   *pulse.Transmitter
	counter cycles.Counter
	opts    Opts

	// Lent to the engine while a row is on the bus.
	engine parallel.Engine
	buf    *parallel.Buffer
}

// New returns a Dev driving the control shift register on data, clk and str,
// the row data through eng and the row strobes through p. c times the power
// sequences.
//
// The default control word is written once.
func New(data, clk, str gpio.PinOut, eng parallel.Engine, p pulse.Peripheral, c cycles.Counter, opts *Opts) (*Dev, error) {
	if eng == nil || p == nil || c == nil {
		return nil, errors.New("ed047tc1: engine, pulse peripheral and counter are required")
	}
	if opts == nil {
		return nil, errors.New("ed047tc1: opts are required")
	}
	if opts.RowBytes <= 0 {
		return nil, fmt.Errorf("ed047tc1: invalid row size %d", opts.RowBytes)
	}
	bus, err := shiftreg.NewBus(data, clk, str)
	if err != nil {
		return nil, err
	}
	buf, err := parallel.NewBuffer(opts.RowBytes)
	if err != nil {
		return nil, err
	}
	d := &Dev{
		cfg:     configWriter{bus: bus, word: DefaultControlWord},
		pulse:   pulse.NewTransmitter(p, opts.Pulse),
		counter: c,
		opts:    *opts,
		engine:  eng,
		buf:     buf,
	}
	d.cfg.write()
	if err := d.cfg.err; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrControlWord, err)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ed047tc1.Dev{%s, %dx%d}", d.cfg.bus, d.opts.Width, d.opts.Height)
}

// Bounds returns the panel size in pixels.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Config returns the control word as last set.
func (d *Dev) Config() ControlWord {
	return d.cfg.word
}

// Err returns the first control shift register failure, if any.
//
// PowerOn, PowerOff and LatchRow do not return errors; once a write failed
// the register is not written again and fallible operations return
// ErrControlWord.
func (d *Dev) Err() error {
	if d.cfg.err != nil {
		return fmt.Errorf("%w: %w", ErrControlWord, d.cfg.err)
	}
	return nil
}

// Halt powers the panel off.
func (d *Dev) Halt() error {
	d.PowerOff()
	return d.Err()
}

// PowerOn enables the panel rails: logic first, then the negative rail, then
// the positive one.
func (d *Dev) PowerOn() {
	d.cfg.word.PowerEnable = true
	d.cfg.word.PowerDisable = false
	d.cfg.write()
	d.delay(delayPowerOn)
	d.cfg.word.NegPowerEnable = true
	d.cfg.write()
	d.delay(delayNegRail)
	d.cfg.word.PosPowerEnable = true
	d.cfg.write()
	d.delay(delayPosRail)
	d.cfg.word.STV = true
	d.cfg.write()
}

// PowerOff disables the rails in the reverse order of PowerOn.
func (d *Dev) PowerOff() {
	d.cfg.word.PowerEnable = false
	d.cfg.word.PosPowerEnable = false
	d.cfg.write()
	d.delay(delayPowerOff)
	d.cfg.word.NegPowerEnable = false
	d.cfg.write()
	d.delay(delayNegRailOff)
	// PowerDisable and Mode reach the register together with STV.
	d.cfg.word.PowerDisable = true
	d.cfg.word.Mode = false
	d.cfg.word.STV = false
	d.cfg.write()
}

// FrameStart starts a refresh: it pulses STV and clocks the gate driver to
// the first row.
func (d *Dev) FrameStart() error {
	d.cfg.word.Mode = true
	d.cfg.write()
	if err := d.strobe(10, 10, true); err != nil {
		return err
	}

	d.cfg.word.STV = false
	d.cfg.write()
	if err := d.strobe(10000, 1000, false); err != nil {
		return err
	}
	d.cfg.word.STV = true
	d.cfg.write()
	for range 4 {
		if err := d.strobe(10, 10, true); err != nil {
			return err
		}
	}

	d.cfg.word.OutputEnable = true
	d.cfg.write()
	return d.strobe(10, 10, true)
}

// LatchRow latches the row previously clocked into the source drivers.
func (d *Dev) LatchRow() {
	d.cfg.word.LatchEnable = true
	d.cfg.write()
	d.cfg.word.LatchEnable = false
	d.cfg.write()
}

// Skip advances the scan by one row without driving it.
func (d *Dev) Skip() error {
	return d.strobe(45, 5, false)
}

// SetBuffer loads the next row. The row buffer is zeroed and data copied at
// its start. Data longer than a row is rejected.
func (d *Dev) SetBuffer(data []byte) error {
	buf := d.buf
	if buf == nil {
		return fmt.Errorf("%w: row buffer", ErrResourceMissing)
	}
	d.buf = nil
	err := buf.Fill(data)
	d.buf = buf
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRowTooLong, err)
	}
	return nil
}

// OutputRow latches the previous row, drives it for outputTime ticks and
// sends the row buffer on the bus. It returns once the transfer completed.
//
// The engine and the row buffer are back in the driver when OutputRow
// returns, whether it succeeded or not.
func (d *Dev) OutputRow(outputTime uint16) error {
	d.LatchRow()
	if err := d.strobe(outputTime, 50, false); err != nil {
		return err
	}
	eng, buf := d.engine, d.buf
	if eng == nil || buf == nil {
		return fmt.Errorf("%w: bus engine or row buffer", ErrResourceMissing)
	}
	d.engine, d.buf = nil, nil
	tx, err := eng.Send(rowCommand, buf)
	if err != nil {
		d.engine, d.buf = eng, buf
		return transferError(err)
	}
	eng, buf, err = tx.Wait()
	d.engine, d.buf = eng, buf
	if eng == nil || buf == nil {
		if err != nil {
			return fmt.Errorf("%w: not handed back by the bus engine: %w", ErrResourceMissing, transferError(err))
		}
		return fmt.Errorf("%w: not handed back by the bus engine", ErrResourceMissing)
	}
	if err != nil {
		return transferError(err)
	}
	return nil
}

// FrameEnd ends a refresh.
func (d *Dev) FrameEnd() error {
	d.cfg.word.OutputEnable = false
	d.cfg.write()
	d.cfg.word.Mode = true
	d.cfg.write()
	if err := d.strobe(10, 10, true); err != nil {
		return err
	}
	return d.strobe(10, 10, true)
}

// WriteRows runs one frame. Every row is output for outputTime ticks, a nil
// row is skipped.
func (d *Dev) WriteRows(rows [][]byte, outputTime uint16) error {
	if err := d.FrameStart(); err != nil {
		return err
	}
	for i, row := range rows {
		if row == nil {
			if err := d.Skip(); err != nil {
				return fmt.Errorf("ed047tc1: row %d: %w", i, err)
			}
			continue
		}
		if err := d.SetBuffer(row); err != nil {
			return fmt.Errorf("ed047tc1: row %d: %w", i, err)
		}
		if err := d.OutputRow(outputTime); err != nil {
			return fmt.Errorf("ed047tc1: row %d: %w", i, err)
		}
	}
	return d.FrameEnd()
}

// strobe emits a pulse once the control word writes so far went through.
func (d *Dev) strobe(high, low uint16, wait bool) error {
	if err := d.Err(); err != nil {
		return err
	}
	err := d.pulse.Pulse(high, low, wait)
	if errors.Is(err, pulse.ErrChannelMissing) {
		return fmt.Errorf("%w: %w", ErrResourceMissing, err)
	}
	return err
}

func (d *Dev) delay(us uint64) {
	cycles.Delay(d.counter, cycles.Micros(d.counter, us))
}

func transferError(err error) error {
	if errors.Is(err, parallel.ErrTransfer) {
		return err
	}
	return fmt.Errorf("%w: %w", parallel.ErrTransfer, err)
}

var _ conn.Resource = &Dev{}
