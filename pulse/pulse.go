// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pulse emits precisely timed strobes on a single line.
//
// A Peripheral is the pulse generation hardware (an RMT unit on ESP32, a PIO
// state machine, or a GPIO driven in software). Configuring it yields a
// Channel. A Channel is consumed by Transmit and handed back by
// Transmission.Wait once the waveform has been played.
//
// Transmitter wraps this ownership dance: it configures the channel lazily,
// takes it for every pulse and puts it back only when the caller waits.
package pulse

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

var (
	// ErrInit is returned when the pulse channel cannot be configured.
	ErrInit = errors.New("pulse: could not initialize channel")
	// ErrTransmit is returned when a waveform could not be issued or did not
	// complete.
	ErrTransmit = errors.New("pulse: transmission failed")
	// ErrChannelMissing means the channel was absent when it had to be
	// present.
	ErrChannelMissing = errors.New("pulse: channel missing")
)

// Code is one entry of a waveform: Level0 during Duration0 ticks then Level1
// during Duration1 ticks. A zero duration ends the waveform; the line then
// returns to its idle level.
type Code struct {
	Level0    gpio.Level
	Duration0 uint16
	Level1    gpio.Level
	Duration1 uint16
}

// EndMarker terminates a waveform.
var EndMarker = Code{}

// Config is the channel configuration profile.
type Config struct {
	// ClockDivider divides the peripheral source clock to get the tick rate.
	ClockDivider uint8
	// IdleOutput drives IdleLevel on the line between transmissions.
	IdleOutput bool
	IdleLevel  gpio.Level
	// CarrierModulation modulates high phases with a carrier.
	CarrierModulation bool
	CarrierLevel      gpio.Level
}

// DefaultConfig is the profile used for panel strobes: source clock divided
// by 8, line idling low, no carrier.
var DefaultConfig = Config{
	ClockDivider: 8,
	IdleOutput:   true,
	IdleLevel:    gpio.Low,
}

// Peripheral is the pulse generation hardware.
type Peripheral interface {
	// Configure (re)initializes the hardware and returns a fresh channel.
	//
	// Reconfiguring discards any transmission still in flight on a previous
	// channel.
	Configure(cfg Config) (Channel, error)
}

// Channel is an exclusively owned, configured pulse channel.
type Channel interface {
	// Transmit starts playing codes. The channel is consumed; it is handed
	// back by Transmission.Wait.
	Transmit(codes []Code) (Transmission, error)
}

// Transmission is a waveform being played.
type Transmission interface {
	// Wait blocks until the waveform completed and returns the channel. On
	// failure the channel is lost. Wait must be called at most once.
	Wait() (Channel, error)
}

// Waveform returns the codes for one strobe.
//
// With high > 0 the line is high for high ticks then low for low ticks. With
// high == 0 the line is high for low ticks in a single phase.
func Waveform(high, low uint16) []Code {
	if high > 0 {
		return []Code{{gpio.High, high, gpio.Low, low}, EndMarker}
	}
	return []Code{{gpio.High, low, gpio.Low, 0}, EndMarker}
}

// Transmitter emits strobes on a Peripheral.
//
// It is not safe for concurrent use.
type Transmitter struct {
	p     Peripheral
	cfg   Config
	ch    Channel
	inits int
}

// NewTransmitter returns a Transmitter on p. The channel is configured on
// the first Pulse.
func NewTransmitter(p Peripheral, cfg Config) *Transmitter {
	return &Transmitter{p: p, cfg: cfg}
}

// Pulse emits one strobe, see Waveform.
//
// With wait, Pulse blocks until the strobe completed and keeps the channel
// for the next call. Without wait, Pulse returns as soon as the strobe is
// issued and the channel is not reclaimed: the next call configures the
// peripheral again, which aborts this strobe if it is still running.
func (t *Transmitter) Pulse(high, low uint16, wait bool) error {
	if err := t.ensureChannel(); err != nil {
		return err
	}
	ch := t.ch
	t.ch = nil
	tx, err := ch.Transmit(Waveform(high, low))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransmit, err)
	}
	// TODO: reclaim the channel of strobes that are not waited for. Today
	// the next pulse reconfigures the peripheral and may cut this one short.
	if wait {
		ch, err := tx.Wait()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransmit, err)
		}
		t.ch = ch
	}
	return nil
}

// Ready reports whether a channel is held, i.e. the next Pulse will not
// reconfigure the peripheral.
func (t *Transmitter) Ready() bool {
	return t.ch != nil
}

// Inits returns how many times the peripheral was configured.
func (t *Transmitter) Inits() int {
	return t.inits
}

func (t *Transmitter) ensureChannel() error {
	if t.ch != nil {
		return nil
	}
	ch, err := t.p.Configure(t.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}
	if ch == nil {
		return ErrChannelMissing
	}
	t.inits++
	t.ch = ch
	return nil
}
