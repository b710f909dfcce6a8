// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pulse

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/epd47/cycles"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var (
	errAborted      = errors.New("pulse: transmission aborted by reconfiguration")
	errStaleChannel = errors.New("pulse: channel was reconfigured")
)

// GPIO is a Peripheral playing waveforms on a GPIO pin in software, timing
// phases with a cycles.Counter.
//
// Source is the nominal clock the divider applies to, so durations mean the
// same as on a hardware pulse unit clocked at Source.
type GPIO struct {
	pin    gpio.PinOut
	source physic.Frequency
	c      cycles.Counter

	mu     sync.Mutex
	active *gpioChannel
}

// NewGPIO returns a software Peripheral on p.
func NewGPIO(p gpio.PinOut, source physic.Frequency, c cycles.Counter) (*GPIO, error) {
	if p == nil || c == nil {
		return nil, errors.New("pulse: pin and counter are required")
	}
	if source <= 0 {
		return nil, fmt.Errorf("pulse: invalid source clock %s", source)
	}
	return &GPIO{pin: p, source: source, c: c}, nil
}

// Configure implements Peripheral.
func (g *GPIO) Configure(cfg Config) (Channel, error) {
	if cfg.ClockDivider == 0 {
		return nil, errors.New("pulse: clock divider must be at least 1")
	}
	if cfg.CarrierModulation {
		return nil, errors.New("pulse: carrier modulation is not supported on GPIO")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		g.active.abort()
	}
	if cfg.IdleOutput {
		if err := g.pin.Out(cfg.IdleLevel); err != nil {
			return nil, err
		}
	}
	ch := &gpioChannel{g: g, cfg: cfg}
	g.active = ch
	return ch, nil
}

func (g *GPIO) String() string {
	return fmt.Sprintf("pulse.GPIO{%s, %s}", g.pin, g.source)
}

// ticks converts a duration in ticks to counter cycles.
func (g *GPIO) ticks(cfg Config, d uint16) uint64 {
	hz := uint64(g.c.Frequency() / physic.Hertz)
	src := uint64(g.source / physic.Hertz)
	if src == 0 {
		return 0
	}
	return uint64(d) * hz * uint64(cfg.ClockDivider) / src
}

type gpioChannel struct {
	g   *GPIO
	cfg Config

	// Guarded by g.mu.
	inflight *gpioTransmission
}

// Transmit implements Channel.
func (ch *gpioChannel) Transmit(codes []Code) (Transmission, error) {
	ch.g.mu.Lock()
	defer ch.g.mu.Unlock()
	if ch.g.active != ch {
		return nil, errStaleChannel
	}
	if ch.inflight != nil {
		select {
		case <-ch.inflight.done:
		default:
			return nil, errors.New("pulse: channel busy")
		}
	}
	tx := &gpioTransmission{ch: ch, stop: make(chan struct{}), done: make(chan struct{})}
	ch.inflight = tx
	go tx.play(append([]Code(nil), codes...))
	return tx, nil
}

// abort stops the transmission in flight, if any, and waits for the line to
// be released. Called with g.mu held.
func (ch *gpioChannel) abort() {
	if tx := ch.inflight; tx != nil {
		close(tx.stop)
		<-tx.done
		ch.inflight = nil
	}
}

type gpioTransmission struct {
	ch   *gpioChannel
	stop chan struct{}
	done chan struct{}
	err  error
}

// Wait implements Transmission.
func (tx *gpioTransmission) Wait() (Channel, error) {
	<-tx.done
	if tx.err != nil {
		return nil, tx.err
	}
	return tx.ch, nil
}

func (tx *gpioTransmission) play(codes []Code) {
	defer close(tx.done)
	g, cfg := tx.ch.g, tx.ch.cfg
	for _, code := range codes {
		if code.Duration0 == 0 {
			break
		}
		if !tx.phase(code.Level0, g.ticks(cfg, code.Duration0)) {
			return
		}
		if code.Duration1 == 0 {
			break
		}
		if !tx.phase(code.Level1, g.ticks(cfg, code.Duration1)) {
			return
		}
	}
	if cfg.IdleOutput && tx.err == nil {
		tx.err = g.pin.Out(cfg.IdleLevel)
	}
}

// phase drives l for n cycles. It returns false when the transmission must
// end early.
func (tx *gpioTransmission) phase(l gpio.Level, n uint64) bool {
	g := tx.ch.g
	if err := g.pin.Out(l); err != nil {
		tx.err = err
		return false
	}
	target := g.c.Cycles() + n
	for g.c.Cycles() < target {
		select {
		case <-tx.stop:
			tx.err = errAborted
			return false
		default:
		}
	}
	return true
}

var _ Peripheral = &GPIO{}
