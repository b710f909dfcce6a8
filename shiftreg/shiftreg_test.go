// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package shiftreg

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type event struct {
	Pin   string
	Level gpio.Level
}

type recorder struct {
	events []event
}

// recPin records every Out call into a shared recorder.
type recPin struct {
	gpiotest.Pin
	rec  *recorder
	fail error
}

func (p *recPin) Out(l gpio.Level) error {
	if p.fail != nil {
		return p.fail
	}
	p.rec.events = append(p.rec.events, event{p.N, l})
	return p.Pin.Out(l)
}

func newPins() (*recorder, *recPin, *recPin, *recPin) {
	rec := &recorder{}
	return rec,
		&recPin{Pin: gpiotest.Pin{N: "D"}, rec: rec},
		&recPin{Pin: gpiotest.Pin{N: "C"}, rec: rec},
		&recPin{Pin: gpiotest.Pin{N: "L"}, rec: rec}
}

func wantByte(v byte) []event {
	want := []event{{"L", gpio.Low}}
	for bit := 7; bit >= 0; bit-- {
		want = append(want,
			event{"C", gpio.Low},
			event{"D", gpio.Level(v&(1<<bit) != 0)},
			event{"C", gpio.High})
	}
	return append(want, event{"L", gpio.High})
}

func TestNewBus(t *testing.T) {
	rec, d, c, l := newPins()
	if _, err := NewBus(d, c, l); err != nil {
		t.Fatal(err)
	}
	want := []event{{"D", gpio.High}, {"C", gpio.High}, {"L", gpio.Low}}
	if diff := cmp.Diff(rec.events, want); diff != "" {
		t.Errorf("NewBus() difference (-got +want):\n%s", diff)
	}
	if _, err := NewBus(nil, c, l); err == nil {
		t.Error("NewBus(nil, ...) succeeded")
	}
}

func TestBus_Tx(t *testing.T) {
	for _, tc := range []struct {
		name string
		w    []byte
	}{
		{name: "zero", w: []byte{0x00}},
		{name: "ones", w: []byte{0xff}},
		{name: "msb", w: []byte{0x80}},
		{name: "pattern", w: []byte{0xa5}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec, d, c, l := newPins()
			b, err := NewBus(d, c, l)
			if err != nil {
				t.Fatal(err)
			}
			rec.events = nil
			if err := b.Tx(tc.w, nil); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(rec.events, wantByte(tc.w[0])); diff != "" {
				t.Errorf("Tx(%#x) difference (-got +want):\n%s", tc.w, diff)
			}
		})
	}
}

func TestBus_Tx_chained(t *testing.T) {
	m, err := NewMonitor(16, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBus(m.Data(), m.Clock(), m.Latch())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Tx([]byte{0x12, 0x34}, nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m.Words(), []gpio.GPIOValue{0x1234}); diff != "" {
		t.Errorf("Words() difference (-got +want):\n%s", diff)
	}
}

func TestBus_Tx_errors(t *testing.T) {
	rec, d, c, l := newPins()
	b, err := NewBus(d, c, l)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Tx([]byte{1}, []byte{0}); !errors.Is(err, ErrReadNotSupported) {
		t.Errorf("Tx() with read buffer = %v, want %v", err, ErrReadNotSupported)
	}

	boom := errors.New("boom")
	c.fail = boom
	rec.events = nil
	if err := b.Tx([]byte{0xff}, nil); !errors.Is(err, boom) {
		t.Errorf("Tx() = %v, want %v", err, boom)
	}
	// The latch line went low but never high again: nothing was latched.
	if diff := cmp.Diff(rec.events, []event{{"L", gpio.Low}}); diff != "" {
		t.Errorf("Tx() difference (-got +want):\n%s", diff)
	}

	c.fail = nil
	if err := b.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx([]byte{0}, nil); !errors.Is(err, ErrHalted) {
		t.Errorf("Tx() after Halt = %v, want %v", err, ErrHalted)
	}
	if got := b.String(); got != "shiftreg.Bus{halted}" {
		t.Errorf("String() = %q", got)
	}
}

func TestMonitor(t *testing.T) {
	var latched []gpio.GPIOValue
	m, err := NewMonitor(8, func(v gpio.GPIOValue) { latched = append(latched, v) })
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBus(m.Data(), m.Clock(), m.Latch())
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []byte{0x01, 0x80, 0x5a} {
		if err := b.Tx([]byte{v}, nil); err != nil {
			t.Fatal(err)
		}
	}
	want := []gpio.GPIOValue{0x01, 0x80, 0x5a}
	if diff := cmp.Diff(m.Words(), want); diff != "" {
		t.Errorf("Words() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(latched, want); diff != "" {
		t.Errorf("onLatch difference (-got +want):\n%s", diff)
	}
	if got := m.Clocked(); got != 0 {
		t.Errorf("Clocked() = %d after latch, want 0", got)
	}
	m.Reset()
	if got := m.Words(); len(got) != 0 {
		t.Errorf("Words() = %v after Reset", got)
	}
}

func TestNewMonitor_invalid(t *testing.T) {
	for _, bits := range []int{0, -1, 65} {
		if _, err := NewMonitor(bits, nil); err == nil {
			t.Errorf("NewMonitor(%d) succeeded", bits)
		}
	}
}
