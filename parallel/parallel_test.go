// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package parallel

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestBuffer_Fill(t *testing.T) {
	for _, size := range []int{3, 16, 240} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			b, err := NewBuffer(size)
			if err != nil {
				t.Fatal(err)
			}
			if err := b.Fill(bytes.Repeat([]byte{0xff}, size)); err != nil {
				t.Fatal(err)
			}
			if err := b.Fill([]byte{0xab, 0xcd}); err != nil {
				t.Fatal(err)
			}
			want := make([]byte, size)
			want[0], want[1] = 0xab, 0xcd
			if diff := cmp.Diff(b.Bytes(), want); diff != "" {
				t.Errorf("Bytes() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestBuffer_Fill_tooLong(t *testing.T) {
	b, err := NewBuffer(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Fill([]byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := b.Fill([]byte{3, 4, 5}); !errors.Is(err, ErrBufferSize) {
		t.Errorf("Fill() = %v, want %v", err, ErrBufferSize)
	}
	if diff := cmp.Diff(b.Bytes(), []byte{1, 2}); diff != "" {
		t.Errorf("buffer modified by a rejected Fill (-got +want):\n%s", diff)
	}
}

func TestNewBuffer_invalid(t *testing.T) {
	if _, err := NewBuffer(0); err == nil {
		t.Error("NewBuffer(0) succeeded")
	}
}

type busEvent struct {
	Line  string
	Value uint64
}

type bus struct {
	mu     sync.Mutex
	events []busEvent
}

func (b *bus) add(line string, v uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{line, v})
}

type busPin struct {
	gpiotest.Pin
	b    *bus
	fail error
}

func (p *busPin) Out(l gpio.Level) error {
	if p.fail != nil {
		return p.fail
	}
	v := uint64(0)
	if l {
		v = 1
	}
	p.b.add(p.N, v)
	return p.Pin.Out(l)
}

// busGroup records the value written to the data lines.
type busGroup struct {
	*PinGroup
	b *bus
}

func (g *busGroup) Out(value, mask gpio.GPIOValue) error {
	g.b.add("DATA", uint64(value&mask))
	return nil
}

func newEngine(t *testing.T) (*GPIO, *bus, *busPin) {
	b := &bus{}
	var pins []gpio.PinOut
	for i := range 8 {
		pins = append(pins, &gpiotest.Pin{N: fmt.Sprintf("D%d", i), Num: i})
	}
	pg, err := NewPinGroup(pins...)
	if err != nil {
		t.Fatal(err)
	}
	dc := &busPin{Pin: gpiotest.Pin{N: "DC"}, b: b}
	wr := &busPin{Pin: gpiotest.Pin{N: "WR"}, b: b}
	g, err := NewGPIO(&busGroup{PinGroup: pg, b: b}, dc, wr)
	if err != nil {
		t.Fatal(err)
	}
	if dc.L != gpio.Low || wr.L != gpio.High {
		t.Errorf("NewGPIO() left DC %s and WR %s, want Low and High", dc.L, wr.L)
	}
	b.events = nil
	return g, b, dc
}

func strobe(v uint64) []busEvent {
	return []busEvent{{"WR", 0}, {"DATA", v}, {"WR", 1}}
}

func TestGPIO_Send(t *testing.T) {
	g, b, _ := newEngine(t)
	buf, err := NewBuffer(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Fill([]byte{0xab, 0xcd}); err != nil {
		t.Fatal(err)
	}
	tr, err := g.Send(0, buf)
	if err != nil {
		t.Fatal(err)
	}
	eng, got, err := tr.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if eng != Engine(g) || got != buf {
		t.Error("Wait() did not hand back the engine and the buffer")
	}
	want := []busEvent{{"DC", 1}}
	want = append(want, strobe(0)...)
	want = append(want, busEvent{"DC", 0})
	want = append(want, strobe(0xab)...)
	want = append(want, strobe(0xcd)...)
	want = append(want, busEvent{"DC", 0})
	if diff := cmp.Diff(b.events, want); diff != "" {
		t.Errorf("bus difference (-got +want):\n%s", diff)
	}
	// The engine is free again.
	tr, err = g.Send(0, buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := tr.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestGPIO_Send_failure(t *testing.T) {
	g, _, dc := newEngine(t)
	buf, err := NewBuffer(4)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	dc.fail = boom
	tr, err := g.Send(0, buf)
	if err != nil {
		t.Fatal(err)
	}
	eng, got, err := tr.Wait()
	if !errors.Is(err, ErrTransfer) || !errors.Is(err, boom) {
		t.Errorf("Wait() = %v, want %v wrapping %v", err, ErrTransfer, boom)
	}
	if eng == nil || got != buf {
		t.Error("Wait() lost the engine or the buffer on failure")
	}
	if _, err := g.Send(0, nil); !errors.Is(err, ErrTransfer) {
		t.Errorf("Send(nil) = %v, want %v", err, ErrTransfer)
	}
}

func TestNewGPIO_invalid(t *testing.T) {
	pg, err := NewPinGroup(&gpiotest.Pin{}, &gpiotest.Pin{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewGPIO(pg, &gpiotest.Pin{}, &gpiotest.Pin{}); err == nil {
		t.Error("NewGPIO() with 2 data lines succeeded")
	}
	if _, err := NewGPIO(nil, &gpiotest.Pin{}, &gpiotest.Pin{}); err == nil {
		t.Error("NewGPIO(nil) succeeded")
	}
}

func TestPinGroup(t *testing.T) {
	pins := []*gpiotest.Pin{{N: "A", Num: 3}, {N: "B", Num: 5}, {N: "C", Num: 7}}
	pg, err := NewPinGroup(pins[0], pins[1], pins[2])
	if err != nil {
		t.Fatal(err)
	}
	if err := pg.Out(0b101, 0); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]gpio.Level{pins[0].L, pins[1].L, pins[2].L}, []gpio.Level{gpio.High, gpio.Low, gpio.High}); diff != "" {
		t.Errorf("Out() difference (-got +want):\n%s", diff)
	}
	if err := pg.Out(0, 0b001); err != nil {
		t.Fatal(err)
	}
	if pins[0].L != gpio.Low || pins[2].L != gpio.High {
		t.Error("Out() with mask touched unmasked pins")
	}
	if p := pg.ByName("B"); p == nil || p.Number() != 5 {
		t.Errorf("ByName(B) = %v", p)
	}
	if p := pg.ByNumber(7); p == nil || p.Name() != "C" {
		t.Errorf("ByNumber(7) = %v", p)
	}
	if p := pg.ByOffset(3); p != nil {
		t.Errorf("ByOffset(3) = %v, want nil", p)
	}
	if _, err := pg.Read(0); !errors.Is(err, gpio.ErrGroupFeatureNotImplemented) {
		t.Errorf("Read() = %v", err)
	}
	if got := pg.String(); got != "[A B C]" {
		t.Errorf("String() = %q", got)
	}
	if _, err := NewPinGroup(); err == nil {
		t.Error("NewPinGroup() succeeded")
	}
}
