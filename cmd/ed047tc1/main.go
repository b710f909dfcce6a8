// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command ed047tc1 scans an ED047TC1 e-paper panel: it powers the panel up,
// outputs frames of a constant byte pattern and powers it down.
//
// With -dry-run no hardware is touched: the control shift register is
// emulated and every control word is printed to the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/GermanBionicSystems/epd47/cycles"
	"github.com/GermanBionicSystems/epd47/ed047tc1"
	"github.com/GermanBionicSystems/epd47/parallel"
	"github.com/GermanBionicSystems/epd47/pulse"
	"github.com/GermanBionicSystems/epd47/shiftreg"
	"github.com/GermanBionicSystems/epd47/wordview"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

type runOpts struct {
	frames  int
	rows    int
	pattern byte
	dryRun  bool
	verbose bool
}

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML wiring and timing file")
		frames  = flag.Int("frames", 1, "number of frames to output")
		rows    = flag.Int("rows", 0, "rows per frame (default from config)")
		pattern = flag.String("pattern", "0x00", "byte written to every row")
		outTime = flag.Uint("output-time", 0, "row output time in pulse ticks (default from config)")
		dryRun  = flag.Bool("dry-run", false, "emulate the hardware and print control words")
		verbose = flag.Bool("v", false, "log every pin change")
	)
	flag.Parse()

	log.SetPrefix("ed047tc1: ")
	log.SetFlags(0)

	cfg := defaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = loadConfig(*cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	if *outTime > math.MaxUint16 {
		log.Fatalf("invalid -output-time %d: max is %d", *outTime, math.MaxUint16)
	}
	if *outTime != 0 {
		cfg.Panel.OutputTime = uint16(*outTime)
	}
	p, err := strconv.ParseUint(*pattern, 0, 8)
	if err != nil {
		log.Fatalf("invalid -pattern: %v", err)
	}
	opts := runOpts{
		frames:  *frames,
		rows:    *rows,
		pattern: byte(p),
		dryRun:  *dryRun,
		verbose: *verbose,
	}
	if opts.rows == 0 {
		opts.rows = cfg.Panel.Rows
	}
	if err := run(cfg, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func (o *runOpts) validate() error {
	if o.rows <= 0 {
		return fmt.Errorf("invalid row count %d", o.rows)
	}
	if o.frames < 0 {
		return fmt.Errorf("invalid frame count %d", o.frames)
	}
	return nil
}

func run(cfg *Config, opts runOpts, out io.Writer) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}
	counter, err := cycles.NewMonotonic(physic.Frequency(cfg.Timing.CPUMHz) * physic.MegaHertz)
	if err != nil {
		return err
	}
	b, err := openBoard(cfg, opts, out)
	if err != nil {
		return err
	}
	eng, err := parallel.NewGPIO(b.data, b.dc, b.wr)
	if err != nil {
		return err
	}
	defer func() {
		if herr := eng.Halt(); err == nil {
			err = herr
		}
	}()
	pulser, err := pulse.NewGPIO(b.pulse, physic.Frequency(cfg.Timing.PulseSourceMHz)*physic.MegaHertz, counter)
	if err != nil {
		return err
	}
	panel := ed047tc1.ED047TC1
	panel.Height = opts.rows
	panel.RowBytes = cfg.Panel.RowBytes
	panel.Pulse.ClockDivider = cfg.Timing.ClockDivider
	dev, err := ed047tc1.New(b.cfgData, b.cfgClk, b.cfgStr, eng, pulser, counter, &panel)
	if err != nil {
		return err
	}
	log.Printf("%s on %s", dev, pulser)

	row := make([]byte, cfg.Panel.RowBytes)
	for i := range row {
		row[i] = opts.pattern
	}
	rows := make([][]byte, opts.rows)
	for i := range rows {
		rows[i] = row
	}

	dev.PowerOn()
	for f := 0; f < opts.frames; f++ {
		if err := dev.WriteRows(rows, cfg.Panel.OutputTime); err != nil {
			// Rails must not stay up on a failed frame.
			dev.PowerOff()
			return fmt.Errorf("frame %d: %w", f, err)
		}
	}
	return dev.Halt()
}

// board is the set of lines the panel is wired to.
type board struct {
	data                    gpio.Group
	dc, wr                  gpio.PinOut
	cfgData, cfgClk, cfgStr gpio.PinOut
	pulse                   gpio.PinOut
}

func openBoard(cfg *Config, opts runOpts, out io.Writer) (*board, error) {
	if opts.dryRun {
		return dryRunBoard(cfg, out)
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	open := func(name string) (gpio.PinOut, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("no pin named %q", name)
		}
		if opts.verbose {
			return &gpiotest.LogPinIO{PinIO: p}, nil
		}
		return p, nil
	}
	b := &board{}
	var data []gpio.PinOut
	for _, name := range cfg.Pins.Data {
		p, err := open(name)
		if err != nil {
			return nil, err
		}
		data = append(data, p)
	}
	var err error
	if b.data, err = parallel.NewPinGroup(data...); err != nil {
		return nil, err
	}
	for _, l := range []struct {
		dst  *gpio.PinOut
		name string
	}{
		{&b.dc, cfg.Pins.DC},
		{&b.wr, cfg.Pins.WR},
		{&b.cfgData, cfg.Pins.CfgData},
		{&b.cfgClk, cfg.Pins.CfgClk},
		{&b.cfgStr, cfg.Pins.CfgStr},
		{&b.pulse, cfg.Pins.Pulse},
	} {
		if *l.dst, err = open(l.name); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// dryRunBoard returns fake lines. The control register lines feed a
// shiftreg.Monitor printing every latched word to out.
func dryRunBoard(cfg *Config, out io.Writer) (*board, error) {
	view := wordview.New(out, &wordview.Opts{Labels: ed047tc1.ControlWordFields[:]})
	m, err := shiftreg.NewMonitor(8, func(v gpio.GPIOValue) {
		_, _ = view.Write([]byte{byte(v)})
	})
	if err != nil {
		return nil, err
	}
	var data []gpio.PinOut
	for i, name := range cfg.Pins.Data {
		data = append(data, &gpiotest.Pin{N: name, Num: i})
	}
	group, err := parallel.NewPinGroup(data...)
	if err != nil {
		return nil, err
	}
	return &board{
		data:    group,
		dc:      &gpiotest.Pin{N: cfg.Pins.DC},
		wr:      &gpiotest.Pin{N: cfg.Pins.WR},
		cfgData: m.Data(),
		cfgClk:  m.Clock(),
		cfgStr:  m.Latch(),
		pulse:   &gpiotest.Pin{N: cfg.Pins.Pulse},
	}, nil
}
