// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wordview prints register words to a terminal, one line per word
// and one colored block per bit, using ANSI color codes.
//
// Hook it to a shiftreg.Monitor to watch a panel control sequence without
// a logic analyzer.
package wordview

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for this view.
type Opts struct {
	// Labels names the bits, most significant first. Set bits are listed by
	// name after the blocks.
	Labels []string
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// On and Off are the block colors for set and cleared bits.
	On  color.NRGBA
	Off color.NRGBA

	_ struct{}
}

// Dev writes words to a terminal.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	labels  []string
	on      color.NRGBA
	off     color.NRGBA

	n   int
	buf bytes.Buffer
}

// New returns a Dev writing to w.
func New(w io.Writer, opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	on, off := opts.On, opts.Off
	if on == (color.NRGBA{}) {
		on = color.NRGBA{0, 255, 0, 255}
	}
	if off == (color.NRGBA{}) {
		off = color.NRGBA{48, 48, 48, 255}
	}
	return &Dev{w: w, palette: *p, labels: opts.Labels, on: on, off: off}
}

// NewStdout returns a Dev writing to the console.
func NewStdout(opts *Opts) *Dev {
	return New(colorable.NewColorableStdout(), opts)
}

func (d *Dev) String() string {
	return "WordView"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

// Write prints one line per byte of p.
func (d *Dev) Write(p []byte) (int, error) {
	d.buf.Reset()
	for _, v := range p {
		d.n++
		_, _ = fmt.Fprintf(&d.buf, "%5d ", d.n)
		var set []string
		for bit := 0; bit < 8; bit++ {
			c := d.off
			if v&(0x80>>bit) != 0 {
				c = d.on
				if bit < len(d.labels) {
					set = append(set, d.labels[bit])
				}
			}
			_, _ = io.WriteString(&d.buf, d.palette.Block(c))
		}
		_, _ = fmt.Fprintf(&d.buf, "\033[0m 0x%02x %s\n", v, strings.Join(set, " "))
	}
	if _, err := d.buf.WriteTo(d.w); err != nil {
		return 0, err
	}
	return len(p), nil
}

var _ io.Writer = &Dev{}
var _ fmt.Stringer = &Dev{}
