// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ed047tc1

import (
	"strings"

	"periph.io/x/conn/v3"
)

// ControlWord is the content of the panel control shift register.
type ControlWord struct {
	OutputEnable   bool
	Mode           bool
	PowerEnable    bool
	STV            bool // start of frame, active low
	NegPowerEnable bool
	PosPowerEnable bool
	PowerDisable   bool
	LatchEnable    bool
}

// DefaultControlWord is the register content at power-up: rails off and
// STV idle.
var DefaultControlWord = ControlWord{
	PowerDisable: true,
	STV:          true,
}

// ControlWordFields names the register bits, first shifted first.
var ControlWordFields = [8]string{"OE", "MODE", "PWR", "STV", "NEG", "POS", "PWRDIS", "LE"}

// Bits returns the word in shift order: OutputEnable is the most significant
// bit and is shifted first, LatchEnable is the least significant.
func (c ControlWord) Bits() byte {
	var b byte
	for i, v := range c.fields() {
		if v {
			b |= 0x80 >> i
		}
	}
	return b
}

// DecodeControlWord is the inverse of ControlWord.Bits.
func DecodeControlWord(b byte) ControlWord {
	return ControlWord{
		OutputEnable:   b&0x80 != 0,
		Mode:           b&0x40 != 0,
		PowerEnable:    b&0x20 != 0,
		STV:            b&0x10 != 0,
		NegPowerEnable: b&0x08 != 0,
		PosPowerEnable: b&0x04 != 0,
		PowerDisable:   b&0x02 != 0,
		LatchEnable:    b&0x01 != 0,
	}
}

func (c ControlWord) String() string {
	var set []string
	for i, v := range c.fields() {
		if v {
			set = append(set, ControlWordFields[i])
		}
	}
	return "{" + strings.Join(set, " ") + "}"
}

func (c ControlWord) fields() [8]bool {
	return [8]bool{
		c.OutputEnable,
		c.Mode,
		c.PowerEnable,
		c.STV,
		c.NegPowerEnable,
		c.PosPowerEnable,
		c.PowerDisable,
		c.LatchEnable,
	}
}

// configWriter keeps the control word and flushes it to the shift register.
//
// The first bus failure is kept and every later write is skipped.
type configWriter struct {
	bus  conn.Conn
	word ControlWord
	err  error
}

func (w *configWriter) write() {
	if w.err != nil {
		return
	}
	w.err = w.bus.Tx([]byte{w.word.Bits()}, nil)
}
