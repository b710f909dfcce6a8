// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package parallel moves row data to a panel over an 8-bit parallel bus in
// the Intel 8080 style: one command byte with DC high, then the data bytes
// with DC low, each byte strobed by WR. DC idles low between transfers.
//
// An Engine takes ownership of a Buffer for the duration of a transfer and
// hands both itself and the buffer back when the transfer completes.
package parallel

import (
	"errors"
	"fmt"
)

var (
	// ErrTransfer is returned when a transfer could not be issued or did not
	// complete.
	ErrTransfer = errors.New("parallel: transfer failed")
	// ErrBufferSize is returned when data does not fit in a Buffer.
	ErrBufferSize = errors.New("parallel: data larger than buffer")
)

// Engine is a parallel bus transfer engine.
type Engine interface {
	// Send starts transferring buf, prefixed by the command byte cmd.
	//
	// On success the engine and buf belong to the Transfer until Wait
	// returns. On error nothing was started and the caller still owns both.
	Send(cmd uint8, buf *Buffer) (Transfer, error)
}

// Transfer is a transfer in flight.
type Transfer interface {
	// Wait blocks until the transfer completed and hands back the engine and
	// the buffer, also when the transfer failed. Wait must be called once.
	Wait() (Engine, *Buffer, error)
}

// Buffer is a fixed capacity buffer holding one row.
type Buffer struct {
	b []byte
}

// NewBuffer returns a zeroed Buffer of size bytes.
func NewBuffer(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("parallel: invalid buffer size %d", size)
	}
	return &Buffer{b: make([]byte, size)}, nil
}

// Len returns the capacity of the buffer.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Bytes returns the buffer content. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.b
}

// Fill zeroes the buffer then copies data at its start. Data longer than the
// buffer is rejected and the buffer is left untouched.
func (b *Buffer) Fill(data []byte) error {
	if len(data) > len(b.b) {
		return fmt.Errorf("%w: %d > %d", ErrBufferSize, len(data), len(b.b))
	}
	clear(b.b)
	copy(b.b, data)
	return nil
}

func (b *Buffer) String() string {
	return fmt.Sprintf("parallel.Buffer{%d}", len(b.b))
}
