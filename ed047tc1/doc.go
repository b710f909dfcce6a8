// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ed047tc1 drives the ED047TC1 4.7" e-paper panel found on the LilyGo
// T5 4.7" board.
//
// The panel has no controller: the host scans it row by row. Three
// collaborators do the electrical work:
//
//   - an 8-bit shift register, written over data/clock/latch lines, holds the
//     panel control signals (power rails, output enable, latch, mode, STV);
//   - a pulse unit generates the CKV strobes that advance the row scan;
//   - a parallel bus engine clocks one row of pixel data into the source
//     drivers.
//
// A refresh is bracketed by FrameStart and FrameEnd, and every row in
// between is either output with SetBuffer and OutputRow or passed over with
// Skip. The panel rails must be enabled with PowerOn before, and should be
// disabled with PowerOff after.
//
// Dev is not safe for concurrent use.
//
// # Reference
//
// https://github.com/vroland/epdiy
//
// Product page:
//
// https://www.lilygo.cc/products/t5-4-7-inch-e-paper-v2-3
package ed047tc1
