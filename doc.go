// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd47 is a container for the LilyGo T5 4.7" e-paper driver.
//
// The panel driver lives in package ed047tc1. It is built on the
// collaborators in shiftreg, pulse, parallel and cycles. Command ed047tc1
// scans test frames on real or emulated hardware.
package epd47
