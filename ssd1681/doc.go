// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1681 controls 200x200 black and white e-paper panels driven by a
// Solomon Systech SSD1681 controller, such as the GoodDisplay GDEH0154D67 used
// by the Watchy and the Waveshare 1.54" e-Paper V2.
//
// The driver walks the controller through its lifecycle:
//
//	Uninitialized -Init-> Resetting -> Initializing -> Idle
//	Idle -Update-> TransferringImage -> Refreshing -> Idle
//	Idle -Sleep-> Sleeping -Init-> Resetting
//	any -busy timeout or bus error-> Faulted -Init-> Resetting
//
// The busy line is polled with a bounded timeout per phase. Between polls the
// calling goroutine sleeps so the rest of the program keeps running during the
// refresh, which takes one to two seconds. Cancelling the context of a call
// leaves the driver in the phase it was in; call Init to recover.
//
// A Dev must have a single owner. Concurrent callers need their own mutual
// exclusion.
//
// # Datasheets
//
// https://www.good-display.com/companyfile/101.html
//
// Product page:
//
// 1.54 inch version 2: https://www.waveshare.com/wiki/1.54inch_e-Paper_Module_Manual
package ssd1681
