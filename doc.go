// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaper is a container for the 1.54" SSD1681 e-paper driver and its
// tooling.
//
// ssd1681 drives the controller over a Bus; image1bit holds the framebuffer;
// ssd1681/ssd1681sim simulates the controller; termview and preview mirror a
// panel on a terminal or a browser; cmd/epd154 puts it all together.
package epaper
