// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image1bit implements a 1-bit-per-pixel image laid out the way
// SSD168x-class e-paper controllers address their display RAM.
//
// Rows are stored top to bottom. Within a row every byte holds 8 horizontally
// adjacent pixels with the leftmost pixel in the most significant bit. A set
// bit (On) is white on the panel, a cleared bit (Off) is black.
//
// The layout differs from periph.io/x/devices/v3/ssd1306/image1bit, which
// packs pixels vertically for OLED controllers.
package image1bit
