// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package image1bit

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConvertUniform(t *testing.T) {
	r := image.Rect(0, 0, 16, 4)
	for _, tc := range []struct {
		name string
		c    color.Color
		want byte
	}{
		{"white", color.White, 0xFF},
		{"black", color.Black, 0x00},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Convert(&image.Uniform{tc.c}, r)
			for i, v := range got.Bytes() {
				if v != tc.want {
					t.Fatalf("Bytes()[%d] = %#02x, want %#02x", i, v, tc.want)
				}
			}
		})
	}
}

func TestConvertBilevelCopy(t *testing.T) {
	src := NewHorizontalMSB(image.Rect(0, 0, 16, 2))
	src.SetBit(3, 1, On)
	src.SetBit(9, 0, On)

	got := Convert(src, image.Rect(0, 0, 16, 2))

	if diff := cmp.Diff(got.Bytes(), src.Bytes()); diff != "" {
		t.Errorf("Convert() difference (-got +want):\n%s", diff)
	}
}

func TestConvertDithers(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range src.Pix {
		src.Pix[i] = 0x80
	}

	got := Convert(src, image.Rect(0, 0, 64, 64))

	var on int
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if got.BitAt(x, y) {
				on++
			}
		}
	}
	// Mid gray dithers to roughly half of the pixels set.
	if on < 64*64/4 || on > 64*64*3/4 {
		t.Errorf("%d of %d pixels set after dithering mid gray", on, 64*64)
	}
}

func TestConvertScales(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 400, 400))

	got := Convert(src, image.Rect(0, 0, 200, 200))

	if got.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Fatalf("Bounds() = %v", got.Bounds())
	}
	if got.BitAt(100, 100) != Black {
		t.Error("black source must stay black after scaling")
	}
}
