// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package image1bit

import (
	"image"
	"image/draw"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"
)

// Convert renders src into a new HorizontalMSB of bounds r.
//
// Images that are not already 1 bit are scaled to fit r (keeping the aspect
// ratio) and Floyd-Steinberg dithered. A *HorizontalMSB, or any image of the
// size of r holding only pure black and white pixels, is copied as is.
func Convert(src image.Image, r image.Rectangle) *HorizontalMSB {
	dst := NewHorizontalMSB(r)
	dst.Clear(White)
	if r.Empty() {
		return dst
	}

	if u, ok := src.(*image.Uniform); ok {
		draw.Src.Draw(dst, r, u, image.Point{})
		return dst
	}

	if src.Bounds().Size() == r.Size() && isBilevel(src) {
		draw.Src.Draw(dst, r, src, src.Bounds().Min)
		return dst
	}

	var scaled image.Image = src
	if src.Bounds().Size() != r.Size() {
		scaled = imaging.Fit(src, r.Dx(), r.Dy(), imaging.Lanczos)
	}

	gray := image.NewGray(image.Rectangle{Max: r.Size()})
	draw.Draw(gray, gray.Bounds(), image.White, image.Point{}, draw.Src)

	// Center the scaled image.
	sb := scaled.Bounds()
	off := image.Pt((gray.Bounds().Dx()-sb.Dx())/2, (gray.Bounds().Dy()-sb.Dy())/2)
	draw.Draw(gray, sb.Sub(sb.Min).Add(off), scaled, sb.Min, draw.Src)

	dithered := halfgone.FloydSteinbergDitherer{}.Apply(gray)
	draw.Src.Draw(dst, r, dithered, image.Point{})
	return dst
}

// isBilevel reports whether src only contains pure black or white pixels.
func isBilevel(src image.Image) bool {
	if _, ok := src.(*HorizontalMSB); ok {
		return true
	}
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			if !((r == 0 && g == 0 && bl == 0) || (r == 0xFFFF && g == 0xFFFF && bl == 0xFFFF)) {
				return false
			}
		}
	}
	return true
}
