// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package image1bit

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Bit implements a 1 bit color.
type Bit bool

// RGBA returns either all white or all black.
//
// Technically the monochrome display could be colored but this information is
// unavailable here. To use a colored display, use the 1 bit image as a mask
// for a color.
func (b Bit) RGBA() (uint32, uint32, uint32, uint32) {
	if b {
		return 65535, 65535, 65535, 65535
	}
	return 0, 0, 0, 65535
}

func (b Bit) String() string {
	if b {
		return "On"
	}
	return "Off"
}

// Possible bitness.
const (
	On  = Bit(true)
	Off = Bit(false)
)

// Panel polarity aliases.
const (
	White = On
	Black = Off
)

// BitModel is the color Model for 1 bit color.
var BitModel = color.ModelFunc(convert)

// ErrOutOfBounds is matched by errors.Is for every OutOfBoundsError.
var ErrOutOfBounds = errors.New("image1bit: pixel out of bounds")

// OutOfBoundsError is returned when a pixel coordinate lies outside of the
// image.
type OutOfBoundsError struct {
	X, Y   int
	Bounds image.Rectangle
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("image1bit: pixel (%d,%d) outside of %v", e.X, e.Y, e.Bounds)
}

// Is reports whether target is ErrOutOfBounds.
func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// HorizontalMSB is a 1 bit image where each byte stores 8 pixels of one row,
// most significant bit first.
//
// The dimensions are fixed at creation.
type HorizontalMSB struct {
	// Pix holds the image's pixels, row by row. The pixel at (x, y) is the bit
	// 0x80>>(x%8) of Pix[(y-Rect.Min.Y)*Stride+(x-Rect.Min.X)/8].
	Pix []byte
	// Stride is the number of bytes of each row, (width+7)/8.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// NewHorizontalMSB returns an initialized HorizontalMSB instance, all black.
func NewHorizontalMSB(r image.Rectangle) *HorizontalMSB {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &HorizontalMSB{Rect: r}
	}
	stride := (w + 7) / 8
	return &HorizontalMSB{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (i *HorizontalMSB) ColorModel() color.Model {
	return BitModel
}

// Bounds implements image.Image.
func (i *HorizontalMSB) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *HorizontalMSB) At(x, y int) color.Color {
	return i.BitAt(x, y)
}

// BitAt is the optimized version of At. Pixels outside the image are Off.
func (i *HorizontalMSB) BitAt(x, y int) Bit {
	if !(image.Point{x, y}.In(i.Rect)) {
		return Off
	}
	offset, mask := i.PixOffset(x, y)
	return Bit(i.Pix[offset]&mask != 0)
}

// Opaque scans the entire image and reports whether it is fully opaque.
func (i *HorizontalMSB) Opaque() bool {
	return true
}

// PixOffset returns the index of the byte holding the pixel at (x, y) and the
// mask selecting its bit.
func (i *HorizontalMSB) PixOffset(x, y int) (int, byte) {
	dx := x - i.Rect.Min.X
	offset := (y-i.Rect.Min.Y)*i.Stride + dx/8
	return offset, 0x80 >> uint(dx&7)
}

// Set implements draw.Image. Pixels outside the image are ignored.
func (i *HorizontalMSB) Set(x, y int, c color.Color) {
	i.SetBit(x, y, convertBit(c))
}

// SetBit is the optimized version of Set. Pixels outside the image are
// ignored.
func (i *HorizontalMSB) SetBit(x, y int, b Bit) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	i.setBit(x, y, b)
}

// SetPixel sets a single pixel and fails with an *OutOfBoundsError when
// (x, y) is outside of the image. The image is left untouched on failure.
func (i *HorizontalMSB) SetPixel(x, y int, b Bit) error {
	if !(image.Point{x, y}.In(i.Rect)) {
		return &OutOfBoundsError{X: x, Y: y, Bounds: i.Rect}
	}
	i.setBit(x, y, b)
	return nil
}

func (i *HorizontalMSB) setBit(x, y int, b Bit) {
	offset, mask := i.PixOffset(x, y)
	if b {
		i.Pix[offset] |= mask
	} else {
		i.Pix[offset] &^= mask
	}
}

// Clear sets every pixel to b.
func (i *HorizontalMSB) Clear(b Bit) {
	var v byte
	if b {
		v = 0xFF
	}
	for j := range i.Pix {
		i.Pix[j] = v
	}
}

// Bytes returns the raw raster in controller RAM order. The slice aliases the
// image; it must not be retained across modifications.
func (i *HorizontalMSB) Bytes() []byte {
	return i.Pix
}

// SubImage returns a copy of the part of the image visible through r. The
// copy keeps the byte alignment of its own origin.
func (i *HorizontalMSB) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(i.Rect)
	sub := NewHorizontalMSB(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			sub.setBit(x, y, i.BitAt(x, y))
		}
	}
	return sub
}

var _ draw.Image = &HorizontalMSB{}

// convert converts any color to a 1 bit color.
func convert(c color.Color) color.Color {
	return convertBit(c)
}

// convertBit is the optimized version of convert.
func convertBit(c color.Color) Bit {
	switch t := c.(type) {
	case Bit:
		return t
	default:
		r, g, b, _ := c.RGBA()
		return Bit((r | g | b) >= 0x8000)
	}
}
