// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termview implements a display.Drawer that shows a 1 bit panel on a
// terminal using ANSI 256 color codes.
//
// Each text row covers two pixel rows, which keeps the aspect ratio of the
// panel close to square on common terminal fonts. Useful while the e-paper
// module is still in the mail, and with ssd1681sim.
package termview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// W and H are the panel size in pixels.
	W, H int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Out defaults to a colorable stdout.
	Out io.Writer
	// Home moves the cursor to the top left corner before each frame so
	// frames overwrite each other.
	Home bool

	_ struct{}
}

// Dev is a 1 bit panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	home    bool
	palette ansi256.Palette

	img *image1bit.HorizontalMSB
	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	img := image1bit.NewHorizontalMSB(image.Rect(0, 0, opts.W, opts.H))
	img.Clear(image1bit.White)
	return &Dev{
		w:       w,
		home:    opts.Home,
		palette: *p,
		img:     img,
	}
}

func (d *Dev) String() string {
	return "TermView"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.img.Bounds()
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Src.Draw(d.img, r.Intersect(d.Bounds()), src, sp)
	return d.refresh()
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.home {
		_, _ = d.buf.WriteString("\033[H")
	}
	_, _ = d.buf.WriteString("\033[0m")
	b := d.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _ = io.WriteString(&d.buf, d.palette.Block(cellColor(d.img, x, y)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

// cellColor blends the pixels (x, y) and (x, y+1). A missing last row counts
// as white.
func cellColor(img *image1bit.HorizontalMSB, x, y int) color.NRGBA {
	n := 0
	if img.BitAt(x, y) == image1bit.White {
		n++
	}
	if y+1 >= img.Bounds().Max.Y || img.BitAt(x, y+1) == image1bit.White {
		n++
	}
	v := blend[n]
	return color.NRGBA{v, v, v, 255}
}

// blend maps the number of white pixels in a cell to a gray level.
var blend = [3]byte{0x00, 0x7f, 0xff}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
