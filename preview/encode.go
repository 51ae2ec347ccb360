// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"

	"github.com/GermanBionicSystems/epaper/image1bit"
)

// Format is an image encoding sent to clients.
type Format int

const (
	PNG Format = iota
	JPEG

	// DefaultFormat is used when neither Opts nor the request pick one.
	DefaultFormat = PNG
)

// formats is indexed by Format.
var formats = [...]struct {
	name    string
	aliases []string
	mime    string
}{
	PNG:  {"PNG", []string{"png"}, "image/png"},
	JPEG: {"JPEG", []string{"jpg", "jpeg"}, "image/jpeg"},
}

func (f Format) known() bool {
	return f >= 0 && int(f) < len(formats)
}

func (f Format) String() string {
	if !f.known() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formats[f].name
}

func (f Format) mimeType() string {
	if !f.known() {
		return "application/octet-stream"
	}
	return formats[f].mime
}

// ParseFormat returns the Format named by a file extension, e.g. "png" or
// "jpg". Case is ignored.
func ParseFormat(value string) (Format, error) {
	value = strings.ToLower(value)
	for f, desc := range formats {
		for _, a := range desc.aliases {
			if a == value {
				return Format(f), nil
			}
		}
	}
	return DefaultFormat, fmt.Errorf("preview: unrecognized image format %q", value)
}

type pngBufferPool sync.Pool

func (p *pngBufferPool) Get() *png.EncoderBuffer {
	buf, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return buf
}

func (p *pngBufferPool) Put(buf *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(buf)
}

// pngEncoder shares its buffers between all servers. Panel frames are small
// and redrawn often, so speed wins over size.
var pngEncoder = &png.Encoder{
	CompressionLevel: png.BestSpeed,
	BufferPool:       &pngBufferPool{},
}

// bilevel is the palette of the encoded frames: index 0 black, 1 white.
var bilevel = color.Palette{color.Gray{Y: 0x00}, color.Gray{Y: 0xff}}

// expand returns panel as a paletted image with each pixel magnified scale
// times.
func expand(panel *image1bit.HorizontalMSB, scale int) *image.Paletted {
	b := panel.Bounds()
	img := image.NewPaletted(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale), bilevel)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if panel.BitAt(x, y) == image1bit.Black {
				continue
			}
			dx, dy := (x-b.Min.X)*scale, (y-b.Min.Y)*scale
			for j := 0; j < scale; j++ {
				row := img.Pix[(dy+j)*img.Stride+dx:]
				for i := 0; i < scale; i++ {
					row[i] = 1
				}
			}
		}
	}
	return img
}

func encode(w io.Writer, panel *image1bit.HorizontalMSB, scale int, format Format, quality int) error {
	img := expand(panel, scale)
	switch format {
	case PNG:
		return pngEncoder.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
	return fmt.Errorf("preview: unhandled image format %s", format)
}
