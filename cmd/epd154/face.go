// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// face renders a watch face: an analog clock over a caption line.
type face struct {
	size    int
	regular *truetype.Font
	bold    *truetype.Font
}

func newFace(size int) (*face, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &face{size: size, regular: regular, bold: bold}, nil
}

// render draws t and caption. An empty caption shows the date.
func (f *face) render(t time.Time, caption string) image.Image {
	s := float64(f.size)
	dc := gg.NewContext(f.size, f.size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)

	cx, cy, r := s/2, s*0.42, s*0.36

	dc.SetLineWidth(s / 100)
	dc.DrawCircle(cx, cy, r)
	dc.Stroke()

	for i := 0; i < 12; i++ {
		a := gg.Radians(float64(i) * 30)
		inner := r * 0.88
		if i%3 == 0 {
			inner = r * 0.78
		}
		dc.DrawLine(cx+inner*math.Sin(a), cy-inner*math.Cos(a), cx+r*math.Sin(a), cy-r*math.Cos(a))
	}
	dc.Stroke()

	h, m := t.Hour()%12, t.Minute()
	hand := func(angle, length, width float64) {
		dc.SetLineWidth(width)
		dc.DrawLine(cx, cy, cx+length*math.Sin(angle), cy-length*math.Cos(angle))
		dc.Stroke()
	}
	hand(gg.Radians(float64(h)*30+float64(m)*0.5), r*0.5, s/40)
	hand(gg.Radians(float64(m)*6), r*0.8, s/60)
	dc.DrawCircle(cx, cy, s/50)
	dc.Fill()

	if caption == "" {
		caption = t.Format("Mon 2 Jan")
	}
	dc.SetFontFace(truetype.NewFace(f.bold, &truetype.Options{Size: s / 9}))
	dc.DrawStringAnchored(t.Format("15:04"), cx, s*0.86, 0.5, 0.5)
	dc.SetFontFace(truetype.NewFace(f.regular, &truetype.Options{Size: s / 14}))
	dc.DrawStringAnchored(caption, cx, s*0.95, 0.5, 0.5)

	return dc.Image()
}
