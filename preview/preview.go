// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package preview serves the content of a 1 bit panel over HTTP.
//
// Server is a display.Drawer: every Draw pushes a new frame to the connected
// clients as a "multipart/x-mixed-replace" stream (MJPEG), the format IP
// cameras use and browsers show inline. Frames are PNG by default since the
// panel is black and white; "?format=jpeg" selects JPEG. "?once=1" returns a
// single image instead of a stream.
//
// Subscribe it to a ssd1681sim.Panel to watch the simulated panel refresh, or
// Draw the framebuffer sent to real hardware to mirror it.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"periph.io/x/conn/v3/display"
)

// Opts for preview servers.
type Opts struct {
	// W and H are the panel size in pixels.
	W, H int
	// Format is sent to clients not asking for one.
	Format Format
	// Scale magnifies each panel pixel to Scale x Scale image pixels. Zero
	// means 1.
	Scale int
	// JPEGQuality defaults to jpeg.DefaultQuality.
	JPEGQuality int
	// Keepalive resends the current frame when nothing was drawn for that
	// long. Zero disables it.
	Keepalive time.Duration
}

// Server is a display.Drawer and an http.Handler streaming what is drawn.
type Server struct {
	format    Format
	scale     int
	quality   int
	keepalive time.Duration

	mu      sync.Mutex
	panel   *image1bit.HorizontalMSB
	frame   uint64
	clients map[*client]struct{}
	// encoded caches the current frame per format.
	encoded map[Format][]byte
}

var _ display.Drawer = (*Server)(nil)
var _ http.Handler = (*Server)(nil)

// New returns a server showing a white panel.
func New(opts *Opts) *Server {
	panel := image1bit.NewHorizontalMSB(image.Rect(0, 0, opts.W, opts.H))
	panel.Clear(image1bit.White)

	scale := opts.Scale
	if scale < 1 {
		scale = 1
	}
	quality := opts.JPEGQuality
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}
	return &Server{
		format:    opts.Format,
		scale:     scale,
		quality:   quality,
		keepalive: opts.Keepalive,
		panel:     panel,
		clients:   map[*client]struct{}{},
		encoded:   map[Format][]byte{},
	}
}

// String returns the name of the device.
func (s *Server) String() string {
	return fmt.Sprintf("Preview{%dx%d, %s}", s.panel.Rect.Dx(), s.panel.Rect.Dy(), s.format)
}

// Halt implements conn.Resource and terminates all running streams
// asynchronously.
func (s *Server) Halt() error {
	s.mu.Lock()
	for c := range s.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
	return nil
}

// ColorModel implements display.Drawer.
func (s *Server) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (s *Server) Bounds() image.Rectangle {
	return s.panel.Bounds()
}

// Draw implements display.Drawer.
func (s *Server) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Src.Draw(s.panel, r.Intersect(s.panel.Bounds()), src, sp)
	s.frame++
	clear(s.encoded)
	for c := range s.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Frames returns the number of Draw calls so far.
func (s *Server) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// snapshot returns the current frame encoded in format.
func (s *Server) snapshot(format Format) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.encoded[format]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	if err := encode(&buf, s.panel, s.scale, format, s.quality); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	s.encoded[format] = b
	return b, nil
}
