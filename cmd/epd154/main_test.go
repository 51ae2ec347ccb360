// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/ssd1681"
	"github.com/GermanBionicSystems/epaper/ssd1681/ssd1681sim"
)

func TestParseFlags(t *testing.T) {
	c, err := parseFlags([]string{"-sim", "-border", "black", "-timeout", "5s"})
	if err != nil {
		t.Fatalf("parseFlags() failed: %v", err)
	}
	if !c.sim || !c.term || c.timeout != 5*time.Second || !c.sleep {
		t.Errorf("parseFlags() = %+v", c)
	}

	c, err = parseFlags([]string{"-sim", "-term=false"})
	if err != nil {
		t.Fatal(err)
	}
	if c.term {
		t.Error("-term=false ignored with -sim")
	}

	for _, args := range [][]string{
		{"-border", "red"},
		{"-timeout", "0s"},
		{"-sim-busy", "-1"},
		{"extra"},
		{"-nope"},
	} {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%q) succeeded", args)
		}
	}
}

func TestDriverOpts(t *testing.T) {
	o := driverOpts(&config{border: "black", invert: true, verbose: true})
	if o.Border != ssd1681.BorderBlack {
		t.Errorf("Border = %#x", o.Border)
	}
	if o.RAMOption != ssd1681.RAMInvert {
		t.Errorf("RAMOption = %#x", o.RAMOption)
	}
	if o.OnStateChange == nil || o.OnBusy == nil {
		t.Error("hooks not set")
	}
	if o.RefreshTimeout != ssd1681.DefaultOpts.RefreshTimeout {
		t.Errorf("RefreshTimeout = %v", o.RefreshTimeout)
	}
}

func TestPinByName(t *testing.T) {
	if _, err := pinByName("dc", ""); err == nil {
		t.Error("empty pin name accepted")
	}
	if _, err := pinByName("dc", "NO_SUCH_PIN"); err == nil {
		t.Error("unknown pin accepted")
	}
}

func TestRenderImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				src.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}
	path := filepath.Join(t.TempDir(), "half.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	fb, err := render(&config{imagePath: path}, time.Now())
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}
	if fb.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Fatalf("Bounds() = %v", fb.Bounds())
	}
	// The picture is scaled to 200x100 and centered vertically.
	if fb.BitAt(20, 100) != image1bit.White || fb.BitAt(180, 100) != image1bit.Black {
		t.Error("picture halves are not white then black")
	}
	if fb.BitAt(180, 10) != image1bit.White {
		t.Error("letterbox is not white")
	}

	if _, err := render(&config{imagePath: filepath.Join(t.TempDir(), "missing.png")}, time.Now()); err == nil {
		t.Error("render() of a missing file succeeded")
	}
}

func TestRunSimulated(t *testing.T) {
	c, err := parseFlags([]string{"-sim"})
	if err != nil {
		t.Fatal(err)
	}
	panel := ssd1681sim.New(&ssd1681sim.Opts{BusyPolls: c.busyPolls})
	var out bytes.Buffer

	dev, err := run(context.Background(), c, panel, &out, nil)
	if err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if dev.State() != ssd1681.Sleeping {
		t.Errorf("State() = %s, want Sleeping", dev.State())
	}
	if n := panel.Refreshes(); n != 1 {
		t.Errorf("Refreshes() = %d, want 1", n)
	}
	if m := panel.Sleeping(); m != ssd1681.DeepSleep1 {
		t.Errorf("Sleeping() = %s, want %s", m, ssd1681.DeepSleep1)
	}
	black := 0
	img := panel.Image()
	for y := 0; y < ssd1681.Height; y++ {
		for x := 0; x < ssd1681.Width; x++ {
			if img.BitAt(x, y) == image1bit.Black {
				black++
			}
		}
	}
	if black == 0 {
		t.Error("the panel shows no watch face")
	}
	// One frame, two pixel rows per line.
	if n := strings.Count(out.String(), "\n"); n != ssd1681.Height/2 {
		t.Errorf("terminal output has %d lines, want %d", n, ssd1681.Height/2)
	}
}

func TestRunSimulatedBusyTimeout(t *testing.T) {
	c, err := parseFlags([]string{"-sim", "-term=false", "-timeout", "5s"})
	if err != nil {
		t.Fatal(err)
	}
	panel := ssd1681sim.New(&ssd1681sim.Opts{StuckBusy: true})
	dev, err := run(context.Background(), c, panel, nil, nil)
	if !errors.Is(err, ssd1681.ErrBusyTimeout) {
		t.Fatalf("run() = %v, want ErrBusyTimeout", err)
	}
	if dev.State() != ssd1681.Faulted {
		t.Errorf("State() = %s, want Faulted", dev.State())
	}
	if n := panel.Refreshes(); n != 0 {
		t.Errorf("Refreshes() = %d, want 0", n)
	}
}
