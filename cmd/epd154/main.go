// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epd154 draws a watch face or a picture on a 1.54" SSD1681 e-paper panel.
//
// Without hardware, -sim runs the driver against a simulated controller and
// shows the panel in the terminal; -http serves it to a browser:
//
//	epd154 -sim -http :8080
//
// On a Raspberry Pi with the Waveshare HAT:
//
//	epd154 -image gopher.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/preview"
	"github.com/GermanBionicSystems/epaper/ssd1681"
	"github.com/GermanBionicSystems/epaper/ssd1681/ssd1681sim"
	"github.com/GermanBionicSystems/epaper/termview"
	"github.com/disintegration/imaging"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type config struct {
	sim       bool
	busyPolls int
	term      bool
	httpAddr  string
	scale     int
	imagePath string
	text      string
	spiName   string
	dc        string
	cs        string
	rst       string
	busy      string
	border    string
	invert    bool
	sleep     bool
	timeout   time.Duration
	verbose   bool
}

func parseFlags(args []string) (*config, error) {
	c := &config{}
	fs := flag.NewFlagSet("epd154", flag.ContinueOnError)
	fs.BoolVar(&c.sim, "sim", false, "use a simulated controller instead of SPI hardware")
	fs.IntVar(&c.busyPolls, "sim-busy", 5, "busy line polls the simulated controller takes per operation; the driver polls every 2ms")
	fs.BoolVar(&c.term, "term", false, "print the panel in the terminal (default with -sim)")
	fs.StringVar(&c.httpAddr, "http", "", "serve the panel on this address, e.g. :8080")
	fs.IntVar(&c.scale, "scale", 2, "pixel magnification of the -http preview")
	fs.StringVar(&c.imagePath, "image", "", "picture to dither onto the panel instead of the watch face")
	fs.StringVar(&c.text, "text", "", "caption under the watch face; the date when empty")
	fs.StringVar(&c.spiName, "spi", "", "SPI port name; first available when empty")
	fs.StringVar(&c.dc, "dc", "", "DC pin name; the Waveshare HAT pin-out is used when all pins are empty")
	fs.StringVar(&c.cs, "cs", "", "CS pin name; empty when the SPI port drives chip select")
	fs.StringVar(&c.rst, "rst", "", "RST pin name")
	fs.StringVar(&c.busy, "busy", "", "BUSY pin name")
	fs.StringVar(&c.border, "border", "white", "border color: white or black")
	fs.BoolVar(&c.invert, "invert", false, "invert the panel")
	fs.BoolVar(&c.sleep, "sleep", true, "put the controller to deep sleep when done")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "deadline for talking to the panel")
	fs.BoolVar(&c.verbose, "v", false, "log busy waits")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if c.sim && !isFlagSet(fs, "term") {
		c.term = true
	}
	if c.border != "white" && c.border != "black" {
		return nil, fmt.Errorf("-border must be white or black, got %q", c.border)
	}
	if c.timeout <= 0 {
		return nil, errors.New("-timeout must be positive")
	}
	if c.busyPolls < 0 {
		return nil, errors.New("-sim-busy must not be negative")
	}
	return c, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// driverOpts maps the command line to the driver configuration.
func driverOpts(c *config) *ssd1681.Opts {
	o := ssd1681.DefaultOpts
	if c.border == "black" {
		o.Border = ssd1681.BorderBlack
	}
	if c.invert {
		o.RAMOption = ssd1681.RAMInvert
	}
	o.OnStateChange = func(from, to ssd1681.State) {
		log.Printf("ssd1681: %s -> %s", from, to)
	}
	if c.verbose {
		var start time.Time
		o.OnBusy = func(busy bool) {
			if busy {
				start = time.Now()
				return
			}
			log.Printf("ssd1681: busy for %v", time.Since(start).Round(time.Millisecond))
		}
	}
	return &o
}

// openHardware connects to the panel over SPI.
func openHardware(c *config) (ssd1681.Bus, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	p, err := spireg.Open(c.spiName)
	if err != nil {
		return nil, nil, err
	}
	var bus *ssd1681.SPIBus
	if c.dc == "" && c.cs == "" && c.rst == "" && c.busy == "" {
		bus, err = ssd1681.NewHat(p)
	} else {
		bus, err = openPins(p, c)
	}
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return bus, p.Close, nil
}

func openPins(p spi.Port, c *config) (*ssd1681.SPIBus, error) {
	dc, err := pinByName("dc", c.dc)
	if err != nil {
		return nil, err
	}
	rst, err := pinByName("rst", c.rst)
	if err != nil {
		return nil, err
	}
	busy, err := pinByName("busy", c.busy)
	if err != nil {
		return nil, err
	}
	var cs gpio.PinOut
	if c.cs != "" {
		pin, err := pinByName("cs", c.cs)
		if err != nil {
			return nil, err
		}
		cs = pin
	}
	return ssd1681.NewSPI(p, dc, cs, rst, busy)
}

func pinByName(flagName, name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("-%s is required when pins are named", flagName)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q for -%s", name, flagName)
	}
	return pin, nil
}

// render returns the framebuffer to show.
func render(c *config, now time.Time) (*image1bit.HorizontalMSB, error) {
	bounds := image.Rect(0, 0, ssd1681.Width, ssd1681.Height)
	if c.imagePath != "" {
		img, err := imaging.Open(c.imagePath, imaging.AutoOrientation(true))
		if err != nil {
			return nil, err
		}
		return image1bit.Convert(img, bounds), nil
	}
	f, err := newFace(ssd1681.Width)
	if err != nil {
		return nil, err
	}
	return image1bit.Convert(f.render(now, c.text), bounds), nil
}

// run pushes one frame to the panel behind bus and mirrors it to term (when
// c.term is set) and srv (when not nil). A simulated panel is mirrored with
// what it displays rather than with what was sent.
func run(ctx context.Context, c *config, bus ssd1681.Bus, term io.Writer, srv *preview.Server) (*ssd1681.Dev, error) {
	var mirrors []display.Drawer
	if c.term {
		mirrors = append(mirrors, termview.New(&termview.Opts{W: ssd1681.Width, H: ssd1681.Height, Out: term}))
	}
	if srv != nil {
		mirrors = append(mirrors, srv)
	}
	mirror := func(img *image1bit.HorizontalMSB) {
		for _, m := range mirrors {
			if err := m.Draw(img.Bounds(), img, image.Point{}); err != nil {
				log.Printf("mirror: %v", err)
			}
		}
	}
	panel, sim := bus.(*ssd1681sim.Panel)
	if sim {
		defer panel.Subscribe(mirror)()
	}

	dev, err := ssd1681.New(bus, driverOpts(c))
	if err != nil {
		return nil, err
	}
	log.Printf("%s", dev)

	fb, err := render(c, time.Now())
	if err != nil {
		return dev, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := dev.Init(ctx); err != nil {
		return dev, err
	}
	if err := dev.Update(ctx, fb); err != nil {
		return dev, err
	}
	if !sim {
		mirror(fb)
	}
	if c.sleep {
		if err := dev.Sleep(ctx); err != nil {
			return dev, err
		}
	}
	return dev, nil
}

func mainImpl() error {
	c, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var srv *preview.Server
	if c.httpAddr != "" {
		srv = preview.New(&preview.Opts{W: ssd1681.Width, H: ssd1681.Height, Scale: c.scale, Keepalive: 10 * time.Second})
		go func() {
			log.Printf("preview on http://%s/", c.httpAddr)
			if err := http.ListenAndServe(c.httpAddr, srv); err != nil {
				log.Printf("preview: %v", err)
			}
		}()
	}

	var bus ssd1681.Bus
	if c.sim {
		bus = ssd1681sim.New(&ssd1681sim.Opts{BusyPolls: c.busyPolls})
	} else {
		b, closer, err := openHardware(c)
		if err != nil {
			return err
		}
		defer closer()
		bus = b
	}

	// A nil writer selects the colorable stdout.
	if _, err := run(ctx, c, bus, nil, srv); err != nil {
		return err
	}

	if srv != nil {
		log.Printf("serving until interrupted")
		<-ctx.Done()
		return srv.Halt()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "epd154: %s.\n", err)
		os.Exit(1)
	}
}
