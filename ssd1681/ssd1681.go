// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// Panel geometry. The SSD1681 drives at most 200 sources and 200 gates.
const (
	Width  = 200
	Height = 200
)

var panelRect = image.Rect(0, 0, Width, Height)

// Opts defines the panel configuration.
type Opts struct {
	// GateScan is the gate scanning order sent with DriverOutputControl.
	GateScan GateScan
	// LUT is a custom waveform. When empty the manufacturer waveform is
	// loaded from the controller OTP.
	LUT LUT
	// Border is the border waveform.
	Border BorderWaveform
	// TempSensor selects the sensor used for waveform compensation.
	TempSensor TemperatureSensor
	// RAMOption maps RAM bits to pixels.
	RAMOption RAMOption
	// SleepMode is used by Sleep.
	SleepMode DeepSleepMode

	// ResetPulse is how long the reset line is held low, ResetSettle how long
	// to wait after releasing it.
	ResetPulse  time.Duration
	ResetSettle time.Duration

	// Busy timeouts per phase. They must be positive.
	ResetTimeout   time.Duration
	InitTimeout    time.Duration
	RefreshTimeout time.Duration

	// PollInterval is the busy line polling period. It is clamped to
	// [MinPollInterval, MaxPollInterval]; zero selects DefaultPollInterval.
	PollInterval time.Duration

	// OnStateChange, if set, is called on every state transition.
	OnStateChange func(from, to State)
	// OnBusy, if set, is called when a busy wait starts and ends.
	OnBusy func(busy bool)
}

// DefaultOpts is the configuration of the GDEH0154D67 panel.
var DefaultOpts = Opts{
	GateScan:       GateScanDefault,
	Border:         DefaultBorder,
	TempSensor:     InternalSensor,
	RAMOption:      RAMNormal,
	SleepMode:      DeepSleep1,
	ResetPulse:     10 * time.Millisecond,
	ResetSettle:    10 * time.Millisecond,
	ResetTimeout:   50 * time.Millisecond,
	InitTimeout:    500 * time.Millisecond,
	RefreshTimeout: 5 * time.Second,
	PollInterval:   DefaultPollInterval,
}

func (o *Opts) validate() error {
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"reset", o.ResetTimeout},
		{"init", o.InitTimeout},
		{"refresh", o.RefreshTimeout},
	} {
		if t.d <= 0 {
			return fmt.Errorf("ssd1681: %s timeout must be positive, got %v", t.name, t.d)
		}
	}
	if o.ResetPulse < 0 || o.ResetSettle < 0 {
		return errors.New("ssd1681: reset durations must not be negative")
	}
	switch len(o.LUT) {
	case 0, LUTSize, LUTSizeWithVoltages:
	default:
		return fmt.Errorf("ssd1681: LUT must be %d or %d bytes, got %d", LUTSize, LUTSizeWithVoltages, len(o.LUT))
	}
	return nil
}

// Dev is a handle to a SSD1681 controller.
//
// A Dev has a single owner: it must not be used concurrently.
type Dev struct {
	bus  Bus
	opts Opts
	busy busyWaiter

	state State
	fault error
	mode  RefreshMode

	// canvas backs the display.Drawer implementation only.
	canvas *image1bit.HorizontalMSB
}

// New returns a driver in the Uninitialized state. A nil opts selects
// DefaultOpts. Nothing is sent to the controller until Init.
func New(bus Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if err := o.validate(); err != nil {
		return nil, err
	}
	o.PollInterval = clampPollInterval(o.PollInterval)
	// The caller keeps ownership of the LUT slice.
	o.LUT = append(LUT(nil), o.LUT...)

	d := &Dev{
		bus:   bus,
		opts:  o,
		state: Uninitialized,
		mode:  Full,
	}
	d.busy = busyWaiter{bus: bus, poll: o.PollInterval, onBusy: o.OnBusy}
	return d, nil
}

// NewFramebuffer returns a white framebuffer matching the panel.
func NewFramebuffer() *image1bit.HorizontalMSB {
	fb := image1bit.NewHorizontalMSB(panelRect)
	fb.Clear(image1bit.White)
	return fb
}

// State returns the current controller state.
func (d *Dev) State() State {
	return d.state
}

// Fault returns why the driver is Faulted, nil in any other state.
func (d *Dev) Fault() error {
	if d.state != Faulted {
		return nil
	}
	return d.fault
}

// RefreshMode returns the mode used by Update.
func (d *Dev) RefreshMode() RefreshMode {
	return d.mode
}

// SetRefreshMode changes the mode used by Update. Only Full is supported.
func (d *Dev) SetRefreshMode(mode RefreshMode) error {
	if mode != Full {
		return fmt.Errorf("ssd1681: %s refresh: %w", mode, errors.ErrUnsupported)
	}
	d.mode = mode
	return nil
}

// Init resets the controller and loads the configuration and the waveform.
//
// Init is permitted in every state. It is the only way out of Sleeping and
// Faulted, and the recovery after an interrupted operation. A context that is
// already done leaves the state unchanged.
func (d *Dev) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ssd1681: init: %w", err)
	}
	s := d.newSession(ctx)

	d.setState(Resetting)
	d.reset(s)
	if err := d.finish(ctx, s.err); err != nil {
		return err
	}

	d.setState(Initializing)
	initDisplay(s, &d.opts)
	if err := d.finish(ctx, s.err); err != nil {
		return err
	}

	d.setState(Idle)
	return nil
}

// Update transfers fb to the controller RAM and refreshes the panel. It
// returns once the busy line cleared after the refresh.
//
// fb is only read during the call. It must be a Width x Height image at the
// origin, as returned by NewFramebuffer.
func (d *Dev) Update(ctx context.Context, fb *image1bit.HorizontalMSB) error {
	if d.state != Idle {
		return &InvalidStateError{Op: "update", State: d.state}
	}
	if fb == nil || fb.Rect != panelRect || len(fb.Pix) != Height*((Width+7)/8) {
		return ErrFramebufferSize
	}
	if d.mode != Full {
		return fmt.Errorf("ssd1681: %s refresh: %w", d.mode, errors.ErrUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ssd1681: update: %w", err)
	}

	s := d.newSession(ctx)

	d.setState(TransferringImage)
	sendImage(s, panelRect, fb.Bytes())
	if err := d.finish(ctx, s.err); err != nil {
		return err
	}

	d.setState(Refreshing)
	updateDisplay(s, d.mode, &d.opts)
	if err := d.finish(ctx, s.err); err != nil {
		return err
	}

	d.setState(Idle)
	return nil
}

// PowerOff turns the booster and the oscillator off while staying Idle. The
// next Update turns them back on.
func (d *Dev) PowerOff(ctx context.Context) error {
	if d.state != Idle {
		return &InvalidStateError{Op: "power off", State: d.state}
	}
	s := d.newSession(ctx)
	powerOff(s, &d.opts)
	return d.finish(ctx, s.err)
}

// Sleep makes the controller enter deep sleep. It can be woken up by calling
// Init again.
func (d *Dev) Sleep(ctx context.Context) error {
	if d.state != Idle {
		return &InvalidStateError{Op: "sleep", State: d.state}
	}
	s := d.newSession(ctx)
	enterDeepSleep(s, d.opts.SleepMode)
	if err := d.finish(ctx, s.err); err != nil {
		return err
	}
	d.setState(Sleeping)
	return nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return panelRect
}

// Draw implements display.Drawer. The area outside r keeps what was drawn by
// previous Draw calls; the whole panel is refreshed.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.state != Idle {
		return &InvalidStateError{Op: "draw", State: d.state}
	}
	if d.canvas == nil {
		d.canvas = NewFramebuffer()
	}
	draw.Src.Draw(d.canvas, r.Intersect(panelRect), src, sp)
	return d.Update(context.Background(), d.canvas)
}

// Halt implements conn.Resource. An Idle controller is put to deep sleep.
func (d *Dev) Halt() error {
	if d.state != Idle {
		return nil
	}
	return d.Sleep(context.Background())
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	name := fmt.Sprintf("%T", d.bus)
	if s, ok := d.bus.(fmt.Stringer); ok {
		name = s.String()
	}
	return fmt.Sprintf("ssd1681.Dev{%s, Width: %d, Height: %d, %s}", name, Width, Height, d.state)
}

func (d *Dev) newSession(ctx context.Context) *session {
	return &session{ctx: ctx, bus: d.bus, busy: &d.busy}
}

// reset pulses the reset line.
func (d *Dev) reset(s *session) {
	s.setReset(gpio.Low)
	s.delay(d.opts.ResetPulse)
	s.setReset(gpio.High)
	s.delay(d.opts.ResetSettle)
}

// finish records the outcome of a phase. Busy timeouts and bus failures fault
// the driver. A done context keeps the current state: the controller may still
// be working and the next call must observe that.
func (d *Dev) finish(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("ssd1681: interrupted while %s: %w", d.state, err)
	}
	var bt *BusyTimeoutError
	if errors.As(err, &bt) {
		bt.Phase = d.state
	}
	d.fault = err
	d.setState(Faulted)
	return err
}

func (d *Dev) setState(s State) {
	from := d.state
	d.state = s
	if s != Faulted {
		d.fault = nil
	}
	if d.opts.OnStateChange != nil && from != s {
		d.opts.OnStateChange(from, s)
	}
}

var _ display.Drawer = &Dev{}
var _ conn.Resource = &Dev{}
