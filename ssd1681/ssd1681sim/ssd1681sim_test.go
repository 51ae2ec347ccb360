// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681sim

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/ssd1681"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/gpio"
)

func driverOpts() *ssd1681.Opts {
	o := ssd1681.DefaultOpts
	o.ResetPulse = 0
	o.ResetSettle = 0
	o.ResetTimeout = 100 * time.Millisecond
	o.InitTimeout = 100 * time.Millisecond
	o.RefreshTimeout = 100 * time.Millisecond
	o.PollInterval = ssd1681.MinPollInterval
	return &o
}

func newDriver(t *testing.T, p *Panel, o *ssd1681.Opts) *ssd1681.Dev {
	t.Helper()
	if o == nil {
		o = driverOpts()
	}
	d, err := ssd1681.New(p, o)
	if err != nil {
		t.Fatalf("ssd1681.New() failed: %v", err)
	}
	if err := d.Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return d
}

func testPattern() *image1bit.HorizontalMSB {
	fb := ssd1681.NewFramebuffer()
	for i := 0; i < ssd1681.Width; i++ {
		_ = fb.SetPixel(i, i, image1bit.Black)
		_ = fb.SetPixel(ssd1681.Width-1-i, i, image1bit.Black)
	}
	return fb
}

func TestDriverRoundTrip(t *testing.T) {
	p := New(&Opts{BusyPolls: 3})
	d := newDriver(t, p, nil)

	if p.LUT() != OTPLUT {
		t.Errorf("LUT() = %s, want OTP", p.LUT())
	}
	if p.Border() != ssd1681.DefaultBorder {
		t.Errorf("Border() = %#x, want %#x", p.Border(), ssd1681.DefaultBorder)
	}

	fb := testPattern()
	if err := d.Update(context.Background(), fb); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	if !bytes.Equal(p.RAM(), fb.Pix) {
		t.Error("RAM does not match the framebuffer")
	}
	if !bytes.Equal(p.Image().Pix, fb.Pix) {
		t.Error("panel does not show the framebuffer")
	}
	if p.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", p.Refreshes())
	}
	if p.Powered() {
		t.Error("analog circuits left on after a full refresh")
	}
	for _, tr := range p.Transactions() {
		if tr.Busy {
			t.Errorf("%s written while busy", tr.Op)
		}
	}
}

func TestCustomLUT(t *testing.T) {
	p := New(&Opts{BusyPolls: 1})
	o := driverOpts()
	o.LUT = make(ssd1681.LUT, ssd1681.LUTSizeWithVoltages)
	d := newDriver(t, p, o)

	if p.LUT() != CustomLUT {
		t.Fatalf("LUT() = %s, want custom", p.LUT())
	}
	if err := d.Update(context.Background(), testPattern()); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if p.LUT() != CustomLUT {
		t.Errorf("refresh replaced the custom LUT with %s", p.LUT())
	}
	if p.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", p.Refreshes())
	}
}

func TestRAMInvert(t *testing.T) {
	p := New(nil)
	o := driverOpts()
	o.RAMOption = ssd1681.RAMInvert
	d := newDriver(t, p, o)

	fb := testPattern()
	if err := d.Update(context.Background(), fb); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	img := p.Image()
	if img.BitAt(0, 0) != image1bit.White || img.BitAt(1, 0) != image1bit.Black {
		t.Errorf("panel is not inverted: (0,0)=%s (1,0)=%s", img.BitAt(0, 0), img.BitAt(1, 0))
	}
}

func TestSubscribe(t *testing.T) {
	p := New(nil)
	d := newDriver(t, p, nil)

	var got []*image1bit.HorizontalMSB
	cancel := p.Subscribe(func(img *image1bit.HorizontalMSB) { got = append(got, img) })

	fb := testPattern()
	if err := d.Update(context.Background(), fb); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if !bytes.Equal(got[0].Pix, fb.Pix) {
		t.Error("notified image does not match the framebuffer")
	}

	cancel()
	if err := d.Update(context.Background(), fb); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d notifications after cancel, want 1", len(got))
	}
}

func TestDeepSleep(t *testing.T) {
	for _, tc := range []struct {
		mode     ssd1681.DeepSleepMode
		keepsRAM bool
	}{
		{ssd1681.DeepSleep1, true},
		{ssd1681.DeepSleep2, false},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			p := New(nil)
			o := driverOpts()
			o.SleepMode = tc.mode
			d := newDriver(t, p, o)
			fb := testPattern()
			if err := d.Update(context.Background(), fb); err != nil {
				t.Fatal(err)
			}
			if err := d.Sleep(context.Background()); err != nil {
				t.Fatal(err)
			}
			if p.Sleeping() != tc.mode {
				t.Fatalf("Sleeping() = %s, want %s", p.Sleeping(), tc.mode)
			}

			// Commands are ignored until a hardware reset.
			p.ClearTransactions()
			ctx := context.Background()
			if err := p.WriteCommand(ctx, byte(ssd1681.WriteRAMBW)); err != nil {
				t.Fatal(err)
			}
			if err := p.WriteData(ctx, []byte{0x00}); err != nil {
				t.Fatal(err)
			}
			tr := p.Transactions()
			if len(tr) != 1 || !tr[0].Ignored {
				t.Errorf("Transactions() = %+v, want one ignored command", tr)
			}
			if p.RAM()[0] == 0x00 && tc.keepsRAM {
				t.Error("RAM written during deep sleep")
			}

			if err := d.Init(ctx); err != nil {
				t.Fatalf("Init() after sleep failed: %v", err)
			}
			if p.Sleeping() != ssd1681.NormalMode {
				t.Errorf("Sleeping() = %s after Init", p.Sleeping())
			}
			if got := bytes.Equal(p.RAM(), fb.Pix); got != tc.keepsRAM {
				t.Errorf("RAM retained = %t, want %t", got, tc.keepsRAM)
			}
		})
	}
}

func TestPowerOff(t *testing.T) {
	p := New(nil)
	d := newDriver(t, p, nil)
	ctx := context.Background()

	// Turn the analog circuits on and leave them on.
	_ = p.WriteCommand(ctx, byte(ssd1681.DisplayUpdateControl2))
	_ = p.WriteData(ctx, []byte{byte(ssd1681.UpdateEnableClock | ssd1681.UpdateEnableAnalog)})
	_ = p.WriteCommand(ctx, byte(ssd1681.MasterActivation))
	if !p.Powered() {
		t.Fatal("analog circuits are off")
	}

	if err := d.PowerOff(ctx); err != nil {
		t.Fatalf("PowerOff() failed: %v", err)
	}
	if p.Powered() {
		t.Error("analog circuits are on after PowerOff")
	}
}

func TestStuckBusy(t *testing.T) {
	p := New(nil)
	o := driverOpts()
	o.RefreshTimeout = 10 * time.Millisecond
	d := newDriver(t, p, o)

	p.SetStuckBusy(true)
	err := d.Update(context.Background(), testPattern())
	if !errors.Is(err, ssd1681.ErrBusyTimeout) {
		t.Fatalf("Update() = %v, want ErrBusyTimeout", err)
	}
	if d.State() != ssd1681.Faulted {
		t.Errorf("State() = %s, want Faulted", d.State())
	}

	p.SetStuckBusy(false)
	if err := d.Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := d.Update(context.Background(), testPattern()); err != nil {
		t.Fatalf("Update() after recovery failed: %v", err)
	}
}

func TestFailWrite(t *testing.T) {
	p := New(nil)
	d := newDriver(t, p, nil)

	// Five window commands and their parameters come before WriteRAMBW.
	p.FailWrite(11)
	err := d.Update(context.Background(), testPattern())
	if !errors.Is(err, ErrInjected) {
		t.Fatalf("Update() = %v, want ErrInjected", err)
	}
	var be *ssd1681.BusError
	if !errors.As(err, &be) || be.Op != ssd1681.WriteRAMBW {
		t.Errorf("Update() = %v, want a BusError on WriteRAMBW", err)
	}
	if d.State() != ssd1681.Faulted {
		t.Errorf("State() = %s, want Faulted", d.State())
	}
	if p.Refreshes() != 0 {
		t.Errorf("Refreshes() = %d, want 0", p.Refreshes())
	}
}

func TestRAMWindow(t *testing.T) {
	p := New(nil)
	ctx := context.Background()
	send := func(op ssd1681.Opcode, data ...byte) {
		t.Helper()
		if err := p.WriteCommand(ctx, byte(op)); err != nil {
			t.Fatal(err)
		}
		if len(data) > 0 {
			if err := p.WriteData(ctx, data); err != nil {
				t.Fatal(err)
			}
		}
	}

	send(ssd1681.DataEntryModeSetting, 0x03)
	send(ssd1681.SetRAMXAddressStartEndPosition, 1, 2)
	send(ssd1681.SetRAMYAddressStartEndPosition, 10, 0, 11, 0)
	send(ssd1681.SetRAMXAddressCounter, 1)
	send(ssd1681.SetRAMYAddressCounter, 10, 0)
	send(ssd1681.WriteRAMBW, 0xa1, 0xa2)
	// A second write continues at the counters.
	if err := p.WriteData(ctx, []byte{0xa3, 0xa4, 0xa5}); err != nil {
		t.Fatal(err)
	}

	ram := p.RAM()
	for _, tc := range []struct {
		x, y int
		want byte
	}{
		// The fifth byte wrapped around the window.
		{1, 10, 0xa5},
		{2, 10, 0xa2},
		{1, 11, 0xa3},
		{2, 11, 0xa4},
		{0, 10, 0xff},
		{3, 10, 0xff},
	} {
		if got := ram[tc.y*stride+tc.x]; got != tc.want {
			t.Errorf("RAM[%d,%d] = %#x, want %#x", tc.x, tc.y, got, tc.want)
		}
	}
	if p.x != 2 || p.y != 10 {
		t.Errorf("counters = (%d,%d), want (2,10)", p.x, p.y)
	}
}

func TestRAMWindowYDirection(t *testing.T) {
	p := New(nil)
	ctx := context.Background()
	for _, c := range []struct {
		op   ssd1681.Opcode
		data []byte
	}{
		{ssd1681.DataEntryModeSetting, []byte{byte(ssd1681.XIncrement | ssd1681.YIncrement | ssd1681.AddressYDirection)}},
		{ssd1681.SetRAMXAddressStartEndPosition, []byte{0, 1}},
		{ssd1681.SetRAMYAddressStartEndPosition, []byte{0, 0, 1, 0}},
		{ssd1681.SetRAMXAddressCounter, []byte{0}},
		{ssd1681.SetRAMYAddressCounter, []byte{0, 0}},
		{ssd1681.WriteRAMBW, []byte{1, 2, 3}},
	} {
		_ = p.WriteCommand(ctx, byte(c.op))
		_ = p.WriteData(ctx, c.data)
	}
	ram := p.RAM()
	got := []byte{ram[0], ram[stride], ram[1]}
	if diff := cmp.Diff(got, []byte{1, 2, 3}); diff != "" {
		t.Errorf("RAM difference (-got +want):\n%s", diff)
	}
}

func TestTransactions(t *testing.T) {
	p := New(&Opts{BusyPolls: 1})
	ctx := context.Background()

	_ = p.WriteCommand(ctx, byte(ssd1681.SWReset))
	// Not waiting for the busy line.
	_ = p.WriteCommand(ctx, byte(ssd1681.BorderWaveformControl))
	_ = p.WriteData(ctx, []byte{0x06})
	if p.ReadBusy(ctx) != gpio.High {
		t.Error("busy line not asserted after SWReset")
	}
	if p.ReadBusy(ctx) != gpio.Low {
		t.Error("busy line still asserted")
	}

	want := []Transaction{
		{Op: ssd1681.SWReset},
		{Op: ssd1681.BorderWaveformControl, Data: []byte{0x06}, Busy: true},
	}
	if diff := cmp.Diff(p.Transactions(), want, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Transactions() difference (-got +want):\n%s", diff)
	}
	if p.Border() != ssd1681.BorderBlack {
		t.Errorf("Border() = %#x, want %#x", p.Border(), ssd1681.BorderBlack)
	}

	p.ClearTransactions()
	if len(p.Transactions()) != 0 {
		t.Error("ClearTransactions() kept transactions")
	}
}

func TestNoRefreshWithoutLUT(t *testing.T) {
	p := New(nil)
	ctx := context.Background()
	_ = p.WriteCommand(ctx, byte(ssd1681.DisplayUpdateControl2))
	_ = p.WriteData(ctx, []byte{byte(ssd1681.SequenceDrivePanel)})
	_ = p.WriteCommand(ctx, byte(ssd1681.MasterActivation))
	if p.Refreshes() != 0 {
		t.Errorf("Refreshes() = %d, want 0 without a waveform", p.Refreshes())
	}
}

func TestCancelledContext(t *testing.T) {
	p := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.WriteCommand(ctx, 0x12); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteCommand() = %v", err)
	}
	if err := p.SetReset(ctx, gpio.Low); !errors.Is(err, context.Canceled) {
		t.Errorf("SetReset() = %v", err)
	}
	if len(p.Transactions()) != 0 {
		t.Error("cancelled write was recorded")
	}
}
