// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Bus is the transport to the controller: the serial bus plus the DC, reset
// and busy lines.
//
// Every method may block until the transfer completes and should return early
// with ctx.Err() once ctx is done. SPIBus implements it on top of periph.io;
// ssd1681sim.Panel implements it in software.
type Bus interface {
	// WriteCommand sends a command byte with DC low.
	WriteCommand(ctx context.Context, cmd byte) error
	// WriteData sends parameter or RAM bytes with DC high.
	WriteData(ctx context.Context, data []byte) error
	// SetReset drives the reset line. Low holds the controller in reset.
	SetReset(ctx context.Context, l gpio.Level) error
	// ReadBusy returns the busy line level. High means busy.
	ReadBusy(ctx context.Context) gpio.Level
}

// controller is what command sequences are written against.
type controller interface {
	sendCommand(Command)
	waitUntilIdle(timeout time.Duration)
}

// session sends command sequences over a Bus. The first error is latched and
// every later operation becomes a no-op.
type session struct {
	ctx  context.Context
	bus  Bus
	busy *busyWaiter
	err  error
}

func (s *session) sendCommand(c Command) {
	if s.err != nil {
		return
	}
	if err := s.bus.WriteCommand(s.ctx, byte(c.Op)); err != nil {
		s.err = &BusError{Op: c.Op, Phase: "command", Err: err}
		return
	}
	if len(c.Data) == 0 {
		return
	}
	if err := s.bus.WriteData(s.ctx, c.Data); err != nil {
		s.err = &BusError{Op: c.Op, Phase: "data", Err: err}
	}
}

func (s *session) waitUntilIdle(timeout time.Duration) {
	if s.err != nil {
		return
	}
	s.err = s.busy.waitUntilIdle(s.ctx, timeout)
}

func (s *session) setReset(l gpio.Level) {
	if s.err != nil {
		return
	}
	if err := s.bus.SetReset(s.ctx, l); err != nil {
		s.err = &BusError{Phase: "reset", Err: err}
	}
}

func (s *session) delay(d time.Duration) {
	if s.err != nil {
		return
	}
	s.err = sleepContext(s.ctx, d)
}
