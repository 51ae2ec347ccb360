// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"
)

// SPIBus implements Bus with a 4-wire SPI connection and GPIO lines.
type SPIBus struct {
	c         conn.Conn
	maxTxSize int

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn
}

// NewSPI connects to the controller. cs may be nil when the SPI port drives
// chip select itself.
func NewSPI(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn) (*SPIBus, error) {
	if dc == nil || rst == nil || busy == nil {
		return nil, fmt.Errorf("ssd1681: dc, rst and busy pins are required")
	}

	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ssd1681: connecting SPI: %w", err)
	}

	if err := busy.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("ssd1681: configuring busy pin: %w", err)
	}

	// Use the conn.Limits transfer size when available.
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize <= 0 {
		maxTxSize = 4096
	}

	return &SPIBus{
		c:         c,
		maxTxSize: maxTxSize,
		dc:        dc,
		cs:        cs,
		rst:       rst,
		busy:      busy,
	}, nil
}

// NewHat connects to a Waveshare 1.54" e-Paper HAT (V2) on a Raspberry Pi.
func NewHat(p spi.Port) (*SPIBus, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return NewSPI(p, dc, cs, rst, busy)
}

// String returns the connection and pin names.
func (b *SPIBus) String() string {
	return fmt.Sprintf("SPIBus{%s, dc=%s, rst=%s, busy=%s}", b.c, b.dc, b.rst, b.busy)
}

// WriteCommand implements Bus.
func (b *SPIBus) WriteCommand(ctx context.Context, cmd byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eh := errorHandler{b: b}

	eh.dcOut(gpio.Low)
	eh.csOut(gpio.Low)
	eh.cTx([]byte{cmd}, nil)
	eh.csOut(gpio.High)

	return eh.err
}

// WriteData implements Bus. Payloads larger than the connection limit are
// split in several transfers while chip select stays asserted.
func (b *SPIBus) WriteData(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eh := errorHandler{b: b}

	eh.dcOut(gpio.High)
	eh.csOut(gpio.Low)
	for len(data) > 0 && eh.err == nil {
		n := len(data)
		if n > b.maxTxSize {
			n = b.maxTxSize
		}
		eh.cTx(data[:n], nil)
		data = data[n:]
		if ctxErr := ctx.Err(); ctxErr != nil && eh.err == nil {
			eh.err = ctxErr
		}
	}
	eh.csOut(gpio.High)

	return eh.err
}

// SetReset implements Bus.
func (b *SPIBus) SetReset(ctx context.Context, l gpio.Level) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eh := errorHandler{b: b}
	eh.rstOut(l)
	return eh.err
}

// ReadBusy implements Bus.
func (b *SPIBus) ReadBusy(ctx context.Context) gpio.Level {
	return b.busy.Read()
}

// errorHandler is a wrapper for error management.
type errorHandler struct {
	b   *SPIBus
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.b.rst.Out(l)
}

func (eh *errorHandler) cTx(w []byte, r []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.b.c.Tx(w, r)
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.b.dc.Out(l)
}

// csOut releases chip select even after a failed transfer.
func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.b.cs == nil {
		return
	}
	if eh.err != nil && l == gpio.Low {
		return
	}
	if err := eh.b.cs.Out(l); eh.err == nil {
		eh.err = err
	}
}

var _ Bus = &SPIBus{}
