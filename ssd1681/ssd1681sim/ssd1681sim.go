// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1681sim is a software model of a SSD1681 controller and its
// 200x200 panel.
//
// Panel implements ssd1681.Bus, so the driver can run without hardware: on a
// development host, in tests, or behind the preview server. It decodes the
// command stream, keeps the RAM window and address counters, holds the busy
// line while the controller would be working and shows the B/W RAM on the
// panel when a refresh sequence is activated.
package ssd1681sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/ssd1681"
	"periph.io/x/conn/v3/gpio"
)

const (
	// stride is the number of RAM bytes per row.
	stride  = (ssd1681.Width + 7) / 8
	ramSize = stride * ssd1681.Height
)

// ErrInjected is returned by the write selected with Opts.FailWrite.
var ErrInjected = errors.New("ssd1681sim: injected bus failure")

// Opts configures the simulated controller.
type Opts struct {
	// BusyPolls is the number of ReadBusy calls returning High after a
	// software reset or a master activation.
	BusyPolls int
	// StuckBusy keeps the busy line asserted forever.
	StuckBusy bool
	// FailWrite makes the Nth WriteCommand or WriteData call fail with
	// ErrInjected, counting from 1. Zero disables it.
	FailWrite int
}

// Transaction is a command and the parameters received for it.
type Transaction struct {
	Op   ssd1681.Opcode
	Data []byte
	// Busy is set when the command was written while the busy line was
	// asserted.
	Busy bool
	// Ignored is set when the controller was in deep sleep.
	Ignored bool
}

// LUTSource tells where the waveform in use comes from.
type LUTSource uint8

// Waveform sources.
const (
	NoLUT LUTSource = iota
	OTPLUT
	CustomLUT
)

func (s LUTSource) String() string {
	switch s {
	case NoLUT:
		return "none"
	case OTPLUT:
		return "OTP"
	case CustomLUT:
		return "custom"
	}
	return fmt.Sprintf("LUTSource(%d)", uint8(s))
}

// Panel is a simulated SSD1681 controller. It is safe for concurrent use.
type Panel struct {
	mu   sync.Mutex
	opts Opts

	writes    int
	busyPolls int
	inReset   bool
	sleep     ssd1681.DeepSleepMode

	// Registers.
	entry     ssd1681.DataEntryMode
	xStart    int
	xEnd      int
	yStart    int
	yEnd      int
	x, y      int
	border    ssd1681.BorderWaveform
	ramOption ssd1681.RAMOption
	seq       ssd1681.UpdateSequence
	lut       []byte
	lutSource LUTSource
	clockOn   bool
	analogOn  bool

	bw  []byte
	red []byte

	// cur indexes the transaction receiving data, -1 when none.
	cur          int
	transactions []Transaction

	image     *image1bit.HorizontalMSB
	refreshes int

	nextID      int
	subscribers map[int]func(*image1bit.HorizontalMSB)
}

// New returns a powered down panel showing a white image. A nil opts
// selects the zero Opts.
func New(opts *Opts) *Panel {
	p := &Panel{
		bw:          make([]byte, ramSize),
		red:         make([]byte, ramSize),
		image:       ssd1681.NewFramebuffer(),
		subscribers: map[int]func(*image1bit.HorizontalMSB){},
		cur:         -1,
	}
	if opts != nil {
		p.opts = *opts
	}
	fill(p.bw, 0xff)
	p.resetRegistersLocked()
	return p
}

// String implements fmt.Stringer.
func (p *Panel) String() string {
	return "ssd1681sim.Panel"
}

// WriteCommand implements ssd1681.Bus.
func (p *Panel) WriteCommand(ctx context.Context, cmd byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if err := p.countWriteLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	op := ssd1681.Opcode(cmd)
	p.transactions = append(p.transactions, Transaction{
		Op:      op,
		Busy:    p.busyLocked(),
		Ignored: p.sleep != ssd1681.NormalMode || p.inReset,
	})
	p.cur = len(p.transactions) - 1
	var refreshed *image1bit.HorizontalMSB
	if !p.transactions[p.cur].Ignored {
		refreshed = p.executeLocked(op)
	}
	subs := p.subscribersLocked()
	p.mu.Unlock()

	if refreshed != nil {
		for _, fn := range subs {
			fn(refreshed)
		}
	}
	return nil
}

// WriteData implements ssd1681.Bus.
func (p *Panel) WriteData(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.countWriteLocked(); err != nil {
		return err
	}
	if p.cur < 0 || len(data) == 0 {
		// Data without a command is dropped by the controller.
		return nil
	}
	t := &p.transactions[p.cur]
	start := len(t.Data)
	t.Data = append(t.Data, data...)
	if t.Ignored {
		return nil
	}
	p.applyLocked(t.Op, t.Data, start)
	return nil
}

// SetReset implements ssd1681.Bus. Releasing the line after holding it low
// performs a hardware reset, which is the only way out of deep sleep.
func (p *Panel) SetReset(ctx context.Context, l gpio.Level) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if l == gpio.Low {
		p.inReset = true
		return nil
	}
	if p.inReset {
		p.inReset = false
		if p.sleep == ssd1681.DeepSleep2 {
			fill(p.bw, 0x00)
			fill(p.red, 0x00)
		}
		p.sleep = ssd1681.NormalMode
		p.resetRegistersLocked()
		p.cur = -1
	}
	return nil
}

// ReadBusy implements ssd1681.Bus.
func (p *Panel) ReadBusy(ctx context.Context) gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts.StuckBusy {
		return gpio.High
	}
	if p.busyPolls > 0 {
		p.busyPolls--
		return gpio.High
	}
	return gpio.Low
}

// SetStuckBusy changes Opts.StuckBusy.
func (p *Panel) SetStuckBusy(stuck bool) {
	p.mu.Lock()
	p.opts.StuckBusy = stuck
	p.mu.Unlock()
}

// FailWrite makes the nth write from now fail with ErrInjected. Zero disables
// the injection.
func (p *Panel) FailWrite(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = 0
	p.opts.FailWrite = n
}

// Subscribe registers fn to be called with a copy of the panel image after
// every refresh. fn runs on the goroutine that activated the refresh. The
// returned function unregisters fn.
func (p *Panel) Subscribe(fn func(img *image1bit.HorizontalMSB)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Image returns a copy of what the panel shows.
func (p *Panel) Image() *image1bit.HorizontalMSB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyImageLocked()
}

// RAM returns a copy of the B/W RAM.
func (p *Panel) RAM() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.bw...)
}

// Refreshes returns the number of refreshes shown on the panel.
func (p *Panel) Refreshes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

// Sleeping returns the deep sleep mode; NormalMode when awake.
func (p *Panel) Sleeping() ssd1681.DeepSleepMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleep
}

// Powered reports whether the analog circuits are on.
func (p *Panel) Powered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analogOn
}

// LUT returns the source of the loaded waveform.
func (p *Panel) LUT() LUTSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lutSource
}

// Border returns the border waveform register.
func (p *Panel) Border() ssd1681.BorderWaveform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.border
}

// Transactions returns the commands received so far.
func (p *Panel) Transactions() []Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Transaction, len(p.transactions))
	for i, t := range p.transactions {
		t.Data = append([]byte(nil), t.Data...)
		out[i] = t
	}
	return out
}

// ClearTransactions forgets the recorded commands.
func (p *Panel) ClearTransactions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transactions = nil
	p.cur = -1
}

func (p *Panel) countWriteLocked() error {
	p.writes++
	if p.opts.FailWrite > 0 && p.writes == p.opts.FailWrite {
		return ErrInjected
	}
	return nil
}

func (p *Panel) busyLocked() bool {
	return p.opts.StuckBusy || p.busyPolls > 0
}

func (p *Panel) subscribersLocked() []func(*image1bit.HorizontalMSB) {
	subs := make([]func(*image1bit.HorizontalMSB), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (p *Panel) copyImageLocked() *image1bit.HorizontalMSB {
	img := ssd1681.NewFramebuffer()
	copy(img.Pix, p.image.Pix)
	return img
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
