// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681sim

import (
	"encoding/binary"

	"github.com/GermanBionicSystems/epaper/image1bit"
	"github.com/GermanBionicSystems/epaper/ssd1681"
)

// resetRegistersLocked restores the power-on register values. RAM is kept.
func (p *Panel) resetRegistersLocked() {
	p.entry = ssd1681.DefaultDataEntryMode
	p.xStart, p.xEnd = 0, stride-1
	p.yStart, p.yEnd = 0, ssd1681.Height-1
	p.x, p.y = 0, 0
	p.border = ssd1681.BorderWaveform(0xc0)
	p.ramOption = ssd1681.RAMNormal
	p.seq = ssd1681.SequenceFullRefresh
	p.lut = nil
	p.lutSource = NoLUT
	p.clockOn = false
	p.analogOn = false
}

// executeLocked runs the commands that take effect on the command byte. It
// returns a copy of the panel image when a refresh was shown.
func (p *Panel) executeLocked(op ssd1681.Opcode) *image1bit.HorizontalMSB {
	switch op {
	case ssd1681.SWReset:
		p.resetRegistersLocked()
		p.busyPolls = p.opts.BusyPolls
	case ssd1681.MasterActivation:
		refreshed := p.activateLocked()
		p.busyPolls = p.opts.BusyPolls
		if refreshed {
			return p.copyImageLocked()
		}
	case ssd1681.WriteLUTRegister:
		p.lut = p.lut[:0]
	}
	return nil
}

// applyLocked interprets the parameters received so far for op. data holds
// every byte since the command, data[start:] the bytes of the last write.
func (p *Panel) applyLocked(op ssd1681.Opcode, data []byte, start int) {
	switch op {
	case ssd1681.DataEntryModeSetting:
		p.entry = ssd1681.DataEntryMode(data[0] & 0x07)
	case ssd1681.SetRAMXAddressStartEndPosition:
		if len(data) >= 2 {
			p.xStart, p.xEnd = int(data[0]&0x3f), int(data[1]&0x3f)
		}
	case ssd1681.SetRAMYAddressStartEndPosition:
		if len(data) >= 4 {
			p.yStart = int(binary.LittleEndian.Uint16(data[0:]) & 0x1ff)
			p.yEnd = int(binary.LittleEndian.Uint16(data[2:]) & 0x1ff)
		}
	case ssd1681.SetRAMXAddressCounter:
		p.x = int(data[0] & 0x3f)
	case ssd1681.SetRAMYAddressCounter:
		if len(data) >= 2 {
			p.y = int(binary.LittleEndian.Uint16(data) & 0x1ff)
		}
	case ssd1681.BorderWaveformControl:
		p.border = ssd1681.BorderWaveform(data[0])
	case ssd1681.DisplayUpdateControl1:
		p.ramOption = ssd1681.RAMOption(data[0] & 0x0c)
	case ssd1681.DisplayUpdateControl2:
		p.seq = ssd1681.UpdateSequence(data[0])
	case ssd1681.WriteRAMBW:
		p.writeRAMLocked(p.bw, data[start:])
	case ssd1681.WriteRAMRed:
		p.writeRAMLocked(p.red, data[start:])
	case ssd1681.WriteLUTRegister:
		p.lut = append(p.lut, data[start:]...)
		if len(p.lut) >= ssd1681.LUTSize {
			p.lutSource = CustomLUT
		}
	case ssd1681.DeepSleepModeCommand:
		p.sleep = ssd1681.DeepSleepMode(data[0] & 0x03)
		if p.sleep != ssd1681.NormalMode {
			p.clockOn = false
			p.analogOn = false
		}
	}
}

// writeRAMLocked stores bytes at the address counters, moving them as
// configured by the data entry mode.
func (p *Panel) writeRAMLocked(ram, data []byte) {
	for _, b := range data {
		if p.x >= 0 && p.x < stride && p.y >= 0 && p.y < ssd1681.Height {
			ram[p.y*stride+p.x] = b
		}
		p.advanceLocked()
	}
}

func (p *Panel) advanceLocked() {
	if p.entry&ssd1681.AddressYDirection == 0 {
		if p.stepXLocked() {
			p.stepYLocked()
		}
		return
	}
	if p.stepYLocked() {
		p.stepXLocked()
	}
}

// stepXLocked moves the X counter and reports whether it wrapped around the
// window.
func (p *Panel) stepXLocked() bool {
	lo, hi := minMax(p.xStart, p.xEnd)
	if p.entry&ssd1681.XIncrement != 0 {
		if p.x++; p.x > hi {
			p.x = lo
			return true
		}
		return false
	}
	if p.x--; p.x < lo {
		p.x = hi
		return true
	}
	return false
}

func (p *Panel) stepYLocked() bool {
	lo, hi := minMax(p.yStart, p.yEnd)
	if p.entry&ssd1681.YIncrement != 0 {
		if p.y++; p.y > hi {
			p.y = lo
			return true
		}
		return false
	}
	if p.y--; p.y < lo {
		p.y = hi
		return true
	}
	return false
}

// activateLocked runs the phases selected by DisplayUpdateControl2 in order
// and reports whether the panel was redrawn.
func (p *Panel) activateLocked() bool {
	seq := p.seq
	if seq&ssd1681.UpdateEnableClock != 0 {
		p.clockOn = true
	}
	if seq&ssd1681.UpdateEnableAnalog != 0 && p.clockOn {
		p.analogOn = true
	}
	if seq&ssd1681.UpdateLoadLUT != 0 && p.clockOn {
		p.lutSource = OTPLUT
	}
	refreshed := false
	if seq&(ssd1681.UpdateDisplay|ssd1681.UpdateDisplayMode2) != 0 && p.analogOn && p.lutSource != NoLUT {
		p.showLocked()
		refreshed = true
	}
	if seq&ssd1681.UpdateDisableAnalog != 0 {
		p.analogOn = false
	}
	if seq&ssd1681.UpdateDisableClock != 0 {
		p.clockOn = false
	}
	return refreshed
}

// showLocked copies the B/W RAM to the panel, applying the RAM option.
func (p *Panel) showLocked() {
	for i, b := range p.bw {
		switch p.ramOption {
		case ssd1681.RAMBypass0:
			b = 0x00
		case ssd1681.RAMInvert:
			b = ^b
		}
		p.image.Pix[i] = b
	}
	p.refreshes++
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
