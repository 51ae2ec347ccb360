// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import "image"

// initDisplay resets the registers, configures the panel geometry and loads
// the waveform. It returns after the busy line cleared.
func initDisplay(ctrl controller, opts *Opts) {
	ctrl.sendCommand(swReset())
	ctrl.waitUntilIdle(opts.ResetTimeout)

	ctrl.sendCommand(driverOutputControl(Height, opts.GateScan))
	setMemoryArea(ctrl, panelRect)
	ctrl.sendCommand(borderWaveform(opts.Border))
	ctrl.sendCommand(tempSensor(opts.TempSensor))

	loadLUT(ctrl, opts.LUT)
	ctrl.waitUntilIdle(opts.InitTimeout)
}

// loadLUT loads the manufacturer waveform from OTP when lut is empty and
// writes lut otherwise.
func loadLUT(ctrl controller, lut LUT) {
	if len(lut) == 0 {
		ctrl.sendCommand(displayUpdateControl2(SequenceLoadLUTFromOTP))
		ctrl.sendCommand(masterActivation())
		return
	}
	for _, cmd := range writeLUT(lut) {
		ctrl.sendCommand(cmd)
	}
}

// setMemoryArea configures the target drawing area in pixels. The horizontal
// bounds must be aligned to 8 pixels.
func setMemoryArea(ctrl controller, area image.Rectangle) {
	ctrl.sendCommand(dataEntryMode(DefaultDataEntryMode))
	ctrl.sendCommand(setRAMXWindow(area.Min.X, area.Max.X-1))
	ctrl.sendCommand(setRAMYWindow(area.Min.Y, area.Max.Y-1))
	ctrl.sendCommand(setRAMXCounter(area.Min.X))
	ctrl.sendCommand(setRAMYCounter(area.Min.Y))
}

// sendImage writes a raster covering area into the B/W RAM.
func sendImage(ctrl controller, area image.Rectangle, data []byte) {
	setMemoryArea(ctrl, area)
	ctrl.sendCommand(writeRAM(data))
}

// refreshSequence returns the DisplayUpdateControl2 flags for a refresh. The
// OTP waveform is reloaded on every full refresh so it follows temperature;
// a custom LUT stays loaded.
func refreshSequence(mode RefreshMode, lut LUT) UpdateSequence {
	if mode == Partial {
		return SequencePartialRefresh
	}
	if len(lut) == 0 {
		return SequenceFullRefresh
	}
	return SequenceDrivePanel
}

// updateDisplay triggers the refresh of the panel from RAM and waits for it.
func updateDisplay(ctrl controller, mode RefreshMode, opts *Opts) {
	if opts.RAMOption != RAMNormal {
		ctrl.sendCommand(displayUpdateControl1(opts.RAMOption))
	}
	ctrl.sendCommand(displayUpdateControl2(refreshSequence(mode, opts.LUT)))
	ctrl.sendCommand(masterActivation())
	ctrl.waitUntilIdle(opts.RefreshTimeout)
}

// powerOff turns the analog circuits and the oscillator off without entering
// deep sleep.
func powerOff(ctrl controller, opts *Opts) {
	ctrl.sendCommand(displayUpdateControl2(SequencePowerOff))
	ctrl.sendCommand(masterActivation())
	ctrl.waitUntilIdle(opts.InitTimeout)
}

// enterDeepSleep is the last command accepted before a hardware reset.
func enterDeepSleep(ctrl controller, mode DeepSleepMode) {
	ctrl.sendCommand(deepSleep(mode))
}
