// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import (
	"encoding/binary"
	"fmt"
)

// Opcode is a SSD1681 command byte.
type Opcode byte

// Commands, as listed in the SSD1681 command table.
const (
	DriverOutputControl            Opcode = 0x01
	GateDrivingVoltageControl      Opcode = 0x03
	SourceDrivingVoltageControl    Opcode = 0x04
	DeepSleepModeCommand           Opcode = 0x10
	DataEntryModeSetting           Opcode = 0x11
	SWReset                        Opcode = 0x12
	TempSensorControl              Opcode = 0x18
	MasterActivation               Opcode = 0x20
	DisplayUpdateControl1          Opcode = 0x21
	DisplayUpdateControl2          Opcode = 0x22
	WriteRAMBW                     Opcode = 0x24
	WriteRAMRed                    Opcode = 0x26
	WriteVCOMRegister              Opcode = 0x2C
	WriteLUTRegister               Opcode = 0x32
	BorderWaveformControl          Opcode = 0x3C
	EndOption                      Opcode = 0x3F
	SetRAMXAddressStartEndPosition Opcode = 0x44
	SetRAMYAddressStartEndPosition Opcode = 0x45
	SetRAMXAddressCounter          Opcode = 0x4E
	SetRAMYAddressCounter          Opcode = 0x4F
	NOP                            Opcode = 0x7F
)

var opcodeNames = map[Opcode]string{
	DriverOutputControl:            "DriverOutputControl",
	GateDrivingVoltageControl:      "GateDrivingVoltageControl",
	SourceDrivingVoltageControl:    "SourceDrivingVoltageControl",
	DeepSleepModeCommand:           "DeepSleepMode",
	DataEntryModeSetting:           "DataEntryModeSetting",
	SWReset:                        "SWReset",
	TempSensorControl:              "TempSensorControl",
	MasterActivation:               "MasterActivation",
	DisplayUpdateControl1:          "DisplayUpdateControl1",
	DisplayUpdateControl2:          "DisplayUpdateControl2",
	WriteRAMBW:                     "WriteRAMBW",
	WriteRAMRed:                    "WriteRAMRed",
	WriteVCOMRegister:              "WriteVCOMRegister",
	WriteLUTRegister:               "WriteLUTRegister",
	BorderWaveformControl:          "BorderWaveformControl",
	EndOption:                      "EndOption",
	SetRAMXAddressStartEndPosition: "SetRAMXAddressStartEndPosition",
	SetRAMYAddressStartEndPosition: "SetRAMYAddressStartEndPosition",
	SetRAMXAddressCounter:          "SetRAMXAddressCounter",
	SetRAMYAddressCounter:          "SetRAMYAddressCounter",
	NOP:                            "NOP",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return fmt.Sprintf("%s(%#02x)", s, byte(o))
	}
	return fmt.Sprintf("Opcode(%#02x)", byte(o))
}

// UpdateSequence holds the flags of the DisplayUpdateControl2 command. Each
// flag enables one phase executed on the next MasterActivation.
type UpdateSequence byte

// Flags for the DisplayUpdateControl2 command
const (
	UpdateDisableClock UpdateSequence = 1 << iota
	UpdateDisableAnalog
	UpdateDisplay
	UpdateDisplayMode2
	UpdateLoadLUT
	UpdateLoadTemperature
	UpdateEnableAnalog
	UpdateEnableClock
)

// Predefined update sequences.
const (
	// SequenceLoadLUTFromOTP loads the temperature and the manufacturer
	// waveform from OTP (0xB1).
	SequenceLoadLUTFromOTP = UpdateEnableClock | UpdateLoadTemperature | UpdateLoadLUT | UpdateDisableClock
	// SequenceDrivePanel displays RAM with the already loaded LUT (0xC7).
	SequenceDrivePanel = UpdateEnableClock | UpdateEnableAnalog | UpdateDisplay | UpdateDisableAnalog | UpdateDisableClock
	// SequenceFullRefresh loads temperature and LUT then displays RAM (0xF7).
	SequenceFullRefresh = SequenceDrivePanel | UpdateLoadTemperature | UpdateLoadLUT
	// SequencePartialRefresh uses display mode 2 and keeps the analog
	// circuits on (0xFC). Reserved for partial refresh.
	SequencePartialRefresh = UpdateEnableClock | UpdateEnableAnalog | UpdateLoadTemperature | UpdateLoadLUT | UpdateDisplayMode2 | UpdateDisplay
	// SequencePowerOff turns the analog circuits and the clock off (0x83).
	SequencePowerOff = UpdateEnableClock | UpdateDisableAnalog | UpdateDisableClock
)

// DataEntryMode controls how the RAM address counters move after each byte.
type DataEntryMode byte

// Data entry mode flags.
const (
	XIncrement DataEntryMode = 1 << iota
	YIncrement
	// AddressYDirection updates the Y counter first.
	AddressYDirection

	DefaultDataEntryMode = XIncrement | YIncrement
)

// GateScan holds the third byte of DriverOutputControl: gate scanning order
// and direction.
type GateScan byte

// Gate scanning flags.
const (
	// GateScanBottomUp scans from G199 to G0 (TB).
	GateScanBottomUp GateScan = 1 << iota
	// GateScanInterlaced interlaces odd and even gates (SM).
	GateScanInterlaced
	// GateScanSwapGates makes G1 the first output gate (GD).
	GateScanSwapGates

	GateScanDefault GateScan = 0
)

// BorderWaveform is the BorderWaveformControl register value.
//
// Only the manufacturer presets are named. Other register values are passed
// through unchanged, which is where grayscale border waveforms plug in.
type BorderWaveform byte

// Border presets.
const (
	BorderWhite BorderWaveform = 0b101
	BorderBlack BorderWaveform = 0b110

	// DefaultBorder is the manufacturer default (0x05).
	DefaultBorder = BorderWhite
)

// TemperatureSensor selects the sensor used for waveform compensation.
type TemperatureSensor byte

// Temperature sensors.
const (
	ExternalSensor TemperatureSensor = 0x48
	InternalSensor TemperatureSensor = 0x80
)

// RAMOption controls how the B/W RAM content is mapped to pixels.
type RAMOption byte

// RAM options.
const (
	// RAMNormal maps 0 to black and 1 to white.
	RAMNormal RAMOption = 0
	// RAMBypass0 drives only the bits set to 1.
	RAMBypass0 RAMOption = 0b0100
	// RAMInvert inverts the RAM content.
	RAMInvert RAMOption = 0b1000
)

// DeepSleepMode is the argument of the deep sleep command.
type DeepSleepMode byte

// Deep sleep modes. Leaving any mode other than NormalMode requires a
// hardware reset.
const (
	NormalMode DeepSleepMode = 0b00
	// DeepSleep1 retains the RAM content.
	DeepSleep1 DeepSleepMode = 0b01
	// DeepSleep2 does not retain the RAM content.
	DeepSleep2 DeepSleepMode = 0b11
)

func (m DeepSleepMode) String() string {
	switch m {
	case NormalMode:
		return "Normal"
	case DeepSleep1:
		return "DeepSleep1"
	case DeepSleep2:
		return "DeepSleep2"
	}
	return fmt.Sprintf("DeepSleepMode(%#02x)", byte(m))
}

// LUT contains the waveform that is used to program the display.
//
// A LUT is either LUTSize bytes written to WriteLUTRegister, or
// LUTSizeWithVoltages bytes where the trailing bytes hold EOPT, VGH, VSH1,
// VSH2, VSL and VCOM as in the vendor sample code.
type LUT []byte

// LUT lengths.
const (
	LUTSize             = 153
	LUTSizeWithVoltages = LUTSize + 6
)

// Command is a command byte and its parameters, ready to be sent.
type Command struct {
	Op   Opcode
	Data []byte
}

func (c Command) String() string {
	return fmt.Sprintf("%s % x", c.Op, c.Data)
}

// Command encoders. They never perform I/O.

func swReset() Command {
	return Command{Op: SWReset}
}

// driverOutputControl sets the number of gate lines (MUX) and the scanning
// order.
func driverOutputControl(gates int, scan GateScan) Command {
	mux := uint16(gates - 1)
	return Command{Op: DriverOutputControl, Data: []byte{byte(mux), byte(mux>>8) & 0x01, byte(scan) & 0x07}}
}

func dataEntryMode(m DataEntryMode) Command {
	return Command{Op: DataEntryModeSetting, Data: []byte{byte(m) & 0x07}}
}

// setRAMXWindow sets the horizontal window. Bounds are inclusive pixel
// columns; the controller addresses bytes of 8 pixels.
func setRAMXWindow(start, end int) Command {
	return Command{Op: SetRAMXAddressStartEndPosition, Data: []byte{byte(start >> 3), byte(end >> 3)}}
}

// setRAMYWindow sets the vertical window. Bounds are inclusive rows.
func setRAMYWindow(start, end int) Command {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:], uint16(start))
	binary.LittleEndian.PutUint16(data[2:], uint16(end))
	return Command{Op: SetRAMYAddressStartEndPosition, Data: data}
}

// setRAMXCounter positions the X address counter. x must be a multiple of 8
// or the last 3 bits are ignored.
func setRAMXCounter(x int) Command {
	return Command{Op: SetRAMXAddressCounter, Data: []byte{byte(x >> 3)}}
}

func setRAMYCounter(y int) Command {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(y))
	return Command{Op: SetRAMYAddressCounter, Data: data}
}

func borderWaveform(b BorderWaveform) Command {
	return Command{Op: BorderWaveformControl, Data: []byte{byte(b)}}
}

func tempSensor(s TemperatureSensor) Command {
	return Command{Op: TempSensorControl, Data: []byte{byte(s)}}
}

func displayUpdateControl1(o RAMOption) Command {
	return Command{Op: DisplayUpdateControl1, Data: []byte{byte(o)}}
}

func displayUpdateControl2(s UpdateSequence) Command {
	return Command{Op: DisplayUpdateControl2, Data: []byte{byte(s)}}
}

// masterActivation runs the sequence selected by DisplayUpdateControl2. It is
// the only command after which the busy line is guaranteed to assert.
func masterActivation() Command {
	return Command{Op: MasterActivation}
}

// writeRAM streams the raster into the B/W RAM. The data is not copied.
func writeRAM(data []byte) Command {
	return Command{Op: WriteRAMBW, Data: data}
}

func deepSleep(m DeepSleepMode) Command {
	return Command{Op: DeepSleepModeCommand, Data: []byte{byte(m)}}
}

// writeLUT returns the commands loading a custom waveform.
func writeLUT(lut LUT) []Command {
	cmds := []Command{{Op: WriteLUTRegister, Data: lut[:LUTSize]}}
	if len(lut) >= LUTSizeWithVoltages {
		v := lut[LUTSize:]
		cmds = append(cmds,
			Command{Op: EndOption, Data: []byte{v[0]}},
			Command{Op: GateDrivingVoltageControl, Data: []byte{v[1]}},
			Command{Op: SourceDrivingVoltageControl, Data: []byte{v[2], v[3], v[4]}},
			Command{Op: WriteVCOMRegister, Data: []byte{v[5]}},
		)
	}
	return cmds
}
