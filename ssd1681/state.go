// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import "fmt"

// State is the driver's view of the controller lifecycle.
type State uint8

// Controller states.
const (
	// Uninitialized is the state of a new Dev.
	Uninitialized State = iota
	// Resetting is set while the reset line is pulsed.
	Resetting
	// Initializing is set while the panel configuration and the LUT are
	// loaded.
	Initializing
	// Idle accepts Update and Sleep.
	Idle
	// TransferringImage is set while the framebuffer is written to RAM.
	TransferringImage
	// Refreshing is set while the panel redraws itself.
	Refreshing
	// Sleeping is deep sleep; only Init leaves it.
	Sleeping
	// Faulted is entered on a busy timeout or a bus failure. Dev.Fault
	// returns the reason. Only Init leaves it.
	Faulted
)

var stateNames = [...]string{
	Uninitialized:     "Uninitialized",
	Resetting:         "Resetting",
	Initializing:      "Initializing",
	Idle:              "Idle",
	TransferringImage: "TransferringImage",
	Refreshing:        "Refreshing",
	Sleeping:          "Sleeping",
	Faulted:           "Faulted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// RefreshMode selects how Update redraws the panel.
type RefreshMode uint8

const (
	// Full redraws the entire panel.
	Full RefreshMode = iota
	// Partial is reserved for window updates and is not supported yet.
	Partial
)

func (m RefreshMode) String() string {
	switch m {
	case Full:
		return "Full"
	case Partial:
		return "Partial"
	}
	return fmt.Sprintf("RefreshMode(%d)", uint8(m))
}
