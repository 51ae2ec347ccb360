// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBusyTimeout is matched by every *BusyTimeoutError.
	ErrBusyTimeout = errors.New("ssd1681: timeout waiting for busy line")
	// ErrInvalidState is matched by every *InvalidStateError.
	ErrInvalidState = errors.New("ssd1681: invalid state")
	// ErrFramebufferSize is returned when a framebuffer does not match the
	// panel.
	ErrFramebufferSize = errors.New("ssd1681: framebuffer does not match panel size")
)

// BusError is a transport failure reported by the Bus. The driver does not
// retry; the controller is left Faulted.
type BusError struct {
	// Op is the command being sent.
	Op Opcode
	// Phase is "command", "data" or "reset".
	Phase string
	Err   error
}

func (e *BusError) Error() string {
	if e.Phase == "reset" {
		return fmt.Sprintf("ssd1681: bus error on reset line: %v", e.Err)
	}
	return fmt.Sprintf("ssd1681: bus error sending %s of %s: %v", e.Phase, e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// BusyTimeoutError is returned when the controller did not release the busy
// line in time.
type BusyTimeoutError struct {
	// Phase is the state the driver was in while waiting.
	Phase   State
	Timeout time.Duration
}

func (e *BusyTimeoutError) Error() string {
	return fmt.Sprintf("ssd1681: busy line still asserted after %v while %s", e.Timeout, e.Phase)
}

// Is reports whether target is ErrBusyTimeout.
func (e *BusyTimeoutError) Is(target error) bool {
	return target == ErrBusyTimeout
}

// InvalidStateError is returned when an operation is requested in a state that
// does not permit it. Nothing is sent to the controller.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("ssd1681: %s not permitted while %s", e.Op, e.State)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
