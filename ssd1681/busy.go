// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1681

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Busy line polling intervals.
const (
	MinPollInterval     = time.Millisecond
	MaxPollInterval     = 50 * time.Millisecond
	DefaultPollInterval = 2 * time.Millisecond
)

// clampPollInterval keeps d within [MinPollInterval, MaxPollInterval]. Zero
// selects DefaultPollInterval.
func clampPollInterval(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultPollInterval
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	}
	return d
}

// busyWaiter absorbs the time the controller holds the busy line.
type busyWaiter struct {
	bus    Bus
	poll   time.Duration
	onBusy func(busy bool)
}

// waitUntilIdle returns once the busy line reads low. It polls every w.poll,
// sleeping in between so other goroutines run, and gives up with a
// *BusyTimeoutError after timeout or with ctx.Err() when ctx is done.
func (w *busyWaiter) waitUntilIdle(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.bus.ReadBusy(ctx) == gpio.Low {
		return nil
	}

	if w.onBusy != nil {
		w.onBusy(true)
		defer w.onBusy(false)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if w.bus.ReadBusy(ctx) == gpio.Low {
				return nil
			}
			return &BusyTimeoutError{Timeout: timeout}
		case <-ticker.C:
			if w.bus.ReadBusy(ctx) == gpio.Low {
				return nil
			}
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
