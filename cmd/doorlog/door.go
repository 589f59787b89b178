// go-rc522
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-rc522.
//
// go-rc522 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-rc522 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-rc522; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.


package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// door drives the relay and solenoid lines while unlocked. A door with no
// lines only waits out the hold time.
type door struct {
	lines []gpio.PinOut
	hold  time.Duration
}

func newDoor(pins string, hold time.Duration) (*door, error) {
	d := &door{hold: hold}
	if pins == "" {
		return d, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host drivers: %w", err)
	}
	for _, name := range strings.Split(pins, ",") {
		name = strings.TrimSpace(name)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown door pin %q", name)
		}
		d.lines = append(d.lines, p)
	}
	if err := d.set(gpio.Low); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *door) set(level gpio.Level) error {
	var errs []error
	for _, p := range d.lines {
		if err := p.Out(level); err != nil {
			errs = append(errs, fmt.Errorf("drive %s %s: %w", p, level, err))
		}
	}
	return errors.Join(errs...)
}

// Unlock holds the lines high for the hold time. The lines are driven low
// again even when ctx ends early.
func (d *door) Unlock(ctx context.Context) error {
	if err := d.set(gpio.High); err != nil {
		_ = d.set(gpio.Low)
		return err
	}

	timer := time.NewTimer(d.hold)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	return d.set(gpio.Low)
}
