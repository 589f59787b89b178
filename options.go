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

package rc522

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithConfig replaces the whole device configuration
func WithConfig(config *Config) Option {
	return func(d *Device) error {
		if config == nil {
			return nil
		}
		if config.PollLimit < 1 {
			return ErrInvalidPollLimit
		}
		cfg := *config
		d.config = &cfg
		return nil
	}
}

// WithPollLimit sets how many times a transceive reads the interrupt
// register before giving up. It is the only timeout the driver has.
func WithPollLimit(limit int) Option {
	return func(d *Device) error {
		if limit < 1 {
			return ErrInvalidPollLimit
		}
		d.config.PollLimit = limit
		return nil
	}
}
