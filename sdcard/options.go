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

package sdcard

// Option is a functional option for configuring a Card
type Option func(*Card) error

func attempts(n int, set func(int)) error {
	if n < 1 {
		return ErrInvalidAttempts
	}
	set(n)
	return nil
}

// WithConfig replaces the whole card configuration
func WithConfig(config *Config) Option {
	return func(c *Card) error {
		if config == nil {
			return nil
		}
		if err := config.validate(); err != nil {
			return err
		}
		cfg := *config
		c.config = &cfg
		return nil
	}
}

// WithCommandAttempts sets how many bytes are read while waiting for an R1
func WithCommandAttempts(n int) Option {
	return func(c *Card) error {
		return attempts(n, func(v int) { c.config.CommandAttempts = v })
	}
}

// WithResetAttempts sets how many times CMD0 is tried before ErrNoCard
func WithResetAttempts(n int) Option {
	return func(c *Card) error {
		return attempts(n, func(v int) { c.config.ResetAttempts = v })
	}
}

// WithReadyAttempts bounds the CMD55+ACMD41 loop that waits for the card to
// leave the idle state
func WithReadyAttempts(n int) Option {
	return func(c *Card) error {
		return attempts(n, func(v int) { c.config.ReadyAttempts = v })
	}
}

// WithTokenAttempts sets how many bytes are read while waiting for a data
// start token
func WithTokenAttempts(n int) Option {
	return func(c *Card) error {
		return attempts(n, func(v int) { c.config.TokenAttempts = v })
	}
}

// WithBusyAttempts sets how many bytes are read while the card signals busy
// after a write
func WithBusyAttempts(n int) Option {
	return func(c *Card) error {
		return attempts(n, func(v int) { c.config.BusyAttempts = v })
	}
}

// WithByteAddressing makes block commands carry byte offsets instead of
// block indices, as standard capacity (SDSC) cards expect.
func WithByteAddressing() Option {
	return func(c *Card) error {
		c.config.ByteAddressing = true
		return nil
	}
}
