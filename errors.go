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

import "errors"

// Status is the outcome of a card transaction. "No card in the field" is
// the common case on every poll cycle, so it is a status value and not an
// error.
type Status int

const (
	// StatusOK means the card answered with a well-formed response
	StatusOK Status = iota
	// StatusNoTag means the reader timer expired with no card answering
	StatusNoTag
	// StatusError means a framing, parity, collision, buffer or checksum
	// fault, or that the interrupt poll budget ran out
	StatusError
)

// Device errors
var (
	ErrNoTagDetected    = errors.New("no tag detected")
	ErrCardError        = errors.New("card communication error")
	ErrInvalidPollLimit = errors.New("poll limit must be at least 1")
	ErrNilBus           = errors.New("register bus is nil")
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoTag:
		return "NO-TAG"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Err maps a status to nil, ErrNoTagDetected or ErrCardError.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNoTag:
		return ErrNoTagDetected
	default:
		return ErrCardError
	}
}
