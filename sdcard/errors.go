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

import (
	"errors"
	"fmt"
)

// Card errors
var (
	ErrNoCard            = errors.New("no SD card")
	ErrInitFailed        = errors.New("card initialisation failed")
	ErrInitTimeout       = errors.New("card did not leave idle state")
	ErrResponseTimeout   = errors.New("timeout waiting for command response")
	ErrDataTimeout       = errors.New("timeout waiting for data token")
	ErrDataErrorToken    = errors.New("card sent data error token")
	ErrBusyTimeout       = errors.New("timeout waiting for card to finish programming")
	ErrCommandRejected   = errors.New("command rejected by card")
	ErrWriteRejected     = errors.New("data block rejected by card")
	ErrInvalidBufferSize = errors.New("buffer length must be a positive multiple of 512")
	ErrInvalidAttempts   = errors.New("attempt budget must be at least 1")
	ErrInvalidCSD        = errors.New("unsupported CSD structure")
	ErrNilBus            = errors.New("bus connection is nil")
)

// CommandError describes a failed command exchange or data transfer
type CommandError struct {
	Err error
	Op  string
	Cmd byte
	R1  byte
}

func (e *CommandError) Error() string {
	if e.R1 != 0 {
		return fmt.Sprintf("sdcard: %s: CMD%d (r1 %#02x): %v", e.Op, e.Cmd, e.R1, e.Err)
	}
	return fmt.Sprintf("sdcard: %s: CMD%d: %v", e.Op, e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func newCommandError(op string, cmd, r1 byte, err error) *CommandError {
	return &CommandError{Op: op, Cmd: cmd, R1: r1, Err: err}
}
