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

// Package bus defines the byte-level serial bus connection shared by the
// card reader and storage drivers.
package bus

import (
	"errors"
	"fmt"
)

// Fill is the byte clocked out while reading when the peripheral only
// cares about the host's input line being idle.
const Fill = 0xFF

// ErrClosed is returned by a Session used after Close.
var ErrClosed = errors.New("bus session closed")

// Conn is one device on a shared full-duplex bus, bound to its own
// chip-select line. Implementations are synchronous: each call returns when
// every byte has been clocked.
type Conn interface {
	// Select asserts the device's chip-select line
	Select() error

	// Deselect releases the device's chip-select line
	Deselect() error

	// Write clocks out w, discarding whatever the device sends back
	Write(w []byte) error

	// Read fills r with the device's output while clocking out fill for
	// every byte
	Read(r []byte, fill byte) error
}

// Session tracks the chip-select state of one top-level driver operation.
// Close releases the chip-select if it is still held, so a deferred Close
// covers every exit path, including early error returns.
//
// Session is not safe for concurrent use.
type Session struct {
	conn     Conn
	selected bool
	closed   bool
	one      [1]byte
}

// Open starts a session on conn. Chip-select is left untouched until the
// first Select.
func Open(conn Conn) *Session {
	return &Session{conn: conn}
}

// Select asserts chip-select unless it is already held.
func (s *Session) Select() error {
	if s.closed {
		return ErrClosed
	}
	if s.selected {
		return nil
	}
	if err := s.conn.Select(); err != nil {
		return fmt.Errorf("failed to assert chip select: %w", err)
	}
	s.selected = true
	return nil
}

// Deselect releases chip-select if it is held.
func (s *Session) Deselect() error {
	if !s.selected {
		return nil
	}
	s.selected = false
	if err := s.conn.Deselect(); err != nil {
		return fmt.Errorf("failed to release chip select: %w", err)
	}
	return nil
}

// Selected reports whether the session currently holds chip-select.
func (s *Session) Selected() bool {
	return s.selected
}

// Write clocks out w.
func (s *Session) Write(w []byte) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.conn.Write(w); err != nil {
		return fmt.Errorf("bus write failed: %w", err)
	}
	return nil
}

// WriteByte clocks out a single byte.
func (s *Session) WriteByte(b byte) error {
	s.one[0] = b
	return s.Write(s.one[:])
}

// Read fills r while clocking out fill.
func (s *Session) Read(r []byte, fill byte) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.conn.Read(r, fill); err != nil {
		return fmt.Errorf("bus read failed: %w", err)
	}
	return nil
}

// ReadOne reads one byte while clocking out fill.
func (s *Session) ReadOne(fill byte) (byte, error) {
	if err := s.Read(s.one[:], fill); err != nil {
		return 0, err
	}
	return s.one[0], nil
}

// Skip reads and discards n bytes, clocking out Fill.
func (s *Session) Skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.ReadOne(Fill); err != nil {
			return err
		}
	}
	return nil
}

// Close releases chip-select if it is still held. It is safe to call more
// than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	err := s.Deselect()
	s.closed = true
	return err
}

// Transaction runs fn with chip-select asserted and always releases it
// afterwards. An error from fn takes precedence over a release error.
func Transaction(conn Conn, fn func(s *Session) error) (err error) {
	s := Open(conn)
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := s.Select(); err != nil {
		return err
	}
	return fn(s)
}
