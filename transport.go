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

import (
	"fmt"

	"github.com/ZaparooProject/go-rc522/bus"
)

// RegisterBus is single-register access to the reader chip. The driver is
// written against this capability so it can run on the real SPI protocol or
// on an in-memory register file.
type RegisterBus interface {
	// ReadRegister returns the current value of reg
	ReadRegister(reg Register) (byte, error)

	// WriteRegister stores value in reg
	WriteRegister(reg Register, value byte) error
}

// SPIRegisterBus implements RegisterBus with the MFRC522 SPI address byte
// protocol: one chip-select transaction per register access.
type SPIRegisterBus struct {
	conn bus.Conn
	buf  [2]byte
}

// NewRegisterBus creates a RegisterBus on top of a bus connection
func NewRegisterBus(conn bus.Conn) *SPIRegisterBus {
	return &SPIRegisterBus{conn: conn}
}

// ReadRegister sends the read address and clocks out one zero byte to
// receive the register value.
func (b *SPIRegisterBus) ReadRegister(reg Register) (byte, error) {
	err := bus.Transaction(b.conn, func(s *bus.Session) error {
		if err := s.WriteByte(reg.ReadAddress()); err != nil {
			return err
		}
		return s.Read(b.buf[:1], 0x00)
	})
	if err != nil {
		return 0, fmt.Errorf("read register %#02x: %w", byte(reg), err)
	}
	return b.buf[0], nil
}

// WriteRegister sends the write address followed by the value.
func (b *SPIRegisterBus) WriteRegister(reg Register, value byte) error {
	err := bus.Transaction(b.conn, func(s *bus.Session) error {
		b.buf[0] = reg.WriteAddress()
		b.buf[1] = value
		return s.Write(b.buf[:2])
	})
	if err != nil {
		return fmt.Errorf("write register %#02x: %w", byte(reg), err)
	}
	return nil
}

// Ensure SPIRegisterBus implements RegisterBus
var _ RegisterBus = (*SPIRegisterBus)(nil)
