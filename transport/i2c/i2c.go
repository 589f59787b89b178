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


// Package i2c reaches the MFRC522 registers over I2C, for boards wired with
// the chip's I2C interface instead of SPI. The SD card still needs SPI, so
// this is only a reader transport.
package i2c

import (
	"errors"
	"fmt"
	"sync"

	rc522 "github.com/ZaparooProject/go-rc522"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the MFRC522 address with the ADR pins pulled low
	// as on most breakout boards.
	DefaultAddress uint16 = 0x28

	// Max clock frequency (400 kHz, fast mode).
	maxClockFreq = 400 * physic.KiloHertz

	// Register addresses are sent unshifted on I2C
	regMask = 0x3F
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("i2c bus is closed")

// RegisterBus implements rc522.RegisterBus on an I2C bus
type RegisterBus struct {
	dev    *i2c.Dev
	closer i2c.BusCloser
	name   string
	mu     sync.Mutex
	closed bool
}

var _ rc522.RegisterBus = (*RegisterBus)(nil)

// Open initialises periph, opens the named bus (e.g. "/dev/i2c-1" or "1")
// and binds the reader at addr.
func Open(busName string, addr uint16) (*RegisterBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	rb := New(bus, addr)
	rb.closer = bus
	rb.name = busName
	return rb, nil
}

// New binds the reader at addr on an already open bus. Close does not close
// a bus passed in here.
func New(bus i2c.Bus, addr uint16) *RegisterBus {
	return &RegisterBus{
		dev:  &i2c.Dev{Addr: addr, Bus: bus},
		name: bus.String(),
	}
}

func (b *RegisterBus) String() string {
	return fmt.Sprintf("%s@0x%02X", b.name, b.dev.Addr)
}

// ReadRegister writes the register address then reads one byte in a
// single combined transaction.
func (b *RegisterBus) ReadRegister(reg rc522.Register) (byte, error) {
	var r [1]byte
	if err := b.tx([]byte{byte(reg) & regMask}, r[:]); err != nil {
		return 0, fmt.Errorf("read register 0x%02X: %w", byte(reg), err)
	}
	return r[0], nil
}

// WriteRegister writes the register address followed by the value
func (b *RegisterBus) WriteRegister(reg rc522.Register, value byte) error {
	if err := b.tx([]byte{byte(reg) & regMask, value}, nil); err != nil {
		return fmt.Errorf("write register 0x%02X: %w", byte(reg), err)
	}
	return nil
}

func (b *RegisterBus) tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return b.dev.Tx(w, r)
}

// Close releases the bus if Open created it
func (b *RegisterBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}
