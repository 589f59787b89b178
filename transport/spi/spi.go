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

// Package spi provides a periph.io backed bus.Conn for devices sharing a
// host SPI port. Each device gets its own GPIO chip-select line; the
// port's native chip-select is left to the kernel and should not be wired
// to either device.
package spi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ZaparooProject/go-rc522/bus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultFrequency suits both the MFRC522 and SD cards during init
	DefaultFrequency = physic.MegaHertz

	// defaultMaxTx is used when the port does not report a transfer limit
	defaultMaxTx = 4096
)

// Bus errors
var (
	ErrUnknownPin = errors.New("chip select pin not found")
	ErrNilPin     = errors.New("chip select pin is nil")
	ErrBusClosed  = errors.New("spi bus closed")
)

// Config holds the port settings shared by every device on the bus
type Config struct {
	Frequency physic.Frequency
	Mode      spi.Mode
}

// DefaultConfig returns SPI mode 0 at 1MHz
func DefaultConfig() *Config {
	return &Config{
		Frequency: DefaultFrequency,
		Mode:      spi.Mode0,
	}
}

// Option configures a Bus
type Option func(*Config)

// WithFrequency sets the SPI clock
func WithFrequency(f physic.Frequency) Option {
	return func(c *Config) {
		c.Frequency = f
	}
}

// WithMode sets the SPI mode (clock polarity and phase)
func WithMode(m spi.Mode) Option {
	return func(c *Config) {
		c.Mode = m
	}
}

// Bus is one host SPI port. Devices on it take turns: a device holds the
// bus from Select to Deselect, and a transfer made while deselected holds
// it only for that transfer.
type Bus struct {
	conn   spi.Conn
	closer interface{ Close() error }
	name   string
	fill   []byte
	mu     sync.Mutex
	maxTx  int
	closed bool
}

// Open initialises the periph host drivers and connects to the named SPI
// port (e.g. "/dev/spidev0.0", "SPI0.0" or "" for the first one).
func Open(name string, opts ...Option) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", name, err)
	}

	b, err := NewBus(port, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	b.closer = port
	b.name = name
	return b, nil
}

// NewBus connects to an already opened port
func NewBus(port spi.Port, opts ...Option) (*Bus, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c, err := port.Connect(cfg.Frequency, cfg.Mode, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect SPI port at %s: %w", cfg.Frequency, err)
	}

	maxTx := defaultMaxTx
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		maxTx = l.MaxTxSize()
	}

	return &Bus{
		conn:  c,
		name:  port.String(),
		maxTx: maxTx,
	}, nil
}

// String returns the port name
func (b *Bus) String() string {
	return b.name
}

// Device binds a chip-select pin to the bus. The pin is driven high
// (inactive) straight away.
func (b *Bus) Device(cs gpio.PinOut) (*Device, error) {
	if cs == nil {
		return nil, ErrNilPin
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to drive %s high: %w", cs, err)
	}
	return &Device{bus: b, cs: cs}, nil
}

// DeviceByName looks up a GPIO by name (e.g. "GPIO8", "P1_24") and binds
// it as a chip-select line.
func (b *Bus) DeviceByName(pin string) (*Device, error) {
	p := gpioreg.ByName(pin)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPin, pin)
	}
	return b.Device(p)
}

// Close releases the port if Open created it
func (b *Bus) Close() error {
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

// tx clocks w out and r in, splitting transfers the port cannot take at
// once. Either slice may be nil; the caller holds b.mu.
func (b *Bus) tx(w, r []byte) error {
	if b.closed {
		return ErrBusClosed
	}
	n := len(w)
	if r != nil {
		n = len(r)
	}
	for off := 0; off < n; off += b.maxTx {
		end := off + b.maxTx
		if end > n {
			end = n
		}
		var wc, rc []byte
		if w != nil {
			wc = w[off:end]
		}
		if r != nil {
			rc = r[off:end]
		}
		if err := b.conn.Tx(wc, rc); err != nil {
			return fmt.Errorf("spi transfer failed: %w", err)
		}
	}
	return nil
}

func (b *Bus) fillBytes(n int, fill byte) []byte {
	if cap(b.fill) < n {
		b.fill = make([]byte, n)
	}
	w := b.fill[:n]
	for i := range w {
		w[i] = fill
	}
	return w
}

// Device is one peripheral on a Bus. It implements bus.Conn.
type Device struct {
	bus      *Bus
	cs       gpio.PinOut
	selected bool
}

// Select drives chip-select low, waiting for any other device on the bus
// to deselect first.
func (d *Device) Select() error {
	if d.selected {
		return nil
	}
	d.bus.mu.Lock()
	if d.bus.closed {
		d.bus.mu.Unlock()
		return ErrBusClosed
	}
	if err := d.cs.Out(gpio.Low); err != nil {
		d.bus.mu.Unlock()
		return fmt.Errorf("failed to drive %s low: %w", d.cs, err)
	}
	d.selected = true
	return nil
}

// Deselect drives chip-select high and frees the bus
func (d *Device) Deselect() error {
	if !d.selected {
		return d.cs.Out(gpio.High)
	}
	d.selected = false
	defer d.bus.mu.Unlock()
	if err := d.cs.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to drive %s high: %w", d.cs, err)
	}
	return nil
}

// Write clocks out w
func (d *Device) Write(w []byte) error {
	if !d.selected {
		d.bus.mu.Lock()
		defer d.bus.mu.Unlock()
	}
	return d.bus.tx(w, nil)
}

// Read clocks in len(r) bytes while sending fill
func (d *Device) Read(r []byte, fill byte) error {
	if !d.selected {
		d.bus.mu.Lock()
		defer d.bus.mu.Unlock()
	}
	return d.bus.tx(d.bus.fillBytes(len(r), fill), r)
}

var _ bus.Conn = (*Device)(nil)
