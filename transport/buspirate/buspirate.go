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

// Package buspirate drives a Bus Pirate in binary SPI mode over a USB
// serial port, exposing its CS and AUX pins as two bus.Conn chip-select
// lines.
package buspirate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-rc522/bus"
	"go.bug.st/serial"
)

const (
	cmdReset     = 0x00 // enter (or return to) raw bitbang mode
	cmdSPI       = 0x01 // bitbang -> SPI mode
	cmdCSLow     = 0x02
	cmdCSHigh    = 0x03
	cmdExit      = 0x0F // reset to the user terminal
	cmdBulk      = 0x10 // | n-1 for 1..16 bytes
	cmdPeriph    = 0x40 // | power, pullups, aux, cs
	cmdSpeed     = 0x60 // | speed code
	cmdSPIConfig = 0x80 // | 3V3 output, CKP, CKE, SMP
	replyOK      = 0x01

	periphPower   = 0x08
	periphPullups = 0x04
	periphAux     = 0x02
	periphCS      = 0x01

	// 3.3V push-pull outputs, clock idle low, data changes on the falling
	// edge: SPI mode 0.
	configMode0 = 0x0A

	maxBulk        = 16
	resetAttempts  = 20
	readAttempts   = 10
	defaultBaud    = 115200
	defaultTimeout = 100 * time.Millisecond
)

var (
	bbioBanner = []byte("BBIO1")
	spiBanner  = []byte("SPI1")
)

// Bridge errors
var (
	ErrNoBinaryMode = errors.New("bus pirate did not enter binary mode")
	ErrNoSPIMode    = errors.New("bus pirate did not enter SPI mode")
	ErrBadReply     = errors.New("unexpected bus pirate reply")
	ErrShortRead    = errors.New("bus pirate stopped answering")
	ErrClosed       = errors.New("bus pirate closed")
)

// Speed is the SPI clock code understood by the Bus Pirate
type Speed byte

// SPI clock rates
const (
	Speed30kHz Speed = iota
	Speed125kHz
	Speed250kHz
	Speed1MHz
	Speed2MHz
	Speed2600kHz
	Speed4MHz
	Speed8MHz
)

// Line selects which Bus Pirate pin acts as a device's chip-select
type Line int

const (
	// LineCS is the dedicated CS pin
	LineCS Line = iota
	// LineAux is the AUX pin, driven as a second active-low chip-select
	LineAux
)

func (l Line) String() string {
	if l == LineAux {
		return "AUX"
	}
	return "CS"
}

// Port is the serial connection to the Bus Pirate
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// Config holds bridge settings
type Config struct {
	Speed Speed
	// Power switches on the Bus Pirate's 3.3V and 5V supplies
	Power bool
	// Pullups enables the on-board pull-up resistors
	Pullups bool
}

// DefaultConfig returns 1MHz with the power supplies on
func DefaultConfig() *Config {
	return &Config{
		Speed: Speed1MHz,
		Power: true,
	}
}

// Option configures a Bridge
type Option func(*Config)

// WithSpeed sets the SPI clock
func WithSpeed(s Speed) Option {
	return func(c *Config) {
		c.Speed = s & 0x07
	}
}

// WithPower controls the on-board power supplies
func WithPower(on bool) Option {
	return func(c *Config) {
		c.Power = on
	}
}

// WithPullups controls the on-board pull-up resistors
func WithPullups(on bool) Option {
	return func(c *Config) {
		c.Pullups = on
	}
}

// Bridge is a Bus Pirate in binary SPI mode
type Bridge struct {
	port   Port
	name   string
	buf    []byte
	mu     sync.Mutex
	periph byte
	closed bool
}

// Open opens the serial port and switches the Bus Pirate to SPI mode
func Open(portName string, opts ...Option) (*Bridge, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: defaultBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(defaultTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	b, err := New(port, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	b.name = portName
	return b, nil
}

// New runs the binary mode handshake on an open port
func New(port Port, opts ...Option) (*Bridge, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	b := &Bridge{port: port, name: "buspirate"}
	if err := b.enterSPI(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

// String returns the serial port name
func (b *Bridge) String() string {
	return b.name
}

func (b *Bridge) enterSPI(cfg *Config) error {
	if err := b.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to flush serial input: %w", err)
	}

	banner := make([]byte, len(bbioBanner))
	entered := false
	for i := 0; i < resetAttempts && !entered; i++ {
		if _, err := b.port.Write([]byte{cmdReset}); err != nil {
			return fmt.Errorf("bus pirate write failed: %w", err)
		}
		if err := b.readFull(banner); err != nil {
			continue
		}
		entered = bytes.Equal(banner, bbioBanner)
	}
	if !entered {
		return ErrNoBinaryMode
	}
	debugf("binary mode after handshake")

	// Drain any extra banners answered to surplus reset bytes
	_ = b.port.ResetInputBuffer()

	if _, err := b.port.Write([]byte{cmdSPI}); err != nil {
		return fmt.Errorf("bus pirate write failed: %w", err)
	}
	mode := make([]byte, len(spiBanner))
	if err := b.readFull(mode); err != nil || !bytes.Equal(mode, spiBanner) {
		return ErrNoSPIMode
	}

	if err := b.command(cmdSpeed | byte(cfg.Speed)); err != nil {
		return err
	}
	if err := b.command(cmdSPIConfig | configMode0); err != nil {
		return err
	}

	b.periph = periphAux | periphCS
	if cfg.Power {
		b.periph |= periphPower
	}
	if cfg.Pullups {
		b.periph |= periphPullups
	}
	return b.command(cmdPeriph | b.periph)
}

// command sends a single byte command and checks for replyOK
func (b *Bridge) command(c byte) error {
	if _, err := b.port.Write([]byte{c}); err != nil {
		return fmt.Errorf("bus pirate write failed: %w", err)
	}
	var reply [1]byte
	if err := b.readFull(reply[:]); err != nil {
		return err
	}
	if reply[0] != replyOK {
		return fmt.Errorf("%w: command %#02x answered %#02x", ErrBadReply, c, reply[0])
	}
	return nil
}

// readFull reads len(p) bytes. A read that times out returns zero bytes,
// so the number of empty reads is bounded.
func (b *Bridge) readFull(p []byte) error {
	got, empty := 0, 0
	for got < len(p) {
		n, err := b.port.Read(p[got:])
		if err != nil {
			return fmt.Errorf("bus pirate read failed: %w", err)
		}
		if n == 0 {
			empty++
			if empty >= readAttempts {
				return ErrShortRead
			}
			continue
		}
		got += n
	}
	return nil
}

// transfer clocks w out in bulk commands and stores what came back in r
func (b *Bridge) transfer(w, r []byte) error {
	if b.closed {
		return ErrClosed
	}
	for off := 0; off < len(w); off += maxBulk {
		end := off + maxBulk
		if end > len(w) {
			end = len(w)
		}
		chunk := w[off:end]

		b.buf = append(b.buf[:0], cmdBulk|byte(len(chunk)-1))
		b.buf = append(b.buf, chunk...)
		if _, err := b.port.Write(b.buf); err != nil {
			return fmt.Errorf("bus pirate write failed: %w", err)
		}

		reply := b.buf[:1+len(chunk)]
		if err := b.readFull(reply); err != nil {
			return err
		}
		if reply[0] != replyOK {
			return fmt.Errorf("%w: bulk transfer answered %#02x", ErrBadReply, reply[0])
		}
		if r != nil {
			copy(r[off:end], reply[1:])
		}
	}
	return nil
}

// Device binds one of the bridge's chip-select lines
func (b *Bridge) Device(line Line) *Device {
	return &Device{bridge: b, line: line}
}

// Close returns the Bus Pirate to its terminal and closes the port
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	_, _ = b.port.Write([]byte{cmdReset, cmdExit})
	if err := b.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Device is one chip-select line of a Bridge. It implements bus.Conn.
type Device struct {
	bridge   *Bridge
	line     Line
	selected bool
}

func (d *Device) setLine(active bool) error {
	b := d.bridge
	if b.closed {
		return ErrClosed
	}
	switch d.line {
	case LineAux:
		periph := b.periph | periphAux
		if active {
			periph &^= periphAux
		}
		if err := b.command(cmdPeriph | periph); err != nil {
			return err
		}
		b.periph = periph
		return nil
	default:
		if active {
			return b.command(cmdCSLow)
		}
		return b.command(cmdCSHigh)
	}
}

// Select drives the line low, waiting for the other line to be released
func (d *Device) Select() error {
	if d.selected {
		return nil
	}
	d.bridge.mu.Lock()
	if err := d.setLine(true); err != nil {
		d.bridge.mu.Unlock()
		return fmt.Errorf("failed to select %s: %w", d.line, err)
	}
	d.selected = true
	return nil
}

// Deselect drives the line high and frees the bridge
func (d *Device) Deselect() error {
	if !d.selected {
		return nil
	}
	d.selected = false
	defer d.bridge.mu.Unlock()
	if err := d.setLine(false); err != nil {
		return fmt.Errorf("failed to deselect %s: %w", d.line, err)
	}
	return nil
}

// Write clocks out w
func (d *Device) Write(w []byte) error {
	if !d.selected {
		d.bridge.mu.Lock()
		defer d.bridge.mu.Unlock()
	}
	return d.bridge.transfer(w, nil)
}

// Read clocks in len(r) bytes while sending fill
func (d *Device) Read(r []byte, fill byte) error {
	if !d.selected {
		d.bridge.mu.Lock()
		defer d.bridge.mu.Unlock()
	}
	w := bytes.Repeat([]byte{fill}, len(r))
	return d.bridge.transfer(w, r)
}

var _ bus.Conn = (*Device)(nil)
