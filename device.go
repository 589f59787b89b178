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

// DefaultPollLimit is the default number of interrupt register reads a
// transceive makes before reporting StatusError.
const DefaultPollLimit = 2000

// RequestMode selects which cards answer a request.
type RequestMode byte

const (
	// RequestIdle wakes only cards in the IDLE state (REQA)
	RequestIdle RequestMode = RequestMode(piccReqA)
	// RequestAll wakes cards in IDLE and HALT states (WUPA)
	RequestAll RequestMode = RequestMode(piccWupA)
)

// Config contains configuration options for the Device
type Config struct {
	// PollLimit bounds the interrupt wait loop of every transceive
	PollLimit int
}

// DefaultConfig returns default device configuration
func DefaultConfig() *Config {
	return &Config{
		PollLimit: DefaultPollLimit,
	}
}

// Device drives an MFRC522 reader chip.
//
// The device keeps no state between calls beyond its register bus and
// configuration: nothing about the last card is cached.
//
// Thread Safety: Device is NOT thread-safe. All methods must be called from
// a single goroutine or protected with external synchronization.
type Device struct {
	regs   RegisterBus
	config *Config
}

// New creates a reader device on a bus connection bound to the reader's
// chip-select line.
func New(conn bus.Conn, opts ...Option) (*Device, error) {
	if conn == nil {
		return nil, ErrNilBus
	}
	return NewWithRegisterBus(NewRegisterBus(conn), opts...)
}

// NewWithRegisterBus creates a reader device on an arbitrary register bus
func NewWithRegisterBus(regs RegisterBus, opts ...Option) (*Device, error) {
	if regs == nil {
		return nil, ErrNilBus
	}
	device := &Device{
		regs:   regs,
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Config returns a copy of the device configuration
func (d *Device) Config() Config {
	return *d.config
}

// Init soft-resets the chip, programs the timer so that a silent card
// raises TimerIRq, forces 100% ASK modulation and switches the antenna on.
// It only fails when the bus does.
func (d *Device) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}

	sequence := []struct {
		reg   Register
		value byte
	}{
		{TModeReg, tModeAuto},
		{TPrescalerReg, tPrescaler},
		{TReloadRegL, tReloadLow},
		{TReloadRegH, tReloadHigh},
		{TxASKReg, txASKForce100},
		{ModeReg, modeCRCPreset},
	}
	for _, w := range sequence {
		if err := d.regs.WriteRegister(w.reg, w.value); err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
	}

	if err := d.AntennaOn(); err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	debugln("initialised")
	return nil
}

// Reset issues the SoftReset command
func (d *Device) Reset() error {
	if err := d.regs.WriteRegister(CommandReg, CmdSoftReset); err != nil {
		return fmt.Errorf("soft reset failed: %w", err)
	}
	return nil
}

// AntennaOn enables both antenna drivers. TxControlReg is only written when
// a driver bit is still clear, so the RF field is not cycled.
func (d *Device) AntennaOn() error {
	value, err := d.regs.ReadRegister(TxControlReg)
	if err != nil {
		return err
	}
	if value&antennaBits == antennaBits {
		return nil
	}
	return d.regs.WriteRegister(TxControlReg, value|antennaBits)
}

// AntennaOff disables both antenna drivers
func (d *Device) AntennaOff() error {
	return d.clearBitMask(TxControlReg, antennaBits)
}

// Version reads VersionReg. Genuine chips report 0x91 (v1.0) or 0x92
// (v2.0); 0x00 or 0xFF usually means nothing is on the bus.
func (d *Device) Version() (byte, error) {
	v, err := d.regs.ReadRegister(VersionReg)
	if err != nil {
		return 0, fmt.Errorf("read version failed: %w", err)
	}
	return v, nil
}

// RequestCard sends REQA or WUPA. It succeeds only if the card answers
// with exactly two bytes (the ATQA). The error return is reserved for bus
// failures; card outcomes are reported through the Status.
//
// ValuesAfterColl is cleared first so that bits received after a collision
// are discarded rather than kept in the FIFO.
func (d *Device) RequestCard(mode RequestMode) (Status, []byte, error) {
	if err := d.clearBitMask(CollReg, collDiscardBit); err != nil {
		return StatusError, nil, err
	}
	if err := d.regs.WriteRegister(BitFramingReg, txLastBitsReqA); err != nil {
		return StatusError, nil, err
	}

	resp, err := d.transceive(CmdTransceive, []byte{byte(mode)})
	if err != nil {
		return StatusError, nil, err
	}

	switch {
	case resp.status == StatusNoTag:
		return StatusNoTag, nil, nil
	case resp.status != StatusOK || len(resp.data) != 2:
		debugf("request: status %s, %d bytes", resp.status, len(resp.data))
		return StatusError, resp.data, nil
	default:
		return StatusOK, resp.data, nil
	}
}

// Anticollision runs cascade level 1 anticollision and returns the four UID
// bytes on success. The fifth received byte must equal the XOR of the first
// four; on mismatch the status is StatusError and the raw response is
// returned.
func (d *Device) Anticollision() (Status, []byte, error) {
	if err := d.regs.WriteRegister(BitFramingReg, 0x00); err != nil {
		return StatusError, nil, err
	}

	resp, err := d.transceive(CmdTransceive, []byte{piccSelectCL1, piccAnticollNVB})
	if err != nil {
		return StatusError, nil, err
	}
	if resp.status != StatusOK {
		return resp.status, resp.data, nil
	}
	if len(resp.data) != UIDLength+1 {
		debugf("anticollision: expected %d bytes, got %d", UIDLength+1, len(resp.data))
		return StatusError, resp.data, nil
	}
	if !validBCC(resp.data) {
		debugf("anticollision: BCC mismatch in % X", resp.data)
		return StatusError, resp.data, nil
	}

	return StatusOK, resp.data[:UIDLength], nil
}

// DetectCard runs a request followed by anticollision and returns the UID.
// It returns ErrNoTagDetected when no card answers and ErrCardError when a
// card answered badly.
func (d *Device) DetectCard(mode RequestMode) (UID, error) {
	status, _, err := d.RequestCard(mode)
	if err != nil {
		return UID{}, err
	}
	if status != StatusOK {
		return UID{}, status.Err()
	}

	status, data, err := d.Anticollision()
	if err != nil {
		return UID{}, err
	}
	if status != StatusOK {
		return UID{}, status.Err()
	}

	uid, ok := NewUID(data)
	if !ok {
		return UID{}, ErrCardError
	}
	return uid, nil
}

func (d *Device) setBitMask(reg Register, mask byte) error {
	value, err := d.regs.ReadRegister(reg)
	if err != nil {
		return err
	}
	return d.regs.WriteRegister(reg, value|mask)
}

func (d *Device) clearBitMask(reg Register, mask byte) error {
	value, err := d.regs.ReadRegister(reg)
	if err != nil {
		return err
	}
	return d.regs.WriteRegister(reg, value&^mask)
}
