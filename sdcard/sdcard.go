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

// Package sdcard drives an SD card over SPI: power-up negotiation and
// 512-byte block reads and writes. There is no file system layer.
package sdcard

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-rc522/bus"
	"github.com/ZaparooProject/go-rc522/internal/transport"
)

// BlockSize is the only block length the driver uses
const BlockSize = 512

// Command indices
const (
	cmdGoIdleState       = 0
	cmdSendIfCond        = 8
	cmdSendCSD           = 9
	cmdStopTransmission  = 12
	cmdSetBlockLen       = 16
	cmdReadSingleBlock   = 17
	cmdReadMultipleBlock = 18
	cmdWriteBlock        = 24
	cmdWriteMultiple     = 25
	acmdSendOpCond       = 41
	cmdAppCmd            = 55
	cmdReadOCR           = 58
)

// Checksums. Only CMD0 and CMD8 are checked by a card in SPI mode, so their
// CRC7 is fixed here and every other command carries a dummy byte.
const (
	crcGoIdleState = 0x95
	crcSendIfCond  = 0x87
	crcNone        = 0xFF
)

// Protocol values
const (
	r1Idle       = 0x01
	r1Busy       = 0x80
	ifCondArg    = 0x1AA // 2.7-3.6V, check pattern 0xAA
	hcsArg       = 0x40000000
	ocrCCS       = 0x40000000
	tokenData    = 0xFE
	tokenMulti   = 0xFC
	tokenStop    = 0xFD
	dataRespMask = 0x1F
	dataAccepted = 0x05
	idleClocks   = 10 // bytes of 0xFF with CS high before CMD0
	trailerBytes = 4  // R3/R7 payload after R1
	dataCRCBytes = 2
)

// Default attempt budgets. Every loop in the driver is bounded by one of
// these; none of them reads a clock.
const (
	DefaultCommandAttempts = 100
	DefaultResetAttempts   = 4
	DefaultReadyAttempts   = 5000
	DefaultTokenAttempts   = 5000
	DefaultBusyAttempts    = 50000
)

// Version is the physical layer version negotiated in Init
type Version int

const (
	VersionUnknown Version = iota
	Version1               // legacy card, rejected CMD8
	Version2               // answered CMD8, supports ACMD41 HCS
)

func (v Version) String() string {
	switch v {
	case Version1:
		return "v1"
	case Version2:
		return "v2"
	default:
		return "unknown"
	}
}

// Info is what Init learned about the card. The driver does not keep it.
type Info struct {
	Version Version
	// OCR is the operating conditions register; zero for version 1 cards
	OCR uint32
}

// HighCapacity reports whether the card set CCS in its OCR. Such cards are
// block addressed; others expect WithByteAddressing.
func (i Info) HighCapacity() bool {
	return i.OCR&ocrCCS != 0
}

// Config contains configuration options for the Card
type Config struct {
	CommandAttempts int
	ResetAttempts   int
	ReadyAttempts   int
	TokenAttempts   int
	BusyAttempts    int
	ByteAddressing  bool
}

// DefaultConfig returns default card configuration
func DefaultConfig() *Config {
	return &Config{
		CommandAttempts: DefaultCommandAttempts,
		ResetAttempts:   DefaultResetAttempts,
		ReadyAttempts:   DefaultReadyAttempts,
		TokenAttempts:   DefaultTokenAttempts,
		BusyAttempts:    DefaultBusyAttempts,
	}
}

func (c *Config) validate() error {
	for _, n := range []int{c.CommandAttempts, c.ResetAttempts, c.ReadyAttempts, c.TokenAttempts, c.BusyAttempts} {
		if n < 1 {
			return ErrInvalidAttempts
		}
	}
	return nil
}

// Card drives one SD card on a shared bus.
//
// Card holds only its bus connection and configuration. Every operation
// opens its own bus session and releases chip-select before returning.
//
// Thread Safety: Card is NOT thread-safe.
type Card struct {
	conn   bus.Conn
	config *Config
}

// New creates a card driver on a bus connection bound to the card's
// chip-select line. The card is not touched until Init.
func New(conn bus.Conn, opts ...Option) (*Card, error) {
	if conn == nil {
		return nil, ErrNilBus
	}
	card := &Card{
		conn:   conn,
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(card); err != nil {
			return nil, err
		}
	}

	return card, nil
}

// Config returns a copy of the card configuration
func (c *Card) Config() Config {
	return *c.config
}

// Init puts the card into SPI mode and negotiates its operating
// conditions. It returns ErrNoCard when no card answers CMD0 with the idle
// bit after Config.ResetAttempts tries; nothing else is sent in that case.
func (c *Card) Init() (Info, error) {
	s := bus.Open(c.conn)
	defer func() { _ = s.Close() }()

	var idle [idleClocks]byte
	for i := range idle {
		idle[i] = bus.Fill
	}
	if err := c.conn.Deselect(); err != nil {
		return Info{}, fmt.Errorf("failed to release chip select: %w", err)
	}
	if err := s.Write(idle[:]); err != nil {
		return Info{}, err
	}

	if err := c.goIdle(s); err != nil {
		return Info{}, err
	}

	r1, err := c.cmd(s, cmdSendIfCond, ifCondArg, crcSendIfCond, true, false)
	if err != nil && !errors.Is(err, ErrResponseTimeout) {
		return Info{}, err
	}

	var info Info
	if err == nil && r1 == r1Idle {
		info.Version = Version2
		if err := s.Skip(trailerBytes); err != nil {
			return Info{}, err
		}
		if err := c.waitReady(s, hcsArg, true); err != nil {
			return Info{}, err
		}

		r1, err := c.cmd(s, cmdReadOCR, 0, crcNone, true, false)
		if err != nil {
			return Info{}, newCommandError("init", cmdReadOCR, 0, fmt.Errorf("%w: %w", ErrInitFailed, err))
		}
		if r1 != 0 {
			return Info{}, newCommandError("init", cmdReadOCR, r1, ErrInitFailed)
		}
		var ocr [trailerBytes]byte
		if err := s.Read(ocr[:], bus.Fill); err != nil {
			return Info{}, err
		}
		info.OCR = uint32(ocr[0])<<24 | uint32(ocr[1])<<16 | uint32(ocr[2])<<8 | uint32(ocr[3])
	} else {
		info.Version = Version1
		if err := c.waitReady(s, 0, false); err != nil {
			return Info{}, err
		}
	}

	r1, err = c.cmd(s, cmdSetBlockLen, BlockSize, crcNone, false, false)
	if err != nil {
		return Info{}, err
	}
	if r1 != 0 {
		return Info{}, newCommandError("init", cmdSetBlockLen, r1, ErrCommandRejected)
	}

	debugf("initialised %s card, OCR %#08x", info.Version, info.OCR)
	return info, nil
}

// goIdle sends CMD0 until the card answers with exactly the idle bit
func (c *Card) goIdle(s *bus.Session) error {
	_, attempts, err := transport.WithRetry(transport.RetryConfig{
		Description: "reset",
		MaxAttempts: c.config.ResetAttempts,
	}, func() (byte, bool, error) {
		r1, err := c.cmd(s, cmdGoIdleState, 0, crcGoIdleState, false, false)
		if errors.Is(err, ErrResponseTimeout) {
			return 0, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		return r1, r1 != r1Idle, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		debugf("no idle response after %d resets", attempts)
		return newCommandError("init", cmdGoIdleState, 0, ErrNoCard)
	}
	return err
}

// waitReady repeats CMD55 + ACMD41 until the card reports it has left the
// idle state.
func (c *Card) waitReady(s *bus.Session, arg uint32, hold bool) error {
	_, _, err := transport.WithRetry(transport.RetryConfig{
		Description: "wait ready",
		MaxAttempts: c.config.ReadyAttempts,
	}, func() (byte, bool, error) {
		r1, err := c.cmd(s, cmdAppCmd, 0, crcNone, hold, false)
		if errors.Is(err, ErrResponseTimeout) {
			return 0, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		if r1&^r1Idle != 0 {
			return r1, false, newCommandError("init", cmdAppCmd, r1, ErrInitFailed)
		}

		r1, err = c.cmd(s, acmdSendOpCond, arg, crcNone, hold, false)
		if errors.Is(err, ErrResponseTimeout) {
			return 0, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		return r1, r1 != 0, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		return newCommandError("init", acmdSendOpCond, r1Idle, ErrInitTimeout)
	}
	return err
}

// address converts a block index into a command argument
func (c *Card) address(block uint32) uint32 {
	if c.config.ByteAddressing {
		return block * BlockSize
	}
	return block
}
