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
	"github.com/ZaparooProject/go-rc522/bus"
)

// blockCount validates a transfer buffer before any bus activity
func blockCount(buf []byte) (int, error) {
	if len(buf) == 0 || len(buf)%BlockSize != 0 {
		return 0, ErrInvalidBufferSize
	}
	return len(buf) / BlockSize, nil
}

// ReadBlocks reads len(buf)/512 consecutive blocks starting at block start.
//
// A single block uses CMD17; more use CMD18 followed by CMD12. If a data
// token does not arrive the transfer is aborted: blocks already read stay
// in buf and the failing block's region is left untouched.
func (c *Card) ReadBlocks(start uint32, buf []byte) error {
	n, err := blockCount(buf)
	if err != nil {
		return err
	}

	s := bus.Open(c.conn)
	defer func() { _ = s.Close() }()

	if n == 1 {
		if err := c.startTransfer(s, "read", cmdReadSingleBlock, start); err != nil {
			return err
		}
		if err := c.readData(s, "read", cmdReadSingleBlock, buf); err != nil {
			_ = release(s)
			return err
		}
		return release(s)
	}

	if err := c.startTransfer(s, "read", cmdReadMultipleBlock, start); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := c.readData(s, "read", cmdReadMultipleBlock, buf[i*BlockSize:(i+1)*BlockSize]); err != nil {
			_ = c.stopTransmission(s)
			return err
		}
	}
	return c.stopTransmission(s)
}

// WriteBlocks writes len(buf)/512 consecutive blocks starting at block
// start. Each block must be accepted by the card before the next is sent.
func (c *Card) WriteBlocks(start uint32, buf []byte) error {
	n, err := blockCount(buf)
	if err != nil {
		return err
	}

	s := bus.Open(c.conn)
	defer func() { _ = s.Close() }()

	if n == 1 {
		if err := c.startTransfer(s, "write", cmdWriteBlock, start); err != nil {
			return err
		}
		if err := c.writeData(s, "write", cmdWriteBlock, tokenData, buf); err != nil {
			_ = release(s)
			return err
		}
		return release(s)
	}

	if err := c.startTransfer(s, "write", cmdWriteMultiple, start); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := c.writeData(s, "write", cmdWriteMultiple, tokenMulti, buf[i*BlockSize:(i+1)*BlockSize]); err != nil {
			_ = c.stopToken(s)
			return err
		}
	}
	return c.stopToken(s)
}

// startTransfer sends a block command, keeping the bus for the data phase
func (c *Card) startTransfer(s *bus.Session, op string, index byte, block uint32) error {
	r1, err := c.cmd(s, index, c.address(block), crcNone, true, false)
	if err != nil {
		return err
	}
	if r1 != 0 {
		_ = release(s)
		return newCommandError(op, index, r1, ErrCommandRejected)
	}
	return nil
}

// stopTransmission ends a multi-block read with CMD12
func (c *Card) stopTransmission(s *bus.Session) error {
	r1, err := c.cmd(s, cmdStopTransmission, 0, crcNone, false, true)
	if err != nil {
		return err
	}
	if r1 != 0 {
		return newCommandError("read", cmdStopTransmission, r1, ErrCommandRejected)
	}
	return nil
}

// stopToken ends a multi-block write and waits for the card to finish
func (c *Card) stopToken(s *bus.Session) error {
	if err := s.Select(); err != nil {
		return err
	}
	if err := s.WriteByte(tokenStop); err != nil {
		return err
	}
	if err := s.Skip(1); err != nil {
		return err
	}
	if err := c.waitNotBusy(s, "write", cmdWriteMultiple); err != nil {
		_ = release(s)
		return err
	}
	return release(s)
}
