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

	"github.com/ZaparooProject/go-rc522/bus"
	"github.com/ZaparooProject/go-rc522/internal/frame"
	"github.com/ZaparooProject/go-rc522/internal/transport"
)

// cmd sends one command frame and returns the card's R1 byte.
//
// skip1 discards the byte following the frame, which CMD12 needs because
// the card sends a stuff byte before its response. Unless hold is set,
// chip-select is released and one idle byte clocked on success and on
// timeout; with hold the caller keeps the bus to read a trailing payload.
func (c *Card) cmd(s *bus.Session, index byte, arg uint32, crc byte, hold, skip1 bool) (byte, error) {
	f := frame.Command(index, arg, crc)

	if err := s.Select(); err != nil {
		return 0, err
	}
	if err := s.Write(f[:]); err != nil {
		return 0, err
	}
	if skip1 {
		if err := s.Skip(1); err != nil {
			return 0, err
		}
	}

	r1, _, err := transport.WithRetry(transport.RetryConfig{
		MaxAttempts: c.config.CommandAttempts,
	}, func() (byte, bool, error) {
		b, err := s.ReadOne(bus.Fill)
		if err != nil {
			return 0, false, err
		}
		return b, b&r1Busy != 0, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		if rerr := release(s); rerr != nil {
			return 0, rerr
		}
		debugf("CMD%d: no response after %d reads", index, c.config.CommandAttempts)
		return 0, newCommandError("command", index, 0, ErrResponseTimeout)
	}
	if err != nil {
		return 0, err
	}

	if !hold {
		if err := release(s); err != nil {
			return 0, err
		}
	}
	return r1, nil
}

// release deasserts chip-select and clocks one idle byte so the card
// lets go of its output line.
func release(s *bus.Session) error {
	if err := s.Deselect(); err != nil {
		return err
	}
	return s.WriteByte(bus.Fill)
}

// readData waits for the data start token and reads len(dst) bytes plus
// the 16-bit CRC. dst is only written once the whole packet has arrived.
func (c *Card) readData(s *bus.Session, op string, index byte, dst []byte) error {
	token, _, err := transport.WithRetry(transport.RetryConfig{
		MaxAttempts: c.config.TokenAttempts,
	}, func() (byte, bool, error) {
		b, err := s.ReadOne(bus.Fill)
		if err != nil {
			return 0, false, err
		}
		return b, b == bus.Fill, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		debugf("CMD%d: no data token after %d reads", index, c.config.TokenAttempts)
		return newCommandError(op, index, 0, ErrDataTimeout)
	}
	if err != nil {
		return err
	}
	if token != tokenData {
		return newCommandError(op, index, token, ErrDataErrorToken)
	}

	var scratch [BlockSize]byte
	buf := scratch[:len(dst)]
	if err := s.Read(buf, bus.Fill); err != nil {
		return err
	}
	if err := s.Skip(dataCRCBytes); err != nil {
		return err
	}
	copy(dst, buf)
	return nil
}

// writeData sends one data packet and checks the card's data response,
// then waits for programming to finish.
func (c *Card) writeData(s *bus.Session, op string, index, token byte, src []byte) error {
	if err := s.Select(); err != nil {
		return err
	}
	if err := s.WriteByte(token); err != nil {
		return err
	}
	if err := s.Write(src); err != nil {
		return err
	}
	if err := s.Write([]byte{bus.Fill, bus.Fill}); err != nil {
		return err
	}

	resp, err := s.ReadOne(bus.Fill)
	if err != nil {
		return err
	}
	if resp&dataRespMask != dataAccepted {
		debugf("CMD%d: data response %#02x", index, resp)
		return newCommandError(op, index, resp, ErrWriteRejected)
	}
	return c.waitNotBusy(s, op, index)
}

// waitNotBusy reads until the card stops holding its output low
func (c *Card) waitNotBusy(s *bus.Session, op string, index byte) error {
	_, _, err := transport.WithRetry(transport.RetryConfig{
		MaxAttempts: c.config.BusyAttempts,
	}, func() (byte, bool, error) {
		b, err := s.ReadOne(bus.Fill)
		if err != nil {
			return 0, false, err
		}
		return b, b == 0x00, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		return newCommandError(op, index, 0, ErrBusyTimeout)
	}
	return err
}
