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
	"errors"

	"github.com/ZaparooProject/go-rc522/internal/frame"
	"github.com/ZaparooProject/go-rc522/internal/transport"
)

// response is the result of a single transceive
type response struct {
	data   []byte
	bits   int
	status Status
}

// transceive loads send into the FIFO, runs cmd and waits for the chip to
// report completion. The wait is bounded by Config.PollLimit reads of
// ComIrqReg; running out of reads yields StatusError with no data.
func (d *Device) transceive(cmd byte, send []byte) (response, error) {
	resp := response{status: StatusError}

	var irqEn, waitIRq byte
	switch cmd {
	case CmdMFAuthent:
		irqEn, waitIRq = authIRqEn, authWaitIRq
	case CmdTransceive:
		irqEn, waitIRq = transceiveIRqEn, transceiveWaitIRq
	}

	if err := d.regs.WriteRegister(ComIEnReg, irqEn|irqSet1); err != nil {
		return resp, err
	}
	if err := d.clearBitMask(ComIrqReg, irqSet1); err != nil {
		return resp, err
	}
	if err := d.setBitMask(FIFOLevelReg, fifoFlush); err != nil {
		return resp, err
	}
	if err := d.regs.WriteRegister(CommandReg, CmdIdle); err != nil {
		return resp, err
	}
	for _, b := range send {
		if err := d.regs.WriteRegister(FIFODataReg, b); err != nil {
			return resp, err
		}
	}
	if err := d.regs.WriteRegister(CommandReg, cmd); err != nil {
		return resp, err
	}
	if cmd == CmdTransceive {
		if err := d.setBitMask(BitFramingReg, startSend); err != nil {
			return resp, err
		}
	}

	irq, _, err := transport.WithRetry(transport.RetryConfig{
		Description: "wait for command completion",
		MaxAttempts: d.config.PollLimit,
	}, func() (byte, bool, error) {
		n, err := d.regs.ReadRegister(ComIrqReg)
		if err != nil {
			return 0, false, err
		}
		return n, n&irqTimer == 0 && n&waitIRq == 0, nil
	})
	pollExhausted := errors.Is(err, transport.ErrRetriesExhausted)
	if err != nil && !pollExhausted {
		return resp, err
	}

	if err := d.clearBitMask(BitFramingReg, startSend); err != nil {
		return resp, err
	}

	if pollExhausted {
		debugf("command %#02x: no interrupt after %d polls", cmd, d.config.PollLimit)
		return resp, nil
	}

	errReg, err := d.regs.ReadRegister(ErrorReg)
	if err != nil {
		return resp, err
	}
	if errReg&errorMask != 0 {
		debugf("command %#02x: error register %#02x", cmd, errReg)
		return resp, nil
	}

	resp.status = StatusOK
	if irq&irqEn&irqTimer != 0 {
		resp.status = StatusNoTag
	}

	if cmd == CmdTransceive {
		if err := d.drainFIFO(&resp); err != nil {
			return resp, err
		}
	}

	return resp, nil
}

// drainFIFO reads the received bytes out of the FIFO. The byte count is
// clamped to [1, maxFIFOResponse].
func (d *Device) drainFIFO(resp *response) error {
	level, err := d.regs.ReadRegister(FIFOLevelReg)
	if err != nil {
		return err
	}
	control, err := d.regs.ReadRegister(ControlReg)
	if err != nil {
		return err
	}

	n := int(level & fifoLevelMask)
	if lastBits := int(control & rxLastBitsMask); lastBits != 0 {
		resp.bits = (n-1)*8 + lastBits
	} else {
		resp.bits = n * 8
	}

	if n == 0 {
		n = 1
	}
	if n > maxFIFOResponse {
		n = maxFIFOResponse
	}

	resp.data = make([]byte, n)
	for i := range resp.data {
		if resp.data[i], err = d.regs.ReadRegister(FIFODataReg); err != nil {
			return err
		}
	}
	return nil
}

// validBCC reports whether the last byte of data is the XOR of the rest
func validBCC(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	last := len(data) - 1
	return frame.BCC(data[:last]) == data[last]
}
