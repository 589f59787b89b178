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

// CSDSize is the length of the card specific data register
const CSDSize = 16

// ReadCSD reads the 16-byte card specific data register with CMD9
func (c *Card) ReadCSD() ([]byte, error) {
	s := bus.Open(c.conn)
	defer func() { _ = s.Close() }()

	if err := c.startTransfer(s, "read csd", cmdSendCSD, 0); err != nil {
		return nil, err
	}
	csd := make([]byte, CSDSize)
	if err := c.readData(s, "read csd", cmdSendCSD, csd); err != nil {
		_ = release(s)
		return nil, err
	}
	if err := release(s); err != nil {
		return nil, err
	}
	return csd, nil
}

// BlockCount returns the card capacity in 512-byte blocks
func (c *Card) BlockCount() (uint32, error) {
	csd, err := c.ReadCSD()
	if err != nil {
		return 0, err
	}
	return ParseBlockCount(csd)
}

// ParseBlockCount decodes the capacity in 512-byte blocks from a CSD
// register. Version 1.0 and 2.0 structures are supported.
func ParseBlockCount(csd []byte) (uint32, error) {
	if len(csd) < CSDSize {
		return 0, ErrInvalidCSD
	}

	switch csd[0] >> 6 {
	case 0:
		cSize := uint32(csd[6]&0x03)<<10 | uint32(csd[7])<<2 | uint32(csd[8])>>6
		cSizeMult := uint32(csd[9]&0x03)<<1 | uint32(csd[10])>>7
		readBlLen := uint32(csd[5] & 0x0F)
		shift := cSizeMult + 2 + readBlLen
		if shift < 9 {
			return (cSize + 1) >> (9 - shift), nil
		}
		return (cSize + 1) << (shift - 9), nil
	case 1:
		cSize := uint32(csd[7]&0x3F)<<16 | uint32(csd[8])<<8 | uint32(csd[9])
		return (cSize + 1) * 1024, nil
	default:
		return 0, ErrInvalidCSD
	}
}
