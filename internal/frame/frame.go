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

// Package frame provides wire framing and check values for the SD card
// command protocol and the ISO 14443A anticollision BCC
package frame

import "encoding/binary"

// Command frame layout
const (
	CommandSize    = 6    // start+index, 4 argument bytes, CRC
	CommandStart   = 0x40 // start bit 0, transmission bit 1
	CommandMask    = 0x3F // six bits of command index
	CommandEndBit  = 0x01 // end bit carried in the last byte
	startBitsMask  = 0xC0
	crc7Polynomial = 0x09 // x^7 + x^3 + 1
)

// Command builds a 6-byte SD command frame. The checksum byte is passed
// through as-is.
func Command(index byte, arg uint32, crc byte) [CommandSize]byte {
	var f [CommandSize]byte
	f[0] = CommandStart | (index & CommandMask)
	binary.BigEndian.PutUint32(f[1:5], arg)
	f[5] = crc
	return f
}

// IsCommandStart reports whether b can be the first byte of a command frame.
func IsCommandStart(b byte) bool {
	return b&startBitsMask == CommandStart
}

// Argument returns the big-endian argument of a command frame.
func Argument(f []byte) uint32 {
	if len(f) < 5 {
		return 0
	}
	return binary.BigEndian.Uint32(f[1:5])
}

// CRC7 calculates the 7-bit CRC used by SD command frames
func CRC7(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			crc <<= 1
			if (b&0x80)^(crc&0x80) != 0 {
				crc ^= crc7Polynomial
			}
			b <<= 1
		}
	}
	return crc & 0x7F
}

// CommandCRC returns the complete checksum byte (CRC7 plus end bit) for
// the first five bytes of a command frame.
func CommandCRC(index byte, arg uint32) byte {
	f := Command(index, arg, 0)
	return CRC7(f[:5])<<1 | CommandEndBit
}

// ValidateCommandCRC reports whether the last byte of a frame matches its CRC7
func ValidateCommandCRC(f []byte) bool {
	if len(f) != CommandSize {
		return false
	}
	return CRC7(f[:5])<<1|CommandEndBit == f[5]
}

// BCC calculates the block check character of a UID: the XOR of all bytes
func BCC(data []byte) byte {
	var bcc byte
	for _, b := range data {
		bcc ^= b
	}
	return bcc
}
