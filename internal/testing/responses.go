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

// Package testing provides simulated peripherals that speak the real SPI
// protocols, for driver tests that run without hardware.
package testing

import (
	"github.com/ZaparooProject/go-rc522/internal/frame"
)

// Test fixtures
var (
	// TestUID is the UID used by the detection scenarios
	TestUID = [4]byte{0x12, 0x34, 0x56, 0x78}

	// ATQAMifare1K is the answer to request of a MIFARE Classic 1K card
	ATQAMifare1K = []byte{0x04, 0x00}
)

// BuildAnticollisionResponse returns the five bytes a card sends for
// cascade level 1 anticollision: UID followed by its BCC.
func BuildAnticollisionResponse(uid [4]byte) []byte {
	resp := append([]byte(nil), uid[:]...)
	return append(resp, frame.BCC(uid[:]))
}

// BuildCSDv2 returns a version 2.0 (SDHC/SDXC) CSD register describing a
// card with the given number of 512-byte blocks. blocks is rounded down to
// a multiple of 1024.
func BuildCSDv2(blocks uint32) []byte {
	cSize := blocks/1024 - 1
	return []byte{
		0x40, 0x0E, 0x00, 0x32, 0x5B, 0x59, 0x00,
		byte(cSize>>16) & 0x3F, byte(cSize >> 8), byte(cSize),
		0x7F, 0x80, 0x0A, 0x40, 0x00, 0x01,
	}
}

// BuildCSDv1 returns a version 1.0 (SDSC) CSD register with the given
// C_SIZE, C_SIZE_MULT and READ_BL_LEN fields.
func BuildCSDv1(cSize uint16, cSizeMult, readBlLen byte) []byte {
	csd := make([]byte, 16)
	csd[5] = readBlLen & 0x0F
	csd[6] = byte(cSize>>10) & 0x03
	csd[7] = byte(cSize >> 2)
	csd[8] = byte(cSize&0x03) << 6
	csd[9] = (cSizeMult >> 1) & 0x03
	csd[10] = (cSizeMult & 0x01) << 7
	return csd
}
