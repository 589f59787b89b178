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

// Package spidev detects Linux spidev device nodes a reader or SD card
// could be wired to.
package spidev

import (
	"context"

	"github.com/ZaparooProject/go-rc522/detection"
)

// Transport is the name this detector registers under
const Transport = "spi"

// Genuine MFRC522 version register values
const (
	versionV1 = 0x91
	versionV2 = 0x92
)

type detector struct{}

// New creates a spidev detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return Transport
}

// Detect lists /dev/spidev* character devices
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	return detect(ctx, opts)
}

func isGenuineVersion(v byte) bool {
	return v == versionV1 || v == versionV2
}
