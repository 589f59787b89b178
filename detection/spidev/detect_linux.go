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

//go:build linux

package spidev

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ZaparooProject/go-rc522/detection"
	"golang.org/x/sys/unix"
)

const devGlob = "/dev/spidev*"

func detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	return scan(ctx, devGlob, opts)
}

// scan matches pattern and keeps character devices
func scan(ctx context.Context, pattern string, opts *detection.Options) ([]detection.DeviceInfo, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	sort.Strings(matches)

	var devices []detection.DeviceInfo
	for _, path := range matches {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if !isCharDevice(path) {
			continue
		}
		devices = append(devices, describe(ctx, path, opts))
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func isCharDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFCHR
}

// describe builds the DeviceInfo for one node, probing it as far as the
// detection mode allows
func describe(ctx context.Context, path string, opts *detection.Options) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  Transport,
		Path:       path,
		Name:       "SPI port " + filepath.Base(path),
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if opts.Mode == detection.Passive {
		return device
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		device.Metadata["error"] = err.Error()
		return device
	}
	_ = unix.Close(fd)
	device.Confidence = detection.Medium

	if opts.Mode != detection.Full || opts.Prober == nil {
		return device
	}
	v, err := opts.Prober(ctx, path)
	if err != nil {
		device.Metadata["error"] = err.Error()
		return device
	}
	device.Metadata["version"] = fmt.Sprintf("0x%02X", v)
	if isGenuineVersion(v) {
		device.Confidence = detection.High
		device.Name = "MFRC522 on " + filepath.Base(path)
	}
	return device
}
