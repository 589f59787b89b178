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

// Package serial detects Bus Pirate SPI bridges among USB serial ports.
package serial

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-rc522/detection"
	"github.com/ZaparooProject/go-rc522/transport/buspirate"
	"go.bug.st/serial/enumerator"
)

// Transport is the name this detector registers under
const Transport = "buspirate"

// knownBridges maps USB ids to the boards that use them
var knownBridges = map[string]string{
	"0403:6001": "Bus Pirate v3 (FT232R)",
	"04D8:FB00": "Bus Pirate v4",
	"1209:7331": "Bus Pirate 5",
}

type detector struct {
	list  func() ([]*enumerator.PortDetails, error)
	probe func(ctx context.Context, path string) error
}

// New creates a detector using the system's USB serial enumerator
func New() detection.Detector {
	return &detector{
		list:  enumerator.GetDetailedPortsList,
		probe: handshake,
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return Transport
}

// Detect lists USB serial ports whose VID:PID belongs to a Bus Pirate.
// Full mode additionally runs the binary SPI handshake.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if !port.IsUSB {
			continue
		}
		vidpid := detection.NormalizeVIDPID(port.VID, port.PID)
		board, ok := knownBridges[vidpid]
		if !ok {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  Transport,
			Path:       port.Name,
			Name:       board,
			Confidence: detection.Medium,
			Metadata: map[string]string{
				"vidpid":  vidpid,
				"serial":  port.SerialNumber,
				"product": port.Product,
			},
		}
		if strings.Contains(strings.ToLower(port.Product), "bus pirate") {
			device.Confidence = detection.High
		}

		if opts.Mode == detection.Full {
			if err := d.probe(ctx, port.Name); err != nil {
				device.Confidence = detection.Low
				device.Metadata["error"] = err.Error()
			} else {
				device.Confidence = detection.High
			}
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// handshake enters binary SPI mode and resets the board again
func handshake(_ context.Context, path string) error {
	b, err := buspirate.Open(path, buspirate.WithPower(false))
	if err != nil {
		return err
	}
	return b.Close()
}
