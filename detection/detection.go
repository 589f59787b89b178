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

// Package detection finds buses a reader or SD card could be attached to.
// Backends register themselves on import, like database/sql drivers:
//
//	import _ "github.com/ZaparooProject/go-rc522/detection/spidev"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
	ErrUnknownTransport    = errors.New("no detector registered for transport")
)

// Mode controls how intrusive detection may be
type Mode int

const (
	// Passive only lists device nodes and USB descriptors
	Passive Mode = iota
	// Safe may open a device node but sends nothing on the bus
	Safe
	// Full may talk to the bus, e.g. read the reader's VersionReg
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Confidence is how sure a detector is that a device is usable
type Confidence int

// Confidence levels
const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// DeviceInfo describes one candidate bus
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// String returns a one-line human readable summary
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s %s (%s, %s confidence)", d.Transport, d.Path, d.Name, d.Confidence)
}

// Options controls a detection run
type Options struct {
	// Prober reads the MFRC522 version register on a candidate bus. It is
	// used in Full mode only.
	Prober func(ctx context.Context, path string) (byte, error)
	// Blocklist holds VID:PID pairs that are never reported
	Blocklist   []string
	IgnorePaths []string
	Timeout     time.Duration
	Mode        Mode
}

// DefaultOptions returns passive detection with a 5 second timeout
func DefaultOptions() *Options {
	return &Options{
		Mode:      Passive,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices for one transport
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Detector)
)

// RegisterDetector makes a detector available. A later registration for
// the same transport replaces the earlier one.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Transports returns the registered transport names in sorted order
func Transports() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	return opts
}

func withTimeout(ctx context.Context, opts *Options) (context.Context, context.CancelFunc) {
	if opts.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// DetectAll runs every registered detector and merges the results,
// highest confidence first. Detector errors other than ErrNoDevicesFound
// and ErrUnsupportedPlatform are returned only if nothing was found.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	opts = normalize(opts)
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()

	registryMu.RLock()
	detectors := make([]Detector, 0, len(registry))
	for _, d := range registry {
		detectors = append(detectors, d)
	}
	registryMu.RUnlock()

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range detectors {
		if ctx.Err() != nil {
			return devices, ErrDetectionTimeout
		}
		found, err := d.Detect(ctx, opts)
		if err != nil {
			if !errors.Is(err, ErrNoDevicesFound) && !errors.Is(err, ErrUnsupportedPlatform) {
				errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			}
			continue
		}
		devices = append(devices, filter(found, opts)...)
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Confidence != devices[j].Confidence {
			return devices[i].Confidence > devices[j].Confidence
		}
		return devices[i].Path < devices[j].Path
	})
	return devices, nil
}

// DetectTransport runs the detector registered for one transport
func DetectTransport(ctx context.Context, transport string, opts *Options) ([]DeviceInfo, error) {
	registryMu.RLock()
	d, ok := registry[transport]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, transport)
	}

	opts = normalize(opts)
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()

	found, err := d.Detect(ctx, opts)
	if err != nil {
		return nil, err
	}
	found = filter(found, opts)
	if len(found) == 0 {
		return nil, ErrNoDevicesFound
	}
	return found, nil
}

// filter drops ignored paths and blocklisted USB devices
func filter(devices []DeviceInfo, opts *Options) []DeviceInfo {
	kept := devices[:0]
	for _, d := range devices {
		if IsPathIgnored(d.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid := d.Metadata["vidpid"]; vidpid != "" && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
