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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	out := make([]DeviceInfo, len(f.devices))
	copy(out, f.devices)
	return out, f.err
}

// Not parallel: DetectAll sees every detector registered so far.
func TestDetectAll(t *testing.T) {
	RegisterDetector(&fakeDetector{transport: "fake-a", devices: []DeviceInfo{
		{Transport: "fake-a", Path: "/dev/b", Confidence: Low},
		{Transport: "fake-a", Path: "/dev/ignored", Confidence: High},
	}})
	RegisterDetector(&fakeDetector{transport: "fake-b", devices: []DeviceInfo{
		{Transport: "fake-b", Path: "/dev/a", Confidence: High},
		{
			Transport:  "fake-b",
			Path:       "/dev/ttyUSB9",
			Confidence: Medium,
			Metadata:   map[string]string{"vidpid": "1a86:7523"},
		},
	}})
	RegisterDetector(&fakeDetector{transport: "fake-c", err: ErrUnsupportedPlatform})

	opts := DefaultOptions()
	opts.IgnorePaths = []string{"/dev/IGNORED"}

	devices, err := DetectAll(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/a", devices[0].Path, "highest confidence first")
	assert.Equal(t, "/dev/b", devices[1].Path)

	assert.Subset(t, Transports(), []string{"fake-a", "fake-b", "fake-c"})
}

func TestDetectTransport(t *testing.T) {
	t.Parallel()

	broken := errors.New("permission denied")
	RegisterDetector(&fakeDetector{transport: "fake-broken", err: broken})
	RegisterDetector(&fakeDetector{transport: "fake-empty"})

	_, err := DetectTransport(context.Background(), "fake-broken", nil)
	require.ErrorIs(t, err, broken)

	_, err = DetectTransport(context.Background(), "fake-empty", nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)

	_, err = DetectTransport(context.Background(), "no-such-transport", nil)
	require.ErrorIs(t, err, ErrUnknownTransport)
}

func TestNormalizeVIDPID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		vid, pid string
		want     string
	}{
		{vid: "0403", pid: "6001", want: "0403:6001"},
		{vid: "4d8", pid: "fb00", want: "04D8:FB00"},
		{vid: "0x1209", pid: "0X7331", want: "1209:7331"},
		{vid: " 1a86 ", pid: "7523", want: "1A86:7523"},
		{vid: "", pid: "6001", want: ""},
		{vid: "12345", pid: "6001", want: ""},
		{vid: "zz", pid: "6001", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.vid+":"+tt.pid, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeVIDPID(tt.vid, tt.pid))
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBlocked("10c4:ea60", DefaultBlocklist()))
	assert.True(t, IsBlocked("0x1A86:0x7523", DefaultBlocklist()))
	assert.False(t, IsBlocked("0403:6001", DefaultBlocklist()))
	assert.False(t, IsBlocked("garbage", DefaultBlocklist()))
	assert.False(t, IsBlocked("0403:6001", nil))
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/spidev0.0", expected: false},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/spidev0.0"}, expected: false},
		{name: "exact match", devicePath: "/dev/spidev0.0", ignorePaths: []string{"/dev/spidev0.0"}, expected: true},
		{name: "case insensitive", devicePath: "com3", ignorePaths: []string{"COM3"}, expected: true},
		{name: "relative components", devicePath: "/dev/../dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "no match", devicePath: "/dev/spidev0.1", ignorePaths: []string{"/dev/spidev0.0"}, expected: false},
		{name: "blank entries", devicePath: "/dev/ttyACM0", ignorePaths: []string{"", "/dev/ttyACM0"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "full", Full.String())
	assert.Equal(t, "medium", Medium.String())
	d := DeviceInfo{Transport: "spi", Path: "/dev/spidev0.0", Name: "SPI port", Confidence: High}
	assert.Equal(t, "spi /dev/spidev0.0 (SPI port, high confidence)", d.String())
}
