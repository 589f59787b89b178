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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/go-rc522/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// /dev/null stands in for a spidev node: it is a character device that
// can be opened read-write.
const charDevice = "/dev/nul[l]"

func TestScan_SkipsRegularFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spidev0.0"), nil, 0o600))

	_, err := scan(context.Background(), filepath.Join(dir, "spidev*"), detection.DefaultOptions())
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestScan_Modes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prober      func(context.Context, string) (byte, error)
		name        string
		wantVersion string
		mode        detection.Mode
		want        detection.Confidence
	}{
		{name: "Passive", mode: detection.Passive, want: detection.Low},
		{name: "Safe", mode: detection.Safe, want: detection.Medium},
		{name: "Full_Without_Prober", mode: detection.Full, want: detection.Medium},
		{
			name:        "Full_Genuine",
			mode:        detection.Full,
			prober:      func(context.Context, string) (byte, error) { return 0x92, nil },
			want:        detection.High,
			wantVersion: "0x92",
		},
		{
			name:        "Full_Nothing_Attached",
			mode:        detection.Full,
			prober:      func(context.Context, string) (byte, error) { return 0x00, nil },
			want:        detection.Medium,
			wantVersion: "0x00",
		},
		{
			name:   "Full_Probe_Error",
			mode:   detection.Full,
			prober: func(context.Context, string) (byte, error) { return 0, errors.New("no cs pin") },
			want:   detection.Medium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := detection.DefaultOptions()
			opts.Mode = tt.mode
			opts.Prober = tt.prober

			devices, err := scan(context.Background(), charDevice, opts)
			require.NoError(t, err)
			require.Len(t, devices, 1)
			assert.Equal(t, "/dev/null", devices[0].Path)
			assert.Equal(t, Transport, devices[0].Transport)
			assert.Equal(t, tt.want, devices[0].Confidence)
			assert.Equal(t, tt.wantVersion, devices[0].Metadata["version"])
		})
	}
}

func TestScan_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scan(ctx, charDevice, detection.DefaultOptions())
	require.ErrorIs(t, err, detection.ErrDetectionTimeout)
}
