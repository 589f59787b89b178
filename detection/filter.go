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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBlocklist returns USB serial adapters that are never a Bus
// Pirate: the CP2102 and CH340 bridges fitted to most reader breakouts and ESP32
// boards answer the binary mode handshake with garbage.
func DefaultBlocklist() []string {
	return []string{
		"10C4:EA60", // Silicon Labs CP210x
		"1A86:7523", // WCH CH340
	}
}

// NormalizeVIDPID formats a vendor and product id pair as "VVVV:PPPP" in
// uppercase hex. It returns "" if either part is not a 16-bit hex number.
func NormalizeVIDPID(vid, pid string) string {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(vid)), "0x"), 16, 16)
	if err != nil {
		return ""
	}
	p, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(pid)), "0x"), 16, 16)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%04X:%04X", v, p)
}

// IsBlocked reports whether vidpid appears in blocklist. Both sides are
// compared after normalisation, so "0x1a86:7523" matches "1A86:7523".
func IsBlocked(vidpid string, blocklist []string) bool {
	want := normalizePair(vidpid)
	if want == "" {
		return false
	}
	for _, entry := range blocklist {
		if normalizePair(entry) == want {
			return true
		}
	}
	return false
}

func normalizePair(s string) string {
	vid, pid, ok := strings.Cut(s, ":")
	if !ok {
		return ""
	}
	return NormalizeVIDPID(vid, pid)
}

// IsPathIgnored reports whether devicePath matches any entry of
// ignorePaths after cleaning. Matching is case-insensitive so "COM3" and
// "com3" are the same port.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	want := cleanPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && cleanPath(p) == want {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	return strings.ToLower(filepath.Clean(p))
}
