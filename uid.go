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

package rc522

import (
	"encoding/hex"
	"strings"
)

// UIDLength is the size of a single-size ISO 14443A UID
const UIDLength = 4

// UID is the 4-byte card identifier returned by anticollision. The BCC
// byte is checked by the driver and not part of the value.
type UID [UIDLength]byte

// NewUID copies the first UIDLength bytes of b. ok is false when b is
// shorter than that.
func NewUID(b []byte) (uid UID, ok bool) {
	if len(b) < UIDLength {
		return uid, false
	}
	copy(uid[:], b)
	return uid, true
}

// Bytes returns a copy of the UID bytes.
func (u UID) Bytes() []byte {
	return append([]byte(nil), u[:]...)
}

// IsZero reports whether every UID byte is zero.
func (u UID) IsZero() bool {
	return u == UID{}
}

// String returns the UID as uppercase hex without separators (e.g. "12345678").
func (u UID) String() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}
