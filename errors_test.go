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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		name   string
		status Status
	}{
		{name: "OK", status: StatusOK},
		{name: "NO-TAG", status: StatusNoTag, err: ErrNoTagDetected},
		{name: "ERROR", status: StatusError, err: ErrCardError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.name, tt.status.String())
			assert.Equal(t, tt.err, tt.status.Err())
		})
	}

	assert.Equal(t, "UNKNOWN", Status(42).String())
}

func TestUID(t *testing.T) {
	t.Parallel()

	uid, ok := NewUID([]byte{0xAB, 0x01, 0xFF, 0x10, 0x99})
	assert.True(t, ok)
	assert.Equal(t, "AB01FF10", uid.String())
	assert.Equal(t, []byte{0xAB, 0x01, 0xFF, 0x10}, uid.Bytes())
	assert.False(t, uid.IsZero())

	_, ok = NewUID([]byte{0x01, 0x02, 0x03})
	assert.False(t, ok)
	assert.True(t, UID{}.IsZero())

	b := uid.Bytes()
	b[0] = 0x00
	assert.Equal(t, byte(0xAB), uid[0], "Bytes returns a copy")
}
