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
	"log/slog"

	"github.com/ZaparooProject/go-rc522/internal/debug"
)

// SetDebugEnabled turns protocol diagnostics on or off for both drivers.
func SetDebugEnabled(enabled bool) {
	debug.SetEnabled(enabled)
}

// SetDebugHandler routes diagnostics of every driver in this module to h at
// debug level. Pass nil to go back to the default stderr logger.
func SetDebugHandler(h slog.Handler) {
	debug.SetHandler(h)
}

func debugf(format string, args ...any) {
	debug.Printf("rc522: "+format, args...)
}

func debugln(args ...any) {
	debug.Println(append([]any{"rc522:"}, args...)...)
}
