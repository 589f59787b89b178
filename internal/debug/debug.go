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

// Package debug holds the shared diagnostic logger used by the drivers.
package debug

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	enabled atomic.Bool
	logger  atomic.Pointer[log.Logger]
	handler atomic.Pointer[slog.Logger]
)

func init() {
	logger.Store(log.New(os.Stderr, "[rc522] ", log.Ltime|log.Lmicroseconds))
}

// SetEnabled turns diagnostic output on or off for every driver.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether diagnostic output is on.
func Enabled() bool {
	return enabled.Load()
}

// SetOutput replaces the logger, mainly so tests can capture output.
// It also drops any handler set with SetHandler.
func SetOutput(l *log.Logger) {
	if l != nil {
		logger.Store(l)
		handler.Store(nil)
	}
}

// SetHandler sends diagnostics to h as debug level records, so drivers and
// the application share one log format. A nil h goes back to the
// log.Logger.
func SetHandler(h slog.Handler) {
	if h == nil {
		handler.Store(nil)
		return
	}
	handler.Store(slog.New(h))
}

func emit(msg string) {
	if sl := handler.Load(); sl != nil {
		sl.Log(context.Background(), slog.LevelDebug, msg)
		return
	}
	logger.Load().Print(msg)
}

// Printf logs when debug output is enabled.
func Printf(format string, args ...any) {
	if enabled.Load() {
		emit(fmt.Sprintf(format, args...))
	}
}

// Println logs when debug output is enabled.
func Println(args ...any) {
	if enabled.Load() {
		emit(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
	}
}
