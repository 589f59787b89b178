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

// Package transport provides the bounded polling loop shared by the drivers.
//
// Loops are bounded by iteration count only. Nothing here reads a clock, so
// a peripheral that never answers returns control after a fixed number of
// bus transfers.
package transport

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted is returned when an operation kept asking to be retried
// until the attempt budget ran out.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry     func() error
	Description string
	MaxAttempts int
}

// WithRetry runs operation at most config.MaxAttempts times. It returns the
// last result, the number of attempts made and, when the budget ran out,
// an error wrapping ErrRetriesExhausted. A MaxAttempts below one still runs
// the operation once.
func WithRetry[T any](config RetryConfig, operation RetryOperation[T]) (T, int, error) {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last T
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return result, attempt, err
		}
		if !shouldRetry {
			return result, attempt, nil
		}
		last = result

		if attempt == maxAttempts {
			break
		}
		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return last, attempt, err
			}
		}
	}

	return last, maxAttempts, exhausted(config)
}

func exhausted(config RetryConfig) error {
	if config.Description == "" {
		return ErrRetriesExhausted
	}
	return fmt.Errorf("%s: %w", config.Description, ErrRetriesExhausted)
}
