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

package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	errPermanent := errors.New("permanent")

	tests := []struct {
		name         string
		succeedAt    int
		failAt       int
		maxAttempts  int
		wantAttempts int
		wantErr      error
	}{
		{name: "first attempt", succeedAt: 1, maxAttempts: 5, wantAttempts: 1},
		{name: "third attempt", succeedAt: 3, maxAttempts: 5, wantAttempts: 3},
		{name: "last attempt", succeedAt: 5, maxAttempts: 5, wantAttempts: 5},
		{name: "exhausted", succeedAt: 0, maxAttempts: 4, wantAttempts: 4, wantErr: ErrRetriesExhausted},
		{name: "permanent error", failAt: 2, maxAttempts: 4, wantAttempts: 2, wantErr: errPermanent},
		{name: "zero budget runs once", succeedAt: 0, maxAttempts: 0, wantAttempts: 1, wantErr: ErrRetriesExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, attempts, err := WithRetry(RetryConfig{MaxAttempts: tt.maxAttempts, Description: "poll"},
				func() (int, bool, error) {
					calls++
					if calls == tt.failAt {
						return calls, false, errPermanent
					}
					return calls, calls != tt.succeedAt, nil
				})

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantAttempts, calls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.succeedAt, got)
		})
	}
}

func TestWithRetryOnRetryCallback(t *testing.T) {
	t.Parallel()

	retries := 0
	_, attempts, err := WithRetry(RetryConfig{
		MaxAttempts: 3,
		OnRetry: func() error {
			retries++
			return nil
		},
	}, func() (struct{}, bool, error) {
		return struct{}{}, true, nil
	})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, retries, "callback runs between attempts only")

	errStop := errors.New("stop")
	_, attempts, err = WithRetry(RetryConfig{
		MaxAttempts: 3,
		OnRetry:     func() error { return errStop },
	}, func() (struct{}, bool, error) {
		return struct{}{}, true, nil
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, attempts)
}
