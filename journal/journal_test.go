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

package journal

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	testutil "github.com/ZaparooProject/go-rc522/internal/testing"
	"github.com/ZaparooProject/go-rc522/sdcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard(t *testing.T, sim *testutil.VirtualSDCard) *sdcard.Card {
	t.Helper()
	card, err := sdcard.New(sim)
	require.NoError(t, err)
	_, err = card.Init()
	require.NoError(t, err)
	return card
}

type errDevice struct {
	err error
}

func (d errDevice) ReadBlocks(uint32, []byte) error  { return d.err }
func (d errDevice) WriteBlocks(uint32, []byte) error { return d.err }

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(nil, 0, 1)
	require.ErrorIs(t, err, ErrNilDevice)

	card := newCard(t, testutil.NewVirtualSDCard())
	_, err = Open(card, 0, 0)
	require.ErrorIs(t, err, ErrInvalidRegion)

	ioErr := errors.New("card removed")
	_, err = Open(errDevice{err: ioErr}, 0, 8)
	require.ErrorIs(t, err, ioErr)
}

func TestAppend_RoundTrip(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	card := newCard(t, sim)

	j, err := Open(card, 2048, 16)
	require.NoError(t, err)

	records, err := j.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, j.Append("2024-05-01T00:00:00Z, 12345678"))
	require.NoError(t, j.Append("2024-05-01T00:00:07Z, CAFEBABE"))

	assert.Equal(t, "2024-05-01T00:00:00Z, 12345678\n2024-05-01T00:00:07Z, CAFEBABE\n",
		strings.TrimRight(string(sim.Block(2048)), "\x00"))

	records, err = j.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01T00:00:00Z, 12345678", "2024-05-01T00:00:07Z, CAFEBABE"}, records)
}

func TestOpen_FindsTail(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	card := newCard(t, sim)

	j, err := Open(card, 100, 64)
	require.NoError(t, err)

	// 100 records of 40 bytes fill 12 records per block
	var want []string
	for i := 0; i < 100; i++ {
		r := fmt.Sprintf("%03d %s", i, strings.Repeat("x", 35))
		want = append(want, r)
		require.NoError(t, j.Append(r))
	}
	stats := j.Stats()
	assert.Equal(t, uint32(108), stats.TailBlock)
	assert.Equal(t, 4*40, stats.TailUsed)

	reopened, err := Open(card, 100, 64)
	require.NoError(t, err)
	assert.Equal(t, stats, reopened.Stats())

	require.NoError(t, reopened.Append("after reopen"))
	got, err := reopened.Records()
	require.NoError(t, err)
	assert.Equal(t, append(want, "after reopen"), got)

	last, err := reopened.Last(2)
	require.NoError(t, err)
	assert.Equal(t, []string{want[99], "after reopen"}, last)
}

func TestOpen_ErasedCard(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	for b := uint32(0); b < 4; b++ {
		erased := make([]byte, BlockSize)
		for i := range erased {
			erased[i] = 0xFF
		}
		sim.SetBlock(b, erased)
	}
	card := newCard(t, sim)

	j, err := Open(card, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, Stats{Blocks: 4}, j.Stats())

	require.NoError(t, j.Append("first"))
	records, err := j.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, records)
}

func TestAppend_Full(t *testing.T) {
	t.Parallel()

	card := newCard(t, testutil.NewVirtualSDCard())
	j, err := Open(card, 0, 2)
	require.NoError(t, err)

	big := strings.Repeat("a", maxRecordLen)
	require.NoError(t, j.Append(big))
	require.NoError(t, j.Append(big))
	require.ErrorIs(t, j.Append("x"), ErrJournalFull)

	records, err := j.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{big, big}, records)
}

func TestAppend_InvalidRecords(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	card := newCard(t, sim)
	j, err := Open(card, 0, 2)
	require.NoError(t, err)
	sim.ResetLog()

	tests := []struct {
		want   error
		name   string
		record string
	}{
		{name: "too_large", record: strings.Repeat("a", BlockSize), want: ErrRecordTooLarge},
		{name: "newline", record: "a\nb", want: ErrInvalidRecord},
		{name: "nul", record: "a\x00b", want: ErrInvalidRecord},
		{name: "bad_utf8", record: "a\xffb", want: ErrInvalidRecord},
	}
	for _, tt := range tests {
		require.ErrorIs(t, j.Append(tt.record), tt.want, tt.name)
	}
	assert.Zero(t, sim.Transactions, "rejected before touching the card")
}

func TestAppend_WriteFailureKeepsTail(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	card := newCard(t, sim)
	j, err := Open(card, 0, 4)
	require.NoError(t, err)
	require.NoError(t, j.Append("kept"))
	before := j.Stats()

	sim.RejectWrites = true
	require.ErrorIs(t, j.Append("lost"), sdcard.ErrWriteRejected)
	assert.Equal(t, before, j.Stats())

	sim.RejectWrites = false
	require.NoError(t, j.Append("next"))
	records, err := j.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept", "next"}, records)
}
