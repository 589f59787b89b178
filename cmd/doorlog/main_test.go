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


package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"

	rc522 "github.com/ZaparooProject/go-rc522"
	testutil "github.com/ZaparooProject/go-rc522/internal/testing"
	"github.com/ZaparooProject/go-rc522/transport/i2c"
)

type orderCloser struct {
	log  *[]string
	name string
}

func (c orderCloser) Close() error {
	*c.log = append(*c.log, c.name)
	return nil
}

func simHardware() (*hardware, *testutil.VirtualReader, *testutil.VirtualSDCard) {
	reader := testutil.NewVirtualReader()
	sd := testutil.NewVirtualSDCard()
	return &hardware{reader: rc522.NewRegisterBus(reader), sd: sd}, reader, sd
}

func mustParse(t *testing.T, args ...string) (*config, string) {
	t.Helper()
	cfg, mode, err := parseFlags(args)
	require.NoError(t, err)
	return cfg, mode
}

type recordingPin struct {
	*gpiotest.Pin
	levels []gpio.Level
}

func (p *recordingPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.Pin.Out(l)
}

type memLog struct {
	err     error
	records []string
}

func (m *memLog) Append(record string) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

type countingLock struct {
	unlocks int
}

func (l *countingLock) Unlock(context.Context) error {
	l.unlocks++
	return nil
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		wantMode string
	}{
		{name: "Default_Scan", args: nil, wantMode: "scan"},
		{name: "Log", args: []string{"-last", "5", "log"}, wantMode: "log"},
		{name: "Upper_Case", args: []string{"DETECT"}, wantMode: "detect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, mode := mustParse(t, tt.args...)
			assert.Equal(t, tt.wantMode, mode)
			assert.Equal(t, "spi", *cfg.transport)
		})
	}

	cfg, _ := mustParse(t, "-last", "5", "log")
	assert.Equal(t, 5, *cfg.last)

	_, _, err := parseFlags([]string{"-no-such-flag"})
	require.Error(t, err)
}

func TestRun_UnknownMode(t *testing.T) {
	t.Parallel()
	cfg, _ := mustParse(t)
	err := run(context.Background(), cfg, "erase")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "erase")
}

func TestOpenHardware_Errors(t *testing.T) {
	t.Parallel()

	cfg, _ := mustParse(t)
	_, err := openHardware(cfg)
	require.ErrorIs(t, err, errNoPort)

	cfg, _ = mustParse(t, "-port", "/dev/null", "-transport", "i2c")
	_, err = openHardware(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i2c")
}

func TestParseFlags_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		args    []string
	}{
		{name: "Start_Too_Large", args: []string{"-journal-start", "4294967296"}, wantErr: errJournalRange},
		{name: "Region_Wraps", args: []string{"-journal-start", "4294967295", "-journal-blocks", "2"}, wantErr: errJournalRange},
		{name: "Empty_Region", args: []string{"-journal-blocks", "0"}, wantErr: errJournalRange},
		{name: "I2C_Address", args: []string{"-reader-i2c-addr", "0x80"}, wantErr: errI2CAddress},
		{name: "Last_Block", args: []string{"-journal-start", "4294967295", "-journal-blocks", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := parseFlags(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	cfg, _ := mustParse(t, "-journal-start", "100", "-journal-blocks", "4")
	assert.Equal(t, uint32(100), cfg.start)
	assert.Equal(t, uint32(4), cfg.blocks)
}

func TestHardware_CloseOrder(t *testing.T) {
	t.Parallel()

	var closed []string
	h := &hardware{closers: []io.Closer{
		orderCloser{log: &closed, name: "spi"},
		orderCloser{log: &closed, name: "i2c"},
	}}
	require.NoError(t, h.Close())
	assert.Equal(t, []string{"i2c", "spi"}, closed)
}

func TestOpenReader_I2C(t *testing.T) {
	t.Parallel()

	// The soft reset is the first register write Init makes
	pb := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: i2c.DefaultAddress, W: []byte{0x01, 0x0F}}},
		DontPanic: true,
	}
	h := &hardware{reader: i2c.New(pb, i2c.DefaultAddress)}

	_, err := openReader(h)
	require.Error(t, err, "playback ends after the reset")
	assert.Contains(t, err.Error(), "failed to initialise reader")
	assert.Empty(t, pb.Ops, "reset reached the reader over I2C")
}

func TestFormatRecord(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	uid := rc522.UID{0xDE, 0xAD, 0xBE, 0xEF}
	assert.Equal(t, "2024-05-01T06:30:00Z, DEADBEEF", formatRecord(at, uid))
}

func TestCardHandler(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return at }
	uid := rc522.UID{0x12, 0x34, 0x56, 0x78}

	log := &memLog{}
	lock := &countingLock{}
	var out bytes.Buffer
	handle := cardHandler(context.Background(), log, lock, now, newLogger(&out, false, false))

	require.NoError(t, handle(uid))
	assert.Equal(t, []string{"2024-05-01T00:00:00Z, 12345678"}, log.records)
	assert.Equal(t, 1, lock.unlocks)
	assert.Contains(t, out.String(), "card detected")
	assert.Contains(t, out.String(), "uid=12345678")
	assert.NotContains(t, out.String(), "unlocking door")

	// An unlogged card keeps the door shut
	log.err = errors.New("card full")
	err := handle(uid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12345678")
	assert.Equal(t, 1, lock.unlocks)
}

func TestDoor_Unlock(t *testing.T) {
	t.Parallel()

	relay := &recordingPin{Pin: &gpiotest.Pin{N: "relay"}}
	solenoid := &recordingPin{Pin: &gpiotest.Pin{N: "solenoid"}}
	d := &door{lines: []gpio.PinOut{relay, solenoid}, hold: time.Millisecond}

	require.NoError(t, d.Unlock(context.Background()))
	for _, p := range []*recordingPin{relay, solenoid} {
		assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, p.levels, p.N)
		assert.Equal(t, gpio.Low, p.Read(), p.N)
	}
}

func TestDoor_UnlockCancelled(t *testing.T) {
	t.Parallel()

	relay := &recordingPin{Pin: &gpiotest.Pin{N: "relay"}}
	d := &door{lines: []gpio.PinOut{relay}, hold: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Unlock(ctx))
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, relay.levels)
}

func TestNewDoor_NoPins(t *testing.T) {
	t.Parallel()
	d, err := newDoor("", time.Second)
	require.NoError(t, err)
	assert.Empty(t, d.lines)
	assert.Equal(t, time.Second, d.hold)
}

func TestJournalOnSimulatedBus(t *testing.T) {
	t.Parallel()

	h, reader, _ := simHardware()
	cfg, _ := mustParse(t, "-journal-start", "100", "-journal-blocks", "4")

	device, err := openReader(h)
	require.NoError(t, err)
	reader.SetCard(testutil.NewVirtualCard(testutil.TestUID))
	uid, err := device.DetectCard(rc522.RequestIdle)
	require.NoError(t, err)

	j, err := openJournal(h, cfg)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return at }
	handle := cardHandler(context.Background(), j, &countingLock{}, now, newLogger(io.Discard, true, false))
	require.NoError(t, handle(uid))
	require.NoError(t, handle(uid))

	var out bytes.Buffer
	require.NoError(t, printRecords(&out, j, 1))
	assert.Equal(t, formatRecord(at, uid)+"\n", out.String())

	out.Reset()
	require.NoError(t, printRecords(&out, j, 0))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))

	card, _, err := openCard(h, cfg)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, dumpTail(&out, card, j.Stats()))
	assert.Contains(t, out.String(), "tail block 100")
	assert.Contains(t, out.String(), "|2024-05-01T00:00")
}
