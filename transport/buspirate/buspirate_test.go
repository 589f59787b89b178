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

package buspirate

import (
	"testing"

	"github.com/ZaparooProject/go-rc522/bus"
	testutil "github.com/ZaparooProject/go-rc522/internal/testing"
	"github.com/ZaparooProject/go-rc522/sdcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pirateMode int

const (
	modeTerminal pirateMode = iota
	modeBBIO
	modeSPI
)

// fakePirate speaks the binary SPI protocol and forwards bulk bytes to
// the devices wired to its CS and AUX pins.
type fakePirate struct {
	cs, aux  bus.Conn
	out      []byte
	sent     []byte
	mode     pirateMode
	bulk     int
	periph   byte
	speed    byte
	config   byte
	silent   bool
	closed   bool
	csActive bool
	auxLow   bool
}

func (p *fakePirate) Read(b []byte) (int, error) {
	n := copy(b, p.out)
	p.out = p.out[n:]
	return n, nil
}

func (p *fakePirate) Write(b []byte) (int, error) {
	for _, c := range b {
		p.sent = append(p.sent, c)
		p.handle(c)
	}
	return len(b), nil
}

func (p *fakePirate) Close() error {
	p.closed = true
	return nil
}

func (p *fakePirate) ResetInputBuffer() error {
	p.out = nil
	return nil
}

func (p *fakePirate) selected() bus.Conn {
	switch {
	case p.csActive:
		return p.cs
	case p.auxLow:
		return p.aux
	default:
		return nil
	}
}

func (p *fakePirate) handle(c byte) {
	if p.silent {
		return
	}
	if p.bulk > 0 {
		p.bulk--
		miso := byte(0xFF)
		var one [1]byte
		if dev := p.selected(); dev != nil {
			_ = dev.Read(one[:], c)
			miso = one[0]
		} else {
			// Every device sees the clock with its chip-select high
			for _, dev := range []bus.Conn{p.cs, p.aux} {
				if dev != nil {
					_ = dev.Read(one[:], c)
				}
			}
		}
		p.out = append(p.out, miso)
		return
	}

	switch {
	case c == cmdReset:
		p.mode = modeBBIO
		p.out = append(p.out, bbioBanner...)
	case p.mode == modeBBIO && c == cmdSPI:
		p.mode = modeSPI
		p.out = append(p.out, spiBanner...)
	case c == cmdExit:
		p.mode = modeTerminal
	case p.mode != modeSPI:
	case c == cmdCSLow, c == cmdCSHigh:
		p.setCS(c == cmdCSLow)
		p.out = append(p.out, replyOK)
	case c&0xF0 == cmdBulk:
		p.bulk = int(c&0x0F) + 1
		p.out = append(p.out, replyOK)
	case c&0xF0 == cmdPeriph:
		p.periph = c & 0x0F
		p.setAux(p.periph&periphAux == 0)
		p.out = append(p.out, replyOK)
	case c&0xF8 == cmdSpeed:
		p.speed = c & 0x07
		p.out = append(p.out, replyOK)
	case c&0xF0 == cmdSPIConfig:
		p.config = c & 0x0F
		p.out = append(p.out, replyOK)
	}
}

func (p *fakePirate) setCS(active bool) {
	if active == p.csActive {
		return
	}
	p.csActive = active
	if p.cs == nil {
		return
	}
	if active {
		_ = p.cs.Select()
	} else {
		_ = p.cs.Deselect()
	}
}

func (p *fakePirate) setAux(low bool) {
	if low == p.auxLow {
		return
	}
	p.auxLow = low
	if p.aux == nil {
		return
	}
	if low {
		_ = p.aux.Select()
	} else {
		_ = p.aux.Deselect()
	}
}

func TestNew_Handshake(t *testing.T) {
	t.Parallel()

	port := &fakePirate{}
	b, err := New(port, WithSpeed(Speed4MHz), WithPullups(true))
	require.NoError(t, err)

	assert.Equal(t, modeSPI, port.mode)
	assert.Equal(t, byte(Speed4MHz), port.speed)
	assert.Equal(t, byte(configMode0), port.config)
	assert.Equal(t, byte(periphPower|periphPullups|periphAux|periphCS), port.periph)
	assert.False(t, port.csActive)
	assert.False(t, port.auxLow)

	require.NoError(t, b.Close())
	assert.True(t, port.closed)
	assert.Equal(t, modeTerminal, port.mode)
	require.NoError(t, b.Close())
}

func TestNew_NoAnswer(t *testing.T) {
	t.Parallel()

	port := &fakePirate{silent: true}
	_, err := New(port)
	require.ErrorIs(t, err, ErrNoBinaryMode)

	resets := 0
	for _, c := range port.sent {
		if c == cmdReset {
			resets++
		}
	}
	assert.Equal(t, resetAttempts, resets)
}

func TestDevice_BulkTransfer(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	port := &fakePirate{aux: sim}
	b, err := New(port, WithPower(false))
	require.NoError(t, err)
	dev := b.Device(LineAux)

	// 40 bytes need three bulk commands
	require.NoError(t, dev.Write(make([]byte, 40)))
	bulks := 0
	for _, c := range port.sent {
		if c&0xF0 == cmdBulk {
			bulks++
		}
	}
	assert.Equal(t, 3, bulks)
	assert.Equal(t, 40, sim.IdleClocks, "deselected bytes reach the card with AUX high")
}

func TestDevice_SDCardOverAux(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualSDCard()
	want := make([]byte, sdcard.BlockSize)
	for i := range want {
		want[i] = byte(i)
	}
	sim.SetBlock(9, want)

	port := &fakePirate{aux: sim}
	b, err := New(port)
	require.NoError(t, err)

	card, err := sdcard.New(b.Device(LineAux))
	require.NoError(t, err)
	info, err := card.Init()
	require.NoError(t, err)
	assert.Equal(t, sdcard.Version2, info.Version)

	got := make([]byte, sdcard.BlockSize)
	require.NoError(t, card.ReadBlocks(9, got))
	assert.Equal(t, want, got)
	assert.False(t, port.auxLow, "AUX released after the read")
}

func TestDevice_Lines(t *testing.T) {
	t.Parallel()

	port := &fakePirate{}
	b, err := New(port)
	require.NoError(t, err)

	cs := b.Device(LineCS)
	aux := b.Device(LineAux)
	assert.Equal(t, "CS", LineCS.String())
	assert.Equal(t, "AUX", LineAux.String())

	require.NoError(t, cs.Select())
	assert.True(t, port.csActive)
	require.NoError(t, cs.Deselect())
	assert.False(t, port.csActive)

	require.NoError(t, aux.Select())
	assert.True(t, port.auxLow)
	assert.False(t, port.csActive)
	require.NoError(t, aux.Deselect())
	assert.False(t, port.auxLow)

	require.NoError(t, b.Close())
	require.ErrorIs(t, cs.Select(), ErrClosed)
}
