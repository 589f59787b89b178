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

package testing

import (
	"encoding/binary"
	"sync"

	"github.com/ZaparooProject/go-rc522/internal/frame"
)

// SD protocol values the simulation produces
const (
	sdBlockSize     = 512
	sdR1Idle        = 0x01
	sdR1Illegal     = 0x04
	sdR1CRCError    = 0x08
	sdR1ParamError  = 0x40
	sdTokenData     = 0xFE
	sdTokenMulti    = 0xFC
	sdTokenStop     = 0xFD
	sdDataAccepted  = 0x05
	sdDataWriteErr  = 0x0D
	sdStuffByte     = 0x7F
	sdOCRDefault    = 0x80FF8000
	sdOCRCapacity   = 0x40000000
	sdBusyByteCount = 2
)

type sdState int

const (
	sdCommand sdState = iota
	sdReadStream
	sdAwaitToken
	sdReceive
)

// SDCommand is one command frame received by the simulated card
type SDCommand struct {
	Index byte
	Arg   uint32
	CRC   byte
}

// VirtualSDCard simulates an SD card in SPI mode at the byte level:
// command frames, R1/R3/R7 responses, data tokens, multi-block streaming
// and the write data-response/busy handshake. It implements bus.Conn.
//
// Every clocked byte is full duplex: bytes written by Write and the fill
// bytes sent by Read are both fed to the card.
type VirtualSDCard struct {
	blocks map[uint32][]byte
	// MissingBlocks never produce a data token when read
	MissingBlocks map[uint32]bool
	out           []byte
	cmdBuf        []byte
	recvBuf       []byte
	Commands      []SDCommand

	// Version1 makes the card reject CMD8 as an illegal command
	Version1 bool
	// HighCapacity sets CCS in the OCR when the host announces HCS
	HighCapacity bool
	// ByteAddressed makes read/write arguments byte offsets
	ByteAddressed bool
	// NeverIdle answers CMD0 with R1 0x00 instead of the idle bit
	NeverIdle bool
	// Unresponsive never drives the output line
	Unresponsive bool
	// AlwaysBusy keeps ACMD41 answering idle forever
	AlwaysBusy bool
	// OCRError makes CMD58 fail
	OCRError bool
	// RejectWrites answers every data packet with a write error
	RejectWrites bool
	// SkipCRCCheck accepts CMD0/CMD8 with any checksum
	SkipCRCCheck bool

	// InitPolls is how many ACMD41 attempts stay idle before the card is ready
	InitPolls int
	// ResponseDelay is the number of 0xFF bytes before every R1
	ResponseDelay int
	// TokenDelay is the number of 0xFF bytes before every data token
	TokenDelay int
	// CSD is returned for CMD9; nil means no data token follows
	CSD []byte

	Transactions int
	IdleClocks   int
	Clocks       int

	mu         sync.Mutex
	state      sdState
	addr       uint32
	multi      bool
	selected   bool
	appCmd     bool
	idle       bool
	ccs        bool
	initPolled int
}

// NewVirtualSDCard creates a version 2 high capacity card that becomes
// ready on the first ACMD41. It powers up idle and rejects data commands
// until initialised.
func NewVirtualSDCard() *VirtualSDCard {
	return &VirtualSDCard{
		blocks:        make(map[uint32][]byte),
		MissingBlocks: make(map[uint32]bool),
		HighCapacity:  true,
		idle:          true,
		CSD:           BuildCSDv2(1024 * 1024),
	}
}

// SetBlock stores data (zero padded to 512 bytes) at block index n
func (c *VirtualSDCard) SetBlock(n uint32, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := make([]byte, sdBlockSize)
	copy(b, data)
	c.blocks[n] = b
}

// Block returns a copy of block n; unwritten blocks read as zeros
func (c *VirtualSDCard) Block(n uint32) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block(n)
}

// CommandIndices returns the index of every command received, in order
func (c *VirtualSDCard) CommandIndices() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := make([]byte, len(c.Commands))
	for i, cmd := range c.Commands {
		idx[i] = cmd.Index
	}
	return idx
}

// ResetLog clears the recorded commands and counters
func (c *VirtualSDCard) ResetLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Commands = nil
	c.Transactions, c.IdleClocks, c.Clocks = 0, 0, 0
}

// Select asserts chip-select
func (c *VirtualSDCard) Select() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = true
	c.Transactions++
	return nil
}

// Deselect releases chip-select. A partially received command frame is
// discarded; pending output is dropped unless a transfer is in progress.
func (c *VirtualSDCard) Deselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = false
	c.cmdBuf = c.cmdBuf[:0]
	if c.state == sdCommand {
		c.out = nil
	}
	return nil
}

// Write clocks w into the card
func (c *VirtualSDCard) Write(w []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range w {
		c.exchange(b)
	}
	return nil
}

// Read clocks fill into the card for every byte read
func (c *VirtualSDCard) Read(p []byte, fill byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range p {
		p[i] = c.exchange(fill)
	}
	return nil
}

func (c *VirtualSDCard) exchange(in byte) byte {
	if !c.selected {
		c.IdleClocks++
		return 0xFF
	}
	c.Clocks++
	if c.Unresponsive {
		return 0xFF
	}

	out := byte(0xFF)
	if len(c.out) == 0 && c.state == sdReadStream && len(c.cmdBuf) == 0 {
		c.queueStreamBlock()
	}
	if len(c.out) > 0 {
		out = c.out[0]
		c.out = c.out[1:]
	}

	c.consume(in)
	return out
}

func (c *VirtualSDCard) consume(in byte) {
	switch c.state {
	case sdAwaitToken:
		c.awaitToken(in)
		return
	case sdReceive:
		c.recvBuf = append(c.recvBuf, in)
		if len(c.recvBuf) == sdBlockSize+2 {
			c.finishBlock()
		}
		return
	}

	if len(c.cmdBuf) > 0 {
		c.cmdBuf = append(c.cmdBuf, in)
		if len(c.cmdBuf) == frame.CommandSize {
			f := append([]byte(nil), c.cmdBuf...)
			c.cmdBuf = c.cmdBuf[:0]
			c.execute(f)
		}
		return
	}
	if frame.IsCommandStart(in) {
		c.cmdBuf = append(c.cmdBuf[:0], in)
	}
}

func (c *VirtualSDCard) awaitToken(in byte) {
	switch {
	case in == sdTokenData && !c.multi, in == sdTokenMulti && c.multi:
		c.recvBuf = c.recvBuf[:0]
		c.state = sdReceive
	case in == sdTokenStop && c.multi:
		c.queueBusy()
		c.state = sdCommand
	}
}

func (c *VirtualSDCard) finishBlock() {
	if c.RejectWrites {
		c.out = append(c.out, sdDataWriteErr)
		c.state = sdCommand
		return
	}
	c.blocks[c.addr] = append([]byte(nil), c.recvBuf[:sdBlockSize]...)
	c.out = append(c.out, sdDataAccepted)
	c.queueBusy()
	if c.multi {
		c.addr++
		c.state = sdAwaitToken
		return
	}
	c.state = sdCommand
}

func (c *VirtualSDCard) queueBusy() {
	for i := 0; i < sdBusyByteCount; i++ {
		c.out = append(c.out, 0x00)
	}
}

func (c *VirtualSDCard) respond(r1 byte, extra ...byte) {
	for i := 0; i < c.ResponseDelay; i++ {
		c.out = append(c.out, 0xFF)
	}
	c.out = append(c.out, r1)
	c.out = append(c.out, extra...)
}

func (c *VirtualSDCard) queuePacket(data []byte) {
	for i := 0; i < c.TokenDelay; i++ {
		c.out = append(c.out, 0xFF)
	}
	c.out = append(c.out, sdTokenData)
	c.out = append(c.out, data...)
	c.out = append(c.out, 0x00, 0x00)
}

func (c *VirtualSDCard) queueStreamBlock() {
	if c.MissingBlocks[c.addr] {
		return
	}
	c.queuePacket(c.block(c.addr))
	c.addr++
}

func (c *VirtualSDCard) r1() byte {
	if c.idle {
		return sdR1Idle
	}
	return 0x00
}

func (c *VirtualSDCard) blockAddr(arg uint32) uint32 {
	if c.ByteAddressed {
		return arg / sdBlockSize
	}
	return arg
}

func (c *VirtualSDCard) block(n uint32) []byte {
	b := make([]byte, sdBlockSize)
	copy(b, c.blocks[n])
	return b
}

func (c *VirtualSDCard) execute(f []byte) {
	index := f[0] & frame.CommandMask
	arg := frame.Argument(f)
	c.Commands = append(c.Commands, SDCommand{Index: index, Arg: arg, CRC: f[5]})

	app := c.appCmd
	c.appCmd = false

	if (index == 0 || index == 8) && !c.SkipCRCCheck && !frame.ValidateCommandCRC(f) {
		c.respond(c.r1() | sdR1CRCError)
		return
	}

	switch index {
	case 0:
		c.state = sdCommand
		c.out = nil
		c.idle = true
		c.ccs = false
		c.initPolled = 0
		if c.NeverIdle {
			c.respond(0x00)
			return
		}
		c.respond(sdR1Idle)
	case 8:
		if c.Version1 {
			c.respond(sdR1Idle | sdR1Illegal)
			return
		}
		c.respond(c.r1(), 0x00, 0x00, byte(arg>>8)&0x0F, byte(arg))
	case 55:
		c.appCmd = true
		c.respond(c.r1())
	case 41:
		if !app {
			c.respond(c.r1() | sdR1Illegal)
			return
		}
		if c.AlwaysBusy || c.initPolled < c.InitPolls {
			c.initPolled++
			c.respond(sdR1Idle)
			return
		}
		c.idle = false
		c.ccs = c.HighCapacity && !c.Version1 && arg&sdOCRCapacity != 0
		c.respond(0x00)
	case 58:
		if c.OCRError {
			c.respond(c.r1() | sdR1Illegal)
			return
		}
		ocr := uint32(sdOCRDefault)
		if c.ccs {
			ocr |= sdOCRCapacity
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], ocr)
		c.respond(c.r1(), b[:]...)
	case 9:
		c.respond(c.r1())
		if !c.idle && c.CSD != nil {
			c.queuePacket(append([]byte(nil), c.CSD...))
		}
	case 12:
		c.state = sdCommand
		c.out = append(c.out[:0], sdStuffByte)
		c.respond(c.r1())
	case 16:
		if arg != sdBlockSize {
			c.respond(c.r1() | sdR1ParamError)
			return
		}
		c.respond(c.r1())
	case 17, 18:
		if c.idle {
			c.respond(c.r1() | sdR1Illegal)
			return
		}
		c.respond(0x00)
		c.addr = c.blockAddr(arg)
		if index == 18 {
			c.state = sdReadStream
			return
		}
		if !c.MissingBlocks[c.addr] {
			c.queuePacket(c.block(c.addr))
		}
	case 24, 25:
		if c.idle {
			c.respond(c.r1() | sdR1Illegal)
			return
		}
		c.respond(0x00)
		c.addr = c.blockAddr(arg)
		c.multi = index == 25
		c.state = sdAwaitToken
	default:
		c.respond(c.r1() | sdR1Illegal)
	}
}
