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
	"errors"
	"sync"
)

// ErrNotSelected is returned when bytes are clocked at a simulated device
// whose chip-select is not asserted.
var ErrNotSelected = errors.New("chip select not asserted")

// MFRC522 registers and bits the simulation reacts to. Kept local so the
// simulation does not share constants with the driver it checks.
const (
	regCommand    = 0x01
	regComIEn     = 0x02
	regComIrq     = 0x04
	regError      = 0x06
	regFIFOData   = 0x09
	regFIFOLevel  = 0x0A
	regControl    = 0x0C
	regBitFraming = 0x0D
	regColl       = 0x0E
	regMode       = 0x11
	regTxControl  = 0x14
	regVersion    = 0x37

	chipIdle       = 0x00
	chipTransceive = 0x0C
	chipSoftReset  = 0x0F

	irqTimer = 0x01
	irqErr   = 0x02
	irqIdle  = 0x10
	irqRx    = 0x20
)

// RegisterWrite is one register write seen by the simulated reader
type RegisterWrite struct {
	Reg   byte
	Value byte
}

// VirtualCard is a simulated ISO 14443A card in the reader's field
type VirtualCard struct {
	// ATQA answered to REQA/WUPA
	ATQA []byte
	// Anticollision is answered to SEL CL1 + NVB 0x20 (UID + BCC)
	Anticollision []byte
}

// NewVirtualCard creates a card answering with ATQAMifare1K and a valid
// anticollision response for uid.
func NewVirtualCard(uid [4]byte) *VirtualCard {
	return &VirtualCard{
		ATQA:          append([]byte(nil), ATQAMifare1K...),
		Anticollision: BuildAnticollisionResponse(uid),
	}
}

// VirtualReader simulates an MFRC522 behind its SPI interface: address
// byte decoding, register file, FIFO, interrupt flags and the Transceive
// command. It implements bus.Conn.
type VirtualReader struct {
	card      *VirtualCard
	fifo      []byte
	Writes    []RegisterWrite
	Registers [64]byte

	// ErrorBits is loaded into ErrorReg when a transceive completes
	ErrorBits byte
	// Stuck means no interrupt bit is ever raised
	Stuck bool

	Transactions int
	IRQPolls     int
	Transceives  int
	Resets       int
	version      byte
	addr         byte
	mu           sync.Mutex
	selected     bool
	haveAddr     bool
	reading      bool
}

// NewVirtualReader creates a reader with power-on register values and no
// card in the field
func NewVirtualReader() *VirtualReader {
	r := &VirtualReader{version: 0x92}
	r.reset()
	return r
}

// SetCard places a card in the field; nil removes it.
func (r *VirtualReader) SetCard(card *VirtualCard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.card = card
}

// SetVersion sets the value reported by VersionReg
func (r *VirtualReader) SetVersion(v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = v
	r.Registers[regVersion] = v
}

// Register returns the current raw value of a register
func (r *VirtualReader) Register(reg byte) byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Registers[reg&0x3F]
}

// WritesTo returns the values written to reg, in order
func (r *VirtualReader) WritesTo(reg byte) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var values []byte
	for _, w := range r.Writes {
		if w.Reg == reg {
			values = append(values, w.Value)
		}
	}
	return values
}

// Stats returns the transaction and interrupt poll counters
func (r *VirtualReader) Stats() (transactions, irqPolls, transceives int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Transactions, r.IRQPolls, r.Transceives
}

// ResetLog clears the recorded writes and counters
func (r *VirtualReader) ResetLog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Writes = nil
	r.Transactions, r.IRQPolls, r.Transceives, r.Resets = 0, 0, 0, 0
}

// Select asserts chip-select
func (r *VirtualReader) Select() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = true
	r.haveAddr = false
	r.Transactions++
	return nil
}

// Deselect releases chip-select
func (r *VirtualReader) Deselect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = false
	r.haveAddr = false
	return nil
}

// Write clocks bytes into the chip: an address byte, then data bytes for
// a write access.
func (r *VirtualReader) Write(w []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.selected {
		return ErrNotSelected
	}
	for _, b := range w {
		if !r.haveAddr || r.reading {
			r.addr = (b >> 1) & 0x3F
			r.reading = b&0x80 != 0
			r.haveAddr = true
			continue
		}
		r.writeRegister(r.addr, b)
	}
	return nil
}

// Read clocks register values out of the chip for a read access.
func (r *VirtualReader) Read(p []byte, _ byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.selected {
		return ErrNotSelected
	}
	for i := range p {
		if !r.haveAddr || !r.reading {
			p[i] = 0x00
			continue
		}
		p[i] = r.readRegister(r.addr)
	}
	return nil
}

func (r *VirtualReader) reset() {
	r.Registers = [64]byte{}
	r.Registers[regCommand] = 0x20
	r.Registers[regComIEn] = 0x80
	r.Registers[regComIrq] = 0x14
	r.Registers[regControl] = 0x10
	r.Registers[regMode] = 0x3F
	r.Registers[regTxControl] = 0x80
	r.Registers[regColl] = 0xA0
	r.Registers[regVersion] = r.version
	r.fifo = nil
}

func (r *VirtualReader) readRegister(reg byte) byte {
	switch reg {
	case regFIFOData:
		if len(r.fifo) == 0 {
			return 0x00
		}
		b := r.fifo[0]
		r.fifo = r.fifo[1:]
		return b
	case regFIFOLevel:
		return byte(len(r.fifo)) & 0x7F
	case regComIrq:
		r.IRQPolls++
		return r.Registers[regComIrq]
	default:
		return r.Registers[reg]
	}
}

func (r *VirtualReader) writeRegister(reg, value byte) {
	r.Writes = append(r.Writes, RegisterWrite{Reg: reg, Value: value})

	switch reg {
	case regCommand:
		r.Registers[regCommand] = value & 0x3F
		switch value & 0x0F {
		case chipSoftReset:
			r.Resets++
			r.reset()
		case chipIdle, chipTransceive:
		default:
			// Commands other than Transceive finish immediately
			r.Registers[regComIrq] |= irqIdle
		}
	case regComIrq:
		if value&0x80 != 0 {
			r.Registers[regComIrq] |= value & 0x7F
		} else {
			r.Registers[regComIrq] &^= value & 0x7F
		}
	case regFIFOLevel:
		if value&0x80 != 0 {
			r.fifo = nil
		}
	case regFIFOData:
		if len(r.fifo) < 64 {
			r.fifo = append(r.fifo, value)
		}
	case regBitFraming:
		r.Registers[regBitFraming] = value
		if value&0x80 != 0 && r.Registers[regCommand]&0x0F == chipTransceive {
			r.transmit()
		}
	default:
		r.Registers[reg] = value
	}
}

// transmit sends the FIFO to the card in the field and loads its answer
func (r *VirtualReader) transmit() {
	r.Transceives++
	sent := r.fifo
	r.fifo = nil
	r.Registers[regError] = 0x00
	r.Registers[regControl] &^= 0x07

	if r.Stuck {
		return
	}
	if r.ErrorBits != 0 {
		r.Registers[regError] = r.ErrorBits
		r.Registers[regComIrq] |= irqErr | irqIdle | irqRx
		return
	}

	answer := r.answer(sent)
	if answer == nil {
		r.Registers[regComIrq] |= irqTimer
		return
	}
	r.fifo = append(r.fifo, answer...)
	r.Registers[regComIrq] |= irqRx | irqIdle
}

func (r *VirtualReader) answer(sent []byte) []byte {
	if r.card == nil || r.Registers[regTxControl]&0x03 == 0 {
		return nil
	}
	shortFrame := r.Registers[regBitFraming]&0x07 == 0x07

	switch {
	case len(sent) == 1 && shortFrame && (sent[0] == 0x26 || sent[0] == 0x52):
		return append([]byte(nil), r.card.ATQA...)
	case len(sent) == 2 && sent[0] == 0x93 && sent[1] == 0x20:
		return append([]byte(nil), r.card.Anticollision...)
	default:
		return nil
	}
}
