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

// Register is an MFRC522 register address (0x00-0x3F)
type Register byte

// MFRC522 register map, page 0: command and status
const (
	CommandReg    Register = 0x01 // starts and stops command execution
	ComIEnReg     Register = 0x02 // enable and disable interrupt request control bits
	DivIEnReg     Register = 0x03 // enable and disable interrupt request control bits
	ComIrqReg     Register = 0x04 // interrupt request bits
	DivIrqReg     Register = 0x05 // interrupt request bits
	ErrorReg      Register = 0x06 // error bits showing the error status of the last command
	Status1Reg    Register = 0x07 // communication status bits
	Status2Reg    Register = 0x08 // receiver and transmitter status bits
	FIFODataReg   Register = 0x09 // input and output of 64 byte FIFO buffer
	FIFOLevelReg  Register = 0x0A // number of bytes stored in the FIFO buffer
	WaterLevelReg Register = 0x0B // level for FIFO underflow and overflow warning
	ControlReg    Register = 0x0C // miscellaneous control registers
	BitFramingReg Register = 0x0D // adjustments for bit-oriented frames
	CollReg       Register = 0x0E // bit position of the first bit-collision detected
)

// Page 1: command
const (
	ModeReg      Register = 0x11 // general modes for transmitting and receiving
	TxModeReg    Register = 0x12 // transmission data rate and framing
	RxModeReg    Register = 0x13 // reception data rate and framing
	TxControlReg Register = 0x14 // logical behavior of the antenna driver pins TX1 and TX2
	TxASKReg     Register = 0x15 // transmission modulation setting
	TxSelReg     Register = 0x16 // internal sources for the antenna driver
	RxSelReg     Register = 0x17 // internal receiver settings
	RxThreshReg  Register = 0x18 // thresholds for the bit decoder
)

// Page 2: configuration
const (
	CRCResultRegH Register = 0x21
	CRCResultRegL Register = 0x22
	RFCfgReg      Register = 0x26 // receiver gain
	TModeReg      Register = 0x2A // internal timer settings
	TPrescalerReg Register = 0x2B
	TReloadRegH   Register = 0x2C // 16-bit timer reload value
	TReloadRegL   Register = 0x2D
)

// Page 3: test
const (
	VersionReg Register = 0x37 // software version
)

const (
	addressMask = 0x7E
	readBit     = 0x80
)

// WriteAddress returns the SPI address byte for writing r: bit 7 clear,
// address shifted into bits 6..1, bit 0 clear.
func (r Register) WriteAddress() byte {
	return (byte(r) << 1) & addressMask
}

// ReadAddress returns the SPI address byte for reading r.
func (r Register) ReadAddress() byte {
	return r.WriteAddress() | readBit
}

// Chip commands written to CommandReg
const (
	CmdIdle       byte = 0x00 // no action, cancels current command execution
	CmdMem        byte = 0x01
	CmdCalcCRC    byte = 0x03
	CmdTransmit   byte = 0x04
	CmdReceive    byte = 0x08
	CmdTransceive byte = 0x0C // transmits FIFO data and activates the receiver afterwards
	CmdMFAuthent  byte = 0x0E // MIFARE standard authentication as a reader
	CmdSoftReset  byte = 0x0F
)

// Card commands sent through the FIFO
const (
	piccReqA        byte = 0x26
	piccWupA        byte = 0x52
	piccSelectCL1   byte = 0x93
	piccAnticollNVB byte = 0x20 // NVB: two valid bytes, no UID bits yet
)

// Register bits
const (
	irqSet1        byte = 0x80 // ComIEnReg/ComIrqReg: write 1 to marked bits
	irqTimer       byte = 0x01 // ComIrqReg TimerIRq
	irqRx          byte = 0x20 // ComIrqReg RxIRq
	irqIdle        byte = 0x10 // ComIrqReg IdleIRq
	fifoFlush      byte = 0x80 // FIFOLevelReg FlushBuffer
	fifoLevelMask  byte = 0x7F
	startSend      byte = 0x80 // BitFramingReg StartSend
	rxLastBitsMask byte = 0x07 // ControlReg RxLastBits
	txLastBitsReqA byte = 0x07 // BitFramingReg: short frame, 7 bits
	antennaBits    byte = 0x03 // TxControlReg Tx1RFEn | Tx2RFEn
	collDiscardBit byte = 0x80 // CollReg ValuesAfterColl

	// ErrorReg: BufferOvfl | CollErr | ParityErr | ProtocolErr
	errorMask byte = 0x1B
)

// Interrupt configuration per chip command
const (
	authIRqEn         byte = 0x12 // IdleIEn | ErrIEn
	authWaitIRq       byte = irqIdle
	transceiveIRqEn   byte = 0x77 // TxIEn | RxIEn | IdleIEn | LoAlertIEn | ErrIEn | TimerIEn
	transceiveWaitIRq byte = irqRx | irqIdle
)

// Initialisation values
const (
	tModeAuto     byte = 0x8D // TAuto, prescaler high nibble 0xD
	tPrescaler    byte = 0x3E
	tReloadHigh   byte = 0x00
	tReloadLow    byte = 30
	txASKForce100 byte = 0x40
	modeCRCPreset byte = 0x3D // CRC preset 0x6363, TxWaitRF, MSBFirst off
)

// maxFIFOResponse caps how many FIFO bytes a transceive drains
const maxFIFOResponse = 16
