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
	"errors"
	"fmt"
	"io"
	"strings"

	"periph.io/x/conn/v3/physic"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/bus"
	serialdetect "github.com/ZaparooProject/go-rc522/detection/serial"
	"github.com/ZaparooProject/go-rc522/detection/spidev"
	"github.com/ZaparooProject/go-rc522/journal"
	"github.com/ZaparooProject/go-rc522/sdcard"
	"github.com/ZaparooProject/go-rc522/transport/buspirate"
	"github.com/ZaparooProject/go-rc522/transport/i2c"
	"github.com/ZaparooProject/go-rc522/transport/spi"
)

var errNoPort = errors.New("no -port given (try the detect mode)")

// hardware is the shared bus with both devices bound. The reader may
// instead sit on its own I2C bus.
type hardware struct {
	closers []io.Closer
	reader  rc522.RegisterBus
	sd      bus.Conn
}

// Close releases the buses in reverse order of opening
func (h *hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		errs = append(errs, h.closers[i].Close())
	}
	return errors.Join(errs...)
}

func openHardware(cfg *config) (*hardware, error) {
	if *cfg.port == "" {
		return nil, errNoPort
	}

	h, err := openBus(cfg)
	if err != nil {
		return nil, err
	}
	if *cfg.readerI2C != "" {
		rb, err := i2c.Open(*cfg.readerI2C, uint16(*cfg.i2cAddr))
		if err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("failed to open reader I2C bus: %w", err)
		}
		h.closers = append(h.closers, rb)
		h.reader = rb
	}
	return h, nil
}

// openBus opens the SPI transport. The reader's chip-select is only bound
// when the reader is not on I2C.
func openBus(cfg *config) (*hardware, error) {
	onSPI := *cfg.readerI2C == ""

	switch strings.ToLower(*cfg.transport) {
	case spidev.Transport:
		b, err := spi.Open(*cfg.port, spi.WithFrequency(physic.Frequency(*cfg.frequency)*physic.Hertz))
		if err != nil {
			return nil, fmt.Errorf("failed to open SPI bus: %w", err)
		}
		h := &hardware{closers: []io.Closer{b}}
		if onSPI {
			cs, err := b.DeviceByName(*cfg.readerCS)
			if err != nil {
				_ = b.Close()
				return nil, fmt.Errorf("reader chip-select: %w", err)
			}
			h.reader = rc522.NewRegisterBus(cs)
		}
		if h.sd, err = b.DeviceByName(*cfg.sdCS); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("SD chip-select: %w", err)
		}
		return h, nil
	case serialdetect.Transport:
		bridge, err := buspirate.Open(*cfg.port)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bus Pirate: %w", err)
		}
		h := &hardware{
			closers: []io.Closer{bridge},
			sd:      bridge.Device(buspirate.LineAux),
		}
		if onSPI {
			h.reader = rc522.NewRegisterBus(bridge.Device(buspirate.LineCS))
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", *cfg.transport)
	}
}

func openReader(h *hardware) (*rc522.Device, error) {
	device, err := rc522.NewWithRegisterBus(h.reader)
	if err != nil {
		return nil, err
	}
	if err := device.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise reader: %w", err)
	}
	return device, nil
}

func openCard(h *hardware, cfg *config) (*sdcard.Card, sdcard.Info, error) {
	var opts []sdcard.Option
	if *cfg.byteAddr {
		opts = append(opts, sdcard.WithByteAddressing())
	}
	card, err := sdcard.New(h.sd, opts...)
	if err != nil {
		return nil, sdcard.Info{}, err
	}
	info, err := card.Init()
	if err != nil {
		return nil, sdcard.Info{}, fmt.Errorf("failed to initialise SD card: %w", err)
	}
	if !info.HighCapacity() && !*cfg.byteAddr {
		_, _ = fmt.Println("warning: standard capacity card, consider -byte-addressing")
	}
	return card, info, nil
}

func openJournal(h *hardware, cfg *config) (*journal.Journal, error) {
	card, _, err := openCard(h, cfg)
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(card, cfg.start, cfg.blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}
