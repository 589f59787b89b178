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


/*
Package rc522 drives an MFRC522 contactless reader over SPI.

The MFRC522 is a 13.56 MHz ISO 14443A transceiver. This package covers what
a door reader needs: bring the chip up, wake cards with REQA or WUPA and run
cascade level 1 anticollision to obtain a 4 byte UID. Card memory, crypto
and higher cascade levels are out of scope.

The reader is one device on a shared bus (see package bus). The SD card
driver in package sdcard can sit on the same bus behind its own
chip-select.

Basic Usage:

	import (
	    rc522 "github.com/ZaparooProject/go-rc522"
	    "github.com/ZaparooProject/go-rc522/transport/spi"
	)

	b, err := spi.Open("/dev/spidev0.0")
	if err != nil {
	    log.Fatal(err)
	}
	defer b.Close()

	cs, err := b.DeviceByName("GPIO8")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := rc522.New(cs, rc522.WithPollLimit(4000))
	if err != nil {
	    log.Fatal(err)
	}
	if err := device.Init(); err != nil {
	    log.Fatal(err)
	}

	uid, err := device.DetectCard(rc522.RequestIdle)
	switch {
	case errors.Is(err, rc522.ErrNoTagDetected):
	    // nothing in the field
	case err != nil:
	    log.Fatal(err)
	default:
	    fmt.Printf("Card detected: %s\n", uid)
	}

Transports:

  - transport/spi: a Linux SPI port through periph.io, with GPIO chip-selects
  - transport/buspirate: a Bus Pirate in binary SPI mode over USB serial

Polling:

DetectCard is a single request. Package polling wraps it in a loop with
debounced removal and arrival/removal callbacks.

Status values:

The low level RequestCard and Anticollision calls report a Status next to
the response bytes. Status.Err maps it onto ErrNoTagDetected or
ErrCardError.

Thread Safety:

Device operations are not thread-safe. Each register access holds the
chip-select for its duration, so a reader and an SD card may share a bus
as long as each driver is used from one goroutine at a time.
*/
package rc522
