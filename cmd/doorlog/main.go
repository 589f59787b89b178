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


// Command doorlog reads cards on an MFRC522, appends each one to a journal
// on an SD card sharing the same SPI bus, and optionally pulses a door
// lock.
//
// Usage:
//
//	doorlog [flags] scan|log|dump|probe|detect
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/sdcard"
	"github.com/ZaparooProject/go-rc522/transport/i2c"
)

type config struct {
	transport    *string
	port         *string
	readerCS     *string
	sdCS         *string
	doorPins     *string
	frequency    *int
	journalStart *uint
	journalSize  *uint
	unlockHold   *time.Duration
	pollInterval *time.Duration
	removal      *time.Duration
	last         *int
	probe        *bool
	debug        *bool
	byteAddr     *bool
	readerI2C    *string
	i2cAddr      *uint

	// journal region, validated from journalStart and journalSize
	start, blocks uint32
}

var (
	errJournalRange = errors.New("journal region must fit in 32-bit block numbers")
	errI2CAddress   = errors.New("I2C address must be a 7-bit value")
)

// validate checks flag values that the flag package cannot range check
func (cfg *config) validate() error {
	start, size := uint64(*cfg.journalStart), uint64(*cfg.journalSize)
	if size == 0 || start > math.MaxUint32 || size > math.MaxUint32 || start+size > math.MaxUint32+1 {
		return fmt.Errorf("%w: start %d, %d blocks", errJournalRange, start, size)
	}
	if *cfg.i2cAddr > 0x7F {
		return fmt.Errorf("%w: %#x", errI2CAddress, *cfg.i2cAddr)
	}
	cfg.start, cfg.blocks = uint32(start), uint32(size)
	return nil
}

func parseFlags(args []string) (*config, string, error) {
	fs := flag.NewFlagSet("doorlog", flag.ContinueOnError)
	cfg := &config{
		transport: fs.String("transport", "spi", "Bus transport: spi or buspirate"),
		port: fs.String("port", "",
			"SPI port (e.g. /dev/spidev0.0) or Bus Pirate serial port (e.g. /dev/ttyUSB0)"),
		readerCS: fs.String("reader-cs", "GPIO8", "GPIO used as the reader chip-select (spi transport)"),
		sdCS:     fs.String("sd-cs", "GPIO7", "GPIO used as the SD card chip-select (spi transport)"),
		doorPins: fs.String("door-pins", "",
			"Comma separated GPIOs driven high while the door is unlocked (e.g. GPIO13,GPIO12)"),
		frequency:    fs.Int("frequency", 1000000, "SPI clock in Hz (spi transport)"),
		journalStart: fs.Uint("journal-start", 2048, "First SD block of the journal region"),
		journalSize:  fs.Uint("journal-blocks", 8192, "Number of SD blocks in the journal region"),
		unlockHold:   fs.Duration("unlock", 5*time.Second, "How long the door stays unlocked"),
		pollInterval: fs.Duration("poll-interval", time.Second, "Card polling interval"),
		removal:      fs.Duration("removal-timeout", 3*time.Second, "Silence before a card counts as removed"),
		last:         fs.Int("last", 0, "Only print the newest N records (log mode)"),
		probe:        fs.Bool("probe", false, "Open candidate buses and read the reader version (detect mode)"),
		debug:        fs.Bool("debug", false, "Enable debug output"),
		byteAddr:     fs.Bool("byte-addressing", false, "Address the SD card by byte offset (standard capacity cards)"),
		readerI2C: fs.String("reader-i2c", "",
			"I2C bus of a reader wired for I2C (e.g. /dev/i2c-1); the SD card stays on -port"),
		i2cAddr: fs.Uint("reader-i2c-addr", uint(i2c.DefaultAddress), "I2C address of the reader"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if err := cfg.validate(); err != nil {
		return nil, "", err
	}

	mode := "scan"
	if fs.NArg() > 0 {
		mode = strings.ToLower(fs.Arg(0))
	}

	// Enable debug output if -debug flag is set
	if *cfg.debug {
		rc522.SetDebugHandler(newLogger(os.Stderr, true, isTerminal(os.Stderr)).Handler())
		rc522.SetDebugEnabled(true)
		sdcard.SetDebugEnabled(true)
	}

	return cfg, mode, nil
}

func run(ctx context.Context, cfg *config, mode string) error {
	switch mode {
	case "scan":
		return runScan(ctx, cfg)
	case "log":
		return runLog(cfg)
	case "dump":
		return runDump(cfg)
	case "probe":
		return runProbe(cfg)
	case "detect":
		return runDetect(ctx, cfg)
	default:
		return fmt.Errorf("unknown mode %q (want scan, log, dump, probe or detect)", mode)
	}
}

func main() {
	cfg, mode, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, mode); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "doorlog: %v\n", err)
		stop()
		os.Exit(1)
	}
}
