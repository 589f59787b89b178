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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"periph.io/x/conn/v3/physic"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/go-rc522/detection/serial"
	_ "github.com/ZaparooProject/go-rc522/detection/spidev"
	"github.com/ZaparooProject/go-rc522/journal"
	"github.com/ZaparooProject/go-rc522/polling"
	"github.com/ZaparooProject/go-rc522/sdcard"
	"github.com/ZaparooProject/go-rc522/transport/spi"
)

type appender interface {
	Append(record string) error
}

type unlocker interface {
	Unlock(ctx context.Context) error
}

// formatRecord builds one journal line: timestamp, then the card UID
func formatRecord(at time.Time, uid rc522.UID) string {
	return at.UTC().Format(time.RFC3339) + ", " + uid.String()
}

// cardHandler logs the card before unlocking. A card that cannot be
// logged does not open the door.
func cardHandler(
	ctx context.Context,
	log appender,
	lock unlocker,
	now func() time.Time,
	logger *slog.Logger,
) func(uid rc522.UID) error {
	return func(uid rc522.UID) error {
		logger.Info("card detected", "uid", uid.String())
		if err := log.Append(formatRecord(now(), uid)); err != nil {
			return fmt.Errorf("failed to log card %s: %w", uid, err)
		}
		logger.Debug("unlocking door")
		return lock.Unlock(ctx)
	}
}

func runScan(ctx context.Context, cfg *config) error {
	h, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	reader, err := openReader(h)
	if err != nil {
		return err
	}
	j, err := openJournal(h, cfg)
	if err != nil {
		return err
	}
	lock, err := newDoor(*cfg.doorPins, *cfg.unlockHold)
	if err != nil {
		return err
	}

	scannerConfig := polling.DefaultConfig()
	scannerConfig.PollInterval = *cfg.pollInterval
	scannerConfig.CardRemovalTimeout = *cfg.removal
	scanner, err := polling.NewScanner(reader, scannerConfig)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, *cfg.debug, isTerminal(os.Stderr))
	scanner.OnCardDetected = cardHandler(ctx, j, lock, time.Now, logger)
	scanner.OnCardRemoved = func(uid rc522.UID) {
		logger.Info("card removed", "uid", uid.String())
	}
	scanner.OnError = func(err error) {
		logger.Warn("poll failed", "err", err)
	}

	logger.Info("waiting for cards", "interval", *cfg.pollInterval, "journal", j.Stats().TailBlock)
	err = scanner.Run(ctx)
	m := scanner.GetMetrics()
	logger.Info("stopped",
		"polls", m.PollCycles,
		"cards", m.CardsDetected,
		"poll_errors", m.PollErrors,
		"callback_errors", m.CallbackErrors)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printRecords(out io.Writer, j *journal.Journal, last int) error {
	var records []string
	var err error
	if last > 0 {
		records, err = j.Last(last)
	} else {
		records, err = j.Records()
	}
	if err != nil {
		return err
	}
	for _, r := range records {
		_, _ = fmt.Fprintln(out, r)
	}
	return nil
}

func runLog(cfg *config) error {
	h, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	j, err := openJournal(h, cfg)
	if err != nil {
		return err
	}
	return printRecords(os.Stdout, j, *cfg.last)
}

// dumpTail prints the journal position and a hex dump of its tail block
func dumpTail(out io.Writer, dev journal.BlockDevice, stats journal.Stats) error {
	_, _ = fmt.Fprintf(out, "journal: %d blocks, tail block %d, %d bytes used\n",
		stats.Blocks, stats.TailBlock, stats.TailUsed)

	buf := make([]byte, journal.BlockSize)
	if err := dev.ReadBlocks(stats.TailBlock, buf); err != nil {
		return fmt.Errorf("failed to read block %d: %w", stats.TailBlock, err)
	}
	_, _ = fmt.Fprint(out, hex.Dump(buf))
	return nil
}

func runDump(cfg *config) error {
	h, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	card, _, err := openCard(h, cfg)
	if err != nil {
		return err
	}
	j, err := journal.Open(card, cfg.start, cfg.blocks)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	return dumpTail(os.Stdout, card, j.Stats())
}

func runProbe(cfg *config) error {
	h, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	reader, err := openReader(h)
	if err != nil {
		return err
	}
	version, err := reader.Version()
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("MFRC522 version: 0x%02X\n", version)

	card, info, err := openCard(h, cfg)
	if err != nil {
		return err
	}
	blocks, err := card.BlockCount()
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("SD card: %s, OCR 0x%08X, %d blocks (%d MiB)\n",
		info.Version, info.OCR, blocks, uint64(blocks)*sdcard.BlockSize>>20)
	return nil
}

// probeVersion reads the version register of a reader on an spidev node
func probeVersion(cfg *config) func(ctx context.Context, path string) (byte, error) {
	return func(_ context.Context, path string) (byte, error) {
		b, err := spi.Open(path, spi.WithFrequency(physic.Frequency(*cfg.frequency)*physic.Hertz))
		if err != nil {
			return 0, err
		}
		defer func() { _ = b.Close() }()

		cs, err := b.DeviceByName(*cfg.readerCS)
		if err != nil {
			return 0, err
		}
		device, err := rc522.New(cs)
		if err != nil {
			return 0, err
		}
		return device.Version()
	}
}

func runDetect(ctx context.Context, cfg *config) error {
	opts := detection.DefaultOptions()
	if *cfg.probe {
		opts.Mode = detection.Full
		opts.Prober = probeVersion(cfg)
	}

	_, _ = fmt.Printf("Detecting buses (%s)...\n", opts.Mode)
	devices, err := detection.DetectAll(ctx, opts)
	for _, d := range devices {
		_, _ = fmt.Println(d)
	}
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Println("No devices found")
		return nil
	}
	return err
}
