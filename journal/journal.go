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

// Package journal keeps an append-only log of text records in raw blocks
// of a block device, without a file system. Records are packed into
// 512-byte blocks, newline terminated; a record never spans two blocks and
// the unused tail of a block is zero filled.
package journal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// BlockSize is the block granularity of the device
const BlockSize = 512

const (
	maxRecordLen     = BlockSize - 1
	recordTerminator = '\n'
	zeroPad          = 0x00
	erasedPad        = 0xFF // factory state of some cards
)

// Journal errors
var (
	ErrNilDevice      = errors.New("block device is nil")
	ErrInvalidRegion  = errors.New("journal region must hold at least one block")
	ErrRecordTooLarge = errors.New("record does not fit in a block")
	ErrInvalidRecord  = errors.New("record must be valid UTF-8 without newlines or NUL bytes")
	ErrJournalFull    = errors.New("journal region is full")
	ErrCorruptJournal = errors.New("journal block is not valid text")
)

// BlockDevice reads and writes whole 512-byte blocks; *sdcard.Card
// implements it.
type BlockDevice interface {
	ReadBlocks(start uint32, buf []byte) error
	WriteBlocks(start uint32, buf []byte) error
}

// Journal appends records to the blocks [Start, Start+Blocks). It is safe
// for concurrent use.
type Journal struct {
	dev    BlockDevice
	tail   [BlockSize]byte
	start  uint32
	blocks uint32
	// index of the last block in use, relative to start
	tailBlock uint32
	tailUsed  int
	mu        sync.Mutex
}

// Open locates the end of an existing journal. Blocks are used in order,
// so the first empty block is found with a binary search.
func Open(dev BlockDevice, start, blocks uint32) (*Journal, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if blocks == 0 {
		return nil, ErrInvalidRegion
	}

	j := &Journal{dev: dev, start: start, blocks: blocks}

	var buf [BlockSize]byte
	var readErr error
	firstEmpty := sort.Search(int(blocks), func(i int) bool {
		if readErr != nil {
			return true
		}
		if err := dev.ReadBlocks(start+uint32(i), buf[:]); err != nil {
			readErr = err
			return true
		}
		return used(buf[:]) == 0
	})
	if readErr != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", readErr)
	}

	if firstEmpty > 0 {
		j.tailBlock = uint32(firstEmpty - 1)
		if err := dev.ReadBlocks(start+j.tailBlock, j.tail[:]); err != nil {
			return nil, fmt.Errorf("failed to read journal tail: %w", err)
		}
		j.tailUsed = used(j.tail[:])
		clear(j.tail[j.tailUsed:])
	}
	debugf("opened at block %d, %d bytes used", start+j.tailBlock, j.tailUsed)
	return j, nil
}

// used returns the length of the record data at the start of a block
func used(block []byte) int {
	for i, b := range block {
		if b == zeroPad || b == erasedPad {
			return i
		}
	}
	return len(block)
}

func validRecord(record string) error {
	if len(record) > maxRecordLen {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(record))
	}
	if !utf8.ValidString(record) || strings.ContainsAny(record, "\n\x00") {
		return ErrInvalidRecord
	}
	return nil
}

// Append writes one record. The tail block is rewritten in place, or the
// record starts the next block when it does not fit.
func (j *Journal) Append(record string) error {
	if err := validRecord(record); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	block, n := j.tailBlock, j.tailUsed
	buf := j.tail
	if n+len(record)+1 > BlockSize {
		block++
		if block >= j.blocks {
			return ErrJournalFull
		}
		n = 0
		buf = [BlockSize]byte{}
	}

	copy(buf[n:], record)
	buf[n+len(record)] = recordTerminator

	if err := j.dev.WriteBlocks(j.start+block, buf[:]); err != nil {
		return fmt.Errorf("failed to write journal block %d: %w", j.start+block, err)
	}

	j.tail = buf
	j.tailBlock = block
	j.tailUsed = n + len(record) + 1
	return nil
}

// Each calls fn for every record in order, stopping at the first error
func (j *Journal) Each(fn func(record string) error) error {
	j.mu.Lock()
	last := j.tailBlock
	j.mu.Unlock()

	var buf [BlockSize]byte
	for i := uint32(0); i <= last; i++ {
		if err := j.dev.ReadBlocks(j.start+i, buf[:]); err != nil {
			return fmt.Errorf("failed to read journal block %d: %w", j.start+i, err)
		}
		data := buf[:used(buf[:])]
		if !utf8.Valid(data) {
			return fmt.Errorf("%w: block %d", ErrCorruptJournal, j.start+i)
		}
		for len(data) > 0 {
			line, rest, found := strings.Cut(string(data), "\n")
			if !found {
				// Unterminated text is a torn write; it is still reported
				rest = ""
			}
			if err := fn(line); err != nil {
				return err
			}
			data = []byte(rest)
		}
	}
	return nil
}

// Records returns every record in order
func (j *Journal) Records() ([]string, error) {
	var records []string
	err := j.Each(func(r string) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// Last returns up to n of the most recent records, oldest first
func (j *Journal) Last(n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	records, err := j.Records()
	if err != nil {
		return nil, err
	}
	if len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// Stats describes how much of the region is in use
type Stats struct {
	// Blocks is the region size
	Blocks uint32
	// TailBlock is the absolute index of the block being appended to
	TailBlock uint32
	// TailUsed is the number of bytes used in the tail block
	TailUsed int
}

// Stats returns the current position of the journal's end
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Stats{
		Blocks:    j.blocks,
		TailBlock: j.start + j.tailBlock,
		TailUsed:  j.tailUsed,
	}
}
