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

// Package polling runs the card reader's detection loop: request and
// anticollision at a fixed interval, with debounced removal.
package polling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
)

// Scanner errors
var (
	ErrNilDevice          = errors.New("device cannot be nil")
	ErrAlreadyRunning     = errors.New("scanner is already running")
	ErrInvalidPollTimings = errors.New("poll interval and removal timeout must be positive")
)

// CardDetector is the part of rc522.Device the scanner needs
type CardDetector interface {
	DetectCard(mode rc522.RequestMode) (rc522.UID, error)
}

// Config holds scanner timing
type Config struct {
	PollInterval time.Duration
	// CardRemovalTimeout is how long a card may go unanswered before it
	// counts as removed. Cards do not answer every request, so this
	// should span a few poll intervals.
	CardRemovalTimeout time.Duration
	Mode               rc522.RequestMode
}

// DefaultConfig polls once a second with REQA, like a door reader
func DefaultConfig() *Config {
	return &Config{
		PollInterval:       time.Second,
		CardRemovalTimeout: 3 * time.Second,
		Mode:               rc522.RequestIdle,
	}
}

// Metrics counts scanner activity
type Metrics struct {
	PollCycles     int64
	PollErrors     int64
	CardsDetected  int64
	CallbackErrors int64
}

// Scanner polls a reader and reports cards arriving and leaving.
// Callbacks run on the scanner goroutine; a slow OnCardDetected delays the
// next poll, which is how a door stays unlocked without re-triggering.
type Scanner struct {
	device         CardDetector
	config         *Config
	OnCardDetected func(uid rc522.UID) error
	OnCardRemoved  func(uid rc522.UID)
	OnError        func(err error)
	cancelFunc     context.CancelFunc
	done           chan struct{}
	state          CardState
	stopMutex      sync.Mutex
	pollCycles     atomic.Int64
	pollErrors     atomic.Int64
	cardsDetected  atomic.Int64
	callbackErrors atomic.Int64
	running        atomic.Bool
}

// NewScanner creates a scanner. A nil config uses DefaultConfig.
func NewScanner(device CardDetector, config *Config) (*Scanner, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.PollInterval <= 0 || config.CardRemovalTimeout <= 0 {
		return nil, ErrInvalidPollTimings
	}
	cfg := *config
	if cfg.Mode == 0 {
		cfg.Mode = rc522.RequestIdle
	}
	return &Scanner{device: device, config: &cfg}, nil
}

// Start runs the polling loop in a new goroutine until ctx is cancelled
// or Stop is called.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.stopMutex.Unlock()

	go func() {
		defer func() {
			s.running.Store(false)
			close(done)
		}()
		_ = s.run(scanCtx)
	}()
	return nil
}

// Run polls on the calling goroutine until ctx is done
func (s *Scanner) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	return s.run(ctx)
}

// Stop cancels a scanner started with Start and waits for its goroutine
// to exit. A card still present is reported as removed.
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancel, done := s.cancelFunc, s.done
	s.cancelFunc, s.done = nil, nil
	s.stopMutex.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// IsRunning returns whether the polling loop is active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// GetMetrics returns a snapshot of the activity counters
func (s *Scanner) GetMetrics() Metrics {
	return Metrics{
		PollCycles:     s.pollCycles.Load(),
		PollErrors:     s.pollErrors.Load(),
		CardsDetected:  s.cardsDetected.Load(),
		CallbackErrors: s.callbackErrors.Load(),
	}
}

func (s *Scanner) run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	defer s.removeCard()

	for {
		s.poll(time.Now())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll runs one detection cycle as of now
func (s *Scanner) poll(now time.Time) {
	s.pollCycles.Add(1)

	uid, err := s.device.DetectCard(s.config.Mode)
	switch {
	case err == nil:
		s.cardSeen(uid, now)
	case errors.Is(err, rc522.ErrNoTagDetected), errors.Is(err, rc522.ErrCardError):
		// A garbled answer is treated like silence; the removal timeout
		// debounces both.
		if s.state.expired(now, s.config.CardRemovalTimeout) {
			s.removeCard()
		}
	default:
		// Bus failures mean nothing can be said about the field
		s.pollErrors.Add(1)
		if s.OnError != nil {
			s.OnError(err)
		}
		s.removeCard()
	}
}

func (s *Scanner) cardSeen(uid rc522.UID, now time.Time) {
	if s.state.Present && s.state.UID != uid {
		s.removeCard()
	}
	if !s.state.seen(uid, now) {
		return
	}

	s.cardsDetected.Add(1)
	if s.OnCardDetected == nil {
		return
	}
	start := time.Now()
	if err := s.OnCardDetected(uid); err != nil {
		s.callbackErrors.Add(1)
		if s.OnError != nil {
			s.OnError(err)
		}
	}
	// Time spent in the callback does not count against the card
	s.state.LastSeen = now.Add(time.Since(start))
}

func (s *Scanner) removeCard() {
	if !s.state.Present {
		return
	}
	uid := s.state.UID
	s.state.reset()
	if s.OnCardRemoved != nil {
		s.OnCardRemoved(uid)
	}
}
