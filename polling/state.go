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

package polling

import (
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
)

// CardState tracks the card currently in the reader's field
type CardState struct {
	LastSeen time.Time
	UID      rc522.UID
	Present  bool
}

// seen records a detection at now. It reports whether uid is a new card,
// either because the field was empty or because a different card replaced
// the previous one.
func (cs *CardState) seen(uid rc522.UID, now time.Time) (isNew bool) {
	isNew = !cs.Present || cs.UID != uid
	cs.Present = true
	cs.UID = uid
	cs.LastSeen = now
	return isNew
}

// expired reports whether a present card has gone unseen for timeout
func (cs *CardState) expired(now time.Time, timeout time.Duration) bool {
	return cs.Present && now.Sub(cs.LastSeen) >= timeout
}

func (cs *CardState) reset() {
	*cs = CardState{}
}
