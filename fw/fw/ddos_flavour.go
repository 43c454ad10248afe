/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"time"
)

// Flavour distinguishes the two orthogonal mitigations a prefix record
// can carry (spec.md §3): fake-Interest mitigation (an upstream detected
// forged, non-consumable Interests) and valid-Interest-overload
// mitigation (an upstream is simply receiving more legitimate traffic
// than it can serve).
type Flavour int

const (
	FlavourFake Flavour = iota
	FlavourValid
)

func (f Flavour) String() string {
	if f == FlavourFake {
		return "fake"
	}
	return "valid"
}

// lastNackID returns, and setLastNackID stamps, the duplicate-suppression
// key for a flavour. The exponential-moving-average budget update is
// applied inline by Upsert below.
func (r *MitigationRecord) lastNackID(f Flavour) uint64 {
	if f == FlavourFake {
		return r.LastNackIDFake
	}
	return r.LastNackIDValid
}

func (r *MitigationRecord) setLastNackID(f Flavour, id uint64) {
	if f == FlavourFake {
		r.LastNackIDFake = id
	} else {
		r.LastNackIDValid = id
	}
}

func (r *MitigationRecord) lastNackTS(f Flavour) int64 {
	if f == FlavourFake {
		return r.LastNackTSFake
	}
	return r.LastNackTSValid
}

func (r *MitigationRecord) setLastNackTS(f Flavour, ts int64) {
	if f == FlavourFake {
		r.LastNackTSFake = ts
	} else {
		r.LastNackTSValid = ts
	}
}

func (r *MitigationRecord) active(f Flavour) bool {
	if f == FlavourFake {
		return r.FakeActive
	}
	return r.ValidActive
}

func (r *MitigationRecord) setActive(f Flavour, v bool) {
	if f == FlavourFake {
		r.FakeActive = v
	} else {
		r.ValidActive = v
	}
}

func (r *MitigationRecord) budget(f Flavour) uint64 {
	if f == FlavourFake {
		return r.FakeTolerance
	}
	return r.ValidCapacity
}

func (r *MitigationRecord) setBudget(f Flavour, v uint64) {
	if f == FlavourFake {
		r.FakeTolerance = v
	} else {
		r.ValidCapacity = v
	}
}

func (r *MitigationRecord) revertCounter(f Flavour) float64 {
	if f == FlavourFake {
		return r.RevertCounterFake
	}
	return r.RevertCounterValid
}

func (r *MitigationRecord) setRevertCounter(f Flavour, v float64) {
	if f == FlavourFake {
		r.RevertCounterFake = v
	} else {
		r.RevertCounterValid = v
	}
}

func (r *MitigationRecord) pushbackWeight(f Flavour) map[uint64]float64 {
	if f == FlavourFake {
		return r.FakePushbackWeight
	}
	return r.ValidPushbackWeight
}

func (r *MitigationRecord) setPushbackWeight(f Flavour, m map[uint64]float64) {
	if f == FlavourFake {
		r.FakePushbackWeight = m
	} else {
		r.ValidPushbackWeight = m
	}
}

func (r *MitigationRecord) isGoodConsumer(f Flavour) map[uint64]bool {
	if f == FlavourFake {
		return r.IsGoodConsumerFake
	}
	return r.IsGoodConsumerValid
}

// Upsert implements spec.md §4.2's upsert(nack) for a single flavour:
//  1. locate-or-create the record for prefix (handled by the caller via
//     RecordStore.GetOrCreate);
//  2. reject a duplicate nackId for this flavour (isDuplicate=true, record
//     unchanged);
//  3. set the active flag and apply the EMA budget update
//     (new = (old+received)/2 once already active, else set directly);
//  4. if the flavour's revert counter had already expired, discard its
//     stale pushback weights;
//  5. stamp the nack id/timestamp and reset the revert counter to
//     defaultRevertTicks (the configured default_revert_ticks).
func Upsert(r *MitigationRecord, f Flavour, nackID uint64, receivedBudget uint64, now time.Time, defaultRevertTicks float64) (isDuplicate bool) {
	if r.lastNackID(f) == nackID && r.active(f) {
		return true
	}

	wasActive := r.active(f)
	r.setActive(f, true)

	if wasActive {
		r.setBudget(f, (r.budget(f)+receivedBudget)/2)
	} else {
		r.setBudget(f, receivedBudget)
	}

	if r.revertCounter(f) <= 0 {
		r.setPushbackWeight(f, make(map[uint64]float64))
	}

	r.setLastNackID(f, nackID)
	r.setLastNackTS(f, now.UnixNano())
	r.setRevertCounter(f, defaultRevertTicks)

	return false
}
