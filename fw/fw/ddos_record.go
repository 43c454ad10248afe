/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"github.com/named-data/ndnd/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// BufferedInterest is one Interest buffered at the consumer gateway,
// waiting to be metered and forwarded on the next revert tick.
type BufferedInterest struct {
	Name   enc.Name
	Params *defn.FwInterest
}

// MitigationRecord is the per-prefix mitigation state of spec.md §3: one
// record exists for every name prefix currently under mitigation, created
// on the first DDoS Nack for that prefix and destroyed once both
// mitigation flavours have been released and no Interests remain buffered.
//
// Field names mirror the spec 1:1 so the NACK handler, pushback
// calculator, rate limiter, and recovery tick can all be read next to
// spec.md §3 without a name-translation step.
type MitigationRecord struct {
	Prefix enc.Name

	FakeActive  bool
	ValidActive bool

	FakeTolerance uint64
	ValidCapacity uint64

	FakePushbackWeight  map[uint64]float64
	ValidPushbackWeight map[uint64]float64

	// PerFaceInterestBuffer is only populated at the consumer gateway.
	PerFaceInterestBuffer map[uint64][]BufferedInterest

	IsGoodConsumerFake  map[uint64]bool
	IsGoodConsumerValid map[uint64]bool

	LastNackIDFake  uint64
	LastNackIDValid uint64
	LastNackTSFake  int64 // unix nanos; zero means "never"
	LastNackTSValid int64

	RevertCounterFake  float64
	RevertCounterValid float64
}

// newMitigationRecord constructs a freshly-created record per §4.2 step 2:
// both flavours inactive, both revert counters at defaultRevertTicks (the
// configured default_revert_ticks), and every map empty but non-nil.
func newMitigationRecord(prefix enc.Name, defaultRevertTicks float64) *MitigationRecord {
	return &MitigationRecord{
		Prefix:                prefix,
		FakePushbackWeight:    make(map[uint64]float64),
		ValidPushbackWeight:   make(map[uint64]float64),
		PerFaceInterestBuffer: make(map[uint64][]BufferedInterest),
		IsGoodConsumerFake:    make(map[uint64]bool),
		IsGoodConsumerValid:   make(map[uint64]bool),
		RevertCounterFake:     defaultRevertTicks,
		RevertCounterValid:    defaultRevertTicks,
	}
}

// Idle reports whether the record has been fully released: both
// mitigation flavours off, per I3 this record should be erased.
func (r *MitigationRecord) Idle() bool {
	return !r.FakeActive && !r.ValidActive
}

// RecordStore is the Prefix-Record Store: the mapping from name prefix to
// mitigation record (spec.md §2, Prefix-Record Store). Lookup, insert, and
// erase are all the store needs to provide; prefix matching for an
// arriving Interest is a longest-prefix scan over its (small, mitigation
// is rare) contents.
type RecordStore struct {
	byPrefix map[string]*MitigationRecord

	// defaultRevertTicks seeds every new record's revert counters; it is
	// the configured default_revert_ticks (spec.md §6), not a constant,
	// so operators can tune recovery speed per deployment.
	defaultRevertTicks float64
}

// NewRecordStore constructs an empty store whose records are seeded with
// defaultRevertTicks.
func NewRecordStore(defaultRevertTicks float64) *RecordStore {
	return &RecordStore{
		byPrefix:           make(map[string]*MitigationRecord),
		defaultRevertTicks: defaultRevertTicks,
	}
}

// Len reports how many prefixes are currently under mitigation. Per P2,
// the strategy is in ATTACK iff this is non-zero.
func (s *RecordStore) Len() int {
	return len(s.byPrefix)
}

// Get returns the record for an exact prefix match, if any.
func (s *RecordStore) Get(prefix enc.Name) (*MitigationRecord, bool) {
	r, ok := s.byPrefix[prefix.String()]
	return r, ok
}

// GetOrCreate returns the existing record for prefix, or creates one.
// Returns the record and whether it was newly created.
func (s *RecordStore) GetOrCreate(prefix enc.Name) (*MitigationRecord, bool) {
	if r, ok := s.byPrefix[prefix.String()]; ok {
		return r, false
	}
	r := newMitigationRecord(prefix, s.defaultRevertTicks)
	s.byPrefix[prefix.String()] = r
	return r, true
}

// Erase removes a record outright.
func (s *RecordStore) Erase(prefix enc.Name) {
	delete(s.byPrefix, prefix.String())
}

// FindLongestMatch returns the record whose prefix is the longest
// registered prefix of name, per §4.5 step 2 ("pick the longest match").
// The store is assumed to enforce non-overlap of mitigated prefixes, so
// in practice at most one record ever matches.
func (s *RecordStore) FindLongestMatch(name enc.Name) (*MitigationRecord, bool) {
	var best *MitigationRecord
	bestLen := -1
	for _, r := range s.byPrefix {
		if r.Prefix.IsPrefix(name) && len(r.Prefix) > bestLen {
			best = r
			bestLen = len(r.Prefix)
		}
	}
	return best, best != nil
}

// All returns every record currently in the store, for use by the
// revert-tick sweep (§4.6).
func (s *RecordStore) All() []*MitigationRecord {
	out := make([]*MitigationRecord, 0, len(s.byPrefix))
	for _, r := range s.byPrefix {
		out = append(out, r)
	}
	return out
}

// EraseIdle removes every record with both flavours inactive, per I3 and
// §4.6 step 3.
func (s *RecordStore) EraseIdle() {
	for key, r := range s.byPrefix {
		if r.Idle() {
			delete(s.byPrefix, key)
		}
	}
}
