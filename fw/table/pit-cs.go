/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package table holds the Pending Interest Table, Content Store, and FIB:
// the shared tables a forwarding strategy consults and mutates. The DDoS
// strategy treats these as black-box collaborators (lookup, insert, erase)
// and never reaches into their internals directly.
package table

import (
	"time"

	"github.com/named-data/ndnd/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// PitInRecord records one downstream face that has an outstanding copy of
// an Interest pending in the PIT.
type PitInRecord struct {
	Face            uint64
	LatestNonce     uint32
	LatestTimestamp time.Time
	PitToken        []byte
	ExpirationTime  time.Time
}

// PitOutRecord records one upstream face an Interest was forwarded to.
type PitOutRecord struct {
	Face            uint64
	LatestNonce     uint32
	LatestTimestamp time.Time
	ExpirationTime  time.Time
}

// PitEntry is the view of a pending Interest a strategy operates on.
type PitEntry interface {
	EncName() enc.Name
	CanBePrefix() bool
	MustBeFresh() bool
	ForwardingHintNew() enc.Name
	InRecords() map[uint64]*PitInRecord
	OutRecords() map[uint64]*PitOutRecord
	ClearInRecords()
	ClearOutRecords()
	ExpirationTime() time.Time
	Satisfied() bool
	SetSatisfied(value bool)
	Token() uint32

	// Interest returns the Interest this PIT entry was created for.
	Interest() *defn.FwInterest

	// InsertInRecord inserts or refreshes the in-record for faceID,
	// reporting whether one already existed and, if so, its previous
	// nonce.
	InsertInRecord(interest *defn.FwInterest, faceID uint64, pitToken []byte) (*PitInRecord, bool, uint32)

	// InsertOutRecord inserts or refreshes the out-record for faceID.
	InsertOutRecord(interest *defn.FwInterest, faceID uint64) *PitOutRecord

	// GetOutRecord returns the out-record for faceID, if any.
	GetOutRecord(faceID uint64) (*PitOutRecord, bool)

	// HasOutRecords reports whether any out-record exists.
	HasOutRecords() bool
}

type basePitEntry struct {
	encname           enc.Name
	canBePrefix       bool
	mustBeFresh       bool
	forwardingHintNew enc.Name
	expirationTime    time.Time
	satisfied         bool
	token             uint32

	interest   *defn.FwInterest
	inRecords  map[uint64]*PitInRecord
	outRecords map[uint64]*PitOutRecord
}

func (e *basePitEntry) EncName() enc.Name               { return e.encname }
func (e *basePitEntry) CanBePrefix() bool                { return e.canBePrefix }
func (e *basePitEntry) MustBeFresh() bool                { return e.mustBeFresh }
func (e *basePitEntry) ForwardingHintNew() enc.Name      { return e.forwardingHintNew }
func (e *basePitEntry) ExpirationTime() time.Time        { return e.expirationTime }
func (e *basePitEntry) Satisfied() bool                  { return e.satisfied }
func (e *basePitEntry) Token() uint32                    { return e.token }
func (e *basePitEntry) Interest() *defn.FwInterest       { return e.interest }

func (e *basePitEntry) setExpirationTime(t time.Time) { e.expirationTime = t }
func (e *basePitEntry) SetSatisfied(value bool)       { e.satisfied = value }

// InRecords returns the in-record map, lazily initialised so a zero-value
// basePitEntry behaves the same as one built through the constructor.
func (e *basePitEntry) InRecords() map[uint64]*PitInRecord {
	if e.inRecords == nil {
		e.inRecords = make(map[uint64]*PitInRecord)
	}
	return e.inRecords
}

func (e *basePitEntry) OutRecords() map[uint64]*PitOutRecord {
	if e.outRecords == nil {
		e.outRecords = make(map[uint64]*PitOutRecord)
	}
	return e.outRecords
}

func (e *basePitEntry) ClearInRecords() {
	e.inRecords = make(map[uint64]*PitInRecord)
}

func (e *basePitEntry) ClearOutRecords() {
	e.outRecords = make(map[uint64]*PitOutRecord)
}

// InsertInRecord inserts a new in-record for faceID, or updates the
// existing one in place (refreshing its nonce and timestamp) and reports
// the nonce it is replacing.
func (e *basePitEntry) InsertInRecord(
	interest *defn.FwInterest,
	faceID uint64,
	pitToken []byte,
) (*PitInRecord, bool, uint32) {
	records := e.InRecords()
	nonce := interest.NonceV.GetOr(0)

	if existing, ok := records[faceID]; ok {
		prevNonce := existing.LatestNonce
		existing.LatestNonce = nonce
		existing.LatestTimestamp = time.Now()
		existing.PitToken = pitToken
		return existing, true, prevNonce
	}

	record := &PitInRecord{
		Face:            faceID,
		LatestNonce:     nonce,
		LatestTimestamp: time.Now(),
		PitToken:        pitToken,
	}
	records[faceID] = record
	return record, false, 0
}

func (e *basePitEntry) InsertOutRecord(interest *defn.FwInterest, faceID uint64) *PitOutRecord {
	records := e.OutRecords()
	nonce := interest.NonceV.GetOr(0)

	if existing, ok := records[faceID]; ok {
		existing.LatestNonce = nonce
		existing.LatestTimestamp = time.Now()
		return existing
	}

	record := &PitOutRecord{
		Face:            faceID,
		LatestNonce:     nonce,
		LatestTimestamp: time.Now(),
	}
	records[faceID] = record
	return record
}

func (e *basePitEntry) GetOutRecord(faceID uint64) (*PitOutRecord, bool) {
	r, ok := e.OutRecords()[faceID]
	return r, ok
}

func (e *basePitEntry) HasOutRecords() bool {
	return len(e.OutRecords()) > 0
}

// Pit is the Pending Interest Table: every Interest the forwarder is
// currently waiting on a Data (or Nack) for, indexed by name.
type Pit struct {
	entries map[string]*basePitEntry
}

// NewPit constructs an empty PIT.
func NewPit() *Pit {
	return &Pit{entries: make(map[string]*basePitEntry)}
}

// Find returns the PIT entry for an exact name match, if any.
func (p *Pit) Find(name enc.Name) (PitEntry, bool) {
	e, ok := p.entries[name.String()]
	if !ok {
		return nil, false
	}
	return e, true
}

// FindOrInsert returns the existing entry for interest.NameV, or creates
// one with a fresh expiration.
func (p *Pit) FindOrInsert(interest *defn.FwInterest, lifetime time.Duration) (PitEntry, bool) {
	key := interest.NameV.String()
	if e, ok := p.entries[key]; ok {
		return e, true
	}
	e := &basePitEntry{
		encname:        interest.NameV,
		canBePrefix:    interest.CanBePrefixV,
		mustBeFresh:    interest.MustBeFreshV,
		interest:       interest,
		expirationTime: time.Now().Add(lifetime),
	}
	p.entries[key] = e
	return e, false
}

// Entries returns every PIT entry currently pending, for use by components
// that must scan the whole table (e.g. the valid-overload pushback
// calculator).
func (p *Pit) Entries() []PitEntry {
	out := make([]PitEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// DdosRemove deletes a PIT entry outright, bypassing the normal
// satisfy/expire lifecycle. Used when a DDoS Nack reports that an Interest
// was never going to be served and downstream should stop waiting on it.
func (p *Pit) DdosRemove(entry PitEntry) {
	delete(p.entries, entry.EncName().String())
}

// baseCsEntry is a minimal Content Store entry: enough for the Multicast
// strategy's content-store-hit path. Wire encoding/decoding of Data is
// outside this repository's scope, so entries are stored already parsed.
type baseCsEntry struct {
	index     uint64
	staleTime time.Time
	name      enc.Name
	wire      []byte
}

func (e *baseCsEntry) Index() uint64         { return e.index }
func (e *baseCsEntry) StaleTime() time.Time  { return e.staleTime }

// Copy returns a shallow copy of the cached Data (by name) and its wire
// encoding, suitable for handing to a strategy's AfterContentStoreHit.
func (e *baseCsEntry) Copy() (*defn.FwData, []byte, error) {
	return &defn.FwData{NameV: e.name}, e.wire, nil
}
