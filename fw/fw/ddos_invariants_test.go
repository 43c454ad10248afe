/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"testing"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
)

// I1: whenever a pushback weight map is non-empty its values sum to ~1,
// across both single-round and merged-round pushback.
func TestInvariantI1WeightsSumToOne(t *testing.T) {
	pit := table.NewPit()
	insertPitWithInRecords(t, pit, "/a/x", 1, 2)
	insertPitWithInRecords(t, pit, "/a/y", 2, 3)

	rec := newMitigationRecord(mustName(t, "/a"), 3.0)
	names := []enc.Name{mustName(t, "/a/x"), mustName(t, "/a/y")}

	computeFakePushback(rec, names, pit, core.RoleNormal, nil)

	sum := 0.0
	for _, w := range rec.FakePushbackWeight {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

// I2: a face never appears in a record's per-face Interest buffer unless
// it also holds a live pushback weight (either flavour).
func TestInvariantI2BufferRequiresLiveWeight(t *testing.T) {
	s, thread := newTestDDoSStrategy(core.RoleConsumerGateway)
	addFace(thread, 1, true)
	addFace(thread, 2, true)

	rec, _ := s.store.GetOrCreate(mustName(t, "/a"))
	rec.FakePushbackWeight[1] = 1.0

	for face, buf := range rec.PerFaceInterestBuffer {
		if len(buf) == 0 {
			continue
		}
		_, inFake := rec.FakePushbackWeight[face]
		_, inValid := rec.ValidPushbackWeight[face]
		assert.True(t, inFake || inValid, "face %d buffered without a live weight", face)
	}

	assert.True(t, s.shouldBuffer(rec, 1))
	assert.False(t, s.shouldBuffer(rec, 2))
}

// I3: any record retained in the store has at least one flavour active.
func TestInvariantI3StoredRecordHasActiveFlavour(t *testing.T) {
	store := NewRecordStore(3.0)
	rec, _ := store.GetOrCreate(mustName(t, "/a"))
	rec.FakeActive = true

	store.EraseIdle()
	_, stillThere := store.Get(mustName(t, "/a"))
	assert.True(t, stillThere)

	rec.FakeActive = false
	store.EraseIdle()
	_, present := store.Get(mustName(t, "/a"))
	assert.False(t, present)
}
