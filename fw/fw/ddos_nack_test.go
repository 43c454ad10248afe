package fw

import (
	"testing"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
)

func fakeNack(prefixLen int, tolerance, nackID uint64, names []enc.Name) *defn.FwNack {
	return &defn.FwNack{
		Reason:            defn.NackReasonFakeInterest,
		PrefixLen:         prefixLen,
		Tolerance:         tolerance,
		NackId:            nackID,
		FakeInterestNames: names,
	}
}

// S1: single-face fake attack produces one pushback target with the full
// tolerance and transitions the record into existence.
func TestHandleFakeInterestNackSingleFace(t *testing.T) {
	pit := table.NewPit()
	insertPitWithInRecords(t, pit, "/a/x", 1)
	insertPitWithInRecords(t, pit, "/a/y", 1)

	store := NewRecordStore(3.0)
	names := []enc.Name{mustName(t, "/a/x"), mustName(t, "/a/y")}
	nack := fakeNack(1, 10, 1, names)

	prefix, targets, toRemove, dup := handleFakeInterestNack(
		store, pit, mustName(t, "/a/x"), nack, core.RoleConsumerGateway, nil, time.Now(), 3.0)

	assert.False(t, dup)
	assert.True(t, prefix.Equal(mustName(t, "/a")))
	assert.Equal(t, 2, len(toRemove))
	assert.Equal(t, 1, len(targets))
	assert.Equal(t, uint64(1), targets[0].Face)
	assert.InDelta(t, 1.0, targets[0].Weight, 1e-9)

	rec, ok := store.Get(mustName(t, "/a"))
	assert.True(t, ok)
	assert.True(t, rec.FakeActive)
}

// S3: replaying the identical NACK is suppressed as a duplicate (P5/P6).
func TestHandleFakeInterestNackDuplicateSuppressed(t *testing.T) {
	pit := table.NewPit()
	insertPitWithInRecords(t, pit, "/a/x", 1)

	store := NewRecordStore(3.0)
	nack := fakeNack(1, 10, 1, []enc.Name{mustName(t, "/a/x")})

	_, _, _, dup1 := handleFakeInterestNack(store, pit, mustName(t, "/a/x"), nack, core.RoleNormal, nil, time.Now(), 3.0)
	assert.False(t, dup1)

	_, targets2, toRemove2, dup2 := handleFakeInterestNack(store, pit, mustName(t, "/a/x"), nack, core.RoleNormal, nil, time.Now(), 3.0)
	assert.True(t, dup2)
	assert.Nil(t, targets2)
	assert.Nil(t, toRemove2)
}

// P7: two FAKE_INTEREST NACKs with disjoint names on the same prefix
// blend into a combined weight map that still sums to 1.
func TestHandleFakeInterestNackDisjointNamesMergeWeights(t *testing.T) {
	pit := table.NewPit()
	insertPitWithInRecords(t, pit, "/a/x", 1)
	insertPitWithInRecords(t, pit, "/a/w", 2)

	store := NewRecordStore(3.0)

	nack1 := fakeNack(1, 10, 1, []enc.Name{mustName(t, "/a/x")})
	handleFakeInterestNack(store, pit, mustName(t, "/a/x"), nack1, core.RoleNormal, nil, time.Now(), 3.0)

	nack2 := fakeNack(1, 10, 2, []enc.Name{mustName(t, "/a/w")})
	_, targets, _, dup := handleFakeInterestNack(store, pit, mustName(t, "/a/w"), nack2, core.RoleNormal, nil, time.Now(), 3.0)

	assert.False(t, dup)
	sum := 0.0
	for _, tg := range targets {
		sum += tg.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestHandleValidInterestOverloadNackDoesNotRemovePit(t *testing.T) {
	pit := table.NewPit()
	insertPitWithInRecords(t, pit, "/a/x", 1)
	insertPitWithInRecords(t, pit, "/a/y", 2)

	store := NewRecordStore(3.0)
	nack := &defn.FwNack{Reason: defn.NackReasonValidInterestOverload, PrefixLen: 1, Tolerance: 20, NackId: 7}

	prefix, targets, dup := handleValidInterestOverloadNack(
		store, pit, mustName(t, "/a/x"), nack, core.RoleNormal, nil, time.Now(), 3.0)

	assert.False(t, dup)
	assert.True(t, prefix.Equal(mustName(t, "/a")))
	assert.Equal(t, 2, len(targets))

	// Both PIT entries remain, since valid-overload never deletes.
	_, ok1 := pit.Find(mustName(t, "/a/x"))
	_, ok2 := pit.Find(mustName(t, "/a/y"))
	assert.True(t, ok1)
	assert.True(t, ok2)
}

// A prefix_len exceeding the NACK's own name length truncates to the full
// name rather than panicking or over-reading.
func TestNackedPrefixTruncatesOverlongPrefixLen(t *testing.T) {
	name := mustName(t, "/a/b")
	got := nackedPrefix(name, 99)
	assert.True(t, got.Equal(name))
}

// S6 (FIB half): hint change at the producer gateway erases the old FIB
// registration and installs the new one.
func TestApplyHintChangeInsertsReplacement(t *testing.T) {
	fib := table.NewFibStrategyTable()
	fib.Insert(mustName(t, "/old/route"), nil)

	applyHintChange(fib, loggableStub{}, mustName(t, "/old/route"), mustName(t, "/new/route"))

	_, oldOk := fib.FindLongestPrefixMatch(mustName(t, "/old/route"))
	newEntry, newOk := fib.FindLongestPrefixMatch(mustName(t, "/new/route"))
	assert.False(t, oldOk)
	assert.True(t, newOk)
	assert.True(t, newEntry.Name().Equal(mustName(t, "/new/route")))
}

// A pre-existing registration for the replacement prefix is not an error.
func TestApplyHintChangeToleratesExistingReplacement(t *testing.T) {
	fib := table.NewFibStrategyTable()
	fib.Insert(mustName(t, "/old/route"), nil)
	fib.Insert(mustName(t, "/new/route"), nil)

	assert.NotPanics(t, func() {
		applyHintChange(fib, loggableStub{}, mustName(t, "/old/route"), mustName(t, "/new/route"))
	})
}

type loggableStub struct{}

func (loggableStub) String() string { return "test" }
