/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// nackedPrefix truncates nack's declared prefix length to the name it is
// actually carried on, per spec.md §4.1's "a NACK whose prefix_len exceeds
// its own name length truncates to the full name".
func nackedPrefix(name enc.Name, prefixLen int) enc.Name {
	if prefixLen > len(name) || prefixLen < 0 {
		prefixLen = len(name)
	}
	return name.Prefix(prefixLen)
}

// handleFakeInterestNack implements spec.md §4.1's FAKE_INTEREST branch:
// upsert the record, reject duplicates, and run the Pushback Calculator in
// fake mode. Returns the mitigated prefix, the outgoing pushback targets,
// the PIT entries to ddos_remove, and whether the NACK was a duplicate.
func handleFakeInterestNack(
	store *RecordStore,
	pit *table.Pit,
	name enc.Name,
	nack *defn.FwNack,
	role core.RouterRole,
	consumers consumerFaceSet,
	now time.Time,
	defaultRevertTicks float64,
) (prefix enc.Name, targets []PushbackTarget, toRemove []table.PitEntry, isDuplicate bool) {
	prefix = nackedPrefix(name, nack.PrefixLen)
	rec, _ := store.GetOrCreate(prefix)

	if Upsert(rec, FlavourFake, nack.NackId, nack.Tolerance, now, defaultRevertTicks) {
		return prefix, nil, nil, true
	}

	targets, toRemove = computeFakePushback(rec, nack.FakeInterestNames, pit, role, consumers)
	return prefix, targets, toRemove, false
}

// handleValidInterestOverloadNack implements spec.md §4.1's
// VALID_INTEREST_OVERLOAD branch: upsert the record and run the Pushback
// Calculator in valid mode. PIT entries are never marked for removal here
// — valid Interests remain pending, only their rate is throttled.
func handleValidInterestOverloadNack(
	store *RecordStore,
	pit *table.Pit,
	name enc.Name,
	nack *defn.FwNack,
	role core.RouterRole,
	consumers consumerFaceSet,
	now time.Time,
	defaultRevertTicks float64,
) (prefix enc.Name, targets []PushbackTarget, isDuplicate bool) {
	prefix = nackedPrefix(name, nack.PrefixLen)
	rec, _ := store.GetOrCreate(prefix)

	if Upsert(rec, FlavourValid, nack.NackId, nack.Tolerance, now, defaultRevertTicks) {
		return prefix, nil, true
	}

	targets = computeValidPushback(rec, prefix, pit, role, consumers)
	return prefix, targets, false
}

// applyHintChange implements the producer-gateway half of spec.md §4.1's
// HINT_CHANGE_NOTICE branch: re-register the prefix under the replacement
// name carried as the NACK's first name. A pre-existing registration for
// the new name is not an error (§7: "if insert reports already exists,
// log and proceed").
func applyHintChange(fib *table.FibStrategyTable, mod core.Loggable, oldPrefix, newPrefix enc.Name) {
	fib.Erase(oldPrefix)
	if _, inserted := fib.Insert(newPrefix, nil); !inserted {
		core.Log.Debug(mod, "FIB entry for hint-change target already exists", "prefix", newPrefix)
	}
}
