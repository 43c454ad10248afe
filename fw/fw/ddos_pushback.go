/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// PushbackTarget is one (downstream face, apportioned weight, Interest
// manifest) tuple the Pushback Calculator hands back to the NACK Handler,
// per spec.md §4.3.
type PushbackTarget struct {
	Face   uint64
	Weight float64
	Names  []enc.Name
}

// consumerFaceSet reports, for each face id, whether it is a consumer
// face (faces the strategy's own Thread knows about).
type consumerFaceSet interface {
	IsConsumerFace(faceID uint64) bool
}

type threadConsumerFaces struct{ thread *Thread }

func (t threadConsumerFaces) IsConsumerFace(faceID uint64) bool {
	meta, ok := t.thread.Face(faceID)
	return ok && meta.IsConsumerFace
}

// computeFakePushback implements spec.md §4.3 "Fake mode": apportion
// nack's tolerance across the downstream faces responsible for the
// offending Interests in names, merge the result into rec's existing
// weight map, and report which PIT entries matched (for the caller to
// ddos_remove) together with the per-face Interest manifest.
func computeFakePushback(
	rec *MitigationRecord,
	names []enc.Name,
	pit *table.Pit,
	role core.RouterRole,
	consumers consumerFaceSet,
) (targets []PushbackTarget, matched []table.PitEntry) {
	d := len(names)
	if d == 0 {
		return nil, nil
	}

	tmp := make(map[uint64]float64)
	perFaceNames := make(map[uint64][]enc.Name)

	for _, name := range names {
		entry, ok := pit.Find(name)
		if !ok {
			continue // §7: unmatched name in NACK is skipped silently
		}
		inRecords := entry.InRecords()
		m := len(inRecords)
		if m == 0 {
			continue
		}
		for faceID := range inRecords {
			tmp[faceID] += 1.0 / (float64(d) * float64(m))
			perFaceNames[faceID] = append(perFaceNames[faceID], name)
		}
		matched = append(matched, entry)
	}

	merged := mergePushbackWeights(rec.FakePushbackWeight, tmp, role, consumers)
	rec.FakePushbackWeight = merged

	for face, weight := range merged {
		targets = append(targets, PushbackTarget{Face: face, Weight: weight, Names: perFaceNames[face]})
		rec.IsGoodConsumerFake[face] = true
	}
	return targets, matched
}

// computeValidPushback implements spec.md §4.3 "Valid mode": scan the PIT
// for every entry under prefix, weight each downstream face by its share
// of in-records across those entries, normalise by the entry count, and
// merge into rec's existing valid-flavour weight map.
func computeValidPushback(
	rec *MitigationRecord,
	prefix enc.Name,
	pit *table.Pit,
	role core.RouterRole,
	consumers consumerFaceSet,
) (targets []PushbackTarget) {
	tmp := make(map[uint64]float64)
	repName := make(map[uint64]enc.Name)
	m := 0

	for _, entry := range pit.Entries() {
		if !prefix.IsPrefix(entry.EncName()) {
			continue
		}
		inRecords := entry.InRecords()
		if len(inRecords) == 0 {
			continue
		}
		m++
		perEntry := len(inRecords)
		for faceID := range inRecords {
			tmp[faceID] += 1.0 / float64(perEntry)
			if _, ok := repName[faceID]; !ok {
				repName[faceID] = entry.EncName()
			}
		}
	}

	if m == 0 {
		return nil
	}
	for f := range tmp {
		tmp[f] /= float64(m)
	}

	merged := mergePushbackWeights(rec.ValidPushbackWeight, tmp, role, consumers)
	rec.ValidPushbackWeight = merged

	for face, weight := range merged {
		names := []enc.Name(nil)
		if n, ok := repName[face]; ok {
			names = []enc.Name{n}
		}
		targets = append(targets, PushbackTarget{Face: face, Weight: weight, Names: names})
		rec.IsGoodConsumerValid[face] = true
	}
	return targets
}

// mergePushbackWeights implements the merge policy common to both
// pushback modes (spec.md §4.3):
//   - an empty existing map adopts tmp directly (with consumer fairness
//     applied at the consumer gateway);
//   - a non-empty existing map that gains a face absent from it blends
//     every shared-or-new face toward tmp by averaging, then renormalises
//     so weights still sum to 1 (I1) — the source branch that merely
//     halves without renormalising is the bug spec.md §9 calls out;
//   - otherwise (tmp introduces nothing new) the existing map is left
//     untouched.
func mergePushbackWeights(
	existing map[uint64]float64,
	tmp map[uint64]float64,
	role core.RouterRole,
	consumers consumerFaceSet,
) map[uint64]float64 {
	if len(existing) == 0 {
		adopted := make(map[uint64]float64, len(tmp))
		for f, w := range tmp {
			adopted[f] = w
		}
		if role == core.RoleConsumerGateway {
			applyConsumerFairness(adopted, consumers)
		}
		return adopted
	}

	introducesNew := false
	for f := range tmp {
		if _, ok := existing[f]; !ok {
			introducesNew = true
			break
		}
	}
	if !introducesNew {
		return existing
	}

	union := make(map[uint64]struct{}, len(existing)+len(tmp))
	for f := range existing {
		union[f] = struct{}{}
	}
	for f := range tmp {
		union[f] = struct{}{}
	}

	blended := make(map[uint64]float64, len(union))
	for f := range union {
		blended[f] = (existing[f] + tmp[f]) / 2
	}
	renormalize(blended)
	return blended
}

// applyConsumerFairness replaces each consumer-facing face's weight with
// the average weight across all consumer-facing faces, leaving
// non-consumer (router-to-router) faces untouched — an equal split among
// downstream consumers regardless of how lopsided the raw PIT evidence
// was.
func applyConsumerFairness(weights map[uint64]float64, consumers consumerFaceSet) {
	if consumers == nil {
		return
	}
	sum := 0.0
	count := 0
	for f, w := range weights {
		if consumers.IsConsumerFace(f) {
			sum += w
			count++
		}
	}
	if count == 0 {
		return
	}
	avg := sum / float64(count)
	for f := range weights {
		if consumers.IsConsumerFace(f) {
			weights[f] = avg
		}
	}
}

// renormalize scales weights so they sum to 1, satisfying I1. A no-op on
// an empty map (nothing to renormalise to).
func renormalize(weights map[uint64]float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return
	}
	for f, w := range weights {
		weights[f] = w / sum
	}
}
