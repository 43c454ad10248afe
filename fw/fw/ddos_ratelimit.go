/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/named-data/ndnd/fw/core"
)

// noFaceLimit is the sentinel token budget used when a flavour is inactive
// or carries no weight for a face (spec.md §4.4: "use a large sentinel
// when a flavour is inactive or the weight is absent").
const noFaceLimit = math.MaxInt64

// bernoulliRound splits rate into an integer part and a fractional part
// and rounds up with probability equal to the fractional part, matching
// spec.md §4.4's "i + Bernoulli(φ)".
func bernoulliRound(rate float64) int64 {
	i := math.Floor(rate)
	phi := rate - i
	limit := int64(i)
	if rand.Float64() < phi {
		limit++
	}
	return limit
}

// faceTokenLimit computes one flavour's token budget for face over a tick
// of length tick, per spec.md §4.4: rate = w·budget·T, Bernoulli-rounded.
// Returns noFaceLimit if the flavour is inactive or face carries no
// weight in weights.
func faceTokenLimit(active bool, weights map[uint64]float64, face uint64, budget uint64, tick time.Duration) int64 {
	if !active {
		return noFaceLimit
	}
	w, ok := weights[face]
	if !ok {
		return noFaceLimit
	}
	rate := w * float64(budget) * tick.Seconds()
	return bernoulliRound(rate)
}

// drainBuffers implements the Rate Limiter / Buffered Forwarder
// (spec.md §4.4). It is invoked once per tick at the consumer gateway for
// every record in the store. For each face with a non-empty buffer it
// computes the fake and valid token limits, marks the face a bad consumer
// under whichever flavour it overran, forwards up to the combined limit
// via forward (the strategy's load-balance primitive), and clears the
// buffer unconditionally — the remainder, if any, is dropped.
//
// mod is the Loggable identifying the calling strategy, for core.Log.
func drainBuffers(
	mod core.Loggable,
	rec *MitigationRecord,
	tick time.Duration,
	forward func(face uint64, bi BufferedInterest),
) {
	for face, buf := range rec.PerFaceInterestBuffer {
		if len(buf) == 0 {
			continue
		}

		limitFake := faceTokenLimit(rec.FakeActive, rec.FakePushbackWeight, face, rec.FakeTolerance, tick)
		if rec.FakeActive && limitFake != noFaceLimit && int64(len(buf)) > limitFake+1 {
			rec.IsGoodConsumerFake[face] = false
		}

		limitValid := faceTokenLimit(rec.ValidActive, rec.ValidPushbackWeight, face, rec.ValidCapacity, tick)
		if rec.ValidActive && limitValid != noFaceLimit && int64(len(buf)) > limitValid+1 {
			rec.IsGoodConsumerValid[face] = false
		}

		finalLimit := limitFake
		if limitValid < finalLimit {
			finalLimit = limitValid
		}
		if finalLimit < 0 {
			finalLimit = 0
		}

		n := int64(len(buf))
		if finalLimit < n {
			n = finalLimit
		}

		core.Log.Debug(mod, "Draining buffer", "face", face, "buffered", len(buf), "limit", finalLimit, "forwarded", n)
		for i := int64(0); i < n; i++ {
			forward(face, buf[i])
		}

		rec.PerFaceInterestBuffer[face] = rec.PerFaceInterestBuffer[face][:0]
	}
}
