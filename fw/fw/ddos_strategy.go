/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"math"
	"sync"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// defaultInterestLifetime is used when re-inserting a PIT entry for a
// buffered Interest whose original entry has since expired or been
// satisfied (spec.md §7); the Interest itself carries no lifetime once
// buffered.
const defaultInterestLifetime = 4 * time.Second

// ddosState is the strategy's NORMAL/ATTACK tag (spec.md §3, "global
// strategy state").
type ddosState int

const (
	stateNormal ddosState = iota
	stateAttack
)

func (s ddosState) String() string {
	if s == stateAttack {
		return "ATTACK"
	}
	return "NORMAL"
}

// DdosStrategyConfig is consulted by Instantiate when a DDoSStrategy is
// constructed; set it (from a loaded core.Config) before the forwarding
// thread instantiates strategies, the way the daemon's bootstrap applies
// every other subsystem's configuration ahead of first use.
var DdosStrategyConfig = core.DefaultDdosConfig()

// DDoSStrategy implements the pushback mitigation strategy: spec.md's
// NACK Handler, Pushback Calculator, Rate Limiter/Buffered Forwarder,
// Interest Handler, and State Machine/Recovery tick, wired together.
type DDoSStrategy struct {
	StrategyBase

	mu    sync.Mutex
	cfg   core.DdosConfig
	store *RecordStore
	state ddosState

	revertHandle *SchedHandle
}

func init() {
	strategyInit = append(strategyInit, func() Strategy { return &DDoSStrategy{} })
	StrategyVersions["ddos"] = []uint64{1}
}

// Instantiate wires the strategy to fwThread and seeds its record store
// from DdosStrategyConfig.
func (s *DDoSStrategy) Instantiate(fwThread *Thread) {
	s.NewStrategyBase(fwThread, "ddos", 1)
	s.cfg = DdosStrategyConfig
	s.store = NewRecordStore(s.cfg.DefaultRevertTicks)
	s.state = stateNormal
}

// AfterContentStoreHit forwards the cached Data the same way every
// strategy does; the DDoS strategy has no Content-Store-specific
// behaviour.
func (s *DDoSStrategy) AfterContentStoreHit(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	s.SendData(packet, pitEntry, inFace, 0)
}

// AfterReceiveData satisfies every downstream in-record; the DDoS
// strategy does not inspect Data on the return path.
func (s *DDoSStrategy) AfterReceiveData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	for faceID := range pitEntry.InRecords() {
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

// BeforeSatisfyInterest is a no-op; the strategy has nothing to do before
// a pending Interest is satisfied.
func (s *DDoSStrategy) BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64) {
}

// AfterReceiveInterest is the Interest Handler of spec.md §4.5.
func (s *DDoSStrategy) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
	nexthops []*table.FibNextHopEntry,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pitEntry.HasOutRecords() {
		core.Log.Trace(s, "Retransmission, ignoring", "name", packet.Name)
		return
	}

	rec, matched := s.store.FindLongestMatch(packet.Name)
	if !matched {
		nexthop, ok := s.BestRoute(inFace, pitEntry, nexthops)
		if !ok {
			core.Log.Debug(s, "No route for Interest", "name", packet.Name)
			s.RejectPendingInterest(pitEntry)
			return
		}
		s.SendInterest(packet, pitEntry, nexthop, inFace)
		return
	}

	if s.shouldBuffer(rec, inFace) {
		s.bufferInterest(rec, inFace, packet.L3.Interest)
		return
	}

	nexthop, ok := s.LoadBalance(inFace, pitEntry, nexthops)
	if !ok {
		core.Log.Debug(s, "No eligible nexthop for Interest", "name", packet.Name)
		s.RejectPendingInterest(pitEntry)
		return
	}
	s.SendInterest(packet, pitEntry, nexthop, inFace)
}

// shouldBuffer implements §4.5 step 4: buffering requires the consumer
// gateway role, a consumer-facing arriving face, and that face already
// carrying a pushback weight under one of the two flavours.
func (s *DDoSStrategy) shouldBuffer(rec *MitigationRecord, inFace uint64) bool {
	if s.cfg.RouterRole != core.RoleConsumerGateway {
		return false
	}
	face, ok := s.Thread().Face(inFace)
	if !ok || !face.IsConsumerFace {
		return false
	}
	if _, ok := rec.FakePushbackWeight[inFace]; ok {
		return true
	}
	if _, ok := rec.ValidPushbackWeight[inFace]; ok {
		return true
	}
	return false
}

// bufferInterest appends a deep copy of interest's name and parameters to
// rec's per-face buffer, dropping it tail-first if max_buffer_per_face is
// configured and already full.
func (s *DDoSStrategy) bufferInterest(rec *MitigationRecord, face uint64, interest *defn.FwInterest) {
	buf := rec.PerFaceInterestBuffer[face]
	if s.cfg.MaxBufferPerFace > 0 && len(buf) >= s.cfg.MaxBufferPerFace {
		core.Log.Debug(s, "Buffer full, dropping Interest", "face", face, "name", interest.NameV)
		return
	}

	paramsCopy := *interest
	paramsCopy.NameV = interest.NameV.Clone()
	rec.PerFaceInterestBuffer[face] = append(buf, BufferedInterest{Name: paramsCopy.NameV, Params: &paramsCopy})
}

// AfterReceiveNack is the NACK Handler of spec.md §4.1, dispatching on
// reason to the Pushback Calculator, the HINT_CHANGE_NOTICE FIB/PIT
// update, or the default in-record forwarding path.
func (s *DDoSStrategy) AfterReceiveNack(packet *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nack := packet.L3.Nack
	if nack == nil {
		return
	}
	name := nack.Name()
	if name == nil {
		name = packet.Name
	}
	consumers := threadConsumerFaces{thread: s.Thread()}

	switch nack.Reason {
	case defn.NackReasonFakeInterest:
		_, targets, toRemove, dup := handleFakeInterestNack(
			s.store, s.Thread().Pit, name, nack, s.cfg.RouterRole, consumers, time.Now(), s.cfg.DefaultRevertTicks)
		if dup {
			core.Log.Debug(s, "Duplicate FAKE_INTEREST Nack, dropping", "nack_id", nack.NackId)
			return
		}
		s.emitPushback(targets, defn.NackReasonFakeInterest, nack.PrefixLen, nack.Tolerance, nack.NackId)
		for _, entry := range toRemove {
			s.Thread().Pit.DdosRemove(entry)
		}
		s.enterAttack()

	case defn.NackReasonValidInterestOverload:
		_, targets, dup := handleValidInterestOverloadNack(
			s.store, s.Thread().Pit, name, nack, s.cfg.RouterRole, consumers, time.Now(), s.cfg.DefaultRevertTicks)
		if dup {
			core.Log.Debug(s, "Duplicate VALID_INTEREST_OVERLOAD Nack, dropping", "nack_id", nack.NackId)
			return
		}
		s.emitPushback(targets, defn.NackReasonValidInterestOverload, nack.PrefixLen, nack.Tolerance, nack.NackId)
		s.enterAttack()

	case defn.NackReasonHintChangeNotice:
		s.handleHintChange(name, pitEntry, nack)

	default:
		s.forwardNackToInRecords(pitEntry, nack)
	}
}

// emitPushback sends one outgoing Nack per pushback target, tolerance
// rounded per spec.md §4.3's "numeric detail".
func (s *DDoSStrategy) emitPushback(targets []PushbackTarget, reason defn.NackReason, prefixLen int, tolerance uint64, nackID uint64) {
	for _, t := range targets {
		face, ok := s.Thread().Face(t.Face)
		if !ok {
			continue
		}
		face.Sink.SendNack(&defn.FwNack{
			Reason:            reason,
			PrefixLen:         prefixLen,
			Tolerance:         uint64(math.Round(float64(tolerance) * t.Weight)),
			NackId:            nackID,
			FakeInterestNames: t.Names,
		})
	}
}

// forwardNackToInRecords forwards nack on every in-record face of
// pitEntry, the default Nack-processing behaviour (spec.md §4.1 "other").
func (s *DDoSStrategy) forwardNackToInRecords(pitEntry table.PitEntry, nack *defn.FwNack) {
	for faceID := range pitEntry.InRecords() {
		if face, ok := s.Thread().Face(faceID); ok {
			face.Sink.SendNack(nack)
		}
	}
}

// handleHintChange implements spec.md §4.1's HINT_CHANGE_NOTICE branch,
// role-dependent.
func (s *DDoSStrategy) handleHintChange(name enc.Name, pitEntry table.PitEntry, nack *defn.FwNack) {
	oldPrefix := nackedPrefix(name, nack.PrefixLen)

	switch s.cfg.RouterRole {
	case core.RoleProducerGateway:
		if len(nack.FakeInterestNames) > 0 {
			applyHintChange(s.Thread().Fib, s, oldPrefix, nack.FakeInterestNames[0])
		}
		s.forwardNackToInRecords(pitEntry, nack)
		s.Thread().Pit.DdosRemove(pitEntry)

	case core.RoleConsumerGateway:
		rec, hasRec := s.store.Get(oldPrefix)
		for faceID := range pitEntry.InRecords() {
			if hasRec && isMarkedBadConsumer(rec, faceID) {
				continue
			}
			if face, ok := s.Thread().Face(faceID); ok {
				face.Sink.SendNack(nack)
			}
		}

	default:
		s.forwardNackToInRecords(pitEntry, nack)
	}
}

// isMarkedBadConsumer reports whether faceID has been explicitly flagged
// a bad consumer under either flavour.
func isMarkedBadConsumer(rec *MitigationRecord, faceID uint64) bool {
	if good, ok := rec.IsGoodConsumerFake[faceID]; ok && !good {
		return true
	}
	if good, ok := rec.IsGoodConsumerValid[faceID]; ok && !good {
		return true
	}
	return false
}

// enterAttack transitions to ATTACK and arms the revert timer if it is
// not already armed, or re-arms it to max(remaining, T) otherwise
// (spec.md §5, "Cancellation").
func (s *DDoSStrategy) enterAttack() {
	s.state = stateAttack

	remaining := s.Thread().Scheduler.Remaining(s.revertHandle)
	d := s.cfg.TickInterval
	if remaining > d {
		d = remaining
	}
	s.Thread().Scheduler.Cancel(s.revertHandle)
	s.revertHandle = s.Thread().Scheduler.Schedule(d, s.revertTick)
}

// revertTick is the State Machine/Recovery tick of spec.md §4.6. It runs
// on the scheduler's timer goroutine, so it takes the same mutex as the
// synchronous entry points.
func (s *DDoSStrategy) revertTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.RouterRole == core.RoleConsumerGateway {
		for _, rec := range s.store.All() {
			drainBuffers(s, rec, s.cfg.TickInterval, s.forwardBuffered)
		}
	}

	now := time.Now()
	for _, rec := range s.store.All() {
		s.revertFlavour(rec, FlavourFake, now)
		s.revertFlavour(rec, FlavourValid, now)
	}

	s.store.EraseIdle()

	if s.store.Len() == 0 {
		s.state = stateNormal
		s.revertHandle = nil
		return
	}
	s.revertHandle = s.Thread().Scheduler.Schedule(s.cfg.TickInterval, s.revertTick)
}

// revertFlavour applies one flavour's recovery step to rec, per spec.md
// §4.6 steps 2a-2c. T in "decrement revert_counter by T" is read as one
// tick (see DESIGN.md): a literal tick_interval value (e.g. 0.1) would
// take thirty ticks to exhaust the default counter of 3.0, contradicting
// scenario S5's "after 3 ticks".
func (s *DDoSStrategy) revertFlavour(rec *MitigationRecord, f Flavour, now time.Time) {
	if !rec.active(f) {
		return
	}

	lastTS := rec.lastNackTS(f)
	if lastTS != 0 && now.Sub(time.Unix(0, lastTS)) < s.cfg.TickInterval {
		return // grace window: a NACK arrived within the last tick
	}

	rec.setRevertCounter(f, rec.revertCounter(f)-1.0)
	if rec.revertCounter(f) > 0 {
		return
	}

	if s.cfg.RouterRole != core.RoleConsumerGateway {
		rec.setActive(f, false)
		return
	}

	weights := rec.pushbackWeight(f)
	for face, good := range rec.isGoodConsumer(f) {
		if !good {
			continue
		}
		if _, ok := weights[face]; !ok {
			continue
		}
		delete(weights, face)
		if faceMeta, ok := s.Thread().Face(face); ok {
			faceMeta.Sink.SendNack(&defn.FwNack{Reason: defn.NackReasonResetRate, PrefixLen: len(rec.Prefix), Tolerance: 0})
		}
	}
	rec.setPushbackWeight(f, weights)

	if len(weights) == 0 {
		rec.setActive(f, false)
		return
	}
	rec.setRevertCounter(f, s.cfg.DefaultRevertTicks)
	rec.setBudget(f, rec.budget(f)/2)
}

// forwardBuffered re-admits one drained buffered Interest via the
// strategy's load-balance primitive, creating a fresh PIT entry if the
// original one has since been satisfied or expired (spec.md §7).
func (s *DDoSStrategy) forwardBuffered(face uint64, bi BufferedInterest) {
	pitEntry, _ := s.Thread().Pit.FindOrInsert(bi.Params, defaultInterestLifetime)

	fibEntry, ok := s.Thread().Fib.FindLongestPrefixMatch(bi.Name)
	if !ok {
		core.Log.Debug(s, "No FIB entry for buffered Interest", "name", bi.Name)
		s.RejectPendingInterest(pitEntry)
		return
	}
	nexthop, ok := s.LoadBalance(face, pitEntry, fibEntry.GetNextHops())
	if !ok {
		core.Log.Debug(s, "No eligible nexthop for buffered Interest", "name", bi.Name)
		s.RejectPendingInterest(pitEntry)
		return
	}

	packet := &defn.Pkt{Name: bi.Name, L3: defn.L3Pkt{Interest: bi.Params}}
	s.SendInterest(packet, pitEntry, nexthop, face)
}
