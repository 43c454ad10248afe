/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package fw holds the forwarding strategies: the pluggable logic invoked
// by a forwarding thread on Interest arrival, Data arrival, Nack arrival,
// and Content Store hit.
package fw

import (
	"fmt"

	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// Strategy is the interface every forwarding strategy implements. A
// forwarding thread dispatches to exactly one of these callbacks per
// packet arrival or Content Store hit; none of them may block.
type Strategy interface {
	Instantiate(fwThread *Thread)
	String() string

	AfterContentStoreHit(packet *defn.Pkt, pitEntry table.PitEntry, inFace uint64)
	AfterReceiveData(packet *defn.Pkt, pitEntry table.PitEntry, inFace uint64)
	AfterReceiveInterest(packet *defn.Pkt, pitEntry table.PitEntry, inFace uint64, nexthops []*table.FibNextHopEntry)
	AfterReceiveNack(packet *defn.Pkt, pitEntry table.PitEntry, inFace uint64)
	BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64)
}

// strategyInit is the list of strategy constructors registered by init()
// in each strategy's source file.
var strategyInit = make([]func() Strategy, 0)

// StrategyVersions maps a strategy's short name to the set of versions
// available for instantiation, e.g. StrategyVersions["ddos"] = []uint64{1}.
var StrategyVersions = make(map[string][]uint64)

// ListStrategyNames returns every registered strategy's short name.
func ListStrategyNames() []string {
	names := make([]string, 0, len(StrategyVersions))
	for name := range StrategyVersions {
		names = append(names, name)
	}
	return names
}

// FaceSink is the sending side of a face: the strategy hands a packet to
// it and the face layer (transport, link service, wire codec) takes it
// from there. None of that machinery is in scope here.
type FaceSink interface {
	SendInterest(interest *defn.FwInterest)
	SendData(data *defn.FwData)
	SendNack(nack *defn.FwNack)
}

// FaceMeta is the face metadata a strategy consults: its id, whether it
// faces an end host rather than another router, and where to hand
// outgoing packets.
type FaceMeta struct {
	ID             uint64
	IsConsumerFace bool
	Sink           FaceSink
}

// Thread is one forwarding thread: the tables and faces a strategy
// instance runs against. Multiple strategies can share a Thread.
type Thread struct {
	ID        int
	Pit       *table.Pit
	Fib       *table.FibStrategyTable
	Scheduler *Scheduler
	faces     map[uint64]*FaceMeta
}

// NewThread constructs a forwarding thread with fresh tables.
func NewThread(id int) *Thread {
	return &Thread{
		ID:        id,
		Pit:       table.NewPit(),
		Fib:       table.NewFibStrategyTable(),
		Scheduler: NewScheduler(),
		faces:     make(map[uint64]*FaceMeta),
	}
}

// AddFace registers or replaces a face's metadata.
func (t *Thread) AddFace(meta *FaceMeta) {
	t.faces[meta.ID] = meta
}

// Face looks up a face's metadata by id.
func (t *Thread) Face(id uint64) (*FaceMeta, bool) {
	f, ok := t.faces[id]
	return f, ok
}

// StrategyBase is embedded by every concrete strategy; it implements the
// bookkeeping and send-path helpers common to all of them, the way every
// upstream NFD/YaNFD strategy does.
type StrategyBase struct {
	thread       *Thread
	name         string
	version      uint64
	instanceName enc.Name
}

// NewStrategyBase wires a strategy instance to its forwarding thread under
// the given name and version, e.g. NewStrategyBase(t, "ddos", 1).
func (s *StrategyBase) NewStrategyBase(fwThread *Thread, name string, version uint64) {
	s.thread = fwThread
	s.name = name
	s.version = version
	s.instanceName = append(defn.STRATEGY_PREFIX.Clone(), enc.NewStringComponent(enc.TypeGenericNameComponent, name))
}

// String identifies the strategy instance in log lines, e.g.
// "ddos (v=1)".
func (s *StrategyBase) String() string {
	return fmt.Sprintf("%s (v=%d)", s.name, s.version)
}

// Thread returns the forwarding thread this strategy instance runs on.
func (s *StrategyBase) Thread() *Thread { return s.thread }

// SendInterest forwards packet's Interest to nexthop via the load-balance
// and best-route primitives' shared send path, recording an out-record.
func (s *StrategyBase) SendInterest(packet *defn.Pkt, pitEntry table.PitEntry, nexthop uint64, inFace uint64) {
	face, ok := s.thread.Face(nexthop)
	if !ok || packet.L3.Interest == nil {
		return
	}
	pitEntry.InsertOutRecord(packet.L3.Interest, nexthop)
	face.Sink.SendInterest(packet.L3.Interest)
}

// SendData forwards packet's Data to outFace to satisfy pitEntry.
func (s *StrategyBase) SendData(packet *defn.Pkt, pitEntry table.PitEntry, outFace uint64, inFace uint64) {
	face, ok := s.thread.Face(outFace)
	if !ok || packet.L3.Data == nil {
		return
	}
	face.Sink.SendData(packet.L3.Data)
}

// SendNack sends a Nack on inFace in response to pitEntry.
func (s *StrategyBase) SendNack(pitEntry table.PitEntry, inFace uint64, nack *defn.FwNack) {
	face, ok := s.thread.Face(inFace)
	if !ok {
		return
	}
	face.Sink.SendNack(nack)
}

// RejectPendingInterest marks pitEntry's PIT entry as rejected; callers
// use it when no eligible next hop exists and nothing further can be
// done for this Interest.
func (s *StrategyBase) RejectPendingInterest(pitEntry table.PitEntry) {
	pitEntry.SetSatisfied(false)
}

// isNextHopEligible reports whether nexthop may receive this Interest:
// not the arriving face (no split-horizon violation) and not already
// outstanding when wantUnused is requested.
func isNextHopEligible(inFace uint64, nexthop *table.FibNextHopEntry, pitEntry table.PitEntry, wantUnused bool) bool {
	if nexthop.Nexthop == inFace {
		return false
	}
	if wantUnused {
		if _, ok := pitEntry.GetOutRecord(nexthop.Nexthop); ok {
			return false
		}
	}
	return true
}

// BestRoute picks the eligible next hop with the lowest routing cost,
// excluding the incoming face. It is a black-box forwarding primitive:
// scope checks and multi-path ranking live in the real FIB, not here.
func (s *StrategyBase) BestRoute(inFace uint64, pitEntry table.PitEntry, nexthops []*table.FibNextHopEntry) (uint64, bool) {
	best := (*table.FibNextHopEntry)(nil)
	for _, n := range nexthops {
		if !isNextHopEligible(inFace, n, pitEntry, false) {
			continue
		}
		if best == nil || n.Cost < best.Cost {
			best = n
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Nexthop, true
}

// LoadBalance picks uniformly at random among the eligible next hops,
// excluding the incoming face. It is a black-box forwarding primitive.
func (s *StrategyBase) LoadBalance(inFace uint64, pitEntry table.PitEntry, nexthops []*table.FibNextHopEntry) (uint64, bool) {
	eligible := make([]*table.FibNextHopEntry, 0, len(nexthops))
	for _, n := range nexthops {
		if isNextHopEligible(inFace, n, pitEntry, false) {
			eligible = append(eligible, n)
		}
	}
	if len(eligible) == 0 {
		return 0, false
	}
	return eligible[randIntn(len(eligible))].Nexthop, true
}
