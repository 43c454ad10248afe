/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package defn holds the wire-independent packet and face definitions shared
// across the forwarding plane: the subset of Interest/Data/Nack fields a
// strategy needs, and the scope/link-type metadata describing a face.
package defn

import (
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
)

// MaxNDNPacketSize is the maximum allowed size of an NDN packet in bytes.
const MaxNDNPacketSize = 8800

// STRATEGY_PREFIX is the prefix under which forwarding strategies register.
var STRATEGY_PREFIX, _ = enc.NameFromStr("/localhost/nfd/strategy")

// Scope indicates whether a face is local to the forwarder's host.
type Scope int

const (
	NonLocal Scope = iota
	Local
)

// LinkType describes the point-to-point/multi-access nature of a face.
type LinkType int

const (
	PointToPoint LinkType = iota
	MultiAccess
	AdHoc
)

// FwInterest is the subset of an Interest's fields the forwarding plane and
// its strategies operate on.
type FwInterest struct {
	NameV           enc.Name
	CanBePrefixV    bool
	MustBeFreshV    bool
	ForwardingHintV enc.Name
	NonceV          optional.Optional[uint32]
	LifetimeV       optional.Optional[time.Duration]
}

// FwData is the subset of a Data packet's fields the forwarding plane needs.
type FwData struct {
	NameV enc.Name
}

// NackReason identifies why a Nack was generated.
type NackReason int

const (
	NackReasonNone NackReason = iota
	NackReasonCongestion
	NackReasonDuplicate
	NackReasonNoRoute

	// DDoS pushback reasons, carried hop-by-hop between cooperating routers.
	NackReasonFakeInterest
	NackReasonValidInterestOverload
	NackReasonHintChangeNotice
	NackReasonResetRate
)

// FwNack is a DDoS-pushback-capable Nack: in addition to the reason it
// carries the tolerance budget and offending-name sample that the DDoS
// strategy apportions across downstream faces.
type FwNack struct {
	Interest *FwInterest

	Reason NackReason

	// PrefixLen is the number of name components of the mitigated prefix.
	PrefixLen int

	// Tolerance is the Interests-per-window budget (capacity, for the
	// valid-overload flavour); zero for DDOS_RESET_RATE.
	Tolerance uint64

	// NackId is an opaque duplicate-suppression key.
	NackId uint64

	// FakeInterestNames is dual-purpose: the offending-name sample for
	// FAKE_INTEREST, or a single-element replacement FIB registration for
	// HINT_CHANGE_NOTICE.
	FakeInterestNames []enc.Name
}

// Name returns the name of the Interest this Nack responds to.
func (n *FwNack) Name() enc.Name {
	if n.Interest == nil {
		return nil
	}
	return n.Interest.NameV
}

// Pkt is a parsed network-layer packet, passed to strategy callbacks
// alongside the PIT entry and incoming face it arrived on.
type Pkt struct {
	Name enc.Name
	L3   L3Pkt
}

// L3Pkt carries exactly one of Interest, Data, or Nack.
type L3Pkt struct {
	Interest *FwInterest
	Data     *FwData
	Nack     *FwNack
}
