/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	enc "github.com/named-data/ndnd/std/encoding"
)

// FibNextHopEntry is one upstream face a FIB entry forwards to, along with
// its routing cost (lower is preferred).
type FibNextHopEntry struct {
	Nexthop uint64
	Cost    int
}

// FibStrategyEntry is the FIB/strategy-choice table entry matched by a
// name prefix: the registered next hops and the forwarding strategy bound
// to this prefix.
type FibStrategyEntry interface {
	Name() enc.Name
	GetStrategy() enc.Name
	GetNextHops() []*FibNextHopEntry
}

type baseFibStrategyEntry struct {
	component enc.Component
	name      enc.Name
	nexthops  []*FibNextHopEntry
	strategy  enc.Name
}

func (e *baseFibStrategyEntry) Name() enc.Name                   { return e.name }
func (e *baseFibStrategyEntry) GetStrategy() enc.Name             { return e.strategy }
func (e *baseFibStrategyEntry) GetNextHops() []*FibNextHopEntry   { return e.nexthops }

// FibStrategyTable is the Forwarding Information Base: a longest-prefix-
// match table from name prefix to next-hop faces and a bound strategy.
type FibStrategyTable struct {
	entries map[string]*baseFibStrategyEntry
}

// NewFibStrategyTable constructs an empty FIB.
func NewFibStrategyTable() *FibStrategyTable {
	return &FibStrategyTable{entries: make(map[string]*baseFibStrategyEntry)}
}

// FindLongestPrefixMatch returns the FIB entry whose name is the longest
// registered prefix of name, if any.
func (f *FibStrategyTable) FindLongestPrefixMatch(name enc.Name) (FibStrategyEntry, bool) {
	for i := len(name); i >= 0; i-- {
		if e, ok := f.entries[name.Prefix(i).String()]; ok {
			return e, true
		}
	}
	return nil, false
}

// Insert registers prefix with the given next hops, returning the entry
// and whether it was newly created (false means an existing registration
// for this exact prefix was reused).
func (f *FibStrategyTable) Insert(prefix enc.Name, nexthops []*FibNextHopEntry) (FibStrategyEntry, bool) {
	key := prefix.String()
	if e, ok := f.entries[key]; ok {
		return e, false
	}
	e := &baseFibStrategyEntry{
		component: prefix.At(-1),
		name:      prefix,
		nexthops:  nexthops,
	}
	f.entries[key] = e
	return e, true
}

// Erase removes the registration for the exact prefix, if any.
func (f *FibStrategyTable) Erase(prefix enc.Name) {
	delete(f.entries, prefix.String())
}
