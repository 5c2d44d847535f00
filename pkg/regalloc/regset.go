// Package regalloc implements Iterated Register Coalescing (George & Appel
// 1996) graph-coloring register allocation over pkg/mir functions: a
// liveness dataflow pass, an interference/preference graph built from it,
// the simplify/coalesce/freeze/spill worklist algorithm, and a spill-code
// insertion pass that restarts allocation until every virtual register has
// a physical color.
//
// Every structural piece (RegSet, InterferenceGraph, the Allocator's
// worklists, the simplify/coalesce/freeze/spill control flow, Briggs
// conservative coalescing) targets mir.VReg/mir.PReg directly.
package regalloc

import "github.com/jdryg/jitcc/pkg/mir"

// RegSet is a set of virtual registers.
type RegSet map[mir.VReg]struct{}

// NewRegSet returns an empty set.
func NewRegSet() RegSet { return make(RegSet) }

// Add inserts r into s.
func (s RegSet) Add(r mir.VReg) { s[r] = struct{}{} }

// Remove deletes r from s.
func (s RegSet) Remove(r mir.VReg) { delete(s, r) }

// Contains reports whether r is in s.
func (s RegSet) Contains(r mir.VReg) bool {
	_, ok := s[r]
	return ok
}

// Union returns a new set containing every register in s or other.
func (s RegSet) Union(other RegSet) RegSet {
	result := NewRegSet()
	for r := range s {
		result.Add(r)
	}
	for r := range other {
		result.Add(r)
	}
	return result
}

// Minus returns a new set containing s's registers that are not in other.
func (s RegSet) Minus(other RegSet) RegSet {
	result := NewRegSet()
	for r := range s {
		if !other.Contains(r) {
			result.Add(r)
		}
	}
	return result
}

// Equal reports whether s and other contain exactly the same registers.
func (s RegSet) Equal(other RegSet) bool {
	if len(s) != len(other) {
		return false
	}
	for r := range s {
		if !other.Contains(r) {
			return false
		}
	}
	return true
}

// Copy returns an independent shallow copy of s.
func (s RegSet) Copy() RegSet {
	result := make(RegSet, len(s))
	for r := range s {
		result[r] = struct{}{}
	}
	return result
}

// Slice returns s's members in unspecified order.
func (s RegSet) Slice() []mir.VReg {
	result := make([]mir.VReg, 0, len(s))
	for r := range s {
		result = append(result, r)
	}
	return result
}
