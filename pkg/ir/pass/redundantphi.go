package pass

import "github.com/jdryg/jitcc/pkg/ir"

// RemoveRedundantPhis replaces any phi whose incoming values are all equal
// to each other or to the phi itself with that single value, then lets
// DeadCodeElimination sweep the now-unused phi, the trivial-phi-removal
// step of the Braun-et-al SSA construction.
func RemoveRedundantPhis(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			phi, ok := inst.(*ir.PhiInst)
			if !ok {
				continue
			}
			if same := trivialPhiValue(phi); same != nil {
				ir.ReplaceAllUsesWith(phi.AsValue(), same)
				changed = true
			}
		}
	}
	return changed
}

// trivialPhiValue returns the single distinct incoming value of phi if one
// exists (ignoring self-references), or nil if the phi genuinely merges
// two or more distinct values.
func trivialPhiValue(phi *ir.PhiInst) *ir.Value {
	var same *ir.Value
	self := phi.AsValue()
	for _, pair := range phi.Incoming() {
		v := pair[0].Value()
		if v == self {
			continue
		}
		if same == nil {
			same = v
			continue
		}
		if v != same {
			return nil
		}
	}
	return same
}
