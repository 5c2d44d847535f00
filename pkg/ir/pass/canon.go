package pass

import "github.com/jdryg/jitcc/pkg/ir"

// CanonicalizeOperands reorders the operands of commutative binary
// instructions so a constant operand always sits on the right-hand side
// giving later passes (constant folding, LVN) a single operand order to
// key on.
func CanonicalizeOperands(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			bin, ok := inst.(*ir.BinaryInst)
			if !ok || !bin.Op().IsCommutative() {
				continue
			}
			lhs, rhs := bin.LHS(), bin.RHS()
			lc, rc := asConst(lhs.Value()), asConst(rhs.Value())
			if lc != nil && rc == nil {
				lv, rv := lhs.Value(), rhs.Value()
				lhs.SetValue(rv)
				rhs.SetValue(lv)
				changed = true
			}
		}
	}
	return changed
}
