package pass

import "github.com/jdryg/jitcc/pkg/mir"

// CollapseCondJump folds the setcc/test/jcc triple lowering emits for a
// branch on a comparison result back into a single jcc on the original
// comparison's flags, so "cmp a,b; setcc r,cc; test r,r; jcc L,ne" becomes
// "cmp a,b; jcc L,cc" (or the negated condition when the test is against
// zero, i.e. jcc L,e branches when the comparison is *false*). This
// removes a level of indirection a naive tree-walking lowering leaves
// behind.
func CollapseCondJump(f *mir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		for i := 0; i+2 < len(b.Instrs); i++ {
			setcc := b.Instrs[i]
			test := b.Instrs[i+1]
			jcc := b.Instrs[i+2]
			if setcc.Op != mir.SetCC || test.Op != mir.Test || jcc.Op != mir.Jcc {
				continue
			}
			if len(setcc.Operands) != 1 || len(test.Operands) != 2 {
				continue
			}
			dst := setcc.Operands[0]
			if !sameOperand(test.Operands[0], dst) || !sameOperand(test.Operands[1], dst) {
				continue
			}
			if regUsedAfter(b, i+3, dst) {
				continue
			}

			cond := setcc.Cond
			if jcc.Cond == mir.CondE {
				cond = cond.Negate()
			}
			b.Instrs[i] = &mir.Instr{Op: mir.Jcc, Cond: cond, Operands: jcc.Operands}
			b.Instrs = append(b.Instrs[:i+1], b.Instrs[i+3:]...)
			changed = true
		}
	}
	return changed
}

func sameOperand(a, b mir.MirOperand) bool {
	ra, ok1 := a.(mir.Register)
	rb, ok2 := b.(mir.Register)
	if !ok1 || !ok2 {
		return false
	}
	return ra.V == rb.V && ra.Phys == rb.Phys
}

func regUsedAfter(b *mir.BasicBlock, from int, op mir.MirOperand) bool {
	for i := from; i < len(b.Instrs); i++ {
		for _, o := range b.Instrs[i].Operands {
			if sameOperand(o, op) {
				return true
			}
		}
	}
	return false
}
