package pass

import "github.com/jdryg/jitcc/pkg/ir"

// DeadCodeElimination removes instructions whose result has no uses and
// that carry no side effect (everything except store and call — a call
// may have observable effects even when its result is unused, so it is
// never eliminated here).
func DeadCodeElimination(fn *ir.Function) bool {
	changed := false
	for {
		removedThisRound := false
		for _, b := range fn.Blocks {
			for i := len(b.Instrs) - 1; i >= 0; i-- {
				inst := b.Instrs[i]
				if inst.IsTerminator() {
					continue
				}
				if hasSideEffect(inst) {
					continue
				}
				if inst.AsValue().NumUses() > 0 {
					continue
				}
				removeInstr(b, inst)
				removedThisRound = true
				changed = true
			}
		}
		if !removedThisRound {
			break
		}
	}
	return changed
}

func hasSideEffect(inst ir.Instruction) bool {
	switch inst.Op() {
	case ir.OpStore, ir.OpCall:
		return true
	}
	return false
}

// removeInstr detaches inst from b after killing its own operand uses; it
// is shared by several passes that delete dead instructions.
func removeInstr(b *ir.BasicBlock, inst ir.Instruction) {
	for _, op := range inst.Operands() {
		op.Kill()
	}
	idx := -1
	for i, it := range b.Instrs {
		if it == inst {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	b.Instrs = append(b.Instrs[:idx], b.Instrs[idx+1:]...)
}
