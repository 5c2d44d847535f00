package pass

import "github.com/jdryg/jitcc/pkg/mir"

// RemoveRedundantMoves drops "mov r, r" instructions where the destination
// and source name the same register — virtual registers the allocator
// happened to color identically, or a vreg moved to itself by an earlier
// pass's rewrite.
func RemoveRedundantMoves(f *mir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		kept := b.Instrs[:0:0]
		for _, inst := range b.Instrs {
			if inst.Op == mir.Mov && len(inst.Operands) == 2 && sameOperand(inst.Operands[0], inst.Operands[1]) {
				changed = true
				continue
			}
			kept = append(kept, inst)
		}
		b.Instrs = kept
	}
	return changed
}
