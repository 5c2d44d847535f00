package pass

import "github.com/jdryg/jitcc/pkg/mir"

// ElideFallthroughJumps removes a trailing unconditional jmp whose target
// is the very next block in f.Blocks' layout order: that jump is
// guaranteed to fall through to its target anyway once the printer emits
// blocks back-to-back, so the jmp is pure overhead. Must run only after
// layout is final — this backend never reorders blocks after lowering, so
// it is always safe to drop here.
func ElideFallthroughJumps(f *mir.Function) bool {
	changed := false
	for i, b := range f.Blocks {
		if i+1 >= len(f.Blocks) {
			continue
		}
		term := b.Terminator()
		if term == nil || term.Op != mir.Jmp || len(term.Operands) != 1 {
			continue
		}
		lbl, ok := term.Operands[0].(mir.Label)
		if !ok || lbl.Name != f.Blocks[i+1].Label {
			continue
		}
		b.Instrs = b.Instrs[:len(b.Instrs)-1]
		changed = true
	}
	return changed
}
