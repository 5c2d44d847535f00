package pass

import (
	"fmt"

	"github.com/jdryg/jitcc/pkg/ir"
)

// LocalValueNumbering deduplicates pure instructions within a single basic
// block: a later instruction with the same opcode and operand identities as
// an earlier one is RAUW'd to the earlier one's result instead of
// recomputed. Loads take part too, keyed on their address and result type,
// but only until a store or call later in the block. Scope is block-local;
// no dominator-tree-scoped numbering is done.
func LocalValueNumbering(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		seen := make(map[string]*ir.Value)
		loads := make(map[string]*ir.Value)
		for _, inst := range b.Instrs {
			if hasSideEffect(inst) {
				loads = make(map[string]*ir.Value) // memory may have changed
				continue
			}
			if inst.IsTerminator() || inst.Op() == ir.OpPhi {
				continue
			}
			if _, ok := inst.(*ir.AllocaInst); ok {
				continue // each alloca is a distinct stack slot
			}
			key := lvnKey(inst)
			if key == "" {
				continue
			}
			table := seen
			if inst.Op() == ir.OpLoad {
				table = loads
				key += fmt.Sprintf("|%p", inst.AsValue().Type())
			}
			if prior, ok := table[key]; ok {
				ir.ReplaceAllUsesWith(inst.AsValue(), prior)
				changed = true
				continue
			}
			table[key] = inst.AsValue()
		}
	}
	return changed
}

func lvnKey(inst ir.Instruction) string {
	s := inst.Op().String()
	for _, op := range inst.Operands() {
		s += fmt.Sprintf("|%p", op.Value())
	}
	if call, ok := inst.(*ir.CallInst); ok && call.Callee != nil {
		// A call's key names its callee. LocalValueNumbering never reaches
		// this branch: hasSideEffect makes it skip every call.
		s += "|callee=" + call.Callee.Name
	}
	return s
}
