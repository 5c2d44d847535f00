package regalloc

import (
	"fmt"

	"github.com/jdryg/jitcc/pkg/ir"
	"github.com/jdryg/jitcc/pkg/mir"
)

// MaxSpillIterations bounds the allocate/rewrite/retry loop: inserting a
// load/store around a spilled register's every use
// introduces fresh virtual registers that themselves need a color, so
// allocation restarts from scratch after a spill rewrite. In practice one
// or two rounds suffice; this is a backstop against a pathological
// function that keeps finding a new spill candidate forever. Overridable
// by pkg/config.
var MaxSpillIterations = 10

// AllocateAndRewrite runs IRC to completion for f, inserting spill code and
// retrying while a round still spills, then substitutes every colored
// virtual register for its physical one and records which callee-saved
// registers the prologue/epilogue must save. If every one of the
// MaxSpillIterations rounds spills, it panics with *ir.InvariantError.
func AllocateAndRewrite(f *mir.Function) *AllocationResult {
	var result *AllocationResult
	for i := 0; i < MaxSpillIterations; i++ {
		result = Allocate(f)
		if len(result.SpilledRegs) == 0 {
			break
		}
		rewriteSpills(f, result)
	}
	if len(result.SpilledRegs) != 0 {
		panic(&ir.InvariantError{Msg: fmt.Sprintf("regalloc: %s still spills after %d rounds", f.Name, MaxSpillIterations)})
	}

	applyColors(f, result)
	return result
}

// rewriteSpills replaces every occurrence of a spilled register with a
// fresh virtual register loaded from (for a use) or stored to (for a def)
// its assigned stack slot, immediately adjacent to the instruction that
// touches it — never held live across instructions, so the next
// allocation round always finds it trivially colorable.
func rewriteSpills(f *mir.Function, result *AllocationResult) {
	for _, b := range f.Blocks {
		var out []*mir.Instr
		for _, inst := range b.Instrs {
			var before, after []*mir.Instr
			rewriteOperands(f, inst, result, &before, &after)
			out = append(out, before...)
			out = append(out, inst)
			out = append(out, after...)
		}
		b.Instrs = out
	}
}

func rewriteOperands(f *mir.Function, inst *mir.Instr, result *AllocationResult, before, after *[]*mir.Instr) {
	destIsWrite := inst.Dest() != nil
	for i, op := range inst.Operands {
		switch o := op.(type) {
		case mir.Register:
			slot, spilled := result.SpillSlot[o.V]
			if !spilled {
				continue
			}
			tmp := mir.Register{V: f.NewVReg(o.V.Class), Phys: mir.NoPReg}
			isDest := i == 0 && destIsWrite
			if !isDest || readModifyWrite[inst.Op] {
				*before = append(*before, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{tmp, slot}})
			}
			if isDest {
				*after = append(*after, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{slot, tmp}})
			}
			inst.Operands[i] = tmp
		case mir.Memory:
			changed := false
			if r, ok := vregOf(o.Base); ok {
				if slot, spilled := result.SpillSlot[r]; spilled {
					tmp := mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
					*before = append(*before, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{tmp, slot}})
					o.Base = tmp
					changed = true
				}
			}
			if r, ok := vregOf(o.Index); ok {
				if slot, spilled := result.SpillSlot[r]; spilled {
					tmp := mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
					*before = append(*before, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{tmp, slot}})
					o.Index = tmp
					changed = true
				}
			}
			if changed {
				inst.Operands[i] = o
			}
		}
	}
}

// applyColors substitutes every remaining virtual register operand for its
// assigned physical register and records the callee-saved registers
// actually used so the prologue/epilogue pass knows what to spill.
func applyColors(f *mir.Function, result *AllocationResult) {
	used := make(map[mir.PReg]bool)
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			for i, op := range inst.Operands {
				inst.Operands[i] = substitute(op, result, used)
			}
		}
	}
	for preg := range used {
		if isCalleeSaved(preg) {
			f.Frame.CalleeSaved = append(f.Frame.CalleeSaved, preg)
		}
	}
}

func substitute(op mir.MirOperand, result *AllocationResult, used map[mir.PReg]bool) mir.MirOperand {
	switch o := op.(type) {
	case mir.Register:
		if o.Phys != mir.NoPReg {
			used[o.Phys] = true
			return o
		}
		if color, ok := result.Color[o.V]; ok {
			used[color] = true
			return mir.Register{Phys: color}
		}
		return o
	case mir.Memory:
		o.Base = substitute(o.Base, result, used)
		if o.Index != nil {
			o.Index = substitute(o.Index, result, used)
		}
		return o
	default:
		return op
	}
}
