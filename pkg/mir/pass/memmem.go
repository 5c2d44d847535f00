package pass

import "github.com/jdryg/jitcc/pkg/mir"

// FixupMemoryOperands rewrites any instruction left with two memory
// operands — x86-64 has no such addressing mode — by staging the source
// through a fresh virtual register first: "op [mem1], [mem2]" becomes
// "mov vN, [mem2]; op [mem1], vN". Lowering only ever holds one operand's
// address in a register and reads/writes the other directly as Memory, so
// this only fires when two independently-lowered memory accesses land in
// the same instruction, which register allocation's spill-reload rewrite
// can also reintroduce — this pass is meant to run again after spilling.
func FixupMemoryOperands(f *mir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		for i := 0; i < len(b.Instrs); i++ {
			inst := b.Instrs[i]
			if len(inst.Operands) < 2 {
				continue
			}
			_, destMem := inst.Operands[0].(mir.Memory)
			_, srcMem := inst.Operands[1].(mir.Memory)
			if !destMem || !srcMem {
				continue
			}
			tmp := mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
			load := &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{tmp, inst.Operands[1]}}
			inst.Operands[1] = tmp
			b.Instrs = append(b.Instrs[:i], append([]*mir.Instr{load}, b.Instrs[i:]...)...)
			i++
			changed = true
		}
	}
	return changed
}
