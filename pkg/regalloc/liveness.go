package regalloc

import "github.com/jdryg/jitcc/pkg/mir"

// LivenessInfo is the result of the liveness dataflow: for every
// instruction, the registers it defines and uses, and the set live
// immediately after it executes.
type LivenessInfo struct {
	Def     map[*mir.Instr]RegSet
	Use     map[*mir.Instr]RegSet
	LiveOut map[*mir.Instr]RegSet

	blockLiveIn  map[*mir.BasicBlock]RegSet
	blockLiveOut map[*mir.BasicBlock]RegSet
}

// Analyze computes liveness for f via the standard backward dataflow
// equations, first at block granularity (LiveOut[B] = ∪ LiveIn[S] over
// successors S; LiveIn[B] = Use[B] ∪ (LiveOut[B] - Def[B])) run to a fixed
// point, then refined to per-instruction LiveOut by a single backward scan
// within each block.
func Analyze(f *mir.Function) *LivenessInfo {
	li := &LivenessInfo{
		Def:          make(map[*mir.Instr]RegSet),
		Use:          make(map[*mir.Instr]RegSet),
		LiveOut:      make(map[*mir.Instr]RegSet),
		blockLiveIn:  make(map[*mir.BasicBlock]RegSet),
		blockLiveOut: make(map[*mir.BasicBlock]RegSet),
	}

	blockDef := make(map[*mir.BasicBlock]RegSet)
	blockUse := make(map[*mir.BasicBlock]RegSet)
	for _, b := range f.Blocks {
		def := NewRegSet()
		use := NewRegSet()
		for _, inst := range b.Instrs {
			d := instrDefs(inst)
			u := instrUses(inst)
			li.Def[inst] = setOf(d)
			li.Use[inst] = setOf(u)
			for _, r := range u {
				if !def.Contains(r) {
					use.Add(r)
				}
			}
			for _, r := range d {
				def.Add(r)
			}
		}
		blockDef[b] = def
		blockUse[b] = use
		li.blockLiveIn[b] = NewRegSet()
		li.blockLiveOut[b] = NewRegSet()
	}

	for changed := true; changed; {
		changed = false
		for i := len(f.Blocks) - 1; i >= 0; i-- {
			b := f.Blocks[i]
			out := NewRegSet()
			for _, s := range b.Succs {
				out = out.Union(li.blockLiveIn[s])
			}
			in := blockUse[b].Union(out.Minus(blockDef[b]))
			if !in.Equal(li.blockLiveIn[b]) || !out.Equal(li.blockLiveOut[b]) {
				li.blockLiveIn[b] = in
				li.blockLiveOut[b] = out
				changed = true
			}
		}
	}

	for _, b := range f.Blocks {
		live := li.blockLiveOut[b].Copy()
		for i := len(b.Instrs) - 1; i >= 0; i-- {
			inst := b.Instrs[i]
			li.LiveOut[inst] = live.Copy()
			live = live.Minus(li.Def[inst]).Union(li.Use[inst])
		}
	}

	return li
}

func setOf(regs []mir.VReg) RegSet {
	s := NewRegSet()
	for _, r := range regs {
		s.Add(r)
	}
	return s
}

// readModifyWrite is the set of opcodes whose first operand is both read
// (the instruction computes dst = dst `op` src) and written.
var readModifyWrite = map[mir.Opcode]bool{
	mir.Add: true, mir.Sub: true, mir.IMul: true,
	mir.And: true, mir.Or: true, mir.Xor: true,
	mir.Shl: true, mir.Sar: true, mir.Shr: true,
}

// writeOnly is the set of opcodes whose first operand is defined without
// being read first.
var writeOnly = map[mir.Opcode]bool{
	mir.Mov: true, mir.Lea: true, mir.SetCC: true, mir.Pop: true, mir.Cvt: true,
}

func instrDefs(inst *mir.Instr) []mir.VReg {
	dest := inst.Dest()
	if dest == nil {
		return nil
	}
	if !writeOnly[inst.Op] && !readModifyWrite[inst.Op] {
		return nil
	}
	if r, ok := vregOf(dest); ok {
		return []mir.VReg{r}
	}
	return nil
}

func instrUses(inst *mir.Instr) []mir.VReg {
	var uses []mir.VReg
	for i, op := range inst.Operands {
		isDest := i == 0 && inst.Dest() != nil
		if isDest && writeOnly[inst.Op] {
			// A pure write target is not itself a use, but any register
			// embedded in its addressing mode (a memory destination) is.
			uses = append(uses, memRegs(op)...)
			continue
		}
		if r, ok := vregOf(op); ok {
			uses = append(uses, r)
			continue
		}
		uses = append(uses, memRegs(op)...)
	}
	return uses
}

func vregOf(op mir.MirOperand) (mir.VReg, bool) {
	if r, ok := op.(mir.Register); ok && r.Phys == mir.NoPReg {
		return r.V, true
	}
	return mir.VReg{}, false
}

func memRegs(op mir.MirOperand) []mir.VReg {
	m, ok := op.(mir.Memory)
	if !ok {
		return nil
	}
	var regs []mir.VReg
	if r, ok := vregOf(m.Base); ok {
		regs = append(regs, r)
	}
	if r, ok := vregOf(m.Index); ok {
		regs = append(regs, r)
	}
	return regs
}
