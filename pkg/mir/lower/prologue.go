package lower

import "github.com/jdryg/jitcc/pkg/mir"

// calleeSavedPool lists the callee-saved integer registers (RBX, RSI, RDI,
// R12-R15). Nothing reads it: the allocator colors from the same registers
// as the callee-saved tail of regalloc.AllocatableIntRegs, and the subset it
// uses is recorded in FrameInfo.CalleeSaved before AddPrologueEpilogue runs.
var calleeSavedPool = []mir.PReg{3, 4, 5, 10, 11, 12, 13}

// AddPrologueEpilogue wraps f's body with the Windows x64 standard frame
// sequence in the entry block: push rbp; mov rbp, rsp; a push of each
// register f.Frame.CalleeSaved names; then sub rsp for the rest of the
// frame. Before every ret it emits the mirror-image restore: lea rsp back to
// the last push, the pops, mov rsp, rbp; pop rbp. It must run after
// f.Frame.Finalize so FrameSize and CalleeSaved are settled.
//
// The shape (save frame linkage, save callee-saved, reserve the rest,
// mirror on the way out) is the standard frame-pointer-based prologue
// pattern, adapted to x86-64's push/mov/sub instruction set.
func AddPrologueEpilogue(f *mir.Function) {
	if len(f.Blocks) == 0 {
		return
	}
	prologue := prologueInstrs(f)
	entry := f.Blocks[0]
	entry.Instrs = append(prologue, entry.Instrs...)

	for _, b := range f.Blocks {
		if term := b.Terminator(); term != nil && term.Op == mir.Ret {
			epilogue := epilogueInstrs(f)
			b.Instrs = append(b.Instrs[:len(b.Instrs)-1], append(epilogue, term)...)
		}
	}
}

func prologueInstrs(f *mir.Function) []*mir.Instr {
	rbp := mir.Register{Phys: mir.PRegRBP}
	rsp := mir.Register{Phys: mir.PRegRSP}
	instrs := []*mir.Instr{
		{Op: mir.Push, Operands: []mir.MirOperand{rbp}},
		{Op: mir.Mov, Operands: []mir.MirOperand{rbp, rsp}},
	}
	for _, preg := range f.Frame.CalleeSaved {
		instrs = append(instrs, &mir.Instr{Op: mir.Push, Operands: []mir.MirOperand{mir.Register{Phys: preg}}})
	}
	// The pushes already took the callee-save area at the top of the frame.
	if size := f.Frame.FrameSize() - int64(len(f.Frame.CalleeSaved))*8; size > 0 {
		instrs = append(instrs, &mir.Instr{Op: mir.Sub, Operands: []mir.MirOperand{rsp, mir.Immediate{Ty: mir.TypeI64, I64: size}}})
	}
	return instrs
}

func epilogueInstrs(f *mir.Function) []*mir.Instr {
	rbp := mir.Register{Phys: mir.PRegRBP}
	rsp := mir.Register{Phys: mir.PRegRSP}
	var instrs []*mir.Instr
	if n := int64(len(f.Frame.CalleeSaved)); n > 0 {
		instrs = append(instrs, &mir.Instr{Op: mir.Lea, Operands: []mir.MirOperand{rsp, mir.Memory{Base: rbp, Disp: -8 * n, Size: mir.TypeI64}}})
	}
	for i := len(f.Frame.CalleeSaved) - 1; i >= 0; i-- {
		instrs = append(instrs, &mir.Instr{Op: mir.Pop, Operands: []mir.MirOperand{mir.Register{Phys: f.Frame.CalleeSaved[i]}}})
	}
	instrs = append(instrs, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{rsp, rbp}})
	instrs = append(instrs, &mir.Instr{Op: mir.Pop, Operands: []mir.MirOperand{rbp}})
	return instrs
}
