package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

func TestFixupMemoryOperandsStagesSourceThroughRegister(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	destMem := mir.Memory{Base: mir.Register{Phys: 0}, Size: mir.TypeI64}
	srcMem := mir.Memory{Base: mir.Register{Phys: 1}, Size: mir.TypeI64}
	b.Instrs = append(b.Instrs, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{destMem, srcMem}})

	if !FixupMemoryOperands(f) {
		t.Fatal("expected a change when both operands are memory")
	}
	if len(b.Instrs) != 2 {
		t.Fatalf("expected a staging load inserted before the original instruction, got %d instrs", len(b.Instrs))
	}
	load := b.Instrs[0]
	if load.Op != mir.Mov {
		t.Fatalf("expected the staging instruction to be a mov, got %v", load.Op)
	}
	tmp, ok := load.Operands[0].(mir.Register)
	if !ok || tmp.Phys != mir.NoPReg {
		t.Fatalf("expected the staging destination to be a fresh virtual register, got %+v", load.Operands[0])
	}

	orig := b.Instrs[1]
	rewritten, ok := orig.Operands[1].(mir.Register)
	if !ok || rewritten.V != tmp.V {
		t.Errorf("expected the original instruction's source operand rewritten to the staged register, got %+v", orig.Operands[1])
	}
	if _, stillMem := orig.Operands[0].(mir.Memory); !stillMem {
		t.Error("the destination memory operand should be left untouched")
	}
}

func TestFixupMemoryOperandsSkipsSingleMemoryOperand(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	b.Instrs = append(b.Instrs, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{
		mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg},
		mir.Memory{Base: mir.Register{Phys: 0}, Size: mir.TypeI64},
	}})

	if FixupMemoryOperands(f) {
		t.Fatal("an instruction with only one memory operand needs no fixup")
	}
	if len(b.Instrs) != 1 {
		t.Errorf("expected no instructions inserted, got %d", len(b.Instrs))
	}
}
