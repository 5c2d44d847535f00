package regalloc

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

// TestRewriteSpillsInsertsLoadBeforeUseAndStoreAfterDef exercises
// rewriteOperands directly: a spilled register used as a source gets a load
// immediately before the instruction that reads it, and a spilled register
// defined as a plain write target gets a store immediately after.
func TestRewriteSpillsInsertsLoadBeforeUseAndStoreAfterDef(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	v := f.NewVReg(mir.RegClassInt)
	dst := f.NewVReg(mir.RegClassInt)
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v), imm(1)}}, // v is the spilled def
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(dst), reg(v)}}, // v is the spilled use
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{reg(dst)}},
	)

	slot := f.Frame.AllocSlot(8, 8)
	result := &AllocationResult{
		Color:       map[mir.VReg]mir.PReg{},
		SpillSlot:   map[mir.VReg]*mir.StackSlot{v: slot},
		SpilledRegs: func() RegSet { s := NewRegSet(); s.Add(v); return s }(),
	}

	rewriteSpills(f, result)

	// def of v: the original mov's dest is rewritten to a fresh temp, and a
	// store of that temp to the slot follows immediately.
	defMov := b.Instrs[0]
	tmpDef, ok := defMov.Operands[0].(mir.Register)
	if !ok || tmpDef.V == v {
		t.Fatalf("expected the def's dest rewritten to a fresh vreg, got %+v", defMov.Operands[0])
	}
	store := b.Instrs[1]
	if store.Op != mir.Mov {
		t.Fatalf("expected a store instruction immediately after the def, got %s", store.Op)
	}
	if got, ok := store.Operands[0].(*mir.StackSlot); !ok || got != slot {
		t.Errorf("expected the store to target the spill slot, got %+v", store.Operands[0])
	}
	if src, ok := store.Operands[1].(mir.Register); !ok || src.V != tmpDef.V {
		t.Errorf("expected the store to write the fresh temp back, got %+v", store.Operands[1])
	}

	// use of v: a load from the slot into a fresh temp precedes the
	// instruction that reads it.
	load := b.Instrs[2]
	if load.Op != mir.Mov {
		t.Fatalf("expected a load instruction before the use, got %s", load.Op)
	}
	tmpUseDst, ok := load.Operands[0].(mir.Register)
	if !ok {
		t.Fatalf("expected the load's dest to be a register, got %T", load.Operands[0])
	}
	useMov := b.Instrs[3]
	if src, ok := useMov.Operands[1].(mir.Register); !ok || src.V != tmpUseDst.V {
		t.Errorf("expected the use rewritten to read the loaded temp, got %+v", useMov.Operands[1])
	}
}

// TestRewriteSpillsHandlesReadModifyWriteDestination exercises the
// isDest-but-also-read branch: a read-modify-write opcode's destination is
// both loaded beforehand and stored afterward, since the instruction reads
// its own dest before overwriting it.
func TestRewriteSpillsHandlesReadModifyWriteDestination(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	v := f.NewVReg(mir.RegClassInt)
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Add, Operands: []mir.MirOperand{reg(v), imm(1)}},
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{reg(v)}},
	)

	slot := f.Frame.AllocSlot(8, 8)
	result := &AllocationResult{
		Color:       map[mir.VReg]mir.PReg{},
		SpillSlot:   map[mir.VReg]*mir.StackSlot{v: slot},
		SpilledRegs: func() RegSet { s := NewRegSet(); s.Add(v); return s }(),
	}

	rewriteSpills(f, result)

	// add's dest is read-modify-write, so rewriteOperands must emit both a
	// load before it and a store after it, around the single add instr; the
	// ret that reads v then gets a reload of its own.
	if len(b.Instrs) != 5 {
		t.Fatalf("expected load, add, store, reload, ret (5 instrs), got %d", len(b.Instrs))
	}
	if b.Instrs[0].Op != mir.Mov {
		t.Errorf("expected a load before the read-modify-write add, got %s", b.Instrs[0].Op)
	}
	if b.Instrs[1].Op != mir.Add {
		t.Errorf("expected the add itself preserved in the middle, got %s", b.Instrs[1].Op)
	}
	if b.Instrs[2].Op != mir.Mov {
		t.Errorf("expected a store after the read-modify-write add, got %s", b.Instrs[2].Op)
	}
}

// TestApplyColorsSubstitutesVirtualRegistersAndTracksCalleeSaved confirms
// applyColors rewrites every colored vreg operand to its physical register
// and records callee-saved registers actually used, leaving already-physical
// operands untouched.
func TestApplyColorsSubstitutesVirtualRegistersAndTracksCalleeSaved(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	v := f.NewVReg(mir.RegClassInt)
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v), imm(1)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{physReg(0), reg(v)}},
		&mir.Instr{Op: mir.Ret},
	)

	calleeSavedColor := -1
	for c := FirstCalleeSavedColor; c < len(AllocatableIntRegs); c++ {
		calleeSavedColor = c
		break
	}
	result := &AllocationResult{
		Color:       map[mir.VReg]mir.PReg{v: AllocatableIntRegs[calleeSavedColor]},
		SpillSlot:   map[mir.VReg]*mir.StackSlot{},
		SpilledRegs: NewRegSet(),
	}

	applyColors(f, result)

	want := AllocatableIntRegs[calleeSavedColor]
	def, ok := b.Instrs[0].Operands[0].(mir.Register)
	if !ok || def.Phys != want {
		t.Errorf("expected v's def rewritten to phys %v, got %+v", want, b.Instrs[0].Operands[0])
	}
	use, ok := b.Instrs[1].Operands[1].(mir.Register)
	if !ok || use.Phys != want {
		t.Errorf("expected v's use rewritten to phys %v, got %+v", want, b.Instrs[1].Operands[1])
	}
	if b.Instrs[1].Operands[0].(mir.Register).Phys != 0 {
		t.Error("the already-physical rax destination must be left untouched")
	}
	if len(f.Frame.CalleeSaved) != 1 || f.Frame.CalleeSaved[0] != want {
		t.Errorf("expected %v recorded as callee-saved, got %v", want, f.Frame.CalleeSaved)
	}
}
