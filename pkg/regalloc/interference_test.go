package regalloc

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

func TestBuildAddsEdgeForSimultaneouslyLiveRegisters(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	v1 := f.NewVReg(mir.RegClassInt)
	v2 := f.NewVReg(mir.RegClassInt)
	v3 := f.NewVReg(mir.RegClassInt)

	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v1), imm(1)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v2), imm(2)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v3), reg(v1)}},
		&mir.Instr{Op: mir.Add, Operands: []mir.MirOperand{reg(v3), reg(v2)}},
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{reg(v3)}},
	)

	li := Analyze(f)
	g := Build(f, li)

	// v1 and v2 are both live right before the copy into v3 consumes v1, so
	// they interfere.
	if !g.HasEdge(v1, v2) {
		t.Error("v1 and v2 should interfere: both live simultaneously")
	}
}

func TestBuildOmitsEdgeBetweenMoveAndItsOwnSource(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	v1 := f.NewVReg(mir.RegClassInt)
	v2 := f.NewVReg(mir.RegClassInt)

	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v1), imm(1)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v2), reg(v1)}}, // v2 := v1
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{reg(v2)}},
	)

	li := Analyze(f)
	g := Build(f, li)

	if g.HasEdge(v1, v2) {
		t.Error("a plain copy must not force its own source and destination apart")
	}
	if !g.MoveRelated(v1) || !g.MoveRelated(v2) {
		t.Error("both sides of the move should be recorded as move-related for coalescing")
	}
}

func TestBuildRecordsLiveAcrossCalls(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	v := f.NewVReg(mir.RegClassInt)
	tmp := f.NewVReg(mir.RegClassInt)

	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(v), imm(1)}},
		&mir.Instr{Op: mir.Call, Operands: []mir.MirOperand{mir.Label{Name: "callee"}}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(tmp), reg(v)}},
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{reg(tmp)}},
	)

	li := Analyze(f)
	g := Build(f, li)

	if !g.LiveAcrossCalls.Contains(v) {
		t.Error("v is defined before and used after the call, so it must be recorded as live across the call")
	}
}

func physReg(p mir.PReg) mir.Register { return mir.Register{Phys: p} }

// TestBuildForbidsArgumentRegisterForLaterLiveArgument models a call with
// two simultaneously-live arguments: arg1's source vreg is still live when
// arg0 is marshalled into rcx, so it must never be colored to rcx itself.
func TestBuildForbidsArgumentRegisterForLaterLiveArgument(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	arg0 := f.NewVReg(mir.RegClassInt)
	arg1 := f.NewVReg(mir.RegClassInt)

	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(arg0), imm(1)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(arg1), imm(2)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{physReg(1), reg(arg0)}}, // arg0 -> rcx
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{physReg(2), reg(arg1)}}, // arg1 -> rdx
		&mir.Instr{Op: mir.Call, Operands: []mir.MirOperand{mir.Label{Name: "callee"}}},
		&mir.Instr{Op: mir.Ret},
	)

	li := Analyze(f)
	g := Build(f, li)

	if !g.Forbidden[arg1][1] {
		t.Error("arg1 is still live when arg0 is written to rcx, so rcx must be forbidden for arg1")
	}
}

// TestBuildForbidsRAXForValueLiveAcrossDivide models the dividend-move
// sequence lowerBinary emits for OpDiv/OpRem: the divisor must not be
// colored to rax, since idiv/div overwrite it.
func TestBuildForbidsRAXForValueLiveAcrossDivide(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")

	dividend := f.NewVReg(mir.RegClassInt)
	divisor := f.NewVReg(mir.RegClassInt)
	quotient := f.NewVReg(mir.RegClassInt)

	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(dividend), imm(10)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(divisor), imm(2)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{physReg(0), reg(dividend)}},
		&mir.Instr{Op: mir.Cdq},
		&mir.Instr{Op: mir.IDiv, Operands: []mir.MirOperand{reg(divisor)}},
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{reg(quotient), physReg(0)}},
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{reg(quotient)}},
	)

	li := Analyze(f)
	g := Build(f, li)

	if !g.Forbidden[divisor][0] {
		t.Error("divisor is live across the rax dividend move/idiv, so rax must be forbidden for it")
	}
	if !g.Forbidden[divisor][2] {
		t.Error("divisor is live across cdq, which clobbers rdx, so rdx must be forbidden for it too")
	}
}
