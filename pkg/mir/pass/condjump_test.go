package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

func TestCollapseCondJumpFoldsSetccTestJcc(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	r := mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Cmp, Operands: []mir.MirOperand{mir.Register{Phys: 0}, mir.Register{Phys: 1}}},
		&mir.Instr{Op: mir.SetCC, Cond: mir.CondL, Operands: []mir.MirOperand{r}},
		&mir.Instr{Op: mir.Test, Operands: []mir.MirOperand{r, r}},
		&mir.Instr{Op: mir.Jcc, Cond: mir.CondNE, Operands: []mir.MirOperand{mir.Label{Name: "then"}}},
	)

	if !CollapseCondJump(f) {
		t.Fatal("expected the setcc/test/jcc triple to collapse")
	}
	if len(b.Instrs) != 2 {
		t.Fatalf("expected cmp + jcc to remain, got %d instrs", len(b.Instrs))
	}
	jcc := b.Instrs[1]
	if jcc.Op != mir.Jcc || jcc.Cond != mir.CondL {
		t.Errorf("expected a direct jl, got op=%v cond=%v", jcc.Op, jcc.Cond)
	}
}

func TestCollapseCondJumpNegatesOnEqualityTest(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	r := mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Cmp, Operands: []mir.MirOperand{mir.Register{Phys: 0}, mir.Register{Phys: 1}}},
		&mir.Instr{Op: mir.SetCC, Cond: mir.CondL, Operands: []mir.MirOperand{r}},
		&mir.Instr{Op: mir.Test, Operands: []mir.MirOperand{r, r}},
		&mir.Instr{Op: mir.Jcc, Cond: mir.CondE, Operands: []mir.MirOperand{mir.Label{Name: "else"}}},
	)

	CollapseCondJump(f)
	jcc := b.Instrs[1]
	if jcc.Cond != mir.CondL.Negate() {
		t.Errorf("a jump on the zero flag should use the negated condition, got %v want %v", jcc.Cond, mir.CondL.Negate())
	}
}

func TestCollapseCondJumpSkipsWhenSetccResultUsedAfter(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	r := mir.Register{V: f.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Cmp, Operands: []mir.MirOperand{mir.Register{Phys: 0}, mir.Register{Phys: 1}}},
		&mir.Instr{Op: mir.SetCC, Cond: mir.CondL, Operands: []mir.MirOperand{r}},
		&mir.Instr{Op: mir.Test, Operands: []mir.MirOperand{r, r}},
		&mir.Instr{Op: mir.Jcc, Cond: mir.CondNE, Operands: []mir.MirOperand{mir.Label{Name: "then"}}},
		&mir.Instr{Op: mir.Ret, Operands: []mir.MirOperand{r}},
	)

	if CollapseCondJump(f) {
		t.Fatal("must not collapse when the setcc's result is still live afterward")
	}
}
