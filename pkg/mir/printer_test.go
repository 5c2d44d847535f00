package mir

import (
	"strings"
	"testing"
)

func TestFormatInstrMnemonicAndOperandOrder(t *testing.T) {
	inst := &Instr{
		Op:       Add,
		Operands: []MirOperand{Register{Phys: 0}, Immediate{Ty: TypeI32, I64: 1}},
	}
	got := FormatInstr(inst)
	want := "add " + PhysName(0, TypeI64) + ", 1"
	if got != want {
		t.Errorf("FormatInstr() = %q, want %q", got, want)
	}
}

func TestFormatInstrJccUsesConditionSuffix(t *testing.T) {
	inst := &Instr{
		Op:       Jcc,
		Cond:     CondE,
		Operands: []MirOperand{Label{Name: "then"}},
	}
	got := FormatInstr(inst)
	if !strings.HasPrefix(got, "je ") {
		t.Errorf("FormatInstr() = %q, want a je-prefixed mnemonic", got)
	}
}

func TestFormatInstrAppendsComment(t *testing.T) {
	inst := &Instr{Op: Nop, Comment: "spill reload"}
	got := FormatInstr(inst)
	if !strings.Contains(got, "; spill reload") {
		t.Errorf("FormatInstr() = %q, want it to contain the comment", got)
	}
}

func TestPrintFunctionLabelsBlocksAndIndentsInstrs(t *testing.T) {
	f := NewFunction("add")
	b := f.CreateBlock("entry")
	b.Instrs = append(b.Instrs, &Instr{Op: Ret})

	var sb strings.Builder
	NewPrinter(&sb).PrintFunction(f)
	out := sb.String()

	if !strings.Contains(out, "add:\n") {
		t.Errorf("expected a function label, got %q", out)
	}
	if !strings.Contains(out, "entry:\n") {
		t.Errorf("expected a block label, got %q", out)
	}
	if !strings.Contains(out, "    ret\n") {
		t.Errorf("expected an indented instruction, got %q", out)
	}
}

func TestPrintProgramEmitsDataSectionOnlyWhenGlobalsExist(t *testing.T) {
	prog := &Program{}
	var sb strings.Builder
	NewPrinter(&sb).PrintProgram(prog)
	if strings.Contains(sb.String(), "section .data") {
		t.Error("a program with no globals should not emit a .data section")
	}

	prog.Globals = []GlobalVar{{Name: "g", Size: 4}}
	sb.Reset()
	NewPrinter(&sb).PrintProgram(prog)
	out := sb.String()
	if !strings.Contains(out, "section .data") {
		t.Error("a program with globals should emit a .data section")
	}
	if !strings.Contains(out, "g: resb 4") {
		t.Errorf("expected an uninitialized global to reserve bytes, got %q", out)
	}
}

func TestPrintProgramEmitsInitializedGlobalBytes(t *testing.T) {
	prog := &Program{Globals: []GlobalVar{{Name: "k", Size: 1, Init: []byte{0x2a}}}}
	var sb strings.Builder
	NewPrinter(&sb).PrintProgram(prog)
	if !strings.Contains(sb.String(), "k: db 0x2a") {
		t.Errorf("expected initialized global bytes, got %q", sb.String())
	}
}
