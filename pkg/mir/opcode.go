package mir

// Opcode enumerates the x86-64 operations this backend emits. The set is
// deliberately small: one canonical instruction per IR
// operation class, leaving strength reduction (e.g. lea for address
// arithmetic, imul-by-power-of-two to shl) to a later extension rather
// than this tree's pass set.
type Opcode int

const (
	Mov Opcode = iota
	Lea
	Add
	Sub
	IMul
	IDiv // signed divide; splits edx:eax / rdx:rax per operand width
	Div  // unsigned divide
	And
	Or
	Xor
	Not
	Neg
	Shl
	Sar
	Shr
	Cmp
	Test
	Jmp
	Jcc
	SetCC
	Call
	Ret
	Push
	Pop
	Cdq // sign-extend eax into edx:eax (and rax into rdx:rax), ahead of IDiv
	Cvt // generic float<->int / float-width conversion, discriminated by operand types
	Nop
)

func (op Opcode) String() string {
	names := [...]string{
		"mov", "lea", "add", "sub", "imul", "idiv", "div",
		"and", "or", "xor", "not", "neg", "shl", "sar", "shr",
		"cmp", "test", "jmp", "jcc", "setcc", "call", "ret",
		"push", "pop", "cdq", "cvt", "nop",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// CondCode is an x86 condition code, used by both Jcc and SetCC.
type CondCode int

const (
	CondE  CondCode = iota // equal / zero
	CondNE                 // not equal / not zero
	CondL                  // signed less
	CondLE                 // signed less-or-equal
	CondG                  // signed greater
	CondGE                 // signed greater-or-equal
	CondB                  // unsigned less (below)
	CondBE                 // unsigned less-or-equal (below-or-equal)
	CondA                  // unsigned greater (above)
	CondAE                 // unsigned greater-or-equal (above-or-equal)
)

func (c CondCode) String() string {
	names := [...]string{"e", "ne", "l", "le", "g", "ge", "b", "be", "a", "ae"}
	if int(c) < len(names) {
		return names[c]
	}
	return "?"
}

// Negate returns the condition testing the opposite outcome, used when a
// conditional branch's fallthrough/target arms are swapped by the
// condjump-collapsing pass.
func (c CondCode) Negate() CondCode {
	switch c {
	case CondE:
		return CondNE
	case CondNE:
		return CondE
	case CondL:
		return CondGE
	case CondGE:
		return CondL
	case CondLE:
		return CondG
	case CondG:
		return CondLE
	case CondB:
		return CondAE
	case CondAE:
		return CondB
	case CondBE:
		return CondA
	case CondA:
		return CondBE
	}
	return c
}
