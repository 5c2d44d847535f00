package ir

import "fmt"

// InvariantError reports a well-formedness violation detected by
// CheckFunction or CheckModule.
// Callers that want to fail soft should recover a panic of
// this type at a pass-pipeline or CLI boundary; Check itself always panics
// rather than returning an error, since a malformed module means a bug in
// whichever pass produced it, not a reportable user error.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return e.Msg }

func fail(format string, args ...interface{}) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

// CheckModule validates every function in m, panicking with an
// *InvariantError at the first violation found.
func CheckModule(m *Module) {
	for _, f := range m.Functions {
		CheckFunction(f)
	}
}

// CheckFunction validates f's structural invariants:
// every block ends in exactly one terminator as its last instruction,
// phis appear only at block heads with arity equal to predecessor count
// and one incoming value per distinct predecessor, and the Preds/Succs
// arrays are the symmetric converse of each other.
func CheckFunction(f *Function) {
	if f.External() {
		return
	}
	for _, b := range f.Blocks {
		checkBlock(f, b)
	}
	checkCFGSymmetry(f)
}

func checkBlock(f *Function, b *BasicBlock) {
	if len(b.Instrs) == 0 {
		fail("ir: block %q in function %q has no instructions", b.Name, f.Name)
	}
	seenNonPhi := false
	for idx, inst := range b.Instrs {
		isLast := idx == len(b.Instrs)-1
		if inst.Op() == OpPhi {
			if seenNonPhi {
				fail("ir: phi in block %q of %q appears after a non-phi instruction", b.Name, f.Name)
			}
			checkPhi(f, b, inst.(*PhiInst))
		} else {
			seenNonPhi = true
		}
		if inst.IsTerminator() && !isLast {
			fail("ir: terminator in block %q of %q is not the last instruction", b.Name, f.Name)
		}
		if !inst.IsTerminator() && isLast {
			fail("ir: block %q of %q does not end in a terminator", b.Name, f.Name)
		}
		instrCheck(f, b, inst)
	}
}

func checkPhi(f *Function, b *BasicBlock, phi *PhiInst) {
	incoming := phi.Incoming()
	if len(incoming) != len(b.Preds) {
		fail("ir: phi %q in block %q of %q has %d incoming pairs but block has %d predecessors",
			phi.Name, b.Name, f.Name, len(incoming), len(b.Preds))
	}
	seen := make(map[*BasicBlock]bool, len(incoming))
	for _, pair := range incoming {
		pred := blockOf(pair[1].Value())
		if pred == nil {
			fail("ir: phi %q in block %q of %q has a non-block predecessor operand", phi.Name, b.Name, f.Name)
		}
		if seen[pred] {
			fail("ir: phi %q in block %q of %q names predecessor %q more than once", phi.Name, b.Name, f.Name, pred.Name)
		}
		seen[pred] = true
	}
	for _, p := range b.Preds {
		if !seen[p] {
			fail("ir: phi %q in block %q of %q is missing an entry for predecessor %q", phi.Name, b.Name, f.Name, p.Name)
		}
	}
}

func checkCFGSymmetry(f *Function) {
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		want := term.Successors()
		if len(want) != len(b.Succs) {
			fail("ir: block %q of %q has %d terminator successors but %d recorded Succs", b.Name, f.Name, len(want), len(b.Succs))
		}
		for _, s := range want {
			if !containsBlock(b.Succs, s) {
				fail("ir: block %q of %q terminator targets %q, which is absent from Succs", b.Name, f.Name, s.Name)
			}
			if !containsBlock(s.Preds, b) {
				fail("ir: block %q of %q is a successor of %q but not present in its Preds", s.Name, f.Name, b.Name)
			}
		}
	}
}

func containsBlock(list []*BasicBlock, b *BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// instrCheck validates opcode-specific operand-count and type constraints.
func instrCheck(f *Function, b *BasicBlock, inst Instruction) {
	switch in := inst.(type) {
	case *BrInst:
		if !(len(in.ops) == 1 || len(in.ops) == 3) {
			fail("ir: br in block %q of %q has %d operands, want 1 or 3", b.Name, f.Name, len(in.ops))
		}
	case *RetInst:
		if len(in.ops) > 1 {
			fail("ir: ret in block %q of %q has %d operands, want 0 or 1", b.Name, f.Name, len(in.ops))
		}
	case *BinaryInst:
		if len(in.ops) != 2 {
			fail("ir: %s in block %q of %q has %d operands, want 2", in.Op(), b.Name, f.Name, len(in.ops))
		}
	case *CastInst:
		if len(in.ops) != 1 {
			fail("ir: %s in block %q of %q has %d operands, want 1", in.Op(), b.Name, f.Name, len(in.ops))
		}
	case *LoadInst:
		if len(in.ops) != 1 {
			fail("ir: load in block %q of %q has %d operands, want 1", b.Name, f.Name, len(in.ops))
		}
	case *StoreInst:
		if len(in.ops) != 2 {
			fail("ir: store in block %q of %q has %d operands, want 2", b.Name, f.Name, len(in.ops))
		}
	case *AllocaInst:
		// no fixed operand count constraint beyond zero
	case *GEPInst:
		if len(in.ops) < 2 {
			fail("ir: getelementptr in block %q of %q has %d operands, want base + at least one index", b.Name, f.Name, len(in.ops))
		}
	case *CallInst:
		if in.Callee != nil && !in.Callee.FuncType.Vararg && len(in.ops) != len(in.Callee.FuncType.Params) {
			fail("ir: call to %q in block %q of %q passes %d arguments, want %d", in.Callee.Name, b.Name, f.Name, len(in.ops), len(in.Callee.FuncType.Params))
		}
	case *PhiInst:
		if len(in.ops)%2 != 0 {
			fail("ir: phi %q in block %q of %q has an odd operand count", in.Name, b.Name, f.Name)
		}
	}
}
