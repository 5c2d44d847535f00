package ir

import "testing"

func TestCheckFunctionAcceptsWellFormedFunction(t *testing.T) {
	_, fn := buildAddModule(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("well-formed function should not panic, got %v", r)
		}
	}()
	CheckFunction(fn)
}

func TestCheckFunctionRejectsMissingTerminator(t *testing.T) {
	m := NewModule("test")
	fn := m.AddFunction("f", m.Ctx.FunctionType(m.Ctx.VoidType(), nil, false))
	bb := fn.CreateBlock("entry")
	// A block with no instructions at all violates checkBlock's first rule.
	bb.Instrs = nil

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic for a block with no terminator")
		}
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("expected *InvariantError, got %T", r)
		}
	}()
	CheckFunction(fn)
}

func TestCheckFunctionRejectsPhiArityMismatch(t *testing.T) {
	m := NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, nil, false))
	entry := fn.CreateBlock("entry")
	join := fn.CreateBlock("join")

	bld := NewBuilder(entry)
	bld.Br(join)

	bld.SetInsertPoint(join)
	phi := bld.Phi(i32, "")
	// join has exactly one predecessor (entry), but no incoming pair is
	// added — arity mismatch (0 incoming vs 1 predecessor).
	bld.Ret(phi.AsValue())

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic for a phi/predecessor arity mismatch")
		}
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("expected *InvariantError, got %T", r)
		}
	}()
	CheckFunction(fn)
}

func TestCheckFunctionSkipsExternalDeclarations(t *testing.T) {
	m := NewModule("test")
	fn := m.AddFunction("extern_fn", m.Ctx.FunctionType(m.Ctx.VoidType(), nil, false))
	if !fn.External() {
		t.Fatal("a function with no blocks should report External() == true")
	}
	// Should not panic: external functions have no body to validate.
	CheckFunction(fn)
}
