package ir

import "testing"

// buildAddModule builds fn(a, b i32) i32 { return a + b } and returns the
// module and the function.
func buildAddModule(t *testing.T) (*Module, *Function) {
	t.Helper()
	m := NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("add", m.Ctx.FunctionType(i32, []*Type{i32, i32}, false))
	entry := fn.CreateBlock("entry")
	bld := NewBuilder(entry)
	sum := bld.Add(&fn.Args[0].Value, &fn.Args[1].Value, "")
	bld.Ret(sum.AsValue())
	return m, fn
}

func TestBuilderAddRet(t *testing.T) {
	_, fn := buildAddModule(t)
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}
	entry := fn.Blocks[0]
	if len(entry.Instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(entry.Instrs))
	}
	add, ok := entry.Instrs[0].(*BinaryInst)
	if !ok {
		t.Fatalf("expected *BinaryInst, got %T", entry.Instrs[0])
	}
	if add.Op() != OpAdd {
		t.Errorf("expected OpAdd, got %v", add.Op())
	}
	ret, ok := entry.Instrs[1].(*RetInst)
	if !ok {
		t.Fatalf("expected *RetInst, got %T", entry.Instrs[1])
	}
	if !ret.IsTerminator() {
		t.Error("ret should be a terminator")
	}
	if ret.Value_().Value() != add.AsValue() {
		t.Error("ret should return the add's result")
	}
}

func TestBuilderCondBrEstablishesEdges(t *testing.T) {
	m := NewModule("test")
	fn := m.AddFunction("f", m.Ctx.FunctionType(m.Ctx.VoidType(), nil, false))
	entry := fn.CreateBlock("entry")
	thenBB := fn.CreateBlock("then")
	elseBB := fn.CreateBlock("else")

	bld := NewBuilder(entry)
	cond := m.Ctx.ConstBool(true)
	bld.CondBr(cond.AsValue(), thenBB, elseBB)

	bld.SetInsertPoint(thenBB)
	bld.RetVoid()
	bld.SetInsertPoint(elseBB)
	bld.RetVoid()

	if len(entry.Succs) != 2 {
		t.Fatalf("expected 2 successors, got %d", len(entry.Succs))
	}
	if entry.Succs[0] != thenBB || entry.Succs[1] != elseBB {
		t.Error("successors should be [then, else] in operand order")
	}
	if len(thenBB.Preds) != 1 || thenBB.Preds[0] != entry {
		t.Error("then block should have entry as its sole predecessor")
	}
	if len(elseBB.Preds) != 1 || elseBB.Preds[0] != entry {
		t.Error("else block should have entry as its sole predecessor")
	}
}

func TestBuilderPhiInsertsBeforeNonPhiInstrs(t *testing.T) {
	m := NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, nil, false))
	bb := fn.CreateBlock("bb")
	bld := NewBuilder(bb)

	// Emit a non-phi instruction first, then a phi — the phi must still end
	// up at the front of the block's instruction list.
	one := m.Ctx.ConstInt(i32, 1)
	bld.Add(one.AsValue(), one.AsValue(), "")
	phi := bld.Phi(i32, "")

	if bb.Instrs[0] != phi {
		t.Fatalf("phi should be inserted at block head, got %T first", bb.Instrs[0])
	}
}

func TestReplaceAllUsesWith(t *testing.T) {
	m := NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, nil, false))
	bb := fn.CreateBlock("entry")
	bld := NewBuilder(bb)

	one := m.Ctx.ConstInt(i32, 1)
	two := m.Ctx.ConstInt(i32, 2)
	add := bld.Add(one.AsValue(), two.AsValue(), "")
	bld.Ret(add.AsValue())

	three := m.Ctx.ConstInt(i32, 3)
	ReplaceAllUsesWith(add.AsValue(), three.AsValue())

	ret := bb.Instrs[1].(*RetInst)
	if ret.Value_().Value() != three.AsValue() {
		t.Error("ret operand should now point at the replacement value")
	}
	if add.AsValue().usesHead != nil {
		t.Error("replaced value should have no remaining uses")
	}
}
