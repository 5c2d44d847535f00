package ir

import "testing"

func TestParseSimpleFunction(t *testing.T) {
	src := `define i32 @add(i32 %a, i32 %b) {
entry:
  %1 = add %a %b
  ret %1
}
`
	m, err := Parse("test.jir", src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(m.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(m.Functions))
	}
	fn := m.Functions[0]
	if fn.Name != "add" || fn.External() {
		t.Fatalf("expected a defined function named add, got %q external=%v", fn.Name, fn.External())
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}
	entry := fn.Blocks[0]
	if len(entry.Instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(entry.Instrs))
	}
	add, ok := entry.Instrs[0].(*BinaryInst)
	if !ok || add.Op() != OpAdd {
		t.Fatalf("expected an add instruction, got %T", entry.Instrs[0])
	}
	if add.LHS().Value() != &fn.Args[0].Value {
		t.Error("add's lhs should resolve to the first parameter")
	}
	ret, ok := entry.Instrs[1].(*RetInst)
	if !ok {
		t.Fatalf("expected a ret instruction, got %T", entry.Instrs[1])
	}
	if ret.Value_().Value() != add.AsValue() {
		t.Error("ret should return the add's result")
	}

	CheckModule(m) // should not panic
}

func TestParseConditionalBranchAndPhi(t *testing.T) {
	src := `define i32 @choose(bool %cond) {
entry:
  br %cond %then %else
then:
  br %join
else:
  br %join
join:
  %r = phi i32 [ 10, %then ], [ 20, %else ]
  ret %r
}
`
	m, err := Parse("test.jir", src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	fn := m.Functions[0]
	var join *BasicBlock
	for _, b := range fn.Blocks {
		if b.Name == "join" {
			join = b
		}
	}
	if join == nil {
		t.Fatal("expected a join block")
	}
	phi, ok := join.Instrs[0].(*PhiInst)
	if !ok {
		t.Fatalf("expected phi as join's first instruction, got %T", join.Instrs[0])
	}
	incoming := phi.Incoming()
	if len(incoming) != 2 {
		t.Fatalf("expected 2 incoming pairs, got %d", len(incoming))
	}

	CheckModule(m) // should not panic: phi arity matches predecessor count
}

func TestParseUnknownOpcodeErrors(t *testing.T) {
	src := `define void @f() {
entry:
  frobnicate
  ret
}
`
	if _, err := Parse("test.jir", src); err == nil {
		t.Fatal("expected an error for an unknown opcode")
	}
}

func TestParseGlobalWithInitializer(t *testing.T) {
	src := `define constant @limit : i32 = 100

define i32 @f() {
entry:
  %1 = load i32 @limit
  ret %1
}
`
	m, err := Parse("test.jir", src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(m.Globals) != 1 {
		t.Fatalf("expected 1 global, got %d", len(m.Globals))
	}
	g := m.Globals[0]
	if !g.Constant || g.External {
		t.Fatalf("expected a defined constant global, got constant=%v external=%v", g.Constant, g.External)
	}
	init := g.Initializer()
	if init == nil || init.I64 != 100 {
		t.Fatalf("expected initializer 100, got %+v", init)
	}
}

func TestParseRoundTripsPrintedBinaryFunction(t *testing.T) {
	m := NewModule("original")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("add", m.Ctx.FunctionType(i32, []*Type{i32, i32}, false))
	fn.Args[0].Name = "a"
	fn.Args[1].Name = "b"
	bb := fn.CreateBlock("entry")
	bld := NewBuilder(bb)
	sum := bld.Add(&fn.Args[0].Value, &fn.Args[1].Value, "sum")
	bld.Ret(sum.AsValue())

	printed := Print(m)

	reparsed, err := Parse("roundtrip.jir", printed)
	if err != nil {
		t.Fatalf("Parse of printed output failed: %v\n--- printed ---\n%s", err, printed)
	}
	fn2 := reparsed.Functions[0]
	if len(fn2.Blocks) != 1 || len(fn2.Blocks[0].Instrs) != 2 {
		t.Fatalf("reparsed function structure mismatch: %d blocks", len(fn2.Blocks))
	}
	if fn2.Blocks[0].Instrs[0].Op() != OpAdd {
		t.Errorf("expected first instruction to be add, got %v", fn2.Blocks[0].Instrs[0].Op())
	}
	if fn2.Blocks[0].Instrs[1].Op() != OpRet {
		t.Errorf("expected second instruction to be ret, got %v", fn2.Blocks[0].Instrs[1].Op())
	}
	CheckModule(reparsed)
}
