package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/ir"
)

func TestCanonicalizeOperandsMovesConstantToRHS(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	bb := fn.CreateBlock("entry")
	bld := ir.NewBuilder(bb)

	five := m.Ctx.ConstInt(i32, 5)
	add := bld.Add(five.AsValue(), &fn.Args[0].Value, "")
	bld.Ret(add.AsValue())

	if !CanonicalizeOperands(fn) {
		t.Fatal("expected the constant-on-the-left add to be reordered")
	}
	if add.LHS().Value() != &fn.Args[0].Value {
		t.Error("expected the argument to move to the left-hand side")
	}
	if add.RHS().Value() != five.AsValue() {
		t.Error("expected the constant to move to the right-hand side")
	}
}

func TestCanonicalizeOperandsLeavesAlreadyCanonicalAlone(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	bb := fn.CreateBlock("entry")
	bld := ir.NewBuilder(bb)

	five := m.Ctx.ConstInt(i32, 5)
	add := bld.Add(&fn.Args[0].Value, five.AsValue(), "")
	bld.Ret(add.AsValue())

	if CanonicalizeOperands(fn) {
		t.Fatal("an add already in canonical (var, const) order should report no change")
	}
}

func TestCanonicalizeOperandsSkipsNonCommutativeOps(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	bb := fn.CreateBlock("entry")
	bld := ir.NewBuilder(bb)

	five := m.Ctx.ConstInt(i32, 5)
	sub := bld.Sub(five.AsValue(), &fn.Args[0].Value, "")
	bld.Ret(sub.AsValue())

	if CanonicalizeOperands(fn) {
		t.Fatal("subtraction is not commutative and must not be reordered")
	}
}
