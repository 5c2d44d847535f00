package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/ir"
)

func TestRemoveRedundantPhisCollapsesSingleDistinctIncoming(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, nil, false))
	entry := fn.CreateBlock("entry")
	a := fn.CreateBlock("a")
	b := fn.CreateBlock("b")
	join := fn.CreateBlock("join")

	cond := m.Ctx.ConstBool(true)
	bld := ir.NewBuilder(entry)
	bld.CondBr(cond.AsValue(), a, b)
	bld.SetInsertPoint(a)
	bld.Br(join)
	bld.SetInsertPoint(b)
	bld.Br(join)

	bld.SetInsertPoint(join)
	five := m.Ctx.ConstInt(i32, 5)
	phi := bld.Phi(i32, "")
	phi.AddIncoming(five.AsValue(), a)
	phi.AddIncoming(five.AsValue(), b) // both incoming values identical
	bld.Ret(phi.AsValue())

	if !RemoveRedundantPhis(fn) {
		t.Fatal("expected a phi with one distinct incoming value to be removed")
	}
	ret := join.Instrs[len(join.Instrs)-1].(*ir.RetInst)
	if ret.Value_().Value() != five.AsValue() {
		t.Error("the ret should now reference the phi's single distinct value directly")
	}
}

func TestRemoveRedundantPhisLeavesGenuineMergeAlone(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()
	fn := m.AddFunction("f", m.Ctx.FunctionType(i32, nil, false))
	entry := fn.CreateBlock("entry")
	a := fn.CreateBlock("a")
	b := fn.CreateBlock("b")
	join := fn.CreateBlock("join")

	cond := m.Ctx.ConstBool(true)
	bld := ir.NewBuilder(entry)
	bld.CondBr(cond.AsValue(), a, b)
	bld.SetInsertPoint(a)
	bld.Br(join)
	bld.SetInsertPoint(b)
	bld.Br(join)

	bld.SetInsertPoint(join)
	ten := m.Ctx.ConstInt(i32, 10)
	twenty := m.Ctx.ConstInt(i32, 20)
	phi := bld.Phi(i32, "")
	phi.AddIncoming(ten.AsValue(), a)
	phi.AddIncoming(twenty.AsValue(), b)
	bld.Ret(phi.AsValue())

	if RemoveRedundantPhis(fn) {
		t.Fatal("a phi merging two genuinely distinct values must not be removed")
	}
}
