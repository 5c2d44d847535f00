package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/ir"
)

func TestInlineSplicesSmallCalleeIntoCaller(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()

	callee := m.AddFunction("double", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	cb := callee.CreateBlock("entry")
	cbld := ir.NewBuilder(cb)
	sum := cbld.Add(&callee.Args[0].Value, &callee.Args[0].Value, "")
	cbld.Ret(sum.AsValue())

	caller := m.AddFunction("main", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	mb := caller.CreateBlock("entry")
	mbld := ir.NewBuilder(mb)
	call := mbld.Call(callee, []*ir.Value{&caller.Args[0].Value}, i32, "")
	mbld.Ret(call.AsValue())

	if !Inline(m, 100) {
		t.Fatal("expected the single call site to be inlined")
	}

	for _, b := range caller.Blocks {
		for _, inst := range b.Instrs {
			if c, ok := inst.(*ir.CallInst); ok {
				t.Fatalf("expected no call instructions left in caller, found call to %s", c.Callee.Name)
			}
		}
	}
	ir.CheckModule(m)
}

func TestInlineSkipsCalleeOverBudget(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()

	callee := m.AddFunction("big", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	cb := callee.CreateBlock("entry")
	cbld := ir.NewBuilder(cb)
	v := &callee.Args[0].Value
	for i := 0; i < 5; i++ {
		one := m.Ctx.ConstInt(i32, 1)
		add := cbld.Add(v, one.AsValue(), "")
		v = add.AsValue()
	}
	cbld.Ret(v)

	caller := m.AddFunction("main", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	mb := caller.CreateBlock("entry")
	mbld := ir.NewBuilder(mb)
	call := mbld.Call(callee, []*ir.Value{&caller.Args[0].Value}, i32, "")
	mbld.Ret(call.AsValue())

	if Inline(m, 2) {
		t.Fatal("a callee over the instruction budget must not be inlined")
	}
	found := false
	for _, b := range caller.Blocks {
		for _, inst := range b.Instrs {
			if _, ok := inst.(*ir.CallInst); ok {
				found = true
			}
		}
	}
	if !found {
		t.Error("the call instruction should still be present")
	}
}

func TestInlineNeverInlinesSelfRecursiveFunction(t *testing.T) {
	m := ir.NewModule("test")
	i32 := m.Ctx.I32Type()

	f := m.AddFunction("loop", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	fb := f.CreateBlock("entry")
	fbld := ir.NewBuilder(fb)
	fbld.Call(f, []*ir.Value{&f.Args[0].Value}, i32, "")
	fbld.Ret(&f.Args[0].Value)

	caller := m.AddFunction("main", m.Ctx.FunctionType(i32, []*ir.Type{i32}, false))
	mb := caller.CreateBlock("entry")
	mbld := ir.NewBuilder(mb)
	call := mbld.Call(f, []*ir.Value{&caller.Args[0].Value}, i32, "")
	mbld.Ret(call.AsValue())

	if Inline(m, 1000) {
		t.Fatal("a self-recursive function must never be treated as inlinable")
	}
}
