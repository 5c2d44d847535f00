package ir

import "testing"

func TestPrimitiveTypesAreInterned(t *testing.T) {
	ctx := NewContext()
	if ctx.I32Type() != ctx.I32Type() {
		t.Error("I32Type should return the same pointer on repeated calls")
	}
	if ctx.I32Type() == ctx.I64Type() {
		t.Error("distinct primitive kinds should not intern to the same type")
	}
}

func TestPointerAndArrayTypesAreInterned(t *testing.T) {
	ctx := NewContext()
	p1 := ctx.PointerType(ctx.I32Type())
	p2 := ctx.PointerType(ctx.I32Type())
	if p1 != p2 {
		t.Error("pointer-to-i32 should be interned to one type")
	}

	a1 := ctx.ArrayType(ctx.I8Type(), 4)
	a2 := ctx.ArrayType(ctx.I8Type(), 4)
	if a1 != a2 {
		t.Error("[4 x i8] should be interned to one type")
	}
	a3 := ctx.ArrayType(ctx.I8Type(), 8)
	if a1 == a3 {
		t.Error("arrays of different length must not be interned together")
	}
}

func TestStructSizeOfMatchesAlignmentPadding(t *testing.T) {
	ctx := NewContext()
	// struct { i8; i32 } lays out as offset 0 (i8), padding to 4, offset 4
	// (i32), size rounds up to the max member alignment (4).
	st := ctx.StructBegin(ctx.NewStructID(), "pair")
	st.StructSetMembers([]*Type{ctx.I8Type(), ctx.I32Type()}, 0)
	st.StructEnd()

	layout := SizeOf(st)
	if layout.Size != 8 {
		t.Errorf("expected size 8, got %d", layout.Size)
	}
	if layout.Align != 4 {
		t.Errorf("expected align 4, got %d", layout.Align)
	}
	if off := StructMemberOffset(st, 1); off != 4 {
		t.Errorf("expected i32 member at offset 4, got %d", off)
	}
}

func TestArraySizeOf(t *testing.T) {
	ctx := NewContext()
	arr := ctx.ArrayType(ctx.I64Type(), 3)
	layout := SizeOf(arr)
	if layout.Size != 24 {
		t.Errorf("expected size 24, got %d", layout.Size)
	}
	if layout.Align != 8 {
		t.Errorf("expected align 8, got %d", layout.Align)
	}
}

func TestFunctionTypeString(t *testing.T) {
	ctx := NewContext()
	ft := ctx.FunctionType(ctx.I32Type(), []*Type{ctx.I32Type(), ctx.I32Type()}, false)
	want := "i32 (i32, i32)"
	if got := ft.String(); got != want {
		t.Errorf("FunctionType.String() = %q, want %q", got, want)
	}
}

func TestConstantsAreInterned(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.I32Type()
	a := ctx.ConstInt(i32, 42)
	b := ctx.ConstInt(i32, 42)
	if a != b {
		t.Error("identical int constants should be interned to one value")
	}
	c := ctx.ConstInt(i32, 43)
	if a == c {
		t.Error("distinct int constants must not be interned together")
	}
}

func TestConstZeroAggregate(t *testing.T) {
	ctx := NewContext()
	arr := ctx.ArrayType(ctx.I32Type(), 3)
	zero := ctx.ConstZero(arr)
	if !zero.IsAggregate {
		t.Fatal("array zero value should be an aggregate constant")
	}
	if len(zero.Members()) != 3 {
		t.Fatalf("expected 3 members, got %d", len(zero.Members()))
	}
	for _, m := range zero.Members() {
		if m.I64 != 0 {
			t.Errorf("expected zero member, got %d", m.I64)
		}
	}
}
