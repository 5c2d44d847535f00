package ir

import "fmt"

// Constant is a User whose type determines its payload union: bool, i64
// sign-extended integer, u64 unsigned integer, f32, f64, ptr address, or
// aggregate members stored as operand Uses pointing to child constants.
type Constant struct {
	Value
	ops     []*Use
	members []*Constant // parallel to ops, kept for direct access

	IsAggregate bool
	I64         int64
	U64         uint64
	F32         float32
	F64         float64
	PtrAddr     uint64
	GlobalName  string // set with FlagPointsToGlobal
}

func (c *Constant) AsValue() *Value   { return &c.Value }
func (c *Constant) Operands() []*Use { return c.ops }

// Members returns the child constants of an aggregate constant.
func (c *Constant) Members() []*Constant {
	return c.members
}

type constKey struct {
	typ  *Type
	kind int
	pay  string
}

// ConstBool interns a boolean constant.
func (c *Context) ConstBool(v bool) *Constant {
	i := int64(0)
	if v {
		i = 1
	}
	return c.internScalar(c.BoolType(), 0, i, 0, 0, 0, 0, "")
}

// ConstInt interns a signed or unsigned integer constant of the given
// integer type. The value is stored sign-extended in I64 and also mirrored
// unsigned in U64 so folding code can pick whichever the opcode needs.
func (c *Context) ConstInt(t *Type, v int64) *Constant {
	return c.internScalar(t, 1, v, uint64(v), 0, 0, 0, "")
}

// ConstUint interns an unsigned integer constant.
func (c *Context) ConstUint(t *Type, v uint64) *Constant {
	return c.internScalar(t, 1, int64(v), v, 0, 0, 0, "")
}

// ConstF32 interns a float32 constant.
func (c *Context) ConstF32(t *Type, v float32) *Constant {
	return c.internScalar(t, 2, 0, 0, v, 0, 0, "")
}

// ConstF64 interns a float64 constant.
func (c *Context) ConstF64(t *Type, v float64) *Constant {
	return c.internScalar(t, 3, 0, 0, 0, v, 0, "")
}

// ConstPtr interns a raw pointer-address constant (null is address 0).
func (c *Context) ConstPtr(t *Type, addr uint64) *Constant {
	return c.internScalar(t, 4, 0, 0, 0, 0, addr, "")
}

// ConstGlobalPtr interns a pointer-to-global-value constant; printers emit
// the symbol name because of FlagPointsToGlobal.
func (c *Context) ConstGlobalPtr(t *Type, name string) *Constant {
	return c.internScalar(t, 5, 0, 0, 0, 0, 0, name)
}

func (c *Context) internScalar(t *Type, kind int, i64 int64, u64 uint64, f32 float32, f64 float64, ptr uint64, name string) *Constant {
	key := constKey{t, kind, fmt.Sprintf("%d|%d|%v|%v|%d|%s", i64, u64, f32, f64, ptr, name)}
	if v, ok := c.constants[key]; ok {
		return v
	}
	v := &Constant{
		Value:      Value{ID: c.nextValueID, Ty: t, Kind: ValueConstant},
		I64:        i64,
		U64:        u64,
		F32:        f32,
		F64:        f64,
		PtrAddr:    ptr,
		GlobalName: name,
	}
	if name != "" {
		v.Flags |= FlagPointsToGlobal
	}
	v.Owner = v
	c.nextValueID++
	c.constants[key] = v
	return v
}

// ConstAggregate interns an aggregate constant (array or struct) of type t
// over the given member constants.
func (c *Context) ConstAggregate(t *Type, members []*Constant) *Constant {
	key := constKey{t, 6, fmt.Sprintf("%v", members)}
	if v, ok := c.constants[key]; ok {
		return v
	}
	v := &Constant{
		Value:       Value{ID: c.nextValueID, Ty: t, Kind: ValueConstant},
		IsAggregate: true,
	}
	v.Owner = v
	c.nextValueID++
	v.members = append([]*Constant(nil), members...)
	for _, m := range members {
		v.ops = append(v.ops, NewUse(v, &m.Value))
	}
	c.constants[key] = v
	return v
}

// ConstZero returns the canonical zero value of type t, used as the safe
// surrogate for undef reads, used by trivial-phi collapsing.
func (c *Context) ConstZero(t *Type) *Constant {
	switch {
	case t.Kind == TypeBool:
		return c.ConstBool(false)
	case t.IsInteger():
		return c.ConstInt(t, 0)
	case t.Kind == TypeF32:
		return c.ConstF32(t, 0)
	case t.Kind == TypeF64:
		return c.ConstF64(t, 0)
	case t.Kind == TypePointer:
		return c.ConstPtr(t, 0)
	case t.Kind == TypeArray || t.Kind == TypeStruct:
		var members []*Constant
		switch t.Kind {
		case TypeArray:
			for i := uint64(0); i < t.Len; i++ {
				members = append(members, c.ConstZero(t.Elem))
			}
		case TypeStruct:
			for _, m := range t.Members {
				members = append(members, c.ConstZero(m))
			}
		}
		return c.ConstAggregate(t, members)
	}
	panic("ir: ConstZero of non-first-class type")
}
