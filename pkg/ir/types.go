// Package ir implements the typed, SSA-capable intermediate representation:
// a value/use/def graph, an interned type and constant system, and the
// module/function/basic-block/instruction hierarchy that the pass pipeline
// in pkg/ir/pass operates over.
package ir

import "fmt"

// TypeKind discriminates the closed set of IR types.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeF32
	TypeF64
	TypeLabel
	TypeMeta // the type of a Type value itself
	TypeFunction
	TypePointer
	TypeArray
	TypeStruct
)

// Type is a hash-consed value describing the shape of another value.
// Two constructions with identical structural content return the same
// pointer; see the Context constructors (PointerType, ArrayType,
// FunctionType, ...).
type Type struct {
	Kind TypeKind

	// Function
	Ret     *Type
	Params  []*Type
	Vararg  bool

	// Pointer / Array
	Elem *Type
	Len  uint64 // Array only

	// Struct: identity is nominal, keyed on a caller-supplied ID.
	StructID      uint64
	StructName    string
	Members       []*Type
	StructFlags   StructFlags
	structComplete bool
}

// StructFlags are reserved bits on a struct type; Packed is accepted by the
// layout code but never produced by any pass in this tree.
type StructFlags uint32

const (
	StructPacked StructFlags = 1 << iota
)

func (t *Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeLabel:
		return "label"
	case TypeMeta:
		return "type"
	case TypeFunction:
		s := t.Ret.String() + " ("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		if t.Vararg {
			if len(t.Params) > 0 {
				s += ", "
			}
			s += "..."
		}
		return s + ")"
	case TypePointer:
		return t.Elem.String() + "*"
	case TypeArray:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem.String())
	case TypeStruct:
		if t.StructName != "" {
			return "%" + t.StructName
		}
		return fmt.Sprintf("%%struct.%d", t.StructID)
	}
	return "<invalid-type>"
}

// IsInteger reports whether t is one of the signed or unsigned integer
// kinds (bool included, treated as a 1-byte integer for arithmetic-adjacent
// folding purposes).
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case TypeBool, TypeI8, TypeI16, TypeI32, TypeI64, TypeU8, TypeU16, TypeU32, TypeU64:
		return true
	}
	return false
}

// IsSigned reports whether t is a signed integer kind.
func (t *Type) IsSigned() bool {
	switch t.Kind {
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return true
	}
	return false
}

// IsFloat reports whether t is f32 or f64.
func (t *Type) IsFloat() bool {
	return t.Kind == TypeF32 || t.Kind == TypeF64
}

// FirstClass reports whether a value of this type may be held in an SSA
// value (as opposed to only appearing as a type annotation). void and
// label are not first class.
func (t *Type) FirstClass() bool {
	return t.Kind != TypeVoid && t.Kind != TypeLabel && t.Kind != TypeMeta
}

// Layout describes size and alignment.
type Layout struct {
	Size  uint64
	Align uint64
}

// SizeOf computes the C-compatible x86-64 size and alignment of t.
// Struct member offsets follow alignup(currentOffset, align(member)).
func SizeOf(t *Type) Layout {
	switch t.Kind {
	case TypeVoid:
		return Layout{0, 1}
	case TypeBool, TypeI8, TypeU8:
		return Layout{1, 1}
	case TypeI16, TypeU16:
		return Layout{2, 2}
	case TypeI32, TypeU32, TypeF32:
		return Layout{4, 4}
	case TypeI64, TypeU64, TypeF64, TypePointer:
		return Layout{8, 8}
	case TypeArray:
		elem := SizeOf(t.Elem)
		return Layout{elem.Size * t.Len, elem.Align}
	case TypeStruct:
		var offset, align uint64 = 0, 1
		for _, m := range t.Members {
			ml := SizeOf(m)
			offset = alignUp(offset, ml.Align)
			offset += ml.Size
			if ml.Align > align {
				align = ml.Align
			}
		}
		return Layout{alignUp(offset, align), align}
	}
	return Layout{0, 1}
}

// StructMemberOffset returns the byte offset of member i within t, walking
// the same alignment rule as SizeOf.
func StructMemberOffset(t *Type, i int) uint64 {
	var offset uint64
	for m := 0; m < i; m++ {
		ml := SizeOf(t.Members[m])
		offset = alignUp(offset, ml.Align)
		offset += ml.Size
	}
	offset = alignUp(offset, SizeOf(t.Members[i]).Align)
	return offset
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// --- interning ---

type funcTypeKey struct {
	ret    *Type
	params string
	vararg bool
}

// Context owns the hash-consed type and constant tables for a single
// compilation. There is no process-wide singleton; every API
// threads a *Context explicitly.
type Context struct {
	primitives map[TypeKind]*Type
	pointers   map[*Type]*Type
	arrays     map[arrayKey]*Type
	functions  map[funcTypeKey]*Type
	structsByID map[uint64]*Type

	constants map[constKey]*Constant

	nextStructID uint64
	nextValueID  int
}

type arrayKey struct {
	elem *Type
	n    uint64
}

// NewContext creates an empty interning context.
func NewContext() *Context {
	return &Context{
		primitives:  make(map[TypeKind]*Type),
		pointers:    make(map[*Type]*Type),
		arrays:      make(map[arrayKey]*Type),
		functions:   make(map[funcTypeKey]*Type),
		structsByID: make(map[uint64]*Type),
		constants:   make(map[constKey]*Constant),
	}
}

// PrimitiveType returns the canonical *Type for one of the fixed primitive
// kinds, interning it on first request.
func (c *Context) PrimitiveType(kind TypeKind) *Type {
	if t, ok := c.primitives[kind]; ok {
		return t
	}
	t := &Type{Kind: kind}
	c.primitives[kind] = t
	return t
}

func (c *Context) VoidType() *Type  { return c.PrimitiveType(TypeVoid) }
func (c *Context) BoolType() *Type  { return c.PrimitiveType(TypeBool) }
func (c *Context) I8Type() *Type    { return c.PrimitiveType(TypeI8) }
func (c *Context) I16Type() *Type   { return c.PrimitiveType(TypeI16) }
func (c *Context) I32Type() *Type   { return c.PrimitiveType(TypeI32) }
func (c *Context) I64Type() *Type   { return c.PrimitiveType(TypeI64) }
func (c *Context) U8Type() *Type    { return c.PrimitiveType(TypeU8) }
func (c *Context) U16Type() *Type   { return c.PrimitiveType(TypeU16) }
func (c *Context) U32Type() *Type   { return c.PrimitiveType(TypeU32) }
func (c *Context) U64Type() *Type   { return c.PrimitiveType(TypeU64) }
func (c *Context) F32Type() *Type   { return c.PrimitiveType(TypeF32) }
func (c *Context) F64Type() *Type   { return c.PrimitiveType(TypeF64) }
func (c *Context) LabelType() *Type { return c.PrimitiveType(TypeLabel) }
func (c *Context) MetaType() *Type  { return c.PrimitiveType(TypeMeta) }

// PointerType returns the canonical pointer-to-elem type.
func (c *Context) PointerType(elem *Type) *Type {
	if t, ok := c.pointers[elem]; ok {
		return t
	}
	t := &Type{Kind: TypePointer, Elem: elem}
	c.pointers[elem] = t
	return t
}

// ArrayType returns the canonical [n x elem] type.
func (c *Context) ArrayType(elem *Type, n uint64) *Type {
	key := arrayKey{elem, n}
	if t, ok := c.arrays[key]; ok {
		return t
	}
	t := &Type{Kind: TypeArray, Elem: elem, Len: n}
	c.arrays[key] = t
	return t
}

// FunctionType returns the canonical function(ret, params, vararg) type.
func (c *Context) FunctionType(ret *Type, params []*Type, vararg bool) *Type {
	sig := ""
	for _, p := range params {
		sig += fmt.Sprintf("%p;", p)
	}
	key := funcTypeKey{ret, sig, vararg}
	if t, ok := c.functions[key]; ok {
		return t
	}
	t := &Type{Kind: TypeFunction, Ret: ret, Params: append([]*Type(nil), params...), Vararg: vararg}
	c.functions[key] = t
	return t
}

// StructBegin returns an incomplete struct handle keyed on a caller-supplied
// unique ID (opaque to interning; names never affect hash-consing). This
// two-phase lifecycle (begin/setMembers/end) accommodates forward
// references among mutually recursive struct types.
func (c *Context) StructBegin(id uint64, name string) *Type {
	if t, ok := c.structsByID[id]; ok {
		return t
	}
	t := &Type{Kind: TypeStruct, StructID: id, StructName: name}
	c.structsByID[id] = t
	if id >= c.nextStructID {
		c.nextStructID = id + 1
	}
	return t
}

// NewStructID mints a fresh unique struct identifier.
func (c *Context) NewStructID() uint64 {
	id := c.nextStructID
	c.nextStructID++
	return id
}

// StructSetMembers fills in a previously-begun struct's member list.
func (t *Type) StructSetMembers(members []*Type, flags StructFlags) {
	if t.Kind != TypeStruct {
		panic("ir: StructSetMembers on non-struct type")
	}
	t.Members = append([]*Type(nil), members...)
	t.StructFlags = flags
}

// StructEnd marks a struct type complete. Nothing rejects a later
// StructSetMembers call on a completed struct.
func (t *Type) StructEnd() {
	if t.Kind != TypeStruct {
		panic("ir: StructEnd on non-struct type")
	}
	t.structComplete = true
}

// StructComplete reports whether StructEnd has been called.
func (t *Type) StructComplete() bool { return t.structComplete }
