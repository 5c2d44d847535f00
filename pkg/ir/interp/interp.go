// Package interp implements a tree-walking interpreter over pkg/ir
// functions, used to validate a pass's semantic transparency against a
// reference execution: run a function before and after a
// pass and compare results.
package interp

import (
	"fmt"

	"github.com/jdryg/jitcc/pkg/ir"
)

// Value is the interpreter's runtime value. Integer results carry their
// value in I64 and U64 alike (signed and unsigned div, rem and shr fill
// only the field their signedness reads); floats use F32 or F64 and
// pointers use Ptr.
type Value struct {
	I64 int64
	U64 uint64
	F32 float32
	F64 float64
	Ptr uint64
}

// Memory is a flat byte-addressed store backing alloca/load/store; stack
// objects and globals share one address space, allocated bump-pointer
// style starting at a nonzero base so a null pointer (address 0) is never
// accidentally valid.
type Memory struct {
	bytes []byte
	base  uint64
}

const memoryBase = 0x1000

// NewMemory returns an empty memory image.
func NewMemory() *Memory {
	return &Memory{bytes: make([]byte, 0, 4096), base: memoryBase}
}

// Alloc reserves n bytes and returns their address.
func (m *Memory) Alloc(n uint64) uint64 {
	addr := m.base + uint64(len(m.bytes))
	m.bytes = append(m.bytes, make([]byte, n)...)
	return addr
}

func (m *Memory) offset(addr uint64) int {
	return int(addr - m.base)
}

// Read loads n little-endian bytes from addr as an unsigned integer.
func (m *Memory) Read(addr uint64, n int) uint64 {
	off := m.offset(addr)
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(m.bytes[off+i]) << (8 * uint(i))
	}
	return v
}

// Write stores the low n bytes of v at addr, little-endian.
func (m *Memory) Write(addr uint64, v uint64, n int) {
	off := m.offset(addr)
	for i := 0; i < n; i++ {
		m.bytes[off+i] = byte(v >> (8 * uint(i)))
	}
}

// Interp executes ir.Function bodies against a shared Memory and a fixed
// recursion ceiling (no hardware call stack backs this interpreter, so
// unbounded recursion must be caught explicitly rather than overflowing).
type Interp struct {
	Mem       *Memory
	MaxDepth  int
	Functions map[string]*ir.Function
}

// New returns an interpreter over the functions of m.
func New(m *ir.Module) *Interp {
	it := &Interp{Mem: NewMemory(), MaxDepth: 10000, Functions: make(map[string]*ir.Function)}
	for _, f := range m.Functions {
		it.Functions[f.Name] = f
	}
	return it
}

// frame holds one call's SSA-value bindings; phis read the value bound for
// their chosen predecessor before control ever reaches the phi's block,
// mirroring the "phi reads happen at the end of the predecessor" semantics
// a real lowering gives them.
type frame struct {
	vals map[*ir.Value]Value
}

func newFrame() *frame { return &frame{vals: make(map[*ir.Value]Value)} }

// Run executes fn with the given argument values and returns its return
// value (the zero Value for a void function).
func (it *Interp) Run(fn *ir.Function, args []Value) (Value, error) {
	return it.call(fn, args, 0)
}

func (it *Interp) call(fn *ir.Function, args []Value, depth int) (Value, error) {
	if depth > it.MaxDepth {
		return Value{}, fmt.Errorf("interp: recursion depth exceeded calling %s", fn.Name)
	}
	if fn.External() {
		return Value{}, fmt.Errorf("interp: cannot execute external function %s", fn.Name)
	}
	fr := newFrame()
	for i, a := range fn.Args {
		fr.vals[a.AsValue()] = args[i]
	}

	block := fn.Blocks[0]
	var pred *ir.BasicBlock
	for {
		for _, inst := range block.Instrs {
			if inst.Op() == ir.OpPhi {
				phi := inst.(*ir.PhiInst)
				if v := phiValueFor(phi, pred); v != nil && v.Kind == ir.ValueConstant {
					fr.vals[phi.AsValue()] = constValue(v)
				} else {
					fr.vals[phi.AsValue()] = fr.vals[v]
				}
				continue
			}
			result, next, retVal, isRet, err := it.step(fr, block, inst, depth)
			if err != nil {
				return Value{}, err
			}
			if isRet {
				return retVal, nil
			}
			if inst.AsValue().Type() != nil && inst.AsValue().Type().FirstClass() {
				fr.vals[inst.AsValue()] = result
			}
			if next != nil {
				pred = block
				block = next
				break
			}
		}
	}
}

func phiValueFor(phi *ir.PhiInst, pred *ir.BasicBlock) *ir.Value {
	return phi.ValueForBlock(pred)
}

// step executes one non-phi instruction. next is non-nil when a terminator
// transferred control to another block within the same call.
func (it *Interp) step(fr *frame, block *ir.BasicBlock, inst ir.Instruction, depth int) (result Value, next *ir.BasicBlock, retVal Value, isRet bool, err error) {
	switch in := inst.(type) {
	case *ir.RetInst:
		if u := in.Value_(); u != nil {
			return Value{}, nil, it.operand(fr, u), true, nil
		}
		return Value{}, nil, Value{}, true, nil
	case *ir.BrInst:
		if in.IsConditional() {
			cond := it.operand(fr, in.Cond())
			if cond.I64 != 0 {
				return Value{}, in.TrueBB(), Value{}, false, nil
			}
			return Value{}, in.FalseBB(), Value{}, false, nil
		}
		return Value{}, in.Target(), Value{}, false, nil
	case *ir.BinaryInst:
		v, e := it.evalBinary(fr, in)
		return v, nil, Value{}, false, e
	case *ir.CastInst:
		return it.evalCast(fr, in), nil, Value{}, false, nil
	case *ir.AllocaInst:
		size := ir.SizeOf(in.AllocType).Size
		return Value{Ptr: it.Mem.Alloc(size)}, nil, Value{}, false, nil
	case *ir.LoadInst:
		addr := it.operand(fr, in.Addr()).Ptr
		size := ir.SizeOf(in.AsValue().Type()).Size
		return Value{U64: it.Mem.Read(addr, int(size)), I64: int64(it.Mem.Read(addr, int(size)))}, nil, Value{}, false, nil
	case *ir.StoreInst:
		addr := it.operand(fr, in.Addr()).Ptr
		val := it.operand(fr, in.Val())
		size := ir.SizeOf(valueType(in.Val())).Size
		it.Mem.Write(addr, val.U64, int(size))
		return Value{}, nil, Value{}, false, nil
	case *ir.GEPInst:
		return it.evalGEP(fr, in), nil, Value{}, false, nil
	case *ir.CallInst:
		v, e := it.evalCall(fr, in, depth)
		return v, nil, Value{}, false, e
	default:
		return Value{}, nil, Value{}, false, fmt.Errorf("interp: unsupported instruction %s", inst.Op())
	}
}

func valueType(u *ir.Use) *ir.Type { return u.Value().Type() }

func (it *Interp) operand(fr *frame, u *ir.Use) Value {
	v := u.Value()
	if v.Kind == ir.ValueConstant {
		return constValue(v)
	}
	return fr.vals[v]
}

func constValue(v *ir.Value) Value {
	c, _ := v.Owner.(*ir.Constant)
	if c == nil {
		return Value{}
	}
	return Value{I64: c.I64, U64: c.U64, F32: c.F32, F64: c.F64, Ptr: c.PtrAddr}
}

func (it *Interp) evalBinary(fr *frame, in *ir.BinaryInst) (Value, error) {
	l, r := it.operand(fr, in.LHS()), it.operand(fr, in.RHS())
	t := in.LHS().Value().Type()
	if t.IsFloat() {
		return evalFloatBinary(in.Op(), t, l, r)
	}
	return evalIntBinary(in.Op(), t, l, r)
}

func evalIntBinary(op ir.Opcode, t *ir.Type, l, r Value) (Value, error) {
	signed := t.IsSigned()
	switch op {
	case ir.OpAdd:
		return Value{I64: l.I64 + r.I64, U64: l.U64 + r.U64}, nil
	case ir.OpSub:
		return Value{I64: l.I64 - r.I64, U64: l.U64 - r.U64}, nil
	case ir.OpMul:
		return Value{I64: l.I64 * r.I64, U64: l.U64 * r.U64}, nil
	case ir.OpDiv:
		if signed {
			if r.I64 == 0 {
				return Value{}, fmt.Errorf("interp: division by zero")
			}
			return Value{I64: l.I64 / r.I64}, nil
		}
		if r.U64 == 0 {
			return Value{}, fmt.Errorf("interp: division by zero")
		}
		return Value{U64: l.U64 / r.U64}, nil
	case ir.OpRem:
		if signed {
			if r.I64 == 0 {
				return Value{}, fmt.Errorf("interp: division by zero")
			}
			return Value{I64: l.I64 % r.I64}, nil
		}
		if r.U64 == 0 {
			return Value{}, fmt.Errorf("interp: division by zero")
		}
		return Value{U64: l.U64 % r.U64}, nil
	case ir.OpAnd:
		return Value{U64: l.U64 & r.U64, I64: l.I64 & r.I64}, nil
	case ir.OpOr:
		return Value{U64: l.U64 | r.U64, I64: l.I64 | r.I64}, nil
	case ir.OpXor:
		return Value{U64: l.U64 ^ r.U64, I64: l.I64 ^ r.I64}, nil
	case ir.OpShl:
		return Value{U64: l.U64 << uint(r.U64), I64: l.I64 << uint(r.U64)}, nil
	case ir.OpShr:
		if signed {
			return Value{I64: l.I64 >> uint(r.U64)}, nil
		}
		return Value{U64: l.U64 >> uint(r.U64)}, nil
	case ir.OpLe, ir.OpGe, ir.OpLt, ir.OpGt, ir.OpEq, ir.OpNe:
		var b bool
		if signed {
			b = intCmp(op, l.I64, r.I64)
		} else {
			b = uintCmp(op, l.U64, r.U64)
		}
		return boolValue(b), nil
	}
	return Value{}, fmt.Errorf("interp: unsupported integer opcode %s", op)
}

func intCmp(op ir.Opcode, l, r int64) bool {
	switch op {
	case ir.OpLe:
		return l <= r
	case ir.OpGe:
		return l >= r
	case ir.OpLt:
		return l < r
	case ir.OpGt:
		return l > r
	case ir.OpEq:
		return l == r
	case ir.OpNe:
		return l != r
	}
	return false
}

func uintCmp(op ir.Opcode, l, r uint64) bool {
	switch op {
	case ir.OpLe:
		return l <= r
	case ir.OpGe:
		return l >= r
	case ir.OpLt:
		return l < r
	case ir.OpGt:
		return l > r
	case ir.OpEq:
		return l == r
	case ir.OpNe:
		return l != r
	}
	return false
}

func boolValue(b bool) Value {
	if b {
		return Value{I64: 1, U64: 1}
	}
	return Value{}
}

func evalFloatBinary(op ir.Opcode, t *ir.Type, l, r Value) (Value, error) {
	is32 := t.Kind == ir.TypeF32
	var lf, rf float64
	if is32 {
		lf, rf = float64(l.F32), float64(r.F32)
	} else {
		lf, rf = l.F64, r.F64
	}
	mk := func(v float64) Value {
		if is32 {
			return Value{F32: float32(v)}
		}
		return Value{F64: v}
	}
	switch op {
	case ir.OpAdd:
		return mk(lf + rf), nil
	case ir.OpSub:
		return mk(lf - rf), nil
	case ir.OpMul:
		return mk(lf * rf), nil
	case ir.OpDiv:
		if rf == 0 {
			return Value{}, fmt.Errorf("interp: float division by zero")
		}
		return mk(lf / rf), nil
	case ir.OpLe, ir.OpGe, ir.OpLt, ir.OpGt, ir.OpEq, ir.OpNe:
		return boolValue(intCmpFloat(op, lf, rf)), nil
	}
	return Value{}, fmt.Errorf("interp: unsupported float opcode %s", op)
}

func intCmpFloat(op ir.Opcode, l, r float64) bool {
	switch op {
	case ir.OpLe:
		return l <= r
	case ir.OpGe:
		return l >= r
	case ir.OpLt:
		return l < r
	case ir.OpGt:
		return l > r
	case ir.OpEq:
		return l == r
	case ir.OpNe:
		return l != r
	}
	return false
}

func (it *Interp) evalCast(fr *frame, in *ir.CastInst) Value {
	src := it.operand(fr, in.Src())
	switch in.Op() {
	case ir.OpTrunc, ir.OpZext, ir.OpBitcast, ir.OpPtrToInt, ir.OpIntToPtr:
		return src
	case ir.OpSext:
		return Value{I64: src.I64, U64: uint64(src.I64)}
	case ir.OpFPTrunc:
		return Value{F32: float32(src.F64)}
	case ir.OpFPExt:
		return Value{F64: float64(src.F32)}
	case ir.OpFPToInt:
		if in.AsValue().Type().IsFloat() {
			return src
		}
		return Value{I64: int64(src.F64), U64: uint64(int64(src.F64))}
	case ir.OpIntToFP:
		return Value{F64: float64(src.I64)}
	}
	return Value{}
}

func (it *Interp) evalGEP(fr *frame, in *ir.GEPInst) Value {
	base := it.operand(fr, in.Base()).Ptr
	t := in.SourceType
	for _, idxUse := range in.Indices() {
		idx := it.operand(fr, idxUse)
		switch t.Kind {
		case ir.TypeArray:
			base += idx.U64 * ir.SizeOf(t.Elem).Size
			t = t.Elem
		case ir.TypeStruct:
			base += ir.StructMemberOffset(t, int(idx.U64))
			t = t.Members[idx.U64]
		default:
			base += idx.U64 * ir.SizeOf(t).Size
		}
	}
	return Value{Ptr: base}
}

func (it *Interp) evalCall(fr *frame, in *ir.CallInst, depth int) (Value, error) {
	args := make([]Value, len(in.Args()))
	for i, u := range in.Args() {
		args[i] = it.operand(fr, u)
	}
	callee := in.Callee
	if callee == nil {
		return Value{}, fmt.Errorf("interp: indirect calls are not supported")
	}
	return it.call(callee, args, depth+1)
}
