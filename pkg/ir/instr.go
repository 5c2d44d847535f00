package ir

// Opcode enumerates every IR operation.
type Opcode int

const (
	OpRet Opcode = iota
	OpBr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLe
	OpGe
	OpLt
	OpGt
	OpEq
	OpNe
	OpTrunc
	OpZext
	OpSext
	OpFPTrunc
	OpFPExt
	OpFPToInt
	OpIntToFP
	OpBitcast
	OpPtrToInt
	OpIntToPtr
	OpAlloca
	OpLoad
	OpStore
	OpGetElementPtr
	OpCall
	OpPhi
)

func (op Opcode) String() string {
	names := [...]string{
		"ret", "br", "add", "sub", "mul", "div", "rem",
		"and", "or", "xor", "shl", "shr",
		"le", "ge", "lt", "gt", "eq", "ne",
		"trunc", "zext", "sext", "fptrunc", "fpext", "fptoint", "inttofp",
		"bitcast", "ptrtoint", "inttoptr",
		"alloca", "load", "store", "getelementptr", "call", "phi",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "<invalid-opcode>"
}

// IsComparison reports whether op is one of the six condition-code
// comparison opcodes.
func (op Opcode) IsComparison() bool {
	return op >= OpLe && op <= OpNe
}

// IsCommutative reports whether operand order can be freely swapped.
func (op Opcode) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpAnd, OpOr, OpXor, OpEq, OpNe:
		return true
	}
	return false
}

// Instruction is an operation-carrying User that references its parent
// basic block. Phi and terminators additionally satisfy
// Terminator-specific helpers below.
type Instruction interface {
	User
	Op() Opcode
	Block() *BasicBlock
	setBlock(*BasicBlock)
	IsTerminator() bool
	// Successors returns the blocks a terminator may transfer control to,
	// in operand order ([true,false] for a conditional branch, [target]
	// otherwise).
	// Non-terminators return nil.
	Successors() []*BasicBlock
}

// Inst is the common embedded header every concrete instruction carries.
type Inst struct {
	Value
	opcode Opcode
	ops    []*Use
	parent *BasicBlock
	self   User // the concrete instruction type; set by bindSelf at construction
}

func (i *Inst) AsValue() *Value      { return &i.Value }
func (i *Inst) Operands() []*Use     { return i.ops }
func (i *Inst) Op() Opcode           { return i.opcode }
func (i *Inst) Block() *BasicBlock   { return i.parent }
func (i *Inst) setBlock(b *BasicBlock) { i.parent = b }
func (i *Inst) IsTerminator() bool {
	return i.opcode == OpRet || i.opcode == OpBr
}
func (i *Inst) Successors() []*BasicBlock { return nil }

func newInst(f *Function, opcode Opcode, ty *Type, name string) Inst {
	if name == "" && ty != nil && ty.FirstClass() {
		name = f.NextTempName()
	}
	v := Value{ID: f.ctx.nextValueID, Ty: ty, Kind: ValueInstruction, Name: name}
	f.ctx.nextValueID++
	return Inst{Value: v, opcode: opcode}
}

func (i *Inst) addOperand(val *Value) *Use {
	u := NewUse(i.self, val)
	i.ops = append(i.ops, u)
	return u
}

// bindSelf records the concrete instruction type embedding this Inst, so
// addOperand (which only has access to *Inst) can register uses against the
// right owner, and so a *Value recovered from a Use can be downcast back to
// its concrete instruction type via Value.Owner. Every construction helper
// in builder.go calls this immediately after allocating the concrete
// instruction.
func (i *Inst) bindSelf(self User) {
	i.self = self
	i.Owner = self
}

// RetInst returns from the current function, optionally with a value.
type RetInst struct {
	Inst
}

func (i *RetInst) IsTerminator() bool { return true }
func (i *RetInst) Successors() []*BasicBlock { return nil }

// Value_ returns the returned value's use, or nil for a void return.
func (i *RetInst) Value_() *Use {
	if len(i.ops) == 0 {
		return nil
	}
	return i.ops[0]
}

// BrInst is either conditional ([cond, trueBB, falseBB]) or unconditional
// ([targetBB]).
type BrInst struct {
	Inst
}

func (i *BrInst) IsTerminator() bool { return true }

func (i *BrInst) IsConditional() bool { return len(i.ops) == 3 }

func (i *BrInst) Successors() []*BasicBlock {
	if i.IsConditional() {
		return []*BasicBlock{blockOf(i.ops[1].Value()), blockOf(i.ops[2].Value())}
	}
	return []*BasicBlock{blockOf(i.ops[0].Value())}
}

// Cond returns the condition use of a conditional branch.
func (i *BrInst) Cond() *Use { return i.ops[0] }

// TrueBB / FalseBB return the successors of a conditional branch.
func (i *BrInst) TrueBB() *BasicBlock  { return blockOf(i.ops[1].Value()) }
func (i *BrInst) FalseBB() *BasicBlock { return blockOf(i.ops[2].Value()) }

// Target returns the sole successor of an unconditional branch.
func (i *BrInst) Target() *BasicBlock { return blockOf(i.ops[0].Value()) }

// SetSuccessor repoints an unconditional branch's target (or one arm of a
// conditional branch by index 1 or 2), withdrawing the old CFG edge and
// establishing the new one. This is the dedicated mechanism for retargeting
// a branch's block operand: RAUW itself refuses to do this.
func (i *BrInst) SetSuccessor(index int, newTarget *BasicBlock) {
	old := blockOf(i.ops[index].Value())
	removeEdge(i.parent, old)
	i.ops[index].SetValue(&newTarget.Value)
	addEdge(i.parent, newTarget)
}

func blockOf(v *Value) *BasicBlock {
	bb, _ := v.Owner.(*BasicBlock)
	return bb
}

// BinaryInst covers arithmetic, bitwise, shift and comparison opcodes,
// each taking exactly two operands.
type BinaryInst struct {
	Inst
}

func (i *BinaryInst) LHS() *Use { return i.ops[0] }
func (i *BinaryInst) RHS() *Use { return i.ops[1] }

// Cond reuses BinaryInst for the six comparison opcodes; no extra state
// needed since the opcode itself names the condition code.

// CastInst covers trunc/zext/sext/fptrunc/fpext/fp<->int/bitcast/int<->ptr.
type CastInst struct {
	Inst
}

func (i *CastInst) Src() *Use { return i.ops[0] }

// AllocaInst allocates stack-local storage, yielding a pointer.
type AllocaInst struct {
	Inst
	AllocType *Type
}

// LoadInst loads the value at an address.
type LoadInst struct {
	Inst
}

func (i *LoadInst) Addr() *Use { return i.ops[0] }

// StoreInst stores a value at an address. Has no result.
type StoreInst struct {
	Inst
}

func (i *StoreInst) Val() *Use  { return i.ops[0] }
func (i *StoreInst) Addr() *Use { return i.ops[1] }

// GEPInst walks a pointer-then-array-then-struct type hierarchy computing
// a derived address, following the usual GetElementPtr type rule.
type GEPInst struct {
	Inst
	SourceType *Type // the pointee type the first index walks into
}

func (i *GEPInst) Base() *Use         { return i.ops[0] }
func (i *GEPInst) Indices() []*Use    { return i.ops[1:] }

// CallInst calls a function value with an argument list.
type CallInst struct {
	Inst
	Callee *Function // nil for indirect calls through a value operand
}

func (i *CallInst) Args() []*Use { return i.ops }

// PhiInst: operand count equals 2 x predecessor_count; operands are pairs
// [value_i, predecessor_bb_i].
type PhiInst struct {
	Inst
}

// Incoming returns the (value, predecessor) pairs.
func (i *PhiInst) Incoming() [][2]*Use {
	out := make([][2]*Use, 0, len(i.ops)/2)
	for k := 0; k+1 < len(i.ops); k += 2 {
		out = append(out, [2]*Use{i.ops[k], i.ops[k+1]})
	}
	return out
}

// ValueForBlock returns the incoming value for predecessor pred, or nil.
func (i *PhiInst) ValueForBlock(pred *BasicBlock) *Value {
	for k := 0; k+1 < len(i.ops); k += 2 {
		if blockOf(i.ops[k+1].Value()) == pred {
			return i.ops[k].Value()
		}
	}
	return nil
}

// AddIncoming appends one (value, predecessor) pair to the phi.
func (i *PhiInst) AddIncoming(val *Value, pred *BasicBlock) {
	i.addOperand(val)
	i.addOperand(&pred.Value)
}

// RemoveIncoming drops the pair naming pred, used when a predecessor edge
// is withdrawn.
func (i *PhiInst) RemoveIncoming(pred *BasicBlock) {
	for k := 0; k+1 < len(i.ops); k += 2 {
		if blockOf(i.ops[k+1].Value()) == pred {
			i.ops[k].Kill()
			i.ops[k+1].Kill()
			i.ops = append(i.ops[:k], i.ops[k+2:]...)
			return
		}
	}
}
