package ir

// Builder emits instructions into a basic block, advancing an insertion
// cursor much like a text editor's caret. It enforces only the one
// invariant a caller bug could otherwise corrupt silently — a block never
// accumulates a second terminator — and leaves the rest of well-formedness
// checking to CheckFunction and CheckModule.
type Builder struct {
	block *BasicBlock
}

// NewBuilder returns a builder inserting at the end of b.
func NewBuilder(b *BasicBlock) *Builder { return &Builder{block: b} }

// SetInsertPoint retargets the builder to append to b.
func (bld *Builder) SetInsertPoint(b *BasicBlock) { bld.block = b }

// Block returns the builder's current insertion block.
func (bld *Builder) Block() *BasicBlock { return bld.block }

func (bld *Builder) fn() *Function { return bld.block.Fn }

func bbAppendInstr(b *BasicBlock, inst Instruction) {
	if n := len(b.Instrs); n > 0 && b.Instrs[n-1].IsTerminator() {
		fail("ir: cannot append %s to block %q of %q, which already ends in a terminator", inst.Op(), b.Name, b.Fn.Name)
	}
	inst.setBlock(b)
	b.Instrs = append(b.Instrs, inst)
}

// bbRemoveInstr detaches inst from its block's instruction list. Callers
// must first drop all of inst's own operand uses and ensure inst.AsValue()
// has no remaining users (RAUW it to something else beforehand).
func bbRemoveInstr(b *BasicBlock, inst Instruction) {
	for idx, it := range b.Instrs {
		if it == inst {
			for _, op := range inst.Operands() {
				op.Kill()
			}
			b.Instrs = append(b.Instrs[:idx], b.Instrs[idx+1:]...)
			inst.setBlock(nil)
			return
		}
	}
}

// funcRemoveBasicBlock deletes an empty, unreferenced block from its
// function. The caller is responsible for having already withdrawn every
// CFG edge pointing at b (its Preds must be empty).
func funcRemoveBasicBlock(f *Function, b *BasicBlock) {
	for idx, bb := range f.Blocks {
		if bb == b {
			f.Blocks = append(f.Blocks[:idx], f.Blocks[idx+1:]...)
			return
		}
	}
}

// MoveInstrs reparents every instruction of from onto to, appending them to
// to's instruction list and updating each instruction's Block() pointer.
// Used by SimplifyCFG-style passes that splice one block's body into
// another; from is left with an empty instruction list.
func MoveInstrs(from, to *BasicBlock) {
	for _, inst := range from.Instrs {
		inst.setBlock(to)
	}
	to.Instrs = append(to.Instrs, from.Instrs...)
	from.Instrs = nil
}

// AppendInstrs appends instrs to b's instruction list, reparenting each to
// b. Used by passes that build a new block's body out of relocated
// instructions (e.g. the inliner's caller-block split).
func AppendInstrs(b *BasicBlock, instrs []Instruction) {
	for _, inst := range instrs {
		inst.setBlock(b)
	}
	b.Instrs = append(b.Instrs, instrs...)
}

// BlockOf downcasts a basic-block-kind Value back to its *BasicBlock, or
// nil if v does not name a block.
func BlockOf(v *Value) *BasicBlock { return blockOf(v) }

// DropTerminator removes a block's terminator instruction (killing its
// operand uses) without touching Preds/Succs bookkeeping, which the caller
// is expected to maintain itself when it replaces the terminator.
func DropTerminator(b *BasicBlock) {
	term := b.Terminator()
	if term == nil {
		return
	}
	for _, op := range term.Operands() {
		op.Kill()
	}
	b.Instrs = b.Instrs[:len(b.Instrs)-1]
}

func addEdge(pred, succ *BasicBlock) {
	if pred == nil || succ == nil {
		return
	}
	pred.Succs = append(pred.Succs, succ)
	succ.Preds = append(succ.Preds, pred)
}

func removeEdge(pred, succ *BasicBlock) {
	if pred == nil || succ == nil {
		return
	}
	for i, s := range pred.Succs {
		if s == succ {
			pred.Succs = append(pred.Succs[:i], pred.Succs[i+1:]...)
			break
		}
	}
	for i, p := range succ.Preds {
		if p == pred {
			succ.Preds = append(succ.Preds[:i], succ.Preds[i+1:]...)
			break
		}
	}
}

// --- terminators ---

// Ret appends a value-returning ret instruction.
func (bld *Builder) Ret(val *Value) *RetInst {
	i := &RetInst{Inst: newInst(bld.fn(), OpRet, nil, "")}
	i.bindSelf(i)
	if val != nil {
		i.addOperand(val)
	}
	bbAppendInstr(bld.block, i)
	return i
}

// RetVoid appends a void ret instruction.
func (bld *Builder) RetVoid() *RetInst { return bld.Ret(nil) }

// Br appends an unconditional branch to target, establishing the CFG edge.
func (bld *Builder) Br(target *BasicBlock) *BrInst {
	i := &BrInst{Inst: newInst(bld.fn(), OpBr, nil, "")}
	i.bindSelf(i)
	i.addOperand(&target.Value)
	bbAppendInstr(bld.block, i)
	addEdge(bld.block, target)
	return i
}

// CondBr appends a conditional branch, establishing both CFG edges.
func (bld *Builder) CondBr(cond *Value, trueBB, falseBB *BasicBlock) *BrInst {
	i := &BrInst{Inst: newInst(bld.fn(), OpBr, nil, "")}
	i.bindSelf(i)
	i.addOperand(cond)
	i.addOperand(&trueBB.Value)
	i.addOperand(&falseBB.Value)
	bbAppendInstr(bld.block, i)
	addEdge(bld.block, trueBB)
	addEdge(bld.block, falseBB)
	return i
}

// --- binary / comparison ---

// Binary appends an arithmetic, bitwise or shift instruction for op (not a
// comparison opcode — use Cmp for those, since they need an explicit bool
// result type).
func (bld *Builder) Binary(op Opcode, lhs, rhs *Value, name string) *BinaryInst {
	i := &BinaryInst{Inst: newInst(bld.fn(), op, resultType(op, lhs.Type()), name)}
	i.bindSelf(i)
	i.addOperand(lhs)
	i.addOperand(rhs)
	bbAppendInstr(bld.block, i)
	return i
}

func resultType(op Opcode, operandType *Type) *Type {
	if op.IsComparison() {
		return nil // caller supplies bool type via the context at call sites that need it
	}
	return operandType
}

func (bld *Builder) Add(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpAdd, lhs, rhs, name) }
func (bld *Builder) Sub(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpSub, lhs, rhs, name) }
func (bld *Builder) Mul(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpMul, lhs, rhs, name) }
func (bld *Builder) Div(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpDiv, lhs, rhs, name) }
func (bld *Builder) Rem(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpRem, lhs, rhs, name) }
func (bld *Builder) And(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpAnd, lhs, rhs, name) }
func (bld *Builder) Or(lhs, rhs *Value, name string) *BinaryInst  { return bld.Binary(OpOr, lhs, rhs, name) }
func (bld *Builder) Xor(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpXor, lhs, rhs, name) }
func (bld *Builder) Shl(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpShl, lhs, rhs, name) }
func (bld *Builder) Shr(lhs, rhs *Value, name string) *BinaryInst { return bld.Binary(OpShr, lhs, rhs, name) }

// Cmp appends one of the six comparison opcodes, always yielding a bool.
func (bld *Builder) Cmp(op Opcode, lhs, rhs *Value, boolType *Type, name string) *BinaryInst {
	i := &BinaryInst{Inst: newInst(bld.fn(), op, boolType, name)}
	i.bindSelf(i)
	i.addOperand(lhs)
	i.addOperand(rhs)
	bbAppendInstr(bld.block, i)
	return i
}

// --- casts ---

func (bld *Builder) Cast(op Opcode, src *Value, destType *Type, name string) *CastInst {
	i := &CastInst{Inst: newInst(bld.fn(), op, destType, name)}
	i.bindSelf(i)
	i.addOperand(src)
	bbAppendInstr(bld.block, i)
	return i
}

// --- memory ---

// Alloca reserves stack storage for a value of allocType, yielding a
// pointer-to-allocType result.
func (bld *Builder) Alloca(allocType *Type, name string) *AllocaInst {
	ctx := bld.fn().ctx
	i := &AllocaInst{Inst: newInst(bld.fn(), OpAlloca, ctx.PointerType(allocType), name), AllocType: allocType}
	i.bindSelf(i)
	bbAppendInstr(bld.block, i)
	return i
}

// Load reads the value at addr, whose type must be pointer-to-resultType.
func (bld *Builder) Load(resultType *Type, addr *Value, name string) *LoadInst {
	i := &LoadInst{Inst: newInst(bld.fn(), OpLoad, resultType, name)}
	i.bindSelf(i)
	i.addOperand(addr)
	bbAppendInstr(bld.block, i)
	return i
}

// Store writes val to addr. Has no result value.
func (bld *Builder) Store(val, addr *Value) *StoreInst {
	i := &StoreInst{Inst: newInst(bld.fn(), OpStore, nil, "")}
	i.bindSelf(i)
	i.addOperand(val)
	i.addOperand(addr)
	bbAppendInstr(bld.block, i)
	return i
}

// GEP computes a derived address from base, walking indices through
// sourceType's array/struct layout.
func (bld *Builder) GEP(sourceType *Type, base *Value, indices []*Value, resultType *Type, name string) *GEPInst {
	i := &GEPInst{Inst: newInst(bld.fn(), OpGetElementPtr, resultType, name), SourceType: sourceType}
	i.bindSelf(i)
	i.addOperand(base)
	for _, idx := range indices {
		i.addOperand(idx)
	}
	bbAppendInstr(bld.block, i)
	return i
}

// --- control ---

// Call invokes callee with args. resultType is the callee's return type
// (void is represented with a nil resultType, producing an instruction
// whose Value is not first-class and must not be referenced by other uses).
func (bld *Builder) Call(callee *Function, args []*Value, resultType *Type, name string) *CallInst {
	i := &CallInst{Inst: newInst(bld.fn(), OpCall, resultType, name), Callee: callee}
	i.bindSelf(i)
	for _, a := range args {
		i.addOperand(a)
	}
	bbAppendInstr(bld.block, i)
	return i
}

// Phi appends an initially-empty phi node; incoming pairs are added via
// PhiInst.AddIncoming once predecessors are known: SSA construction
// discovers them incrementally.
func (bld *Builder) Phi(ty *Type, name string) *PhiInst {
	i := &PhiInst{Inst: newInst(bld.fn(), OpPhi, ty, name)}
	i.bindSelf(i)
	// Phis must precede all non-phi instructions in a block; insert at the
	// front of any already-emitted non-phi instructions.
	insertAt := 0
	for insertAt < len(bld.block.Instrs) && bld.block.Instrs[insertAt].Op() == OpPhi {
		insertAt++
	}
	i.setBlock(bld.block)
	instrs := bld.block.Instrs
	instrs = append(instrs, nil)
	copy(instrs[insertAt+1:], instrs[insertAt:])
	instrs[insertAt] = i
	bld.block.Instrs = instrs
	return i
}
