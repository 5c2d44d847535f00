// Package lower translates pkg/ir functions into pkg/mir functions under
// the Windows x64 calling convention: the first four integer
// or pointer arguments arrive in RCX, RDX, R8, R9, the rest on the caller's
// stack at [RBP+16+8*i]; every call site reserves at least the mandatory
// 32-byte shadow space; RSP is 16-byte aligned at every call. Lowering
// produces an as-yet unplaced, purely virtual stack frame, finalized once
// the whole body is selected.
package lower

import (
	"fmt"
	"math"

	"github.com/jdryg/jitcc/pkg/ir"
	"github.com/jdryg/jitcc/pkg/mir"
)

// argRegisters names the Windows x64 integer argument registers RCX, RDX,
// R8, R9 in order, by the allocator's dense PReg numbering (see
// mir.PhysName: rcx=1, rdx=2, r8=6, r9=7).
var argRegisters = [4]mir.PReg{1, 2, 6, 7}

// Module lowers every function and global in m into a mir.Program.
func Module(m *ir.Module) *mir.Program {
	prog := &mir.Program{}
	for _, g := range m.Globals {
		prog.Globals = append(prog.Globals, lowerGlobal(g))
	}
	for _, f := range m.Functions {
		if f.External() {
			continue
		}
		prog.Functions = append(prog.Functions, Function(f))
	}
	return prog
}

func lowerGlobal(g *ir.GlobalVariable) mir.GlobalVar {
	size := int64(ir.SizeOf(g.ElemType).Size)
	if g.External {
		return mir.GlobalVar{Name: g.Name, Size: size}
	}
	buf := make([]byte, 0, size)
	buf = appendConstant(buf, g.Initializer())
	return mir.GlobalVar{Name: g.Name, Size: size, Init: buf}
}

func appendConstant(buf []byte, c *ir.Constant) []byte {
	if c == nil {
		return buf
	}
	if c.IsAggregate {
		for _, m := range c.Members() {
			buf = appendConstant(buf, m)
		}
		return buf
	}
	t := c.Type()
	n := int(ir.SizeOf(t).Size)
	var bits uint64
	switch {
	case t.IsFloat():
		if t.Kind == ir.TypeF32 {
			bits = uint64(f32bits(c.F32))
		} else {
			bits = f64bits(c.F64)
		}
	case t.Kind == ir.TypePointer:
		bits = c.PtrAddr
	default:
		bits = c.U64
	}
	for i := 0; i < n; i++ {
		buf = append(buf, byte(bits>>(8*uint(i))))
	}
	return buf
}

// fState carries the per-function lowering context: the vreg assigned to
// each IR value, the block-to-block mapping, and the frame being built up
// as allocas are encountered.
type fState struct {
	irFn   *ir.Function
	mFn    *mir.Function
	vregOf map[*ir.Value]mir.VReg
	blocks map[*ir.BasicBlock]*mir.BasicBlock
	cur    *mir.BasicBlock
}

// Function lowers a single IR function to a MIR function with argument
// marshalling and an as-yet-unfinalized stack frame (locals are allocated
// as lowering walks allocas, but register allocation may still add spill
// slots and callee-saved registers before FrameInfo.Finalize and
// AddPrologueEpilogue can run — see Compile, which sequences the whole
// pipeline in the right order).
func Function(fn *ir.Function) *mir.Function {
	mf := mir.NewFunction(fn.Name)
	st := &fState{
		irFn:   fn,
		mFn:    mf,
		vregOf: make(map[*ir.Value]mir.VReg),
		blocks: make(map[*ir.BasicBlock]*mir.BasicBlock),
	}

	for _, b := range fn.Blocks {
		st.blocks[b] = mf.CreateBlock(blockLabel(fn, b))
	}
	for i, b := range fn.Blocks {
		mb := mf.Blocks[i]
		for _, succIR := range b.Succs {
			mir.AddEdge(mb, st.blocks[succIR])
		}
	}

	st.lowerParams(fn)
	for _, b := range fn.Blocks {
		st.cur = st.blocks[b]
		for _, inst := range b.Instrs {
			st.lowerInstr(inst)
		}
	}
	return mf
}

func blockLabel(fn *ir.Function, b *ir.BasicBlock) string {
	return fmt.Sprintf(".L%s_%s", fn.Name, b.Name)
}

// lowerParams binds each IR argument to a fresh vreg and emits the moves
// that copy it out of its incoming location (register for the first four,
// a caller-frame stack slot for the rest) before the body runs.
func (st *fState) lowerParams(fn *ir.Function) {
	entry := st.blocks[fn.Blocks[0]]
	st.cur = entry
	var prologueMoves []*mir.Instr
	for i, arg := range fn.Args {
		vr := st.mFn.NewVReg(mir.RegClassInt)
		st.vregOf[&arg.Value] = vr
		st.mFn.ParamRegs = append(st.mFn.ParamRegs, vr)
		dst := mir.Register{V: vr, Phys: mir.NoPReg}
		if i < 4 {
			src := mir.Register{Phys: argRegisters[i]}
			prologueMoves = append(prologueMoves, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{dst, src}})
		} else {
			// Incoming stack argument i (0-based) sits at [RBP+16+8*i].
			mem := mir.Memory{Base: mir.Register{Phys: mir.PRegRBP}, Disp: 16 + 8*int64(i), Size: mir.TypeI64}
			prologueMoves = append(prologueMoves, &mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{dst, mem}})
		}
	}
	entry.Instrs = append(prologueMoves, entry.Instrs...)
}

func (st *fState) valOf(v *ir.Value) mir.MirOperand {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ir.ValueConstant:
		c, _ := v.Owner.(*ir.Constant)
		return constOperand(c)
	case ir.ValueBasicBlock:
		b, _ := v.Owner.(*ir.BasicBlock)
		return mir.Label{Name: st.blocks[b].Label}
	case ir.ValueGlobalVariable, ir.ValueFunction:
		return mir.Global{Name: v.Name}
	default:
		if vr, ok := st.vregOf[v]; ok {
			return mir.Register{V: vr, Phys: mir.NoPReg}
		}
		return mir.Register{V: st.mFn.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
	}
}

func constOperand(c *ir.Constant) mir.MirOperand {
	if c == nil {
		return mir.Immediate{}
	}
	t := c.Type()
	if t.IsFloat() {
		if t.Kind == ir.TypeF32 {
			return mir.Immediate{Ty: mir.TypeF32, F32: c.F32}
		}
		return mir.Immediate{Ty: mir.TypeF64, F64: c.F64}
	}
	return mir.Immediate{Ty: mirTypeOf(t), I64: c.I64, U64: c.U64}
}

func mirTypeOf(t *ir.Type) mir.MirType {
	size := ir.SizeOf(t).Size
	switch size {
	case 1:
		return mir.TypeI8
	case 2:
		return mir.TypeI16
	case 4:
		if t.IsFloat() {
			return mir.TypeF32
		}
		return mir.TypeI32
	default:
		if t.IsFloat() {
			return mir.TypeF64
		}
		return mir.TypeI64
	}
}

func (st *fState) emit(op mir.Opcode, operands ...mir.MirOperand) {
	st.cur.Append(&mir.Instr{Op: op, Operands: operands})
}

func (st *fState) defineVreg(v *ir.Value) mir.Register {
	vr := st.mFn.NewVReg(mir.RegClassInt)
	st.vregOf[v] = vr
	return mir.Register{V: vr, Phys: mir.NoPReg}
}

func (st *fState) lowerInstr(inst ir.Instruction) {
	switch in := inst.(type) {
	case *ir.RetInst:
		if u := in.Value_(); u != nil {
			val := st.valOf(u.Value())
			st.emit(mir.Mov, mir.Register{Phys: 0}, val) // return value in RAX
		}
		st.emit(mir.Ret)
	case *ir.BrInst:
		if in.IsConditional() {
			cond := st.valOf(in.Cond().Value())
			st.emit(mir.Test, cond, cond)
			st.cur.Instrs[len(st.cur.Instrs)-1].Cond = mir.CondNE
			st.cur.Append(&mir.Instr{Op: mir.Jcc, Cond: mir.CondNE, Operands: []mir.MirOperand{mir.Label{Name: st.blocks[in.TrueBB()].Label}}})
			st.emit(mir.Jmp, mir.Label{Name: st.blocks[in.FalseBB()].Label})
		} else {
			st.emit(mir.Jmp, mir.Label{Name: st.blocks[in.Target()].Label})
		}
	case *ir.BinaryInst:
		st.lowerBinary(in)
	case *ir.CastInst:
		dst := st.defineVreg(in.AsValue())
		st.emit(mir.Mov, dst, st.valOf(in.Src().Value()))
	case *ir.AllocaInst:
		size := int64(ir.SizeOf(in.AllocType).Size)
		align := int64(ir.SizeOf(in.AllocType).Align)
		slot := st.mFn.Frame.AllocSlot(size, align)
		dst := st.defineVreg(in.AsValue())
		st.emit(mir.Lea, dst, slot)
	case *ir.LoadInst:
		dst := st.defineVreg(in.AsValue())
		addr := st.valOf(in.Addr().Value())
		st.emit(mir.Mov, dst, mir.Memory{Base: addr, Size: mirTypeOf(in.AsValue().Type())})
	case *ir.StoreInst:
		addr := st.valOf(in.Addr().Value())
		val := st.valOf(in.Val().Value())
		st.emit(mir.Mov, mir.Memory{Base: addr, Size: mirTypeOf(in.Val().Value().Type())}, val)
	case *ir.GEPInst:
		st.lowerGEP(in)
	case *ir.CallInst:
		st.lowerCall(in)
	case *ir.PhiInst:
		// MIR has no phi representation and SSA destruction isn't
		// implemented: this always takes the first incoming value,
		// regardless of which predecessor control actually arrived
		// from, which is correct only when every incoming value agrees.
		dst := st.defineVreg(in.AsValue())
		if incoming := in.Incoming(); len(incoming) > 0 {
			st.emit(mir.Mov, dst, st.valOf(incoming[0][0].Value()))
		}
	}
}

func (st *fState) lowerBinary(in *ir.BinaryInst) {
	lhs := st.valOf(in.LHS().Value())
	rhs := st.valOf(in.RHS().Value())
	dst := st.defineVreg(in.AsValue())
	if in.Op().IsComparison() {
		st.emit(mir.Cmp, lhs, rhs)
		st.cur.Append(&mir.Instr{Op: mir.SetCC, Cond: condFor(in.Op(), in.LHS().Value().Type().IsSigned()), Operands: []mir.MirOperand{dst}})
		return
	}
	st.emit(mir.Mov, dst, lhs)
	switch in.Op() {
	case ir.OpAdd:
		st.emit(mir.Add, dst, rhs)
	case ir.OpSub:
		st.emit(mir.Sub, dst, rhs)
	case ir.OpMul:
		st.emit(mir.IMul, dst, rhs)
	case ir.OpDiv:
		st.emit(mir.Mov, mir.Register{Phys: 0}, dst) // idiv/div implicitly divide RDX:RAX
		if in.LHS().Value().Type().IsSigned() {
			st.emit(mir.Cdq)
			st.emit(mir.IDiv, rhs)
		} else {
			st.emit(mir.Xor, mir.Register{Phys: 2}, mir.Register{Phys: 2}) // zero-extend dividend into RDX:RAX
			st.emit(mir.Div, rhs)
		}
		st.emit(mir.Mov, dst, mir.Register{Phys: 0})
	case ir.OpRem:
		st.emit(mir.Mov, mir.Register{Phys: 0}, dst) // idiv/div implicitly divide RDX:RAX
		if in.LHS().Value().Type().IsSigned() {
			st.emit(mir.Cdq)
			st.emit(mir.IDiv, rhs)
		} else {
			st.emit(mir.Xor, mir.Register{Phys: 2}, mir.Register{Phys: 2}) // zero-extend dividend into RDX:RAX
			st.emit(mir.Div, rhs)
		}
		st.emit(mir.Mov, dst, mir.Register{Phys: 2}) // remainder left in RDX
	case ir.OpAnd:
		st.emit(mir.And, dst, rhs)
	case ir.OpOr:
		st.emit(mir.Or, dst, rhs)
	case ir.OpXor:
		st.emit(mir.Xor, dst, rhs)
	case ir.OpShl:
		st.emit(mir.Shl, dst, rhs)
	case ir.OpShr:
		st.emit(mir.Sar, dst, rhs)
	}
}

func condFor(op ir.Opcode, signed bool) mir.CondCode {
	if signed {
		switch op {
		case ir.OpLe:
			return mir.CondLE
		case ir.OpGe:
			return mir.CondGE
		case ir.OpLt:
			return mir.CondL
		case ir.OpGt:
			return mir.CondG
		case ir.OpEq:
			return mir.CondE
		case ir.OpNe:
			return mir.CondNE
		}
	}
	switch op {
	case ir.OpLe:
		return mir.CondBE
	case ir.OpGe:
		return mir.CondAE
	case ir.OpLt:
		return mir.CondB
	case ir.OpGt:
		return mir.CondA
	case ir.OpEq:
		return mir.CondE
	case ir.OpNe:
		return mir.CondNE
	}
	return mir.CondE
}

func (st *fState) lowerGEP(in *ir.GEPInst) {
	base := st.valOf(in.Base().Value())
	dst := st.defineVreg(in.AsValue())
	st.emit(mir.Mov, dst, base)
	t := in.SourceType
	for _, u := range in.Indices() {
		idx := st.valOf(u.Value())
		var stride int64
		switch t.Kind {
		case ir.TypeArray:
			stride = int64(ir.SizeOf(t.Elem).Size)
			t = t.Elem
		case ir.TypeStruct:
			// struct indices are compile-time constant field numbers
			if c, ok := idx.(mir.Immediate); ok {
				off := ir.StructMemberOffset(t, int(c.I64))
				st.emit(mir.Add, dst, mir.Immediate{Ty: mir.TypeI64, I64: int64(off)})
			}
			t = t.Members[0]
			continue
		default:
			stride = int64(ir.SizeOf(t).Size)
		}
		scaled := mir.Register{V: st.mFn.NewVReg(mir.RegClassInt), Phys: mir.NoPReg}
		st.emit(mir.Mov, scaled, idx)
		st.emit(mir.IMul, scaled, mir.Immediate{Ty: mir.TypeI64, I64: stride})
		st.emit(mir.Add, dst, scaled)
	}
}

func (st *fState) lowerCall(in *ir.CallInst) {
	args := in.Args()
	outgoing := int64(0)
	if len(args) > 4 {
		outgoing = int64(len(args)-4) * 8
	}
	st.mFn.Frame.NoteOutgoingArgs(outgoing)

	for i, u := range args {
		val := st.valOf(u.Value())
		if i < 4 {
			st.emit(mir.Mov, mir.Register{Phys: argRegisters[i]}, val)
		} else {
			st.emit(mir.Mov, mir.Memory{Base: mir.Register{Phys: mir.PRegRSP}, Disp: mir.WindowsShadowSpace + 8*int64(i-4), Size: mir.TypeI64}, val)
		}
	}
	callee := mir.Global{Name: in.Callee.Name}
	st.emit(mir.Call, callee)
	if in.AsValue().Type() != nil && in.AsValue().Type().FirstClass() {
		dst := st.defineVreg(in.AsValue())
		st.emit(mir.Mov, dst, mir.Register{Phys: 0})
	}
}

func f32bits(f float32) uint32 { return math.Float32bits(f) }

func f64bits(f float64) uint64 { return math.Float64bits(f) }
