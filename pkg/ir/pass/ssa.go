package pass

import "github.com/jdryg/jitcc/pkg/ir"

// ConstructSSA promotes alloca/load/store triples that behave like a plain
// local variable into direct SSA values, using the simple construction
// algorithm of Braun, Buchwald, Hack, Leißa, Mallon and Zwinkau:
// readVariable/writeVariable per (variable, block), inserting a
// phi at any block with more than one predecessor and recursively filling
// its operands, then immediately collapsing any phi that turns out trivial.
//
// Because the function's CFG is already fully built by the time this pass
// runs (no streaming construction), every block is sealed from the start —
// there is no incomplete-phi bookkeeping for blocks whose predecessor set
// isn't known yet, since it always is.
func ConstructSSA(fn *ir.Function) bool {
	allocas := promotableAllocas(fn)
	if len(allocas) == 0 {
		return false
	}

	st := &ssaState{
		currentDef: make(map[*ir.AllocaInst]map[*ir.BasicBlock]*ir.Value),
	}
	for a := range allocas {
		st.currentDef[a] = make(map[*ir.BasicBlock]*ir.Value)
	}

	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range append([]ir.Instruction(nil), b.Instrs...) {
			switch in := inst.(type) {
			case *ir.StoreInst:
				if a := allocaOf(in.Addr().Value()); a != nil && allocas[a] {
					st.writeVariable(a, b, in.Val().Value())
					removeInstr(b, in)
					changed = true
				}
			case *ir.LoadInst:
				if a := allocaOf(in.Addr().Value()); a != nil && allocas[a] {
					val := st.readVariable(a, b, fn)
					ir.ReplaceAllUsesWith(in.AsValue(), val)
					removeInstr(b, in)
					changed = true
				}
			}
		}
	}

	for a := range allocas {
		if a.AsValue().NumUses() == 0 {
			removeInstr(a.Block(), a)
			changed = true
		}
	}
	return changed
}

type ssaState struct {
	currentDef map[*ir.AllocaInst]map[*ir.BasicBlock]*ir.Value
}

func (st *ssaState) writeVariable(a *ir.AllocaInst, b *ir.BasicBlock, v *ir.Value) {
	st.currentDef[a][b] = v
}

func (st *ssaState) readVariable(a *ir.AllocaInst, b *ir.BasicBlock, fn *ir.Function) *ir.Value {
	if v, ok := st.currentDef[a][b]; ok {
		return v
	}
	return st.readVariableRecursive(a, b, fn)
}

func (st *ssaState) readVariableRecursive(a *ir.AllocaInst, b *ir.BasicBlock, fn *ir.Function) *ir.Value {
	var val *ir.Value
	switch len(b.Preds) {
	case 0:
		// Unreachable or the entry block with no prior store: reading an
		// uninitialized local is undefined behavior, so we substitute the
		// type's zero value to keep folding downstream total.
		val = fn.Ctx().ConstZero(a.AllocType).AsValue()
	case 1:
		val = st.readVariable(a, b.Preds[0], fn)
	default:
		phiBld := ir.NewBuilder(b)
		phi := phiBld.Phi(a.AllocType, "")
		st.writeVariable(a, b, phi.AsValue())
		val = st.addPhiOperands(a, phi, b, fn)
	}
	st.writeVariable(a, b, val)
	return val
}

func (st *ssaState) addPhiOperands(a *ir.AllocaInst, phi *ir.PhiInst, b *ir.BasicBlock, fn *ir.Function) *ir.Value {
	for _, pred := range b.Preds {
		phi.AddIncoming(st.readVariable(a, pred, fn), pred)
	}
	if trivial := trivialPhiValue(phi); trivial != nil {
		ir.ReplaceAllUsesWith(phi.AsValue(), trivial)
		removeInstr(b, phi)
		return trivial
	}
	return phi.AsValue()
}

// promotableAllocas returns the set of a function's allocas whose every use
// is a plain load or a store to (not of) the alloca's address — i.e. the
// address never escapes into a GEP, a call argument, or another store's
// value operand, which would make direct SSA substitution unsound.
func promotableAllocas(fn *ir.Function) map[*ir.AllocaInst]bool {
	out := make(map[*ir.AllocaInst]bool)
	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			a, ok := inst.(*ir.AllocaInst)
			if !ok {
				continue
			}
			if isPromotable(a) {
				out[a] = true
			}
		}
	}
	return out
}

func isPromotable(a *ir.AllocaInst) bool {
	if !a.AllocType.FirstClass() {
		return false
	}
	for _, u := range a.AsValue().Uses() {
		switch in := u.User().(type) {
		case *ir.LoadInst:
			if in.Addr() != u {
				return false
			}
		case *ir.StoreInst:
			if in.Addr() != u {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func allocaOf(v *ir.Value) *ir.AllocaInst {
	if v == nil || v.Kind != ir.ValueInstruction {
		return nil
	}
	a, _ := v.Owner.(*ir.AllocaInst)
	return a
}
