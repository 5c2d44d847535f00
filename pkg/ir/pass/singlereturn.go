package pass

import "github.com/jdryg/jitcc/pkg/ir"

// SingleReturnBlock rewrites a function with more than one ret instruction
// into one with exactly one: a fresh exit block holding a phi over the
// returned values (skipped for void functions, where the exit block just
// holds a bare ret) and an unconditional br to it in place of each original
// ret. This is the first normalization pass, run before SSA construction
// so later passes never need to reason about multiple exits.
func SingleReturnBlock(fn *ir.Function) bool {
	var rets []*ir.RetInst
	for _, b := range fn.Blocks {
		if r, ok := b.Terminator().(*ir.RetInst); ok {
			rets = append(rets, r)
		}
	}
	if len(rets) <= 1 {
		return false
	}

	exit := fn.CreateBlock("exit")
	bld := ir.NewBuilder(exit)

	retType := fn.FuncType.Ret
	var phi *ir.PhiInst
	isVoid := retType == nil || retType.Kind == ir.TypeVoid
	if !isVoid {
		phi = bld.Phi(retType, "")
	}

	for _, r := range rets {
		b := r.Block()
		var val *ir.Value
		if !isVoid {
			if u := r.Value_(); u != nil {
				val = u.Value()
			} else {
				val = fn.Ctx().ConstZero(retType).AsValue()
			}
		}
		ir.DropTerminator(b)
		retBld := ir.NewBuilder(b)
		retBld.Br(exit)
		if phi != nil {
			phi.AddIncoming(val, b)
		}
	}

	if isVoid {
		bld.RetVoid()
	} else {
		bld.Ret(phi.AsValue())
	}
	return true
}
