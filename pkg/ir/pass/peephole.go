package pass

import "github.com/jdryg/jitcc/pkg/ir"

// Peephole applies a handful of small local algebraic rewrites:
// x+0, 0+x, x-0, x*1, 1*x, x/1, x^0, x|0, 0|x and shift-by-zero -> x;
// x*0, 0*x, x-x, x^x, x&0 and 0&x -> 0.
func Peephole(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			bin, ok := inst.(*ir.BinaryInst)
			if !ok {
				continue
			}
			if replacement := peepholeBinary(bin); replacement != nil {
				ir.ReplaceAllUsesWith(inst.AsValue(), replacement)
				changed = true
			}
		}
	}
	return changed
}

func peepholeBinary(bin *ir.BinaryInst) *ir.Value {
	lhs, rhs := bin.LHS().Value(), bin.RHS().Value()
	lc, rc := asConst(lhs), asConst(rhs)
	switch bin.Op() {
	case ir.OpAdd:
		if isZero(rc) {
			return lhs
		}
		if isZero(lc) {
			return rhs
		}
	case ir.OpSub:
		if isZero(rc) {
			return lhs
		}
		if sameValue(lhs, rhs) {
			return zeroValueFor(bin)
		}
	case ir.OpMul:
		if isOne(rc) {
			return lhs
		}
		if isOne(lc) {
			return rhs
		}
		if isZero(rc) {
			return rc.AsValue()
		}
		if isZero(lc) {
			return lc.AsValue()
		}
	case ir.OpDiv:
		if isOne(rc) {
			return lhs
		}
	case ir.OpXor:
		if sameValue(lhs, rhs) {
			return zeroValueFor(bin)
		}
		if isZero(rc) {
			return lhs
		}
	case ir.OpAnd:
		if isZero(rc) {
			return rc.AsValue()
		}
		if isZero(lc) {
			return lc.AsValue()
		}
	case ir.OpOr:
		if isZero(rc) {
			return lhs
		}
		if isZero(lc) {
			return rhs
		}
	case ir.OpShl, ir.OpShr:
		if isZero(rc) {
			return lhs
		}
	}
	return nil
}

func isZero(c *ir.Constant) bool {
	if c == nil || c.IsAggregate {
		return false
	}
	t := c.Type()
	switch {
	case t.IsFloat():
		return c.F64 == 0 && c.F32 == 0
	default:
		return c.I64 == 0 && c.U64 == 0
	}
}

func isOne(c *ir.Constant) bool {
	if c == nil || c.IsAggregate {
		return false
	}
	t := c.Type()
	switch {
	case t.IsFloat():
		return c.F64 == 1 || c.F32 == 1
	default:
		return c.I64 == 1 || c.U64 == 1
	}
}

func sameValue(a, b *ir.Value) bool { return a == b }

func zeroValueFor(inst *ir.BinaryInst) *ir.Value {
	fn := blockOfInst(inst)
	return fn.Ctx().ConstZero(inst.AsValue().Type()).AsValue()
}

func blockOfInst(inst ir.Instruction) *ir.Function {
	return inst.Block().Fn
}
