package pass

import "github.com/jdryg/jitcc/pkg/ir"

// ConstantFolding replaces an instruction whose operands are all constants
// with the single folded constant, RAUW-ing the instruction's result and
// leaving the now-dead instruction for DeadCodeElimination to sweep.
func ConstantFolding(fn *ir.Function) bool {
	ctx := fn.Ctx()
	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			folded := tryFold(ctx, inst)
			if folded == nil {
				continue
			}
			ir.ReplaceAllUsesWith(inst.AsValue(), &folded.Value)
			changed = true
		}
	}
	return changed
}

func asConst(v *ir.Value) *ir.Constant {
	if v == nil || v.Kind != ir.ValueConstant {
		return nil
	}
	c, _ := v.Owner.(*ir.Constant)
	return c
}

func tryFold(ctx *ir.Context, inst ir.Instruction) *ir.Constant {
	bin, ok := inst.(*ir.BinaryInst)
	if !ok {
		return nil
	}
	lc := asConst(bin.LHS().Value())
	rc := asConst(bin.RHS().Value())
	if lc == nil || rc == nil || lc.IsAggregate || rc.IsAggregate {
		return nil
	}
	t := lc.Type()
	if t.IsFloat() {
		return foldFloat(ctx, bin.Op(), t, lc, rc)
	}
	if t.IsInteger() {
		return foldInt(ctx, bin.Op(), inst.AsValue().Type(), t, lc, rc)
	}
	return nil
}

func foldInt(ctx *ir.Context, op ir.Opcode, resultType, operandType *ir.Type, lc, rc *ir.Constant) *ir.Constant {
	signed := operandType.IsSigned()
	var l, r int64
	var ul, ur uint64
	if signed {
		l, r = lc.I64, rc.I64
	} else {
		ul, ur = lc.U64, rc.U64
	}
	switch op {
	case ir.OpAdd:
		if signed {
			return ctx.ConstInt(operandType, l+r)
		}
		return ctx.ConstUint(operandType, ul+ur)
	case ir.OpSub:
		if signed {
			return ctx.ConstInt(operandType, l-r)
		}
		return ctx.ConstUint(operandType, ul-ur)
	case ir.OpMul:
		if signed {
			return ctx.ConstInt(operandType, l*r)
		}
		return ctx.ConstUint(operandType, ul*ur)
	case ir.OpDiv:
		if signed {
			if r == 0 {
				return nil
			}
			return ctx.ConstInt(operandType, l/r)
		}
		if ur == 0 {
			return nil
		}
		return ctx.ConstUint(operandType, ul/ur)
	case ir.OpRem:
		if signed {
			if r == 0 {
				return nil
			}
			return ctx.ConstInt(operandType, l%r)
		}
		if ur == 0 {
			return nil
		}
		return ctx.ConstUint(operandType, ul%ur)
	case ir.OpAnd:
		return ctx.ConstUint(operandType, lc.U64&rc.U64)
	case ir.OpOr:
		return ctx.ConstUint(operandType, lc.U64|rc.U64)
	case ir.OpXor:
		return ctx.ConstUint(operandType, lc.U64^rc.U64)
	case ir.OpShl:
		return ctx.ConstUint(operandType, lc.U64<<uint(rc.U64))
	case ir.OpShr:
		if signed {
			return ctx.ConstInt(operandType, l>>uint(ur))
		}
		return ctx.ConstUint(operandType, ul>>uint(ur))
	case ir.OpLe, ir.OpGe, ir.OpLt, ir.OpGt, ir.OpEq, ir.OpNe:
		var b bool
		if signed {
			b = intCompare(op, l, r)
		} else {
			b = uintCompare(op, ul, ur)
		}
		return ctx.ConstBool(b)
	}
	return nil
}

func intCompare(op ir.Opcode, l, r int64) bool {
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

func uintCompare(op ir.Opcode, l, r uint64) bool {
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

func foldFloat(ctx *ir.Context, op ir.Opcode, t *ir.Type, lc, rc *ir.Constant) *ir.Constant {
	is32 := t.Kind == ir.TypeF32
	var l, r float64
	if is32 {
		l, r = float64(lc.F32), float64(rc.F32)
	} else {
		l, r = lc.F64, rc.F64
	}
	mk := func(v float64) *ir.Constant {
		if is32 {
			return ctx.ConstF32(t, float32(v))
		}
		return ctx.ConstF64(t, v)
	}
	switch op {
	case ir.OpAdd:
		return mk(l + r)
	case ir.OpSub:
		return mk(l - r)
	case ir.OpMul:
		return mk(l * r)
	case ir.OpDiv:
		if r == 0 {
			return nil
		}
		return mk(l / r)
	case ir.OpLe, ir.OpGe, ir.OpLt, ir.OpGt, ir.OpEq, ir.OpNe:
		var b bool
		switch op {
		case ir.OpLe:
			b = l <= r
		case ir.OpGe:
			b = l >= r
		case ir.OpLt:
			b = l < r
		case ir.OpGt:
			b = l > r
		case ir.OpEq:
			b = l == r
		case ir.OpNe:
			b = l != r
		}
		return ctx.ConstBool(b)
	}
	return nil
}
