package ir

import (
	"bytes"
	"fmt"
)

// Print renders m as textual IR: one function per paragraph,
// globals first, values referenced by name when named and by a positional
// "%N" slot otherwise.
func Print(m *Module) string {
	var buf bytes.Buffer
	for _, g := range m.Globals {
		printGlobal(&buf, g)
	}
	if len(m.Globals) > 0 {
		buf.WriteByte('\n')
	}
	for i, f := range m.Functions {
		if i > 0 {
			buf.WriteByte('\n')
		}
		printFunction(&buf, f)
	}
	return buf.String()
}

func printGlobal(buf *bytes.Buffer, g *GlobalVariable) {
	kw := "global"
	if g.Constant {
		kw = "constant"
	}
	if g.External {
		fmt.Fprintf(buf, "declare %s @%s : %s\n", kw, g.Name, g.ElemType)
		return
	}
	fmt.Fprintf(buf, "define %s @%s : %s = %s\n", kw, g.Name, g.ElemType, printConstant(g.Initializer()))
}

func printConstant(c *Constant) string {
	if c == nil {
		return "<null>"
	}
	if c.Flags&FlagPointsToGlobal != 0 {
		return "@" + c.GlobalName
	}
	if c.IsAggregate {
		s := "{"
		for i, m := range c.members {
			if i > 0 {
				s += ", "
			}
			s += printConstant(m)
		}
		return s + "}"
	}
	t := c.Type()
	switch {
	case t.Kind == TypeBool:
		if c.I64 != 0 {
			return "true"
		}
		return "false"
	case t.IsFloat():
		if t.Kind == TypeF32 {
			return fmt.Sprintf("%g", c.F32)
		}
		return fmt.Sprintf("%g", c.F64)
	case t.Kind == TypePointer:
		return fmt.Sprintf("0x%x", c.PtrAddr)
	case t.IsSigned():
		return fmt.Sprintf("%d", c.I64)
	default:
		return fmt.Sprintf("%d", c.U64)
	}
}

func printFunction(buf *bytes.Buffer, f *Function) {
	if f.External() {
		fmt.Fprintf(buf, "declare %s @%s(%s)\n", f.FuncType.Ret, f.Name, printParamTypes(f))
		return
	}
	fmt.Fprintf(buf, "define %s @%s(%s) {\n", f.FuncType.Ret, f.Name, printParams(f))
	names := nameValues(f)
	for _, b := range f.Blocks {
		fmt.Fprintf(buf, "%s:\n", b.Name)
		for _, inst := range b.Instrs {
			printInstr(buf, inst, names)
		}
	}
	buf.WriteString("}\n")
}

func printParamTypes(f *Function) string {
	s := ""
	for i, p := range f.FuncType.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}

func printParams(f *Function) string {
	s := ""
	for i, a := range f.Args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %%%s", a.Type(), argName(a))
	}
	return s
}

func argName(a *Argument) string {
	if a.HasName() {
		return a.Name
	}
	return fmt.Sprintf("arg%d", a.Index)
}

// nameValues assigns a display name to every instruction result in f,
// using the value's Name (an explicit name, or the number NextTempName gave
// it during construction) and falling back to its ID when Name is empty.
func nameValues(f *Function) map[*Value]string {
	out := make(map[*Value]string)
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			v := inst.AsValue()
			if v.Type() == nil || !v.Type().FirstClass() {
				continue
			}
			if v.HasName() {
				out[v] = v.Name
			} else {
				out[v] = fmt.Sprintf("%d", v.ID)
			}
		}
	}
	return out
}

func printInstr(buf *bytes.Buffer, inst Instruction, names map[*Value]string) {
	v := inst.AsValue()
	result := ""
	if v.Type() != nil && v.Type().FirstClass() {
		result = fmt.Sprintf("%%%s = ", names[v])
	}
	buf.WriteString("  " + result + inst.Op().String())
	for _, op := range inst.Operands() {
		buf.WriteString(" " + printOperand(op.Value(), names))
	}
	if gep, ok := inst.(*GEPInst); ok {
		fmt.Fprintf(buf, " ; source=%s", gep.SourceType)
	}
	if call, ok := inst.(*CallInst); ok && call.Callee != nil {
		fmt.Fprintf(buf, " ; callee=@%s", call.Callee.Name)
	}
	buf.WriteByte('\n')
}

func printOperand(v *Value, names map[*Value]string) string {
	if v == nil {
		return "<null>"
	}
	switch v.Kind {
	case ValueBasicBlock:
		return "%" + v.Name
	case ValueConstant:
		c, _ := v.Owner.(*Constant)
		return printConstant(c)
	case ValueFunction:
		return "@" + v.Name
	case ValueGlobalVariable:
		return "@" + v.Name
	case ValueArgument:
		a, _ := v.Owner.(*Argument)
		if a != nil {
			return "%" + argName(a)
		}
		return "%" + v.Name
	default:
		if name, ok := names[v]; ok {
			return "%" + name
		}
		return "%" + v.Name
	}
}
