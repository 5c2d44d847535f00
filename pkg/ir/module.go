package ir

// Module is the top-level container built module-at-a-time by the external
// front end: a named collection of global variables and
// functions sharing one interning Context.
type Module struct {
	Name      string
	Ctx       *Context
	Globals   []*GlobalVariable
	Functions []*Function
}

// NewModule creates an empty module backed by a fresh interning context.
func NewModule(name string) *Module {
	return &Module{Name: name, Ctx: NewContext()}
}

// GlobalVariable is a typed, optionally constant, optionally initialized
// top-level storage location. Its value type is pointer-to-T; its single
// operand (when present) is the initializer constant of type T.
type GlobalVariable struct {
	Value
	ops      []*Use
	ElemType *Type
	Constant bool
	External bool
}

func (g *GlobalVariable) AsValue() *Value  { return &g.Value }
func (g *GlobalVariable) Operands() []*Use { return g.ops }

// Initializer returns the initializer constant, or nil if this global has
// none (external declaration).
func (g *GlobalVariable) Initializer() *Constant {
	if len(g.ops) == 0 {
		return nil
	}
	return valueAsConstant(g.ops[0].Value())
}

// AddGlobal creates a global variable of type elemType and appends it to m.
func (m *Module) AddGlobal(name string, elemType *Type, isConst bool) *GlobalVariable {
	g := &GlobalVariable{
		Value:    Value{ID: m.Ctx.nextValueID, Ty: m.Ctx.PointerType(elemType), Kind: ValueGlobalVariable, Name: name},
		ElemType: elemType,
		Constant: isConst,
		External: true,
	}
	g.Owner = g
	m.Ctx.nextValueID++
	m.Globals = append(m.Globals, g)
	return g
}

// SetInitializer gives g an initializer, clearing External.
func (g *GlobalVariable) SetInitializer(init *Constant) {
	if len(g.ops) == 0 {
		g.ops = []*Use{NewUse(g, &init.Value)}
	} else {
		g.ops[0].SetValue(&init.Value)
	}
	g.External = false
}

func valueAsConstant(v *Value) *Constant {
	if v == nil || v.Kind != ValueConstant {
		return nil
	}
	c, _ := v.Owner.(*Constant)
	return c
}

// Function is a named GlobalValue whose value type is pointer-to-function-
// type. Owns: argument list, basic-block list, a monotonically increasing
// temp-name counter. External (declared) functions have an empty
// basic-block list.
type Function struct {
	Value
	ops []*Use // unused; Function has no operands of its own

	FuncType *Type
	Args     []*Argument
	Blocks   []*BasicBlock

	nextTemp   int
	nextBBID   int
	nextInstID int
	ctx        *Context
}

func (f *Function) AsValue() *Value  { return &f.Value }
func (f *Function) Operands() []*Use { return f.ops }

// External reports whether f has no basic blocks (a declaration).
func (f *Function) External() bool { return len(f.Blocks) == 0 }

// Ctx returns the interning context f's values were allocated from.
func (f *Function) Ctx() *Context { return f.ctx }

// AddFunction declares a function named name with the given type and
// appends it to m; the function starts external (no blocks).
func (m *Module) AddFunction(name string, funcType *Type) *Function {
	f := &Function{
		Value:    Value{ID: m.Ctx.nextValueID, Ty: m.Ctx.PointerType(funcType), Kind: ValueFunction, Name: name},
		FuncType: funcType,
		ctx:      m.Ctx,
	}
	f.Owner = f
	m.Ctx.nextValueID++
	for i, pt := range funcType.Params {
		arg := &Argument{
			Value: Value{ID: m.Ctx.nextValueID, Ty: pt, Kind: ValueArgument},
			Index: i,
			Fn:    f,
		}
		arg.Owner = arg
		f.Args = append(f.Args, arg)
		m.Ctx.nextValueID++
	}
	m.Functions = append(m.Functions, f)
	return f
}

// NextTempName mints the next anonymous SSA value name for this function,
// e.g. "%7", matching the auto-numbering the textual printer performs for
// unnamed values.
func (f *Function) NextTempName() string {
	f.nextTemp++
	return itoa(f.nextTemp)
}

// Argument is a value of the function's argument type, owned by the
// function, accessible by positional index.
type Argument struct {
	Value
	Index int
	Fn    *Function
}

// AsValue returns the argument's embedded Value.
func (a *Argument) AsValue() *Value { return &a.Value }

// BasicBlock is a labeled container of instructions: instruction list,
// predecessor array, successor array (capacity 2 — conditional branch is
// the widest fan-out). A block always ends in exactly one terminator.
type BasicBlock struct {
	Value
	Fn           *Function
	Instrs       []Instruction
	Preds, Succs []*BasicBlock
}

// AsValue, used so a BasicBlock can be a branch operand's Value.
func (b *BasicBlock) AsValue() *Value { return &b.Value }

// Terminator returns the block's terminating instruction, or nil if the
// block is (temporarily, mid-construction) empty.
func (b *BasicBlock) Terminator() Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// CreateBlock appends a new, empty basic block to f.
func (f *Function) CreateBlock(label string) *BasicBlock {
	if label == "" {
		label = "bb" + itoa(f.nextBBID)
	}
	f.nextBBID++
	bb := &BasicBlock{
		Value: Value{ID: f.ctx.nextValueID, Ty: f.ctx.LabelType(), Kind: ValueBasicBlock, Name: label},
		Fn:    f,
	}
	bb.Owner = bb
	f.ctx.nextValueID++
	f.Blocks = append(f.Blocks, bb)
	return bb
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
