package mir

// Instr is a single machine instruction: an opcode plus an ordered operand
// list. Most opcodes follow a dest-then-sources convention (Operands[0] is
// the write target when the opcode writes one), following the usual
// "dest = op(args...)" shape; Cmp/Test/Jcc/Push/Call have opcode-specific
// readings.
type Instr struct {
	Op       Opcode
	Operands []MirOperand
	Cond     CondCode // meaningful only for Jcc and SetCC
	Comment  string   // optional diagnostic annotation carried through lowering
}

// Dest returns Operands[0], the conventional write target, or nil for
// opcodes with none (Cmp, Test, Jmp, Jcc, Ret, Push, Nop, Call).
func (i *Instr) Dest() MirOperand {
	if len(i.Operands) == 0 {
		return nil
	}
	switch i.Op {
	case Cmp, Test, Jmp, Jcc, Ret, Push, Nop, Call:
		return nil
	}
	return i.Operands[0]
}

// IsTerminator reports whether i ends a basic block's straight-line run.
func (i *Instr) IsTerminator() bool {
	return i.Op == Jmp || i.Op == Jcc || i.Op == Ret
}

// BasicBlock is a label plus a linear instruction list; MIR keeps explicit
// CFG edges, rather than a flat label/goto encoding, because
// pkg/regalloc's liveness dataflow needs successor/predecessor sets.
type BasicBlock struct {
	Label        string
	Instrs       []*Instr
	Preds, Succs []*BasicBlock
}

// Append adds inst to the end of b's instruction list.
func (b *BasicBlock) Append(inst *Instr) {
	b.Instrs = append(b.Instrs, inst)
}

// Terminator returns b's last instruction if it is a terminator, else nil.
func (b *BasicBlock) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Function is a Mach-equivalent machine function: an ordered block list
// (entry is Blocks[0]), a frame descriptor, and the virtual-register
// counter lowering consumed while emitting it.
type Function struct {
	Name      string
	Blocks    []*BasicBlock
	Frame     *FrameInfo
	NextVReg  int
	ParamRegs []VReg // the vregs holding the incoming arguments, in order
}

// NewFunction returns an empty machine function ready for a lowering pass
// to populate.
func NewFunction(name string) *Function {
	return &Function{Name: name, Frame: NewFrameInfo()}
}

// CreateBlock appends and returns a new, empty block.
func (f *Function) CreateBlock(label string) *BasicBlock {
	b := &BasicBlock{Label: label}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewVReg mints a fresh virtual register of the given class.
func (f *Function) NewVReg(class RegClass) VReg {
	v := VReg{ID: f.NextVReg, Class: class}
	f.NextVReg++
	return v
}

// AddEdge records a CFG edge from pred to succ.
func AddEdge(pred, succ *BasicBlock) {
	pred.Succs = append(pred.Succs, succ)
	succ.Preds = append(succ.Preds, pred)
}

// Program is a complete compiled module: globals plus machine functions.
type Program struct {
	Globals   []GlobalVar
	Functions []*Function
}

// GlobalVar is a module-level data definition with optional initial bytes
// (nil Init means a zero-initialized, External-equivalent definition).
type GlobalVar struct {
	Name string
	Size int64
	Init []byte
}
