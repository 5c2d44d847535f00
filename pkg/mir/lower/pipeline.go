package lower

import (
	"github.com/jdryg/jitcc/pkg/ir"
	"github.com/jdryg/jitcc/pkg/mir"
	"github.com/jdryg/jitcc/pkg/mir/pass"
	"github.com/jdryg/jitcc/pkg/regalloc"
)

// Compile runs the full IR -> MIR pipeline for one module: instruction
// selection (Module/Function), register allocation (which may still grow
// the frame with spill slots and discover which callee-saved registers the
// body actually touches), frame finalization, prologue/epilogue insertion,
// and the mir-level cleanup passes — in that order, since each stage's
// input depends on the previous one having settled.
func Compile(m *ir.Module) *mir.Program {
	prog := Module(m)
	for _, f := range prog.Functions {
		regalloc.AllocateAndRewrite(f)
		f.Frame.Finalize()
		AddPrologueEpilogue(f)
		pass.Run(f)
	}
	return prog
}
