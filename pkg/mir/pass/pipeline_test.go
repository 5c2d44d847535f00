package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

// TestRunCleansUpASelfMoveChainAndFallthrough builds a function with a
// redundant self-move and a trailing jump to the very next block, and
// checks that Run's fixed point removes both.
func TestRunCleansUpASelfMoveChainAndFallthrough(t *testing.T) {
	f := mir.NewFunction("f")
	entry := f.CreateBlock("entry")
	next := f.CreateBlock("next")
	mir.AddEdge(entry, next)

	r := mir.Register{Phys: 0}
	entry.Instrs = append(entry.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{r, r}},
		&mir.Instr{Op: mir.Jmp, Operands: []mir.MirOperand{mir.Label{Name: "next"}}},
	)
	next.Instrs = append(next.Instrs, &mir.Instr{Op: mir.Ret})

	Run(f)

	if len(entry.Instrs) != 0 {
		t.Errorf("expected the self-move and fallthrough jump both elided, got %d instrs: %+v", len(entry.Instrs), entry.Instrs)
	}
}

func TestRunProgramAppliesToEveryFunction(t *testing.T) {
	prog := &mir.Program{}
	for _, name := range []string{"a", "b"} {
		f := mir.NewFunction(name)
		b := f.CreateBlock("entry")
		r := mir.Register{Phys: 0}
		b.Instrs = append(b.Instrs,
			&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{r, r}},
			&mir.Instr{Op: mir.Ret},
		)
		prog.Functions = append(prog.Functions, f)
	}

	RunProgram(prog)

	for _, f := range prog.Functions {
		if len(f.Blocks[0].Instrs) != 1 {
			t.Errorf("expected %s's self-move removed, got %d instrs", f.Name, len(f.Blocks[0].Instrs))
		}
	}
}
