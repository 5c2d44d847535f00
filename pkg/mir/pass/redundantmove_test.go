package pass

import (
	"testing"

	"github.com/jdryg/jitcc/pkg/mir"
)

func TestRemoveRedundantMovesDropsSelfMove(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	r := mir.Register{Phys: 0}
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{r, r}},
		&mir.Instr{Op: mir.Ret},
	)

	if !RemoveRedundantMoves(f) {
		t.Fatal("expected a change when a self-move is present")
	}
	if len(b.Instrs) != 1 {
		t.Fatalf("expected the self-move removed, got %d instrs", len(b.Instrs))
	}
	if b.Instrs[0].Op != mir.Ret {
		t.Errorf("expected only ret to remain, got %v", b.Instrs[0].Op)
	}
}

func TestRemoveRedundantMovesKeepsDistinctMove(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.CreateBlock("entry")
	b.Instrs = append(b.Instrs,
		&mir.Instr{Op: mir.Mov, Operands: []mir.MirOperand{mir.Register{Phys: 0}, mir.Register{Phys: 1}}},
	)

	if RemoveRedundantMoves(f) {
		t.Fatal("a move between distinct registers must not be removed")
	}
	if len(b.Instrs) != 1 {
		t.Errorf("expected the move to survive, got %d instrs", len(b.Instrs))
	}
}
