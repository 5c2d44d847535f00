// Package pass implements the MIR-level cleanup passes, which lower.Compile
// runs once, after register allocation and prologue/epilogue insertion;
// none of them runs before allocation: branch tunneling, unreachable-
// block and label cleanup, redundant-move elision, the three-instruction
// compare/test collapse, and a memory-operand fixup. These mirror the
// teacher's pkg/linearize cleanup passes (Tunnel, CleanupLabels), adapted
// from Linear's flat label/goto encoding to mir's explicit block CFG.
package pass

import "github.com/jdryg/jitcc/pkg/mir"

// Tunnel shortcuts chains of unconditional jumps: a block whose entire body
// is "jmp L" where L is itself just "jmp L2" gets every branch into it
// retargeted straight to L2, working over mir's block graph instead of
// label names.
func Tunnel(f *mir.Function) bool {
	resolved := make(map[*mir.BasicBlock]*mir.BasicBlock)
	for _, b := range f.Blocks {
		resolved[b] = resolveChain(b)
	}

	changed := false
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for i, op := range term.Operands {
			lbl, ok := op.(mir.Label)
			if !ok {
				continue
			}
			target := labelToBlock(f, lbl)
			if target == nil {
				continue
			}
			if dst := resolved[target]; dst != target {
				term.Operands[i] = mir.Label{Name: dst.Label}
				changed = true
			}
		}
	}
	if changed {
		rebuildEdges(f)
	}
	return changed
}

// resolveChain follows a block whose single instruction is an unconditional
// jmp to its ultimate target: a cycle resolves to the block where it was
// first revisited.
func resolveChain(start *mir.BasicBlock) *mir.BasicBlock {
	visited := make(map[*mir.BasicBlock]bool)
	cur := start
	for {
		if visited[cur] {
			return cur
		}
		visited[cur] = true
		next := soleJumpTarget(cur)
		if next == nil {
			return cur
		}
		cur = next
	}
}

// soleJumpTarget returns b's target if b consists of exactly one
// unconditional jmp and nothing else, else nil.
func soleJumpTarget(b *mir.BasicBlock) *mir.BasicBlock {
	if len(b.Instrs) != 1 || b.Instrs[0].Op != mir.Jmp {
		return nil
	}
	lbl, ok := b.Instrs[0].Operands[0].(mir.Label)
	if !ok {
		return nil
	}
	for _, s := range b.Succs {
		if s.Label == lbl.Name {
			return s
		}
	}
	return nil
}

func labelToBlock(f *mir.Function, lbl mir.Label) *mir.BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == lbl.Name {
			return b
		}
	}
	return nil
}

// rebuildEdges recomputes every block's Preds/Succs from its terminator's
// label operands, needed after Tunnel retargets a branch in place.
func rebuildEdges(f *mir.Function) {
	for _, b := range f.Blocks {
		b.Succs = nil
		b.Preds = nil
	}
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, op := range term.Operands {
			if lbl, ok := op.(mir.Label); ok {
				if target := labelToBlock(f, lbl); target != nil {
					mir.AddEdge(b, target)
				}
			}
		}
	}
}
