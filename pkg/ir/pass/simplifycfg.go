package pass

import "github.com/jdryg/jitcc/pkg/ir"

// SimplifyCFG performs the local control-flow cleanups:
// folding a block that contains nothing but an unconditional
// branch into its predecessors (jump threading), merging a block into its
// sole predecessor when that predecessor has exactly this one successor,
// and dropping blocks no longer reachable from the entry block.
func SimplifyCFG(fn *ir.Function) bool {
	changed := false
	changed = threadEmptyJumps(fn) || changed
	changed = mergeLinearBlocks(fn) || changed
	changed = removeUnreachable(fn) || changed
	return changed
}

// threadEmptyJumps retargets any branch whose destination is itself a
// block containing only an unconditional br, pointing straight at the
// ultimate target.
func threadEmptyJumps(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		term, ok := b.Terminator().(*ir.BrInst)
		if !ok {
			continue
		}
		for idx := range term.Successors() {
			succIdx := idx
			if term.IsConditional() {
				succIdx = idx + 1 // operand layout is [cond, true, false]
			}
			target := blockAtOperand(term, succIdx)
			ultimate := chaseEmptyJump(target, b)
			if ultimate != nil && ultimate != target {
				term.SetSuccessor(succIdx, ultimate)
				changed = true
			}
		}
	}
	return changed
}

func blockAtOperand(term *ir.BrInst, idx int) *ir.BasicBlock {
	if term.IsConditional() {
		if idx == 1 {
			return term.TrueBB()
		}
		return term.FalseBB()
	}
	return term.Target()
}

// chaseEmptyJump follows a chain of single-instruction (unconditional br
// only) blocks to their final destination, refusing to chase into from (a
// self-loop guard) or through any block containing a phi (retargeting past
// a phi would silently drop an incoming-value slot).
func chaseEmptyJump(b, from *ir.BasicBlock) *ir.BasicBlock {
	seen := map[*ir.BasicBlock]bool{}
	cur := b
	for {
		if cur == from || seen[cur] {
			return cur
		}
		seen[cur] = true
		if len(cur.Instrs) != 1 {
			return cur
		}
		br, ok := cur.Instrs[0].(*ir.BrInst)
		if !ok || br.IsConditional() {
			return cur
		}
		if hasPhi(br.Target()) {
			return cur
		}
		cur = br.Target()
	}
}

func hasPhi(b *ir.BasicBlock) bool {
	for _, inst := range b.Instrs {
		if inst.Op() == ir.OpPhi {
			return true
		}
	}
	return false
}

// mergeLinearBlocks folds a block b into its sole predecessor p when p has
// exactly one successor (b) and b has exactly one predecessor (p): the two
// execute unconditionally in sequence and can become one block.
func mergeLinearBlocks(fn *ir.Function) bool {
	changed := false
	for i := 0; i < len(fn.Blocks); i++ {
		b := fn.Blocks[i]
		if len(b.Preds) != 1 {
			continue
		}
		p := b.Preds[0]
		if p == b || len(p.Succs) != 1 {
			continue
		}
		if hasPhi(b) {
			continue
		}
		// Drop p's terminator branch, splice b's instructions onto the end
		// of p, and retarget b's successors to point at p.
		ir.DropTerminator(p)
		ir.MoveInstrs(b, p)
		p.Succs = append([]*ir.BasicBlock(nil), b.Succs...)
		for _, s := range p.Succs {
			renamePred(s, b, p)
		}
		removeBlockFromFunc(fn, b)
		i = -1 // restart: indices shifted and further merges may now apply
		changed = true
	}
	return changed
}

func replacePred(b *ir.BasicBlock, old, new *ir.BasicBlock) {
	for i, p := range b.Preds {
		if p == old {
			b.Preds[i] = new
		}
	}
}

func removeBlockFromFunc(fn *ir.Function, b *ir.BasicBlock) {
	for i, bb := range fn.Blocks {
		if bb == b {
			fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
			return
		}
	}
}

// removeUnreachable drops every block not reachable from fn's entry block
// via a forward walk of Succs, also scrubbing any phi entries in surviving
// blocks that named a removed predecessor.
func removeUnreachable(fn *ir.Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	reachable := map[*ir.BasicBlock]bool{}
	var walk func(b *ir.BasicBlock)
	walk = func(b *ir.BasicBlock) {
		if reachable[b] {
			return
		}
		reachable[b] = true
		for _, s := range b.Succs {
			walk(s)
		}
	}
	walk(fn.Blocks[0])

	changed := false
	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
			continue
		}
		for _, s := range b.Succs {
			replacePredRemoval(s, b)
		}
		changed = true
	}
	fn.Blocks = kept
	return changed
}

func replacePredRemoval(b *ir.BasicBlock, removed *ir.BasicBlock) {
	out := b.Preds[:0]
	for _, p := range b.Preds {
		if p != removed {
			out = append(out, p)
		}
	}
	b.Preds = out
	for _, inst := range b.Instrs {
		if phi, ok := inst.(*ir.PhiInst); ok {
			phi.RemoveIncoming(removed)
		}
	}
}
