package pass

import "github.com/jdryg/jitcc/pkg/ir"

// ReorderBasicBlocks lays a function's blocks out in reverse-postorder of
// the CFG walked from the entry block, which places every
// block after at least one of its dominators and keeps fallthrough-shaped
// loops contiguous — the property the MIR lowering stage's fallthrough-
// elision pass depends on.
func ReorderBasicBlocks(fn *ir.Function) bool {
	rpo := reversePostorder(fn)
	if len(rpo) != len(fn.Blocks) {
		// Unreachable blocks should already have been dropped by
		// SimplifyCFG; if not, append them at the end unchanged rather
		// than silently discarding them here.
		seen := make(map[*ir.BasicBlock]bool, len(rpo))
		for _, b := range rpo {
			seen[b] = true
		}
		for _, b := range fn.Blocks {
			if !seen[b] {
				rpo = append(rpo, b)
			}
		}
	}
	changed := false
	for i, b := range rpo {
		if fn.Blocks[i] != b {
			changed = true
		}
	}
	fn.Blocks = rpo
	return changed
}
