package pass

import "github.com/jdryg/jitcc/pkg/mir"

// RemoveUnreachableBlocks drops every block unreachable from the entry
// block, the mir-level analogue of dropping labels no branch targets
// (here a whole block stands in for one label).
func RemoveUnreachableBlocks(f *mir.Function) bool {
	if len(f.Blocks) == 0 {
		return false
	}
	reachable := make(map[*mir.BasicBlock]bool)
	var walk func(b *mir.BasicBlock)
	walk = func(b *mir.BasicBlock) {
		if reachable[b] {
			return
		}
		reachable[b] = true
		for _, s := range b.Succs {
			walk(s)
		}
	}
	walk(f.Blocks[0])

	kept := f.Blocks[:0:0]
	changed := false
	for _, b := range f.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		} else {
			changed = true
		}
	}
	f.Blocks = kept
	if changed {
		for _, b := range f.Blocks {
			prunePreds(b, reachable)
		}
	}
	return changed
}

func prunePreds(b *mir.BasicBlock, reachable map[*mir.BasicBlock]bool) {
	kept := b.Preds[:0:0]
	for _, p := range b.Preds {
		if reachable[p] {
			kept = append(kept, p)
		}
	}
	b.Preds = kept
}
