package pass

import "github.com/jdryg/jitcc/pkg/ir"

// DomTree holds the immediate-dominator relation for one function's CFG,
// computed with the iterative Cooper/Harvey/Kennedy algorithm over a
// reverse-postorder block numbering.
type DomTree struct {
	idom map[*ir.BasicBlock]*ir.BasicBlock
	rpo  []*ir.BasicBlock
	num  map[*ir.BasicBlock]int
}

// ComputeDominators builds the dominator tree of fn's CFG, rooted at its
// entry block (fn.Blocks[0]).
func ComputeDominators(fn *ir.Function) *DomTree {
	rpo := reversePostorder(fn)
	num := make(map[*ir.BasicBlock]int, len(rpo))
	for i, b := range rpo {
		num[b] = i
	}
	idom := make(map[*ir.BasicBlock]*ir.BasicBlock, len(rpo))
	if len(rpo) == 0 {
		return &DomTree{idom: idom, rpo: rpo, num: num}
	}
	entry := rpo[0]
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *ir.BasicBlock
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, num)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return &DomTree{idom: idom, rpo: rpo, num: num}
}

func intersect(a, b *ir.BasicBlock, idom map[*ir.BasicBlock]*ir.BasicBlock, num map[*ir.BasicBlock]int) *ir.BasicBlock {
	for a != b {
		for num[a] > num[b] {
			a = idom[a]
		}
		for num[b] > num[a] {
			b = idom[b]
		}
	}
	return a
}

// IDom returns b's immediate dominator, or nil if b is unreachable or the
// entry block.
func (d *DomTree) IDom(b *ir.BasicBlock) *ir.BasicBlock {
	if id, ok := d.idom[b]; ok && id != b {
		return id
	}
	return nil
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (d *DomTree) Dominates(a, b *ir.BasicBlock) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		id, ok := d.idom[cur]
		if !ok || id == cur {
			return cur == a
		}
		cur = id
	}
}

func reversePostorder(fn *ir.Function) []*ir.BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	visited := make(map[*ir.BasicBlock]bool)
	var post []*ir.BasicBlock
	var walk func(b *ir.BasicBlock)
	walk = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			walk(s)
		}
		post = append(post, b)
	}
	walk(fn.Blocks[0])
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
