package pass

import "github.com/jdryg/jitcc/pkg/ir"

// Inline performs whole-module call-site inlining; it is not one of
// Default()'s per-function passes and is run through RunInliner. Candidate callees are identified via Tarjan's
// strongly-connected-components algorithm over the module's call graph so
// that recursive functions (any SCC larger than one function, or a
// single-function SCC with a self-edge) are never inlined — inlining them
// would not terminate. sizeBudget caps how many instructions a callee may
// contain and still be considered for inlining.
func Inline(m *ir.Module, sizeBudget int) bool {
	graph := buildCallGraph(m)
	sccs := tarjanSCCs(m.Functions, graph)

	inlinable := make(map[*ir.Function]bool)
	for _, scc := range sccs {
		if len(scc) != 1 {
			continue
		}
		f := scc[0]
		if f.External() || selfRecursive(f, graph) {
			continue
		}
		if instrCount(f) > sizeBudget {
			continue
		}
		inlinable[f] = true
	}

	changed := false
	for _, caller := range m.Functions {
		if caller.External() {
			continue
		}
		for {
			call, block := findInlinableCallSite(caller, inlinable)
			if call == nil {
				break
			}
			inlineCallSite(caller, block, call)
			changed = true
		}
	}
	return changed
}

func instrCount(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Instrs)
	}
	return n
}

func buildCallGraph(m *ir.Module) map[*ir.Function][]*ir.Function {
	g := make(map[*ir.Function][]*ir.Function)
	for _, f := range m.Functions {
		for _, b := range f.Blocks {
			for _, inst := range b.Instrs {
				if call, ok := inst.(*ir.CallInst); ok && call.Callee != nil {
					g[f] = append(g[f], call.Callee)
				}
			}
		}
	}
	return g
}

func selfRecursive(f *ir.Function, g map[*ir.Function][]*ir.Function) bool {
	for _, callee := range g[f] {
		if callee == f {
			return true
		}
	}
	return false
}

// tarjanSCCs returns the strongly connected components of the call graph
// rooted at fns, in reverse-topological order (callees emerge before their
// callers), per Tarjan's 1972 algorithm.
func tarjanSCCs(fns []*ir.Function, g map[*ir.Function][]*ir.Function) [][]*ir.Function {
	t := &tarjanState{
		index:   make(map[*ir.Function]int),
		low:     make(map[*ir.Function]int),
		onStack: make(map[*ir.Function]bool),
		graph:   g,
	}
	for _, f := range fns {
		if _, visited := t.index[f]; !visited {
			t.strongConnect(f)
		}
	}
	return t.sccs
}

type tarjanState struct {
	graph   map[*ir.Function][]*ir.Function
	index   map[*ir.Function]int
	low     map[*ir.Function]int
	onStack map[*ir.Function]bool
	stack   []*ir.Function
	next    int
	sccs    [][]*ir.Function
}

func (t *tarjanState) strongConnect(v *ir.Function) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph[v] {
		if _, visited := t.index[w]; !visited {
			t.strongConnect(w)
			if t.low[w] < t.low[v] {
				t.low[v] = t.low[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.low[v] {
				t.low[v] = t.index[w]
			}
		}
	}

	if t.low[v] == t.index[v] {
		var scc []*ir.Function
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

func findInlinableCallSite(caller *ir.Function, inlinable map[*ir.Function]bool) (*ir.CallInst, *ir.BasicBlock) {
	for _, b := range caller.Blocks {
		for _, inst := range b.Instrs {
			if call, ok := inst.(*ir.CallInst); ok && call.Callee != nil && inlinable[call.Callee] {
				return call, b
			}
		}
	}
	return nil, nil
}

// inlineCallSite splices a copy of call.Callee's body into caller at the
// point occupied by call: the call
// site block is split at the call instruction, the callee's blocks are
// cloned into the gap with arguments substituted for parameters, and the
// callee's single ret (SingleReturnBlock guarantees at most one by this
// point in the pipeline) becomes a branch to the continuation block.
func inlineCallSite(caller *ir.Function, block *ir.BasicBlock, call *ir.CallInst) {
	callee := call.Callee
	idx := instrIndex(block, call)

	cont := splitBlockAfter(caller, block, idx+1)
	block.Instrs = block.Instrs[:idx] // drop the call itself; a br to the inlined entry replaces it

	valueMap := make(map[*ir.Value]*ir.Value)
	blockMap := make(map[*ir.BasicBlock]*ir.BasicBlock)
	for i, arg := range callee.Args {
		valueMap[arg.AsValue()] = call.Args()[i].Value()
	}
	for _, op := range call.Operands() {
		op.Kill()
	}
	for _, b := range callee.Blocks {
		blockMap[b] = caller.CreateBlock("")
	}

	var retVal *ir.Value
	for _, b := range callee.Blocks {
		nb := blockMap[b]
		for _, inst := range b.Instrs {
			if ret, ok := inst.(*ir.RetInst); ok {
				if u := ret.Value_(); u != nil {
					retVal = remapValue(u.Value(), valueMap, blockMap)
				}
				ir.NewBuilder(nb).Br(cont)
				continue
			}
			cloneInstrInto(nb, inst, valueMap, blockMap)
		}
	}
	// second pass: fill phi operands now that every value in the callee is
	// mapped (a phi may reference a value defined later in RPO order).
	for _, b := range callee.Blocks {
		for _, inst := range b.Instrs {
			phi, ok := inst.(*ir.PhiInst)
			if !ok {
				continue
			}
			newPhi := valueMap[phi.AsValue()].Owner.(*ir.PhiInst)
			for _, pair := range phi.Incoming() {
				pred := blockMap[ir.BlockOf(pair[1].Value())]
				newPhi.AddIncoming(remapValue(pair[0].Value(), valueMap, blockMap), pred)
			}
		}
	}

	entry := blockMap[callee.Blocks[0]]
	ir.NewBuilder(block).Br(entry)

	if retVal != nil {
		ir.ReplaceAllUsesWith(call.AsValue(), retVal)
	}
}

// remapValue resolves a value referenced inside the callee's body to its
// counterpart in the caller: arguments and instruction results go through
// valueMap, block-kind values go through blockMap, and constants/globals/
// other functions are shared as-is since they belong to the one Context
// both functions were built from.
func remapValue(v *ir.Value, valueMap map[*ir.Value]*ir.Value, blockMap map[*ir.BasicBlock]*ir.BasicBlock) *ir.Value {
	if v == nil {
		return nil
	}
	if v.Kind == ir.ValueBasicBlock {
		if b := blockMap[ir.BlockOf(v)]; b != nil {
			return b.AsValue()
		}
		return v
	}
	if mapped, ok := valueMap[v]; ok {
		return mapped
	}
	return v
}

// cloneInstrInto rebuilds inst's effect inside nb with every operand passed
// through remapValue, and records the old instruction's result in valueMap
// so later clones (and the phi-filling second pass) can refer to it.
func cloneInstrInto(nb *ir.BasicBlock, inst ir.Instruction, valueMap map[*ir.Value]*ir.Value, blockMap map[*ir.BasicBlock]*ir.BasicBlock) {
	bld := ir.NewBuilder(nb)
	remap := func(u *ir.Use) *ir.Value { return remapValue(u.Value(), valueMap, blockMap) }

	switch in := inst.(type) {
	case *ir.BrInst:
		if in.IsConditional() {
			bld.CondBr(remap(in.Cond()), blockMap[in.TrueBB()], blockMap[in.FalseBB()])
		} else {
			bld.Br(blockMap[in.Target()])
		}
	case *ir.BinaryInst:
		var ni *ir.BinaryInst
		if in.Op().IsComparison() {
			ni = bld.Cmp(in.Op(), remap(in.LHS()), remap(in.RHS()), in.AsValue().Type(), "")
		} else {
			ni = bld.Binary(in.Op(), remap(in.LHS()), remap(in.RHS()), "")
		}
		valueMap[in.AsValue()] = ni.AsValue()
	case *ir.CastInst:
		ni := bld.Cast(in.Op(), remap(in.Src()), in.AsValue().Type(), "")
		valueMap[in.AsValue()] = ni.AsValue()
	case *ir.AllocaInst:
		ni := bld.Alloca(in.AllocType, "")
		valueMap[in.AsValue()] = ni.AsValue()
	case *ir.LoadInst:
		ni := bld.Load(in.AsValue().Type(), remap(in.Addr()), "")
		valueMap[in.AsValue()] = ni.AsValue()
	case *ir.StoreInst:
		bld.Store(remap(in.Val()), remap(in.Addr()))
	case *ir.GEPInst:
		idx := make([]*ir.Value, len(in.Indices()))
		for i, u := range in.Indices() {
			idx[i] = remap(u)
		}
		ni := bld.GEP(in.SourceType, remap(in.Base()), idx, in.AsValue().Type(), "")
		valueMap[in.AsValue()] = ni.AsValue()
	case *ir.CallInst:
		args := make([]*ir.Value, len(in.Args()))
		for i, u := range in.Args() {
			args[i] = remap(u)
		}
		ni := bld.Call(in.Callee, args, in.AsValue().Type(), "")
		valueMap[in.AsValue()] = ni.AsValue()
	case *ir.PhiInst:
		ni := bld.Phi(in.AsValue().Type(), "")
		valueMap[in.AsValue()] = ni.AsValue()
	}
}

func instrIndex(b *ir.BasicBlock, inst ir.Instruction) int {
	for i, it := range b.Instrs {
		if it == inst {
			return i
		}
	}
	return -1
}

// splitBlockAfter moves everything in block from idx onward (inlineCallSite
// passes the index just past the call, so the call stays behind and
// everything after it, including the terminator, moves) into a fresh block, fixing up successor phis to reference the new block
// as their predecessor, and returns that new block.
func splitBlockAfter(fn *ir.Function, block *ir.BasicBlock, idx int) *ir.BasicBlock {
	cont := fn.CreateBlock("")
	tail := append([]ir.Instruction(nil), block.Instrs[idx:]...)
	block.Instrs = block.Instrs[:idx]
	ir.AppendInstrs(cont, tail)
	cont.Succs = append(cont.Succs, block.Succs...)
	for _, s := range cont.Succs {
		renamePred(s, block, cont)
	}
	block.Succs = nil
	return cont
}

func renamePred(b, old, repl *ir.BasicBlock) {
	for i, p := range b.Preds {
		if p == old {
			b.Preds[i] = repl
		}
	}
	for _, inst := range b.Instrs {
		if phi, ok := inst.(*ir.PhiInst); ok {
			for _, pair := range phi.Incoming() {
				if ir.BlockOf(pair[1].Value()) == old {
					pair[1].SetValue(repl.AsValue())
				}
			}
		}
	}
}
