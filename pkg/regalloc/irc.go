package regalloc

import "github.com/jdryg/jitcc/pkg/mir"

// AllocatableIntRegs maps a color (0..NumAllocatableIntRegs-1) to the
// physical register it names. Caller-saved registers are listed first so
// the allocator's default (color 0 upward) prefers them; a register live
// across a call searches only the callee-saved tail, starting at
// FirstCalleeSavedColor, since the call may overwrite any caller-saved one.
var AllocatableIntRegs = [...]mir.PReg{
	0, 1, 2, 6, 7, 8, 9, // rax, rcx, rdx, r8, r9, r10, r11 (caller-saved)
	3, 4, 5, 10, 11, 12, 13, // rbx, rsi, rdi, r12, r13, r14, r15 (callee-saved)
}

// NumAllocatableIntRegs is the size of the physical integer register file
// this backend ever hands out: every general-purpose integer register
// except RSP and RBP, which anchor the stack frame itself, for a budget
// of 14 colors.
const NumAllocatableIntRegs = len(AllocatableIntRegs)

// K is the allocator's actual register budget for a run, defaulting to the
// full integer file but lowerable by pkg/config (e.g. to exercise spilling
// on small test functions); raising it above NumAllocatableIntRegs would
// hand out colors AllocatableIntRegs can't name, so callers that mutate it
// are expected to keep it in [1, NumAllocatableIntRegs].
var K = NumAllocatableIntRegs

// FirstCalleeSavedColor is the first index into AllocatableIntRegs naming a
// callee-saved register.
const FirstCalleeSavedColor = 7

func isCalleeSaved(preg mir.PReg) bool {
	for i := FirstCalleeSavedColor; i < len(AllocatableIntRegs); i++ {
		if AllocatableIntRegs[i] == preg {
			return true
		}
	}
	return false
}

// colorOf reverse-looks-up the color naming preg, if it is allocatable.
func colorOf(preg mir.PReg) (int, bool) {
	for c, p := range AllocatableIntRegs {
		if p == preg {
			return c, true
		}
	}
	return 0, false
}

// Allocator runs Iterated Register Coalescing over one function's
// interference graph, following George & Appel (1996): repeatedly
// simplify low-degree nodes,
// coalesce move-related pairs under the Briggs conservative test, freeze
// moves that can't be proven safe, and spill a high-degree node when
// nothing else applies, until every node is colored or spilled.
type Allocator struct {
	graph *InterferenceGraph
	fn    *mir.Function
	K     int

	colors    map[mir.VReg]int
	spillSlot map[mir.VReg]*mir.StackSlot

	simplifyWorklist []mir.VReg
	freezeWorklist   []mir.VReg
	spillWorklist    []mir.VReg
	coalescedNodes   RegSet
	coloredNodes     RegSet
	spilledNodes     RegSet
	selectStack      []mir.VReg

	alias map[mir.VReg]mir.VReg

	worklistMoves [][2]mir.VReg
	activeMoves   [][2]mir.VReg
}

// AllocationResult is the outcome of one Allocate call.
type AllocationResult struct {
	Color       map[mir.VReg]mir.PReg
	SpillSlot   map[mir.VReg]*mir.StackSlot
	SpilledRegs RegSet
}

// NewAllocator returns an allocator ready to color fn's graph.
func NewAllocator(fn *mir.Function, graph *InterferenceGraph) *Allocator {
	return &Allocator{
		fn:             fn,
		graph:          graph,
		K:              K,
		colors:         make(map[mir.VReg]int),
		spillSlot:      make(map[mir.VReg]*mir.StackSlot),
		coalescedNodes: NewRegSet(),
		coloredNodes:   NewRegSet(),
		spilledNodes:   NewRegSet(),
		alias:          make(map[mir.VReg]mir.VReg),
	}
}

// Allocate runs IRC to completion and returns the coloring/spill decision
// for every node in the graph.
func (a *Allocator) Allocate() *AllocationResult {
	a.buildWorklists()

	for {
		switch {
		case len(a.simplifyWorklist) > 0:
			a.simplify()
		case len(a.worklistMoves) > 0:
			a.coalesce()
		case len(a.freezeWorklist) > 0:
			a.freeze()
		case len(a.spillWorklist) > 0:
			a.selectSpill()
		default:
			a.assignColors()
			return a.buildResult()
		}
	}
}

func (a *Allocator) buildWorklists() {
	for r := range a.graph.Nodes {
		if a.degree(r) >= a.K {
			a.spillWorklist = append(a.spillWorklist, r)
		} else if a.graph.MoveRelated(r) {
			a.freezeWorklist = append(a.freezeWorklist, r)
		} else {
			a.simplifyWorklist = append(a.simplifyWorklist, r)
		}
	}
	for r, prefs := range a.graph.Preferences {
		for p := range prefs {
			if r.ID < p.ID {
				a.worklistMoves = append(a.worklistMoves, [2]mir.VReg{r, p})
			}
		}
	}
}

func (a *Allocator) degree(r mir.VReg) int {
	deg := 0
	for n := range a.graph.Edges[r] {
		if !a.coalescedNodes.Contains(n) {
			deg++
		}
	}
	return deg
}

func (a *Allocator) simplify() {
	n := len(a.simplifyWorklist) - 1
	r := a.simplifyWorklist[n]
	a.simplifyWorklist = a.simplifyWorklist[:n]
	a.selectStack = append(a.selectStack, r)
	for neighbor := range a.graph.Edges[r] {
		a.decrementDegree(neighbor)
	}
}

func (a *Allocator) decrementDegree(r mir.VReg) {
	if a.coalescedNodes.Contains(r) {
		return
	}
	if a.degree(r) == a.K-1 {
		a.removeFromWorklist(r, &a.spillWorklist)
		if a.graph.MoveRelated(r) {
			a.freezeWorklist = append(a.freezeWorklist, r)
		} else {
			a.simplifyWorklist = append(a.simplifyWorklist, r)
		}
	}
}

func (a *Allocator) removeFromWorklist(r mir.VReg, list *[]mir.VReg) {
	for i, x := range *list {
		if x == r {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (a *Allocator) coalesce() {
	n := len(a.worklistMoves) - 1
	m := a.worklistMoves[n]
	a.worklistMoves = a.worklistMoves[:n]

	x := a.getAlias(m[0])
	y := a.getAlias(m[1])

	u, v := x, y
	if y.ID < x.ID {
		u, v = y, x
	}

	switch {
	case u == v:
		a.addToWorklist(u)
	case a.graph.HasEdge(u, v):
		a.addToWorklist(u)
		a.addToWorklist(v)
	case a.conservativeCoalesce(u, v):
		a.combine(u, v)
		a.addToWorklist(u)
	default:
		a.activeMoves = append(a.activeMoves, m)
	}
}

func (a *Allocator) getAlias(r mir.VReg) mir.VReg {
	if a.coalescedNodes.Contains(r) {
		return a.getAlias(a.alias[r])
	}
	return r
}

// conservativeCoalesce implements the Briggs test: merging u and v is safe
// if the combined node has fewer than K neighbors of degree >= K (those are
// the only neighbors that might fail to get a color; low-degree neighbors
// always can, after everything else is colored).
func (a *Allocator) conservativeCoalesce(u, v mir.VReg) bool {
	neighbors := NewRegSet()
	for n := range a.graph.Edges[u] {
		if !a.coalescedNodes.Contains(n) {
			neighbors.Add(n)
		}
	}
	for n := range a.graph.Edges[v] {
		if !a.coalescedNodes.Contains(n) {
			neighbors.Add(n)
		}
	}
	highDegree := 0
	for n := range neighbors {
		if a.degree(n) >= a.K {
			highDegree++
		}
	}
	return highDegree < a.K
}

func (a *Allocator) combine(u, v mir.VReg) {
	a.removeFromWorklist(v, &a.freezeWorklist)
	a.removeFromWorklist(v, &a.spillWorklist)
	a.coalescedNodes.Add(v)
	a.alias[v] = u

	if a.graph.LiveAcrossCalls.Contains(v) {
		a.graph.LiveAcrossCalls.Add(u)
	}
	for p := range a.graph.Forbidden[v] {
		a.graph.AddForbidden(u, p)
	}

	for n := range a.graph.Edges[v] {
		if !a.coalescedNodes.Contains(n) && n != u {
			a.graph.AddEdge(u, n)
			a.decrementDegree(n)
		}
	}
	for n := range a.graph.Preferences[v] {
		if n != u {
			a.graph.AddPreference(u, n)
		}
	}
	if a.degree(u) >= a.K {
		a.removeFromWorklist(u, &a.freezeWorklist)
		a.spillWorklist = append(a.spillWorklist, u)
	}
}

func (a *Allocator) addToWorklist(r mir.VReg) {
	if a.coalescedNodes.Contains(r) {
		return
	}
	if a.degree(r) < a.K && !a.graph.MoveRelated(r) {
		a.removeFromWorklist(r, &a.freezeWorklist)
		a.simplifyWorklist = append(a.simplifyWorklist, r)
	}
}

func (a *Allocator) freeze() {
	n := len(a.freezeWorklist) - 1
	r := a.freezeWorklist[n]
	a.freezeWorklist = a.freezeWorklist[:n]
	a.simplifyWorklist = append(a.simplifyWorklist, r)
	a.freezeMovesFor(r)
}

func (a *Allocator) freezeMovesFor(r mir.VReg) {
	var remaining [][2]mir.VReg
	for _, m := range a.activeMoves {
		if m[0] == r || m[1] == r {
			other := m[0]
			if m[0] == r {
				other = m[1]
			}
			a.addToWorklist(other)
		} else {
			remaining = append(remaining, m)
		}
	}
	a.activeMoves = remaining
}

// selectSpill picks the highest-degree node still on the spill worklist, a
// simple max-degree heuristic used in place of a use/def-weighted spill
// cost, since this tree has no profiling data to weight candidates with.
func (a *Allocator) selectSpill() {
	maxDeg, maxIdx := -1, -1
	var maxReg mir.VReg
	for i, r := range a.spillWorklist {
		d := a.degree(r)
		if d > maxDeg {
			maxDeg, maxReg, maxIdx = d, r, i
		}
	}
	if maxIdx < 0 {
		return
	}
	a.spillWorklist = append(a.spillWorklist[:maxIdx], a.spillWorklist[maxIdx+1:]...)
	a.simplifyWorklist = append(a.simplifyWorklist, maxReg)
	a.freezeMovesFor(maxReg)
}

func (a *Allocator) assignColors() {
	for len(a.selectStack) > 0 {
		n := len(a.selectStack) - 1
		r := a.selectStack[n]
		a.selectStack = a.selectStack[:n]

		used := make(map[int]bool)
		for neighbor := range a.graph.Edges[r] {
			alias := a.getAlias(neighbor)
			if a.coloredNodes.Contains(alias) {
				used[a.colors[alias]] = true
			}
		}
		for p := range a.graph.Forbidden[r] {
			if c, ok := colorOf(p); ok {
				used[c] = true
			}
		}

		start := 0
		if a.graph.LiveAcrossCalls.Contains(r) {
			start = FirstCalleeSavedColor
		}

		color := -1
		for c := start; c < a.K; c++ {
			if !used[c] {
				color = c
				break
			}
		}
		if color >= 0 {
			a.coloredNodes.Add(r)
			a.colors[r] = color
		} else {
			a.spilledNodes.Add(r)
		}
	}

	for r := range a.coalescedNodes {
		alias := a.getAlias(r)
		if a.coloredNodes.Contains(alias) {
			a.colors[r] = a.colors[alias]
			a.coloredNodes.Add(r)
		} else if a.spilledNodes.Contains(alias) {
			a.spilledNodes.Add(r)
		}
	}
}

func (a *Allocator) buildResult() *AllocationResult {
	result := &AllocationResult{
		Color:       make(map[mir.VReg]mir.PReg),
		SpillSlot:   make(map[mir.VReg]*mir.StackSlot),
		SpilledRegs: a.spilledNodes.Copy(),
	}
	for r := range a.coloredNodes {
		result.Color[r] = AllocatableIntRegs[a.colors[r]]
	}
	for r := range a.spilledNodes {
		slot := a.fn.Frame.AllocSlot(8, 8)
		a.spillSlot[r] = slot
		result.SpillSlot[r] = slot
	}
	return result
}

// Allocate runs liveness analysis, interference-graph construction and IRC
// coloring for f in one call.
func Allocate(f *mir.Function) *AllocationResult {
	li := Analyze(f)
	graph := Build(f, li)
	return NewAllocator(f, graph).Allocate()
}
