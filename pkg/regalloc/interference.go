package regalloc

import "github.com/jdryg/jitcc/pkg/mir"

// InterferenceGraph records, for every virtual register touched by a
// function, which other registers may not share a physical register (an
// edge) and which ones a move instruction would like to share one with (a
// preference, consumed by coalescing).
type InterferenceGraph struct {
	Nodes           RegSet
	Edges           map[mir.VReg]RegSet
	Preferences     map[mir.VReg]RegSet
	LiveAcrossCalls RegSet
	Forbidden       map[mir.VReg]map[mir.PReg]bool
}

// NewInterferenceGraph returns an empty graph.
func NewInterferenceGraph() *InterferenceGraph {
	return &InterferenceGraph{
		Nodes:           NewRegSet(),
		Edges:           make(map[mir.VReg]RegSet),
		Preferences:     make(map[mir.VReg]RegSet),
		LiveAcrossCalls: NewRegSet(),
		Forbidden:       make(map[mir.VReg]map[mir.PReg]bool),
	}
}

// AddNode registers r in the graph, if it is not already present.
func (g *InterferenceGraph) AddNode(r mir.VReg) {
	g.Nodes.Add(r)
	if g.Edges[r] == nil {
		g.Edges[r] = NewRegSet()
	}
	if g.Preferences[r] == nil {
		g.Preferences[r] = NewRegSet()
	}
}

// AddEdge records that r1 and r2 may never share a color.
func (g *InterferenceGraph) AddEdge(r1, r2 mir.VReg) {
	if r1 == r2 {
		return
	}
	g.AddNode(r1)
	g.AddNode(r2)
	g.Edges[r1].Add(r2)
	g.Edges[r2].Add(r1)
}

// AddForbidden records that r may never be assigned physical register p,
// because some instruction writes p directly (outside the normal vreg
// def/use tracking liveness sees) while r is still live.
func (g *InterferenceGraph) AddForbidden(r mir.VReg, p mir.PReg) {
	g.AddNode(r)
	if g.Forbidden[r] == nil {
		g.Forbidden[r] = make(map[mir.PReg]bool)
	}
	g.Forbidden[r][p] = true
}

// AddPreference records that a move between r1 and r2 would like to
// coalesce away; used only to prioritize coalescing, never to forbid a
// color assignment.
func (g *InterferenceGraph) AddPreference(r1, r2 mir.VReg) {
	if r1 == r2 {
		return
	}
	g.AddNode(r1)
	g.AddNode(r2)
	g.Preferences[r1].Add(r2)
	g.Preferences[r2].Add(r1)
}

// HasEdge reports whether r1 and r2 interfere.
func (g *InterferenceGraph) HasEdge(r1, r2 mir.VReg) bool {
	if e, ok := g.Edges[r1]; ok {
		return e.Contains(r2)
	}
	return false
}

// Degree returns r's interference-edge count.
func (g *InterferenceGraph) Degree(r mir.VReg) int {
	return len(g.Edges[r])
}

// MoveRelated reports whether any move still prefers to coalesce r with
// something.
func (g *InterferenceGraph) MoveRelated(r mir.VReg) bool {
	return len(g.Preferences[r]) > 0
}

// Build constructs the interference graph for f from liveness: a defined
// register interferes with everything live immediately after its defining
// instruction, except the move's own source (so a plain copy never forces
// its operands apart, giving coalescing something to work with); every
// register live across a Call is recorded so color assignment can reserve
// it a callee-saved slot; and every register live across an instruction
// that writes a fixed physical register outside the normal vreg-def
// convention (argument marshalling, div/rem's RAX/RDX, a call's RAX
// result) is forbidden from that register, since liveness has no other way
// to see those writes as defs.
func Build(f *mir.Function, li *LivenessInfo) *InterferenceGraph {
	g := NewInterferenceGraph()

	for _, vr := range f.ParamRegs {
		g.AddNode(vr)
	}
	for inst, def := range li.Def {
		for r := range def {
			g.AddNode(r)
		}
		for r := range li.Use[inst] {
			g.AddNode(r)
		}
	}

	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			liveOut := li.LiveOut[inst]
			for defReg := range li.Def[inst] {
				for liveReg := range liveOut {
					if inst.Op == mir.Mov && isMoveSource(inst, liveReg) {
						continue
					}
					g.AddEdge(defReg, liveReg)
				}
			}
			if inst.Op == mir.Call {
				for liveReg := range liveOut {
					g.LiveAcrossCalls.Add(liveReg)
				}
			}
			for _, p := range physDefs(inst) {
				for liveReg := range liveOut {
					g.AddForbidden(liveReg, p)
				}
			}
		}
	}

	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			if inst.Op != mir.Mov || len(inst.Operands) != 2 {
				continue
			}
			dst, ok1 := vregOf(inst.Operands[0])
			src, ok2 := vregOf(inst.Operands[1])
			if ok1 && ok2 {
				g.AddPreference(dst, src)
			}
		}
	}

	return g
}

func isMoveSource(inst *mir.Instr, r mir.VReg) bool {
	if len(inst.Operands) != 2 {
		return false
	}
	src, ok := vregOf(inst.Operands[1])
	return ok && src == r
}

// physDefs returns the physical registers inst writes directly, outside the
// ordinary vreg-destination convention instrDefs/instrUses track: a move
// targeting a fixed argument or return register, and the implicit RAX/RDX
// writes of Cdq, IDiv, Div and Call. Liveness never sees these as defs of
// anything (vregOf rejects non-virtual registers), so Build must forbid
// them for whatever vreg is still live across the write instead.
func physDefs(inst *mir.Instr) []mir.PReg {
	var defs []mir.PReg
	if dest := inst.Dest(); dest != nil {
		if r, ok := dest.(mir.Register); ok && r.Phys != mir.NoPReg {
			defs = append(defs, r.Phys)
		}
	}
	switch inst.Op {
	case mir.Cdq:
		defs = append(defs, 2) // rdx
	case mir.IDiv, mir.Div:
		defs = append(defs, 0, 2) // rax, rdx
	case mir.Call:
		defs = append(defs, 0) // rax
	}
	return defs
}
