// Package pass implements the configurable optimization pass pipeline that
// runs over pkg/ir functions: each pass is a pure function
// transformation reporting whether it changed anything, chained by Pipeline
// until a fixed point or an iteration ceiling is reached.
package pass

import (
	"log/slog"

	"github.com/jdryg/jitcc/pkg/ir"
)

// Pass transforms fn in place and reports whether it made any change.
type Pass struct {
	Name string
	Run  func(fn *ir.Function) bool
}

// Pipeline is an ordered sequence of passes applied to every function in a
// module, repeated until no pass reports a change or MaxIterations is hit.
type Pipeline struct {
	Passes        []Pass
	MaxIterations int
}

// DefaultMaxIterations bounds the fixed-point loop so a misbehaving pass
// pair cannot oscillate forever.
const DefaultMaxIterations = 16

// Default returns the named pass chain in a fixed order: block/CFG
// normalization first, then SSA construction, then the
// iterative cleanup passes. The inliner is not in this chain: it works
// across functions and is driven separately by RunInliner.
func Default() *Pipeline {
	return &Pipeline{
		MaxIterations: DefaultMaxIterations,
		Passes: []Pass{
			{Name: "single-return-block", Run: SingleReturnBlock},
			{Name: "simplify-cfg", Run: SimplifyCFG},
			{Name: "construct-ssa", Run: ConstructSSA},
			{Name: "constant-folding", Run: ConstantFolding},
			{Name: "peephole", Run: Peephole},
			{Name: "canonicalize-operands", Run: CanonicalizeOperands},
			{Name: "remove-redundant-phis", Run: RemoveRedundantPhis},
			{Name: "local-value-numbering", Run: LocalValueNumbering},
			{Name: "dead-code-elimination", Run: DeadCodeElimination},
			{Name: "reorder-basic-blocks", Run: ReorderBasicBlocks},
		},
	}
}

// Run applies the pipeline to fn until a fixed point, returning the total
// number of passes that reported a change across all iterations.
func (p *Pipeline) Run(fn *ir.Function) int {
	total := 0
	for iter := 0; iter < p.MaxIterations; iter++ {
		changed := false
		for _, ps := range p.Passes {
			if ps.Run(fn) {
				slog.Debug("pass changed function", "pass", ps.Name, "function", fn.Name)
				changed = true
				total++
			}
		}
		if !changed {
			break
		}
	}
	return total
}

// RunInliner runs the whole-module inliner, which operates across function
// boundaries and so is driven separately from the per-function Pipeline.
func RunInliner(m *ir.Module, callerBudget int) bool {
	return Inline(m, callerBudget)
}
