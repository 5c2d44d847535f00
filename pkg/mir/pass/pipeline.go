package pass

import "github.com/jdryg/jitcc/pkg/mir"

// DefaultMaxIterations bounds the mir cleanup fixed-point loop, mirroring
// pkg/ir/pass's DefaultMaxIterations for the same reason: these passes can
// re-enable each other (tunneling can expose a new fallthrough; removing a
// fallthrough jump can make a block a tunneling candidate) but converge
// quickly in practice.
const DefaultMaxIterations = 16

// Run applies every mir cleanup pass to f to a fixed point: branch
// tunneling, unreachable-block removal, conditional-jump collapsing,
// redundant-move elision, then fallthrough elision last since it depends
// on final block order.
func Run(f *mir.Function) {
	FixupMemoryOperands(f)
	for i := 0; i < DefaultMaxIterations; i++ {
		changed := false
		changed = Tunnel(f) || changed
		changed = RemoveUnreachableBlocks(f) || changed
		changed = CollapseCondJump(f) || changed
		changed = RemoveRedundantMoves(f) || changed
		if !changed {
			break
		}
	}
	ElideFallthroughJumps(f)
}

// RunProgram applies Run to every function in prog.
func RunProgram(prog *mir.Program) {
	for _, f := range prog.Functions {
		Run(f)
	}
}
