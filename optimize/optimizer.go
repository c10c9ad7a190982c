package optimize

import (
	"github.com/quivent/fast-forth/ir"
)

// Level selects which passes run and how permissive the inlining cost model
// is.  The ordering None < Basic < Standard < Aggressive is load-bearing:
// pass gating compares levels directly.
type Level int

const (
	// None runs no passes at all
	None Level = iota

	// Basic runs constant folding, superinstruction fusion, and dead code
	// elimination
	Basic

	// Standard adds inlining and stack caching
	Standard

	// Aggressive removes the inlining size cap and deepens chain expansion
	Aggressive
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Basic:
		return "basic"
	case Standard:
		return "standard"
	case Aggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name as written on the command line or in a
// module profile ("none", "basic", "standard", "aggressive", or "0".."3")
// into a Level
func ParseLevel(name string) (Level, bool) {
	switch name {
	case "none", "0":
		return None, true
	case "basic", "1":
		return Basic, true
	case "standard", "2":
		return Standard, true
	case "aggressive", "3":
		return Aggressive, true
	default:
		return None, false
	}
}

// -----------------------------------------------------------------------------

// maxFixpointIterations bounds the fixpoint loop so a pass pair that
// oscillates cannot hang compilation
const maxFixpointIterations = 10

// Optimizer sequences the optimization passes over a flat IR program
type Optimizer struct {
	level Level

	inliner    *Inliner
	folder     *ConstantFolder
	fuser      *SuperinstructionFuser
	eliminator *DeadCodeEliminator
	cacher     *StackCacher
}

// NewOptimizer creates an optimizer for the given level
func NewOptimizer(level Level) *Optimizer {
	return &Optimizer{
		level:      level,
		inliner:    NewInliner(level),
		folder:     NewConstantFolder(),
		fuser:      NewSuperinstructionFuser(),
		eliminator: NewDeadCodeEliminator(),
		cacher:     NewStackCacher(3),
	}
}

// Level returns the optimizer's configured level
func (o *Optimizer) Level() Level {
	return o.level
}

// Optimize runs one round of every pass enabled at the configured level, in
// order, and returns a new program.  The input program is not mutated; at
// level None it is returned as an untouched copy.
func (o *Optimizer) Optimize(p *ir.Program) (*ir.Program, error) {
	if o.level == None {
		return p.Clone(), nil
	}

	// constant folding first: it exposes fusion and folding opportunities to
	// the later passes
	out := o.folder.Fold(p)

	if o.level >= Standard {
		inlined, err := o.inliner.Inline(out)
		if err != nil {
			return nil, err
		}
		out = inlined
	}

	// superinstruction fusion runs after inlining so patterns that straddle
	// a former call boundary are visible
	out = o.fuser.Fuse(out)

	out = o.eliminator.Eliminate(out)

	if o.level >= Standard {
		out = o.cacher.Plan(out)
	}

	if err := Verify(out); err != nil {
		return nil, err
	}

	return out, nil
}

// OptimizeToFixpoint re-runs Optimize until the program stops changing or
// the iteration cap is reached
func (o *Optimizer) OptimizeToFixpoint(p *ir.Program) (*ir.Program, error) {
	current := p

	for i := 0; i < maxFixpointIterations; i++ {
		optimized, err := o.Optimize(current)
		if err != nil {
			return nil, err
		}

		if optimized.Equal(current) {
			return optimized, nil
		}

		current = optimized
	}

	return current, nil
}
