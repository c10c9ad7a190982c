package optimize

import (
	"fmt"
	"strings"

	"github.com/quivent/fast-forth/ir"
)

// inlinePolicy bounds what one level is allowed to expand.  maxSize caps the
// callee body instruction count (negative means unbounded); maxDepth caps
// how many chained call levels a single expansion may traverse.
type inlinePolicy struct {
	maxSize  int
	maxDepth int
}

func policyFor(level Level) inlinePolicy {
	switch level {
	case Basic:
		return inlinePolicy{maxSize: 2, maxDepth: 1}
	case Standard:
		return inlinePolicy{maxSize: 8, maxDepth: 4}
	case Aggressive:
		return inlinePolicy{maxSize: -1, maxDepth: 16}
	default:
		return inlinePolicy{maxSize: 0, maxDepth: 0}
	}
}

// Inliner substitutes call instructions with copies of their callee's body.
// Expansion is guarded by an active call stack so recursion, direct or
// mutual, is always preserved as a call.
type Inliner struct {
	level  Level
	policy inlinePolicy
}

// NewInliner creates an inliner for the given level
func NewInliner(level Level) *Inliner {
	return &Inliner{level: level, policy: policyFor(level)}
}

// Inline rewrites every word body and the main sequence of p, expanding
// eligible call sites.  A new program is returned; p is untouched.  The only
// error condition is a call naming a word absent from the program.
func (in *Inliner) Inline(p *ir.Program) (*ir.Program, error) {
	out := p.Clone()
	if in.level == None {
		return out, nil
	}

	// callee bodies are resolved against a snapshot of the input, so a word
	// rewritten earlier in this run is never seen pre-expanded by a later
	// call site; chain depth is bounded only by the expansion stack
	ex := &expansion{
		source:    p.Clone(),
		inliner:   in,
		nextLabel: out.MaxLabel() + 1,
	}

	for _, w := range out.Words {
		body, err := ex.expand(w.Body, []string{w.Name}, 0)
		if err != nil {
			return nil, err
		}
		w.Body = body
	}

	main, err := ex.expand(out.Main, nil, 0)
	if err != nil {
		return nil, err
	}
	out.Main = main

	return out, nil
}

// expansion is the state of one Inline run: the unmodified source program
// callee bodies are read from and the fresh-label counter shared by every
// substitution in the run
type expansion struct {
	source    *ir.Program
	inliner   *Inliner
	nextLabel int
}

// expand rewrites one instruction sequence.  active is the stack of word
// names currently being expanded, outermost first; a call to any name on it
// is part of a cycle and stays a call.
func (ex *expansion) expand(body []ir.Instruction, active []string, depth int) ([]ir.Instruction, error) {
	out := make([]ir.Instruction, 0, len(body))

	for _, instr := range body {
		if !instr.IsCall() {
			out = append(out, instr)
			continue
		}

		callee, ok := ex.source.Word(instr.Sym)
		if !ok {
			return nil, failf("inline", "call to undefined word `%s`", instr.Sym)
		}

		if !ex.eligible(callee, active, depth) {
			out = append(out, instr)
			continue
		}

		substituted := ex.substitute(callee.Body)
		expanded, err := ex.expand(substituted, append(active, callee.Name), depth+1)
		if err != nil {
			return nil, err
		}

		out = append(out, expanded...)
	}

	return out, nil
}

// eligible applies the cycle guard and the level's cost model to one call
// site
func (ex *expansion) eligible(callee *ir.WordDef, active []string, depth int) bool {
	for _, name := range active {
		if name == callee.Name {
			return false
		}
	}

	if depth >= ex.inliner.policy.maxDepth {
		return false
	}

	if callee.IsInline {
		return true
	}

	if ex.inliner.policy.maxSize >= 0 && len(callee.Body) > ex.inliner.policy.maxSize {
		return false
	}

	return true
}

// substitute copies a callee body for splicing into a call site: labels are
// remapped to fresh ids so two expansions of the same word never collide,
// and trailing returns are stripped since control falls through into the
// caller's next instruction.
func (ex *expansion) substitute(body []ir.Instruction) []ir.Instruction {
	for len(body) > 0 && body[len(body)-1].Op == ir.OpReturn {
		body = body[:len(body)-1]
	}

	remap := make(map[int]int)
	fresh := func(old int) int {
		if id, ok := remap[old]; ok {
			return id
		}
		id := ex.nextLabel
		ex.nextLabel++
		remap[old] = id
		return id
	}

	out := make([]ir.Instruction, len(body))
	for i, instr := range body {
		switch instr.Op {
		case ir.OpLabel, ir.OpBranch, ir.OpBranchIfNot:
			instr.Target = fresh(instr.Target)
		}
		out[i] = instr
	}

	return out
}

// -----------------------------------------------------------------------------

// InlineStats summarizes the effect of one inlining transformation
type InlineStats struct {
	CallsBefore  int
	CallsAfter   int
	CallsInlined int
	InlinedPct   float64
	InstrsBefore int
	InstrsAfter  int
	BloatFactor  float64
	CyclesFound  int
	CyclesLive   int
	WordsBefore  int
	WordsAfter   int
}

// Stats compares an input program against its inlined result
func (in *Inliner) Stats(before, after *ir.Program) InlineStats {
	s := InlineStats{
		CallsBefore:  before.CallCount(),
		CallsAfter:   after.CallCount(),
		InstrsBefore: before.InstructionCount(),
		InstrsAfter:  after.InstructionCount(),
		WordsBefore:  len(before.Words),
		WordsAfter:   len(after.Words),
	}

	s.CallsInlined = s.CallsBefore - s.CallsAfter
	if s.CallsInlined < 0 {
		s.CallsInlined = 0
	}
	if s.CallsBefore > 0 {
		s.InlinedPct = float64(s.CallsInlined) / float64(s.CallsBefore) * 100
	}
	if s.InstrsBefore > 0 {
		s.BloatFactor = float64(s.InstrsAfter) / float64(s.InstrsBefore)
	}

	s.CyclesFound = len(ir.BuildCallGraph(before).Cycles())
	s.CyclesLive = liveCycles(after)

	return s
}

// liveCycles counts the call cycles still reachable from the main sequence
func liveCycles(p *ir.Program) int {
	graph := ir.BuildCallGraph(p)

	reachable := make(map[string]bool)
	var mark func(name string)
	mark = func(name string) {
		if reachable[name] {
			return
		}
		reachable[name] = true
		for _, edge := range graph.Callees(name) {
			mark(edge.Callee)
		}
	}
	mark(ir.MainCaller)

	count := 0
	for _, cycle := range graph.Cycles() {
		for _, member := range cycle {
			if reachable[member] {
				count++
				break
			}
		}
	}

	return count
}

func (s InlineStats) String() string {
	sb := &strings.Builder{}
	sb.WriteString("Aggressive Inline Statistics:\n")
	fmt.Fprintf(sb, "├─ Calls before:        %d\n", s.CallsBefore)
	fmt.Fprintf(sb, "├─ Calls after:         %d\n", s.CallsAfter)
	fmt.Fprintf(sb, "├─ Calls inlined:       %d (%.1f%%)\n", s.CallsInlined, s.InlinedPct)
	fmt.Fprintf(sb, "├─ Instructions before: %d\n", s.InstrsBefore)
	fmt.Fprintf(sb, "├─ Instructions after:  %d\n", s.InstrsAfter)
	fmt.Fprintf(sb, "├─ Code bloat:          %.2fx\n", s.BloatFactor)
	fmt.Fprintf(sb, "├─ Cycles detected:     %d\n", s.CyclesFound)
	fmt.Fprintf(sb, "├─ Cycles remaining:    %d\n", s.CyclesLive)
	fmt.Fprintf(sb, "├─ Words before:        %d\n", s.WordsBefore)
	fmt.Fprintf(sb, "└─ Words after:         %d", s.WordsAfter)
	return sb.String()
}
