package checker

import (
	"cspx/internal/explain"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/minimize"
	"cspx/internal/reason"
	"cspx/internal/transition"
)

// Determinism implements spec.md section 4.5.3: the system is
// deterministic iff, for every reachable tau-closure and every visible
// label a, the set of tau-closures reachable by exactly one a-step has
// cardinality at most 1. Unlike deadlock and divergence, this check
// walks closures directly rather than the explorer's raw-state BFS,
// since the property is stated over closures; it still honours the
// advisory timeout/memory limits by polling them once per closure
// visited.
type Determinism struct {
	Module *ir.Module
}

// Run explores target's closure graph breadth-first and fails at the
// first branch point where one visible label leads to two distinct
// destination closures.
func (d Determinism) Run(target *ir.Process, lim limits.Limits) CheckOutcome {
	prov := transition.New(d.Module)
	reg := newClosureRegistry(prov)
	budget := newBudget(lim)

	start := reg.Of(target.Body)
	type frame struct {
		c    *closure
		path []ir.Label
	}

	visited := map[string]bool{start.key: true}
	queue := []frame{{c: start, path: nil}}
	states, transitions := 0, 0

	for len(queue) > 0 {
		if budget.TimedOut() {
			return FromReason(Stats{States: states, Transitions: transitions}, reason.New(reason.Timeout, "exploration exceeded timeout_ms"))
		}
		if budget.OutOfMemory() {
			return FromReason(Stats{States: states, Transitions: transitions}, reason.New(reason.OutOfMemory, "exploration exceeded memory_mb"))
		}

		fr := queue[0]
		queue = queue[1:]
		states++

		steps := reg.visibleSteps(fr.c)
		var lastLabel ir.Label
		var lastDest *closure
		haveLast := false

		for _, step := range steps {
			transitions++
			if haveLast && step.label.Equal(lastLabel) && step.dest.key != lastDest.key {
				failPath := append(append([]ir.Label{}, fr.path...), step.label)
				oracle := branchOracle(reg, target.Body)
				minimized, isMinimized := minimize.Minimize(failPath, oracle)
				ce := &Counterexample{
					Kind:        "trace",
					Events:      minimized,
					Tags:        explain.Tags([]string{"nondeterminism"}),
					IsMinimized: isMinimized,
				}
				return Fail(Stats{States: states, Transitions: transitions}, ce)
			}
			if !haveLast || !step.label.Equal(lastLabel) {
				lastLabel, lastDest, haveLast = step.label, step.dest, true
			}

			if !visited[step.dest.key] {
				visited[step.dest.key] = true
				queue = append(queue, frame{c: step.dest, path: append(append([]ir.Label{}, fr.path...), step.label)})
			}
		}
	}

	return Pass(Stats{States: states, Transitions: transitions})
}

// closureReplay walks events through reg's closure-level visible steps
// from start's closure, the closure analogue of replay.Verify. It
// deliberately follows one (the first) matching destination per step
// rather than normalising branches the way acceptSet does for trace
// membership: determinism checking must preserve the branch structure it
// is testing for, not collapse it.
func closureReplay(reg *closureRegistry, start *ir.Term, events []ir.Label) (*closure, bool) {
	cur := reg.Of(start)
	for _, want := range events {
		dests := matchingDests(reg, cur, want)
		if len(dests) == 0 {
			return nil, false
		}
		cur = dests[0]
	}
	return cur, true
}

// branchOracle builds a minimize.Oracle preserving the branch-point shape
// of a nondeterminism counterexample: the candidate's last event must
// still lead to at least two distinct destination closures from the
// closure its prefix reaches.
func branchOracle(reg *closureRegistry, start *ir.Term) minimize.Oracle {
	return func(events []ir.Label) bool {
		if len(events) == 0 {
			return false
		}
		prefix, last := events[:len(events)-1], events[len(events)-1]
		c, ok := closureReplay(reg, start, prefix)
		if !ok {
			return false
		}
		var dest string
		seenOne := false
		for _, step := range reg.visibleSteps(c) {
			if !step.label.Equal(last) {
				continue
			}
			if !seenOne {
				dest, seenOne = step.dest.key, true
				continue
			}
			if step.dest.key != dest {
				return true
			}
		}
		return false
	}
}
