// Package replay re-drives a counterexample's event sequence against a
// transition provider, the way the teacher's checker.go reconstructs a
// predicateCheckerResponse's sequence to confirm it is still valid after
// trimming. It backs the minimizer's oracle (spec.md section 4.6: every
// candidate trimmed sequence must remain literally reproducible from the
// initial state) and is exposed standalone so tests can assert
// oracle-preservation directly.
package replay

import (
	"cspx/internal/ir"
	"cspx/internal/minimize"
	"cspx/internal/transition"
)

// Verify walks events against prov starting from initial, stepping
// through tau-transitions transparently wherever a visible event does not
// match directly, and reports whether the full sequence is literally
// reproducible. On success it returns the term reached after the last
// event.
func Verify(prov *transition.Provider, initial *ir.Term, events []ir.Label) (*ir.Term, bool) {
	cur := initial
	for _, want := range events {
		next, ok := step(prov, cur, want)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(prov *transition.Provider, t *ir.Term, want ir.Label) (*ir.Term, bool) {
	for _, tr := range prov.Transitions(t) {
		if tr.Label.Equal(want) {
			return tr.Next, true
		}
	}
	if want.Tau {
		return nil, false
	}
	for _, tr := range prov.Transitions(t) {
		if !tr.Label.Tau {
			continue
		}
		if next, ok := step(prov, tr.Next, want); ok {
			return next, true
		}
	}
	return nil, false
}

// Oracle builds a minimize.Oracle from a transition provider, an initial
// state, and a predicate over the state a candidate trace reaches: the
// candidate survives trimming only if it both replays and still lands on
// a term the predicate accepts (e.g. "has no outgoing transitions" for a
// deadlock counterexample).
func Oracle(prov *transition.Provider, initial *ir.Term, holds func(*ir.Term) bool) minimize.Oracle {
	return func(events []ir.Label) bool {
		final, ok := Verify(prov, initial, events)
		return ok && holds(final)
	}
}
