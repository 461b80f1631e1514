// Package minimize implements the one-pass greedy single-event-deletion
// counterexample shrinker from spec.md section 4.6.
package minimize

import "cspx/internal/ir"

// Oracle reports whether a candidate event sequence still exhibits the
// failure the checker originally found, re-running the same checker on
// the sub-system induced by the candidate. The caller supplies this: the
// minimizer has no notion of which checker or process produced events.
type Oracle func(events []ir.Label) bool

// Minimize shrinks events by one greedy left-to-right pass of single-
// event deletion, then verifies the result: isMinimized is true only if
// the oracle still holds on the returned sequence and no further
// single-event deletion would also preserve failure. The minimizer is
// local-minimum only; shortest-overall is not guaranteed.
func Minimize(events []ir.Label, oracle Oracle) (result []ir.Label, isMinimized bool) {
	cur := append([]ir.Label{}, events...)

	i := 0
	for i < len(cur) {
		candidate := without(cur, i)
		if oracle(candidate) {
			cur = candidate
			continue
		}
		i++
	}

	if !oracle(cur) {
		return cur, false
	}
	for i := 0; i < len(cur); i++ {
		if oracle(without(cur, i)) {
			return cur, false
		}
	}
	return cur, true
}

func without(events []ir.Label, i int) []ir.Label {
	out := make([]ir.Label, 0, len(events)-1)
	out = append(out, events[:i]...)
	out = append(out, events[i+1:]...)
	return out
}
