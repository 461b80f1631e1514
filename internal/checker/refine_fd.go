package checker

import (
	"cspx/internal/explain"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/minimize"
	"cspx/internal/reason"
	"cspx/internal/replay"
	"cspx/internal/transition"
)

// RefineFD implements spec.md section 4.5.6: F-refinement, augmented
// with a divergence check. If the impl can diverge after some trace t,
// the spec must also be able to diverge after t; once the spec is
// divergent after t, chaos closure applies and every continuation is
// accepted, so that branch of the joint BFS is not expanded further.
type RefineFD struct {
	Module *ir.Module
}

// Run performs the joint BFS of RefineF, additionally checking
// divergence compatibility at every pair reached and pruning branches
// where the spec has entered its chaos closure.
func (r RefineFD) Run(spec, impl *ir.Process, lim limits.Limits) CheckOutcome {
	prov := transition.New(r.Module)
	reg := newClosureRegistry(prov)
	budget := newBudget(lim)

	specStart := reg.Of(spec.Body)

	visited := map[string]bool{}
	start := pairFrame{implTerm: impl.Body, specC: specStart}
	visited[pairKey(implKeyOf(start.implTerm), specStart.key)] = true
	queue := []pairFrame{start}

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

		implDiverges := reg.diverges(reg.Of(fr.implTerm))
		specDiverges := reg.diverges(fr.specC)

		if implDiverges && !specDiverges {
			events := append(append([]ir.Label{}, fr.path...), ir.Tau)
			oracle := divergenceMismatchOracle(reg, prov, impl.Body, specStart)
			minimized, isMinimized := minimize.Minimize(events, oracle)
			ce := &Counterexample{
				Kind:        "trace",
				Events:      minimized,
				Tags:        explain.Tags([]string{"refinement", "model:FD", "divergence_mismatch"}),
				IsMinimized: isMinimized,
			}
			return Fail(Stats{States: states, Transitions: transitions}, ce)
		}
		if specDiverges {
			// Chaos closure: the spec accepts every continuation of this
			// trace once it can itself diverge there. Do not expand this
			// pair further.
			continue
		}

		implTrs := prov.Transitions(fr.implTerm)
		if stableTerm(prov, fr.implTerm) {
			if ce := checkRefusals(reg, fr, implTrs); ce != nil {
				ce.Tags = replaceModelTag(ce.Tags, "model:FD")
				oracle := refusalOracle(reg, prov, impl.Body, specStart)
				minimized, isMinimized := minimize.Minimize(ce.Events, oracle)
				ce.Events = minimized
				ce.IsMinimized = isMinimized
				return Fail(Stats{States: states, Transitions: transitions}, ce)
			}
		}

		for _, tr := range implTrs {
			transitions++

			if tr.Label.Tau {
				key := pairKey(implKeyOf(tr.Next), fr.specC.key)
				if !visited[key] {
					visited[key] = true
					queue = append(queue, pairFrame{implTerm: tr.Next, specC: fr.specC, path: fr.path})
				}
				continue
			}

			destSpec, offered := reg.Step(fr.specC, tr.Label)
			if !offered {
				failPath := append(append([]ir.Label{}, fr.path...), tr.Label)
				oracle := traceMismatchOracle(reg, prov, impl.Body, specStart)
				minimized, isMinimized := minimize.Minimize(failPath, oracle)
				ce := &Counterexample{
					Kind:        "trace",
					Events:      minimized,
					Tags:        explain.Tags([]string{"refinement", "model:FD", "trace_mismatch", "label:" + tr.Label.Channel}),
					IsMinimized: isMinimized,
				}
				return Fail(Stats{States: states, Transitions: transitions}, ce)
			}

			key := pairKey(implKeyOf(tr.Next), destSpec.key)
			if !visited[key] {
				visited[key] = true
				queue = append(queue, pairFrame{
					implTerm: tr.Next,
					specC:    destSpec,
					path:     append(append([]ir.Label{}, fr.path...), tr.Label),
				})
			}
		}
	}

	return Pass(Stats{States: states, Transitions: transitions})
}

// divergenceMismatchOracle preserves a divergence-mismatch violation:
// events (its last element always ir.Tau, marking the divergence rather
// than a visible event) survives trimming only if impl can still diverge
// after the visible prefix while no spec closure reachable by that same
// prefix can.
func divergenceMismatchOracle(reg *closureRegistry, prov *transition.Provider, implStart *ir.Term, specStart *closure) minimize.Oracle {
	return func(events []ir.Label) bool {
		if len(events) == 0 || !events[len(events)-1].Tau {
			return false
		}
		prefix := events[:len(events)-1]
		implFinal, ok := replay.Verify(prov, implStart, prefix)
		if !ok || !reg.diverges(reg.Of(implFinal)) {
			return false
		}
		specC, ok := acceptSet(reg, specStart, prefix)
		if !ok {
			return false
		}
		return !reg.diverges(specC)
	}
}

// replaceModelTag swaps an existing model:* tag for model, since
// checkRefusals is shared with RefineF and always stamps model:F.
func replaceModelTag(tags []string, model string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "model:F" {
			out = append(out, model)
			continue
		}
		out = append(out, t)
	}
	return out
}
