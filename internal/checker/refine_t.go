package checker

import (
	"cspx/internal/explain"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/minimize"
	"cspx/internal/reason"
	"cspx/internal/replay"
	"cspx/internal/state"
	"cspx/internal/transition"
)

// RefineT implements spec.md section 4.5.4: Traces(impl) subseteq
// Traces(spec), where traces are visible sequences with tau absorbed.
// Joint BFS walks pairs (impl state, spec closure), the spec side
// tracking every spec state reachable by the visible trace consumed so
// far rather than a single state, since the spec process may itself be
// nondeterministic.
type RefineT struct {
	Module *ir.Module
}

// pairFrame is one node of the joint BFS: an impl state paired with the
// spec closure reachable by the same visible trace, plus the visible
// trace itself for counterexample reporting.
type pairFrame struct {
	implTerm *ir.Term
	specC    *closure
	path     []ir.Label
}

// Run performs the joint traces-refinement BFS from spec.Body and
// impl.Body.
func (r RefineT) Run(spec, impl *ir.Process, lim limits.Limits) CheckOutcome {
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

		for _, tr := range prov.Transitions(fr.implTerm) {
			transitions++

			if tr.Label.Tau {
				// Tau on the impl side keeps the same spec closure; the
				// pair still advances, but contributes no visible event.
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
					Tags:        explain.Tags([]string{"refinement", "model:T", "trace_mismatch", "label:" + tr.Label.Channel}),
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

func implKeyOf(t *ir.Term) string {
	return string(state.Encode(t))
}

func pairKey(implKey, specKey string) string {
	return implKey + "\x00" + specKey
}

// traceMismatchOracle preserves a trace-refinement violation: events
// survives trimming only if impl can still perform the full sequence and
// spec still cannot (section 4.5.4's Traces(impl) subseteq Traces(spec)
// violated by the same trace).
func traceMismatchOracle(reg *closureRegistry, prov *transition.Provider, implStart *ir.Term, specStart *closure) minimize.Oracle {
	return func(events []ir.Label) bool {
		if _, ok := replay.Verify(prov, implStart, events); !ok {
			return false
		}
		_, specOk := acceptSet(reg, specStart, events)
		return !specOk
	}
}
