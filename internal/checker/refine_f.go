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

// RefineF implements spec.md section 4.5.5: T-refinement plus a refusal
// check. At every reached impl state that is stable (no tau
// transitions), the impl's refusal set must be realised by at least one
// stable spec state reachable in the current spec closure after the
// same trace. Realised is checked via the standard ready-set reduction:
// a stable spec state realises impl's refusals iff its ready set is a
// subset of impl's ready set, since that spec state then refuses every
// event impl refuses (and possibly more).
type RefineF struct {
	Module *ir.Module
}

// Run performs the joint BFS of RefineT, additionally checking refusals
// at every stable impl state reached.
func (r RefineF) Run(spec, impl *ir.Process, lim limits.Limits) CheckOutcome {
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

		implTrs := prov.Transitions(fr.implTerm)
		if stableTerm(prov, fr.implTerm) {
			if ce := checkRefusals(reg, fr, implTrs); ce != nil {
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
					Tags:        explain.Tags([]string{"refinement", "model:F", "trace_mismatch", "label:" + tr.Label.Channel}),
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

func stableTerm(prov *transition.Provider, t *ir.Term) bool {
	for _, tr := range prov.Transitions(t) {
		if tr.Label.Tau {
			return false
		}
	}
	return true
}

func readySetOf(prov *transition.Provider, t *ir.Term) []ir.Label {
	var out []ir.Label
	for _, tr := range prov.Transitions(t) {
		if !tr.Label.Tau {
			out = append(out, tr.Label)
		}
	}
	return out
}

// checkRefusals returns a failing Counterexample if no stable spec
// member of fr.specC realises the impl's refusal set, or nil if the
// check passes.
func checkRefusals(reg *closureRegistry, fr pairFrame, implTrs []transition.Transition) *Counterexample {
	implReady := map[string]ir.Label{}
	for _, tr := range implTrs {
		if !tr.Label.Tau {
			implReady[tr.Label.String()] = tr.Label
		}
	}

	var bestMissing []ir.Label
	haveStableCandidate := false
	for _, memberKey := range fr.specC.members {
		t, ok := reg.Terms(fr.specC)[memberKey]
		if !ok || !stableTerm(reg.prov, t) {
			continue
		}
		haveStableCandidate = true

		// missing: events this spec state offers but impl refuses.
		var missing []ir.Label
		for _, l := range readySetOf(reg.prov, t) {
			if _, ok := implReady[l.String()]; !ok {
				missing = append(missing, l)
			}
		}
		if len(missing) == 0 {
			return nil // this spec candidate's ready set is a subset of impl's: refusals realised
		}
		if bestMissing == nil || len(missing) < len(bestMissing) {
			bestMissing = missing
		}
	}

	if !haveStableCandidate {
		for _, l := range implReady {
			bestMissing = append(bestMissing, l)
		}
	}

	tags := []string{"refinement", "model:F", "refusal_mismatch"}
	for _, l := range bestMissing {
		tags = append(tags, "refuse:"+l.Channel)
	}

	return &Counterexample{
		Kind:   "trace",
		Events: append([]ir.Label{}, fr.path...),
		Tags:   explain.Tags(tags),
	}
}

// refusalOracle preserves a refusal-mismatch violation: events survives
// trimming only if impl can still perform the trace to a stable state,
// and no spec closure reachable by that same trace realises impl's
// refusal set there (section 4.5.5).
func refusalOracle(reg *closureRegistry, prov *transition.Provider, implStart *ir.Term, specStart *closure) minimize.Oracle {
	return func(events []ir.Label) bool {
		implFinal, ok := replay.Verify(prov, implStart, events)
		if !ok || !stableTerm(prov, implFinal) {
			return false
		}
		specC, ok := acceptSet(reg, specStart, events)
		if !ok {
			return false
		}
		implTrs := prov.Transitions(implFinal)
		return checkRefusals(reg, pairFrame{specC: specC}, implTrs) != nil
	}
}
