package checker

import (
	"cspx/internal/explain"
	"cspx/internal/explorer"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/minimize"
	"cspx/internal/replay"
	"cspx/internal/state"
	"cspx/internal/store"
	"cspx/internal/transition"
)

// Divergence implements spec.md section 4.5.2: a divergence is a
// tau-cycle, a cycle reachable via tau transitions alone. Detection
// explores the full reachable LTS first (a divergence is a structural
// property of the whole graph, unlike deadlock's local per-state test),
// then runs Tarjan's strongly-connected-components algorithm on the
// tau-sub-LTS of reachable states.
type Divergence struct {
	Module *ir.Module

	// Workers selects the explorer backend; see Deadlock.Workers.
	Workers int
}

// Run explores from target's body, then reports fail if any
// strongly-connected component of the tau-sub-LTS has >=2 states, or is
// a singleton with a tau self-loop.
func (d Divergence) Run(target *ir.Process, st store.Store, lim limits.Limits) CheckOutcome {
	prov := transition.New(d.Module)

	var res explorer.Result
	if d.Workers > 1 {
		res = explorer.RunParallel(prov, st, []*ir.Term{target.Body}, lim, d.Workers, nil)
	} else {
		res = explorer.RunSerial(prov, st, []*ir.Term{target.Body}, lim, nil)
	}
	stats := Stats{States: res.Stats.States, Transitions: res.Stats.Transitions}

	if res.Reason != nil {
		return FromReason(stats, res.Reason)
	}

	offending := tauSCC(res.Graph)
	if offending == "" {
		return Pass(stats)
	}

	events := explorer.Path(res.Graph, []byte(offending))
	reg := newClosureRegistry(prov)
	oracle := replay.Oracle(prov, target.Body, func(t *ir.Term) bool {
		return reg.diverges(reg.Of(t))
	})
	minimized, isMinimized := minimize.Minimize(events, oracle)

	ce := &Counterexample{
		Kind:        "trace",
		Events:      minimized,
		Tags:        explain.Tags([]string{"divergence"}),
		SourceSpans: explain.Spans(res.Graph, []byte(offending)),
		IsMinimized: isMinimized,
	}
	return Fail(stats, ce)
}

// tauSCC returns the encoding of some state belonging to a divergent
// strongly-connected component of g's tau-sub-LTS, or "" if none exists.
// Tarjan's algorithm runs in g.Order's discovery order, so the returned
// component (and hence the counterexample) is deterministic for a given
// exploration.
func tauSCC(g *explorer.Graph) string {
	idx := make(map[string]int)
	low := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	counter := 0

	var result string
	var strongconnect func(v string)
	strongconnect = func(v string) {
		idx[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		node := g.Node([]byte(v))
		selfLoop := false
		for _, tr := range node.Out {
			if !tr.Label.Tau {
				continue
			}
			w := string(state.Encode(tr.Next))
			if w == v {
				selfLoop = true
			}
			if _, seen := idx[w]; !seen {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if idx[w] < low[v] {
					low[v] = idx[w]
				}
			}
		}

		if low[v] == idx[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if result == "" && (len(comp) >= 2 || (len(comp) == 1 && selfLoop)) {
				result = comp[0]
			}
		}
	}

	for _, key := range g.Order {
		if result != "" {
			break
		}
		if _, seen := idx[key]; !seen {
			strongconnect(key)
		}
	}
	return result
}
