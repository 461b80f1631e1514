package checker

import (
	"cspx/internal/explain"
	"cspx/internal/explorer"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/minimize"
	"cspx/internal/replay"
	"cspx/internal/store"
	"cspx/internal/transition"
)

// Deadlock implements spec.md section 4.5.1: a state is deadlocked iff
// it has no outgoing transitions (no tau, no visible). Detection is a
// per-state hook during a single BFS pass, so a failing run stops as
// soon as the first deadlocked state (in BFS order) is dequeued.
type Deadlock struct {
	Module *ir.Module

	// Workers selects the explorer backend: <= 1 runs explorer.RunSerial,
	// > 1 runs explorer.RunParallel with that many workers. Both
	// backends are required by spec.md section 4.4 to produce the same
	// dequeue sequence, so the choice affects wall-clock only.
	Workers int
}

// Run explores from target's body and fails on the first deadlocked
// state reached in BFS order.
func (d Deadlock) Run(target *ir.Process, st store.Store, lim limits.Limits) CheckOutcome {
	prov := transition.New(d.Module)

	var failNode []byte
	hook := func(n *explorer.Node) bool {
		if len(n.Out) == 0 {
			failNode = n.Encoded
			return true
		}
		return false
	}

	var res explorer.Result
	if d.Workers > 1 {
		res = explorer.RunParallel(prov, st, []*ir.Term{target.Body}, lim, d.Workers, hook)
	} else {
		res = explorer.RunSerial(prov, st, []*ir.Term{target.Body}, lim, hook)
	}
	stats := Stats{States: res.Stats.States, Transitions: res.Stats.Transitions}

	if res.Reason != nil {
		return FromReason(stats, res.Reason)
	}
	if failNode == nil {
		return Pass(stats)
	}

	events := explorer.Path(res.Graph, failNode)
	oracle := replay.Oracle(prov, target.Body, func(t *ir.Term) bool {
		return len(prov.Transitions(t)) == 0
	})
	minimized, isMinimized := minimize.Minimize(events, oracle)

	ce := &Counterexample{
		Kind:        "trace",
		Events:      minimized,
		Tags:        explain.Tags([]string{"deadlock"}),
		SourceSpans: explain.Spans(res.Graph, failNode),
		IsMinimized: isMinimized,
	}
	return Fail(stats, ce)
}
