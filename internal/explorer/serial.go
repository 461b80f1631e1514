package explorer

import (
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/queue"
	"cspx/internal/reason"
	"cspx/internal/state"
	"cspx/internal/store"
	"cspx/internal/transition"
)

// Hook is invoked once per dequeued state by RunSerial and RunParallel,
// after every state of its BFS level has been expanded. Returning true
// stops exploration at the end of that level with that node as the
// failing state — the mechanism spec.md section 4.5.1 uses for deadlock
// detection ("On a deadlocked state during exploration, construct a
// counterexample"). The divergence checker, which needs the full
// reachable graph, passes a nil hook and does its analysis after
// exploration returns.
type Hook func(n *Node) bool

// Result is what RunSerial/RunParallel hand back to a checker.
type Result struct {
	Graph    *Graph
	Stats    Stats
	FailNode []byte       // set iff Reason is nil and a hook signalled fail
	Reason   *reason.Reason // set iff exploration stopped abnormally
}

// RunSerial performs breadth-first exploration from the given initial
// states (spec.md section 4.3), one level at a time: each level is
// drained from the frontier queue and normalised by ascending encoded
// bytes before any of its states are expanded, the same canonical-
// frontier discipline RunParallel's sort-partition-merge steps use
// (spec.md section 4.4). This is what makes the two backends agree:
// without it, a level whose states' transition order (label-first)
// disagrees with their encoded-byte order would let RunSerial visit
// them in discovery order while RunParallel visits them in sorted
// order, diverging on which same-level state a hook (e.g. deadlock)
// fires on first. The sequence of dequeued states is a function of the
// initial state set and the transition provider only; it is independent
// of the store backend and of worker count, matching the ordering
// guarantee spec.md sections 4.4 and 5 require.
func RunSerial(prov *transition.Provider, st store.Store, initial []*ir.Term, lim limits.Limits, hook Hook) Result {
	budget := limits.NewBudget(lim)
	g := newGraph()
	q := queue.New[leveled]()

	for _, t := range initial {
		enc := state.Encode(t)
		if st.Insert(enc) {
			budget.AddBytes(len(enc))
			g.Initial = append(g.Initial, enc)
			q.Push(leveled{term: t, enc: enc})
		}
	}

	stats := Stats{}
	for q.Len() > 0 {
		if budget.TimedOut() {
			return Result{Graph: g, Stats: stats, Reason: reason.New(reason.Timeout, "exploration exceeded timeout_ms")}
		}
		if budget.OutOfMemory() {
			return Result{Graph: g, Stats: stats, Reason: reason.New(reason.OutOfMemory, "exploration exceeded memory_mb")}
		}

		level := q.DrainLevel()
		sortLeveled(level)

		for _, lv := range level {
			stats.States++

			out, r := transitionsOf(prov, lv.term)
			if r != nil {
				return Result{Graph: g, Stats: stats, Reason: r}
			}

			node := &Node{Encoded: lv.enc, Term: lv.term, Out: out, Order: len(g.Order)}
			if parent, label, ok := g.pendingParent(lv.enc); ok {
				node.Parent, node.ParentLabel, node.HasParent = parent, label, true
			}
			g.add(node)

			for _, tr := range out {
				stats.Transitions++
				nextEnc := state.Encode(tr.Next)
				if st.Insert(nextEnc) {
					budget.AddBytes(len(nextEnc))
					g.recordParent(nextEnc, lv.enc, tr.Label)
					q.Push(leveled{term: tr.Next, enc: nextEnc})
				}
			}
		}

		// Every state in this level is now expanded (stats, store
		// inserts, and graph nodes all settled) before any hook check,
		// matching RunParallel's merge step: the hook fires on the first
		// node in sorted order, not the first one discovered.
		if hook != nil {
			for _, lv := range level {
				if node := g.get(lv.enc); hook(node) {
					return Result{Graph: g, Stats: stats, FailNode: lv.enc}
				}
			}
		}
	}
	return Result{Graph: g, Stats: stats}
}

// transitionsOf calls prov.Transitions(t), converting a panic raised for
// an unresolved process reference (transition.Provider's documented
// escape for IR that should have been rejected earlier) into a Reason
// instead of propagating it past the explorer boundary.
func transitionsOf(prov *transition.Provider, t *ir.Term) (out []transition.Transition, r *reason.Reason) {
	defer func() {
		if rec := recover(); rec != nil {
			r = reason.Recover(rec)
		}
	}()
	out = prov.Transitions(t)
	return out, nil
}
