// Package transition computes, for a given process term, the
// deterministically ordered sequence of (label, next-state) pairs it can
// perform. This is the pure function spec.md section 3 calls the
// "transition provider" and is the only place cspx's operational
// semantics for the CSP subset lives.
package transition

import (
	"fmt"
	"sort"

	"cspx/internal/ir"
	"cspx/internal/reason"
	"cspx/internal/state"
)

// Transition is a (label, next-state) pair.
type Transition struct {
	Label ir.Label
	Next  *ir.Term
}

// Provider computes transitions against a fixed module's channel and
// process tables.
type Provider struct {
	Module *ir.Module
}

// New constructs a Provider bound to module.
func New(module *ir.Module) *Provider {
	return &Provider{Module: module}
}

// Transitions returns t's outgoing transitions, deterministically
// ordered by label (spec.md total order) then by encoded next-state
// bytes. The order is part of the contract: checkers depend on it for
// reproducible counterexamples.
//
// Transitions never returns an error; the IR is assumed already
// validated per spec.md section 1. An unresolved process reference
// panics with a *reason.Reason (invalid_input), which the explorer
// recovers at its BFS boundary.
func (p *Provider) Transitions(t *ir.Term) []Transition {
	out := p.transitions(t)
	sort.SliceStable(out, func(i, j int) bool {
		c := ir.Compare(out[i].Label, out[j].Label)
		if c != 0 {
			return c < 0
		}
		return state.Compare(state.Encode(out[i].Next), state.Encode(out[j].Next)) < 0
	})
	return out
}

func (p *Provider) transitions(t *ir.Term) []Transition {
	switch t.Kind {
	case ir.KindStop:
		return nil

	case ir.KindPrefix:
		return []Transition{{Label: t.Label, Next: t.Cont}}

	case ir.KindInputPrefix:
		out := make([]Transition, 0, len(t.Conts))
		for v, cont := range t.Conts {
			out = append(out, Transition{
				Label: ir.Event(t.Channel, ir.PayloadInput, v),
				Next:  cont,
			})
		}
		return out

	case ir.KindIntChoice:
		return []Transition{
			{Label: ir.Tau, Next: t.Left},
			{Label: ir.Tau, Next: t.Right},
		}

	case ir.KindExtChoice:
		return p.extChoice(t)

	case ir.KindInterleave:
		return p.interleave(t)

	case ir.KindParallel:
		return p.parallel(t)

	case ir.KindHide:
		return p.hide(t)

	case ir.KindRef:
		proc, ok := p.Module.Lookup(t.Name)
		if !ok {
			// The front-end is responsible for rejecting undeclared
			// process references before the engine ever sees them
			// (spec.md section 7, invalid_input). Panicking with a
			// *reason.Reason lets callers recover it at the BFS
			// boundary without threading an error return through every
			// recursive call of the hot transition path.
			panic(reason.New(reason.InvalidInput, fmt.Sprintf("process %q is not declared (at %s)", t.Name, t.Span)))
		}
		return p.transitions(proc.Body)

	default:
		panic(fmt.Sprintf("transition: unknown term kind %d", t.Kind))
	}
}

// extChoice implements:
//
//	P [] Q --a--> P'   if P --a--> P'   (a visible)
//	P [] Q --a--> Q'   if Q --a--> Q'   (a visible)
//	P [] Q --tau--> P' [] Q   if P --tau--> P'
//	P [] Q --tau--> P [] Q'   if Q --tau--> Q'
func (p *Provider) extChoice(t *ir.Term) []Transition {
	var out []Transition
	for _, lt := range p.transitions(t.Left) {
		if lt.Label.Tau {
			out = append(out, Transition{Label: ir.Tau, Next: ir.ExtChoice(lt.Next, t.Right, t.Span)})
		} else {
			out = append(out, lt)
		}
	}
	for _, rt := range p.transitions(t.Right) {
		if rt.Label.Tau {
			out = append(out, Transition{Label: ir.Tau, Next: ir.ExtChoice(t.Left, rt.Next, t.Span)})
		} else {
			out = append(out, rt)
		}
	}
	return out
}

// interleave implements pure interleaving: either side may step on any
// label (visible or tau) without synchronising.
//
//	P ||| Q --x--> P' ||| Q   if P --x--> P'
//	P ||| Q --x--> P ||| Q'   if Q --x--> Q'
func (p *Provider) interleave(t *ir.Term) []Transition {
	var out []Transition
	for _, lt := range p.transitions(t.Left) {
		out = append(out, Transition{Label: lt.Label, Next: ir.Interleave(lt.Next, t.Right, t.Span)})
	}
	for _, rt := range p.transitions(t.Right) {
		out = append(out, Transition{Label: rt.Label, Next: ir.Interleave(t.Left, rt.Next, t.Span)})
	}
	return out
}

// parallel implements interface parallel over the channel set t.Sync:
//
//	P [|A|] Q --x--> P' [|A|] Q   if P --x--> P', x not in A (incl. tau)
//	P [|A|] Q --x--> P [|A|] Q'   if Q --x--> Q', x not in A (incl. tau)
//	P [|A|] Q --a--> P' [|A|] Q'  if P --a--> P' and Q --a--> Q', a in A
func (p *Provider) parallel(t *ir.Term) []Transition {
	sync := syncSet(t.Sync)
	lts := p.transitions(t.Left)
	rts := p.transitions(t.Right)

	var out []Transition
	for _, lt := range lts {
		if !inSync(lt.Label, sync) {
			out = append(out, Transition{Label: lt.Label, Next: ir.Parallel(lt.Next, t.Right, t.Sync, t.Span)})
		}
	}
	for _, rt := range rts {
		if !inSync(rt.Label, sync) {
			out = append(out, Transition{Label: rt.Label, Next: ir.Parallel(t.Left, rt.Next, t.Sync, t.Span)})
		}
	}
	for _, lt := range lts {
		if lt.Label.Tau || !inSync(lt.Label, sync) {
			continue
		}
		for _, rt := range rts {
			if rt.Label.Tau {
				continue
			}
			if lt.Label.Equal(rt.Label) {
				out = append(out, Transition{Label: lt.Label, Next: ir.Parallel(lt.Next, rt.Next, t.Sync, t.Span)})
			}
		}
	}
	return out
}

// hide implements:
//
//	Hide(P,A) --tau--> Hide(P',A)   if P --a--> P', a in A
//	Hide(P,A) --x--> Hide(P',A)     if P --x--> P', x not in A (incl. tau)
func (p *Provider) hide(t *ir.Term) []Transition {
	sync := syncSet(t.Sync)
	var out []Transition
	for _, ct := range p.transitions(t.Cont) {
		label := ct.Label
		if !label.Tau && sync[label.Channel] {
			label = ir.Tau
		}
		next := ct.Next
		// Hiding is idempotent: (P \ A) \ A is P \ A. Not re-wrapping a
		// successor already hidden over A keeps a recursive hidden
		// process (P = (a -> P) \ {a}) a finite LTS.
		if next.Kind != ir.KindHide || !sameNames(next.Sync, t.Sync) {
			next = ir.Hide(ct.Next, t.Sync, t.Span)
		}
		out = append(out, Transition{Label: label, Next: next})
	}
	return out
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func syncSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func inSync(l ir.Label, sync map[string]bool) bool {
	return !l.Tau && sync[l.Channel]
}
