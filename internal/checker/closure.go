package checker

import (
	"golang.org/x/exp/slices"

	"cspx/internal/ir"
	"cspx/internal/state"
	"cspx/internal/transition"
)

// closure is a tau-closure: the canonical sorted list of its member
// states' encodings, per spec.md section 9 ("represent a closure as its
// canonical sorted list of member-state encodings; interning closures by
// their hashed representation permits O(1) equality and stable
// ordering").
type closure struct {
	members []string // sorted, deduplicated encoded-state keys
	key     string   // interned identity: members joined with a length-prefixed encoding
}

func closureKey(members []string) string {
	var out []byte
	for _, m := range members {
		out = append(out, byte(len(m)>>8), byte(len(m)))
		out = append(out, m...)
	}
	return string(out)
}

// closureRegistry interns closures computed against a fixed transition
// provider, so structurally identical closures compare equal by key and
// every member's term stays addressable for further exploration. A
// registry is scoped to one checker run.
type closureRegistry struct {
	prov    *transition.Provider
	byKey   map[string]*closure
	termsOf map[string]map[string]*ir.Term // closure key -> member state key -> term
}

func newClosureRegistry(prov *transition.Provider) *closureRegistry {
	return &closureRegistry{
		prov:    prov,
		byKey:   make(map[string]*closure),
		termsOf: make(map[string]map[string]*ir.Term),
	}
}

// Of returns the interned closure of start, computing it if this is the
// first time a member of that closure has been reached.
func (r *closureRegistry) Of(start *ir.Term) *closure {
	seen := map[string]*ir.Term{}
	var stack []*ir.Term
	stack = append(stack, start)
	seen[string(state.Encode(start))] = start

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, tr := range r.prov.Transitions(t) {
			if !tr.Label.Tau {
				continue
			}
			key := string(state.Encode(tr.Next))
			if _, ok := seen[key]; !ok {
				seen[key] = tr.Next
				stack = append(stack, tr.Next)
			}
		}
	}

	members := make([]string, 0, len(seen))
	for k := range seen {
		members = append(members, k)
	}
	slices.Sort(members)
	key := closureKey(members)

	if existing, ok := r.byKey[key]; ok {
		for k, t := range seen {
			if _, has := r.termsOf[key][k]; !has {
				r.termsOf[key][k] = t
			}
		}
		return existing
	}
	c := &closure{members: members, key: key}
	r.byKey[key] = c
	r.termsOf[key] = seen
	return c
}

// Terms returns the member-state-key -> term map backing c.
func (r *closureRegistry) Terms(c *closure) map[string]*ir.Term {
	return r.termsOf[c.key]
}

type visibleStep struct {
	label ir.Label
	dest  *closure
}

func labelKey(l ir.Label) string {
	return l.String()
}

// visibleSteps returns, for closure c, the set of (label, destination
// closure) pairs reachable by exactly one visible step from any member
// of c, deterministically ordered by label then destination key.
func (r *closureRegistry) visibleSteps(c *closure) []visibleStep {
	terms := r.Terms(c)
	byLabel := map[string]map[string]*closure{}
	order := map[string]ir.Label{}

	for _, memberKey := range c.members {
		t, ok := terms[memberKey]
		if !ok {
			continue
		}
		for _, tr := range r.prov.Transitions(t) {
			if tr.Label.Tau {
				continue
			}
			dest := r.Of(tr.Next)
			lk := labelKey(tr.Label)
			if byLabel[lk] == nil {
				byLabel[lk] = map[string]*closure{}
			}
			byLabel[lk][dest.key] = dest
			order[lk] = tr.Label
		}
	}

	var labels []string
	for lk := range byLabel {
		labels = append(labels, lk)
	}
	slices.Sort(labels)

	var out []visibleStep
	for _, lk := range labels {
		var dests []string
		for dk := range byLabel[lk] {
			dests = append(dests, dk)
		}
		slices.Sort(dests)
		for _, dk := range dests {
			out = append(out, visibleStep{label: order[lk], dest: byLabel[lk][dk]})
		}
	}
	return out
}

// stable reports whether every member of c has no outgoing tau
// transition; a closure with none is stable (spec.md glossary extends
// "a state with no outgoing tau-transition" to closures, since F/FD
// refusal comparison in spec.md section 4.5.5 operates on "stable spec
// states reachable in the current spec closure").
func (r *closureRegistry) stable(c *closure) bool {
	terms := r.Terms(c)
	for _, memberKey := range c.members {
		t, ok := terms[memberKey]
		if !ok {
			continue
		}
		for _, tr := range r.prov.Transitions(t) {
			if tr.Label.Tau {
				return false
			}
		}
	}
	return true
}

// diverges reports whether c's induced tau-subgraph (which, since a
// closure is tau-closed, covers exactly c's members and the tau edges
// between them) contains a cycle: a strongly-connected component with
// at least two members, or a singleton with a tau self-loop. This is
// the per-closure form of spec.md section 4.5.2's divergence test,
// reused by FD-refinement to decide whether a state "can diverge after"
// the trace that reached it.
func (r *closureRegistry) diverges(c *closure) bool {
	terms := r.Terms(c)
	idx := map[string]int{}
	low := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	counter := 0
	diverges := false

	var strongconnect func(v string)
	strongconnect = func(v string) {
		idx[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		t := terms[v]
		selfLoop := false
		for _, tr := range r.prov.Transitions(t) {
			if !tr.Label.Tau {
				continue
			}
			w := string(state.Encode(tr.Next))
			if w == v {
				selfLoop = true
			}
			if _, inClosure := terms[w]; !inClosure {
				continue
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
			if len(comp) >= 2 || (len(comp) == 1 && selfLoop) {
				diverges = true
			}
		}
	}

	for _, m := range c.members {
		if diverges {
			break
		}
		if _, seen := idx[m]; !seen {
			strongconnect(m)
		}
	}
	return diverges
}

// acceptSet walks events through reg's closure-level Step from start,
// normalising the nondeterministic spec side into a single union closure
// at every step. It reports ok=false as soon as the current closure does
// not offer the next event.
func acceptSet(reg *closureRegistry, start *closure, events []ir.Label) (*closure, bool) {
	cur := start
	for _, want := range events {
		next, ok := reg.Step(cur, want)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// matchingDests returns every distinct closure c can reach by exactly one
// want-labelled visible step. A nondeterministic spec closure can offer
// the same label into more than one destination closure.
func matchingDests(reg *closureRegistry, c *closure, want ir.Label) []*closure {
	var out []*closure
	for _, step := range reg.visibleSteps(c) {
		if step.label.Equal(want) {
			out = append(out, step.dest)
		}
	}
	return out
}

// union merges cs into the single closure representing "any state any of
// cs could be in", interning it like any other closure. This is the
// standard subset-construction step for normalising a nondeterministic
// spec automaton: after a trace, the spec's relevant state is the set of
// every process state reachable by it, not one arbitrarily chosen branch.
func (r *closureRegistry) union(cs []*closure) *closure {
	if len(cs) == 1 {
		return cs[0]
	}
	merged := map[string]*ir.Term{}
	for _, c := range cs {
		for k, t := range r.Terms(c) {
			merged[k] = t
		}
	}
	members := make([]string, 0, len(merged))
	for k := range merged {
		members = append(members, k)
	}
	slices.Sort(members)
	key := closureKey(members)

	if existing, ok := r.byKey[key]; ok {
		for k, t := range merged {
			if _, has := r.termsOf[key][k]; !has {
				r.termsOf[key][k] = t
			}
		}
		return existing
	}
	c := &closure{members: members, key: key}
	r.byKey[key] = c
	r.termsOf[key] = merged
	return c
}

// Step advances a spec-side closure by exactly one want-labelled visible
// step, merging every distinct destination c offers into one closure via
// union.
func (r *closureRegistry) Step(c *closure, want ir.Label) (*closure, bool) {
	dests := matchingDests(r, c, want)
	if len(dests) == 0 {
		return nil, false
	}
	return r.union(dests), true
}

// readySet returns the sorted, deduplicated set of visible labels any
// member of c can perform.
func (r *closureRegistry) readySet(c *closure) []ir.Label {
	terms := r.Terms(c)
	seen := map[string]ir.Label{}
	for _, memberKey := range c.members {
		t, ok := terms[memberKey]
		if !ok {
			continue
		}
		for _, tr := range r.prov.Transitions(t) {
			if tr.Label.Tau {
				continue
			}
			seen[tr.Label.String()] = tr.Label
		}
	}
	var keys []string
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]ir.Label, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}
