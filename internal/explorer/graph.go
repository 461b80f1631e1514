// Package explorer implements the BFS exploration machinery from
// spec.md sections 4.3 and 4.4: single-threaded breadth-first
// exploration and a deterministic, level-synchronous parallel variant
// that must produce byte-identical observables for any worker count.
package explorer

import (
	"cspx/internal/ir"
	"cspx/internal/transition"
)

// Node is one discovered LTS state: its term, its outgoing transitions
// (computed once), and a back-reference to the parent state and the
// label consumed to reach it, per the path-reconstruction design in
// spec.md section 9 ("associate with each stored state a back-reference
// to its parent state and the label consumed").
type Node struct {
	Encoded     []byte
	Term        *ir.Term
	Out         []transition.Transition
	Parent      []byte
	ParentLabel ir.Label
	HasParent   bool
	Order       int
}

// Graph is the set of states discovered by one exploration run, keyed
// by canonical encoding.
type Graph struct {
	Nodes   map[string]*Node
	Order   []string // discovery order, indexable by Node.Order
	Initial [][]byte

	pending map[string]pendingEdge
}

// pendingEdge records the (parent, label) that first discovered a state,
// ahead of the discovered state's own Node being added. A state is
// inserted into the store (marking it "seen") before its Node exists, so
// the explorer stashes the edge here and Graph.add consumes it.
type pendingEdge struct {
	parent []byte
	label  ir.Label
}

func newGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node), pending: make(map[string]pendingEdge)}
}

func (g *Graph) get(encoded []byte) *Node {
	return g.Nodes[string(encoded)]
}

// Node looks up a discovered state by its canonical encoding, or nil if
// it was never reached. Exported for checkers and the explainer, which
// need to walk back-references after exploration has finished.
func (g *Graph) Node(encoded []byte) *Node {
	return g.get(encoded)
}

func (g *Graph) add(n *Node) {
	key := string(n.Encoded)
	g.Nodes[key] = n
	g.Order = append(g.Order, key)
}

// recordParent stashes the (parent, label) edge that discovered child,
// for pendingParent to consume once child's own Node is constructed.
func (g *Graph) recordParent(child, parent []byte, label ir.Label) {
	key := string(child)
	if _, exists := g.pending[key]; exists {
		return
	}
	g.pending[key] = pendingEdge{parent: parent, label: label}
}

// pendingParent returns and consumes the edge recorded for encoded, if
// any. Initial states have none.
func (g *Graph) pendingParent(encoded []byte) (parent []byte, label ir.Label, ok bool) {
	key := string(encoded)
	e, exists := g.pending[key]
	if !exists {
		return nil, ir.Label{}, false
	}
	delete(g.pending, key)
	return e.parent, e.label, true
}

// Stats is the {states,transitions} counter pair from spec.md section 3.
type Stats struct {
	States      int
	Transitions int
}

// Path reconstructs the visible-only event sequence from an initial
// state to target, by walking parent back-references. Tau transitions
// are omitted, matching every counterexample's "visible-only projection"
// requirement (spec.md section 4.5.1).
func Path(g *Graph, target []byte) []ir.Label {
	var reversed []ir.Label
	cur := g.get(target)
	for cur != nil && cur.HasParent {
		if !cur.ParentLabel.Tau {
			reversed = append(reversed, cur.ParentLabel)
		}
		cur = g.get(cur.Parent)
	}
	out := make([]ir.Label, len(reversed))
	for i := range reversed {
		out[i] = reversed[len(reversed)-1-i]
	}
	return out
}

// FullPath reconstructs the complete label sequence (including tau)
// from an initial state to target: the tau-inclusive counterpart of
// Path.
func FullPath(g *Graph, target []byte) []ir.Label {
	var reversed []ir.Label
	cur := g.get(target)
	for cur != nil && cur.HasParent {
		reversed = append(reversed, cur.ParentLabel)
		cur = g.get(cur.Parent)
	}
	out := make([]ir.Label, len(reversed))
	for i := range reversed {
		out[i] = reversed[len(reversed)-1-i]
	}
	return out
}
