package explorer

import (
	"sync"

	"golang.org/x/exp/slices"

	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/reason"
	"cspx/internal/state"
	"cspx/internal/store"
	"cspx/internal/transition"
)

// leveled pairs a frontier state with its already-computed encoding, so
// the sort-partition-merge steps of spec.md section 4.4 never re-encode
// a term they have already encoded once.
type leveled struct {
	term *ir.Term
	enc  []byte
}

// candidate is one (label, next) pair produced by a worker, tagged with
// the parent state that produced it so the serial merge phase can wire
// up back-references once candidates are committed in deterministic
// order.
type candidate struct {
	parentEnc []byte
	label     ir.Label
	next      *ir.Term
	nextEnc   []byte
}

// RunParallel performs the level-synchronous deterministic BFS of
// spec.md section 4.4: normalise the frontier by sorted encoded bytes,
// partition it into workers contiguous chunks, let each chunk compute
// its candidates independently, then commit candidates back in chunk
// order on a single thread. With workers == 1 it produces the same
// dequeue sequence, states, transitions, and counterexamples as
// RunSerial; the guarantee spec.md requires is that this holds for
// every workers value, not just 1.
func RunParallel(prov *transition.Provider, st store.Store, initial []*ir.Term, lim limits.Limits, workers int, hook Hook) Result {
	if workers < 1 {
		workers = 1
	}

	budget := limits.NewBudget(lim)
	g := newGraph()
	stats := Stats{}

	var frontier []leveled
	for _, t := range initial {
		enc := state.Encode(t)
		if st.Insert(enc) {
			budget.AddBytes(len(enc))
			g.Initial = append(g.Initial, enc)
			frontier = append(frontier, leveled{term: t, enc: enc})
		}
	}
	sortLeveled(frontier)

	for len(frontier) > 0 {
		if budget.TimedOut() {
			return Result{Graph: g, Stats: stats, Reason: reason.New(reason.Timeout, "exploration exceeded timeout_ms")}
		}
		if budget.OutOfMemory() {
			return Result{Graph: g, Stats: stats, Reason: reason.New(reason.OutOfMemory, "exploration exceeded memory_mb")}
		}

		chunks := partition(frontier, workers)
		perChunk := make([][]candidate, len(chunks))
		errs := make([]*reason.Reason, len(chunks))

		var wg sync.WaitGroup
		for i, chunk := range chunks {
			wg.Add(1)
			go func(i int, chunk []leveled) {
				defer wg.Done()
				var out []candidate
				for _, lv := range chunk {
					trs, r := transitionsOf(prov, lv.term)
					if r != nil {
						errs[i] = r
						return
					}
					for _, tr := range trs {
						out = append(out, candidate{
							parentEnc: lv.enc,
							label:     tr.Label,
							next:      tr.Next,
							nextEnc:   state.Encode(tr.Next),
						})
					}
				}
				perChunk[i] = out
			}(i, chunk)
		}
		wg.Wait()

		for _, r := range errs {
			if r != nil {
				return Result{Graph: g, Stats: stats, Reason: r}
			}
		}

		// Build this level's Nodes now that every chunk's transitions are
		// known; frontier order is the sorted, deterministic order
		// established before the barrier, so node Order is reproducible
		// regardless of worker count.
		for _, lv := range frontier {
			stats.States++
			node := &Node{Encoded: lv.enc, Term: lv.term, Order: len(g.Order)}
			if parent, label, ok := g.pendingParent(lv.enc); ok {
				node.Parent, node.ParentLabel, node.HasParent = parent, label, true
			}
			g.add(node)
		}

		var nextFrontier []leveled
		for _, chunk := range perChunk {
			for _, c := range chunk {
				stats.Transitions++
				parent := g.get(c.parentEnc)
				parent.Out = append(parent.Out, transition.Transition{Label: c.label, Next: c.next})

				if st.Insert(c.nextEnc) {
					budget.AddBytes(len(c.nextEnc))
					g.recordParent(c.nextEnc, c.parentEnc, c.label)
					nextFrontier = append(nextFrontier, leveled{term: c.next, enc: c.nextEnc})
				}
			}
		}
		sortLeveled(nextFrontier)

		if hook != nil {
			for _, lv := range frontier {
				if node := g.get(lv.enc); hook(node) {
					return Result{Graph: g, Stats: stats, FailNode: lv.enc}
				}
			}
		}

		frontier = nextFrontier
	}

	return Result{Graph: g, Stats: stats}
}

// sortLeveled normalises a frontier level by ascending encoded bytes
// (spec.md section 4.4 step 1), so chunk boundaries fall at the same
// places regardless of discovery order within the previous level.
func sortLeveled(lv []leveled) {
	slices.SortFunc(lv, func(a, b leveled) bool {
		return state.Compare(a.enc, b.enc) < 0
	})
}

// partition splits a normalised frontier into workers contiguous chunks
// in index order (spec.md section 4.4 step 2). Chunk sizes differ by at
// most one; a frontier shorter than workers yields fewer, non-empty
// chunks rather than empty ones.
func partition(frontier []leveled, workers int) [][]leveled {
	if len(frontier) == 0 {
		return nil
	}
	if workers > len(frontier) {
		workers = len(frontier)
	}

	chunks := make([][]leveled, workers)
	base := len(frontier) / workers
	rem := len(frontier) % workers

	idx := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		chunks[i] = frontier[idx : idx+size]
		idx += size
	}
	return chunks
}
