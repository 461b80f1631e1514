// Package explain attaches the cause-tag and source-span taxonomy of
// spec.md section 4.7 to a counterexample a checker has already found.
// Checkers build the primary/model/detail tags that are specific to
// their own algorithm (deadlock, divergence_mismatch, label:<event>,
// and so on) and hand them to this package, which adds the two
// explainer-owned tags (`kind:` and `explained`), deduplicates the whole
// set in stable contributing order, and resolves source spans from the
// LTS nodes a counterexample passes through. Operating on plain tag and
// span values, rather than a shared counterexample type, keeps this
// package free of a dependency on the checker package that calls it.
package explain

import (
	"cspx/internal/explorer"
	"cspx/internal/ir"
)

// primaryOf returns the first primary cause tag present in tags
// (deadlock, divergence, nondeterminism, or refinement), or "" if none
// is present.
func primaryOf(tags []string) string {
	for _, t := range tags {
		switch t {
		case "deadlock", "divergence", "nondeterminism", "refinement":
			return t
		}
	}
	return ""
}

// Dedup removes repeated tags, keeping each one's first occurrence
// (spec.md section 4.7: "stable order determined by the order of
// contributing sources").
func Dedup(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Tags appends `kind:<primary>` and `explained` to the checker-supplied
// tags, then deduplicates.
func Tags(tags []string) []string {
	if primary := primaryOf(tags); primary != "" {
		tags = append(tags, "kind:"+primary)
	}
	tags = append(tags, "explained")
	return Dedup(tags)
}

// Spans walks the path from an initial state to target in g, collecting
// each traversed node's term span, nearest-first, deduplicated. A zero
// span (e.g. for a synthetic term the transition provider built rather
// than one a front-end node produced) is skipped rather than emitted
// imprecisely, matching section 4.7's "return an empty sequence rather
// than an imprecise span".
func Spans(g *explorer.Graph, target []byte) []ir.Span {
	var spans []ir.Span
	cur := g.Node(target)
	for cur != nil {
		if sp := cur.Term.Span; !sp.Zero() {
			spans = append(spans, sp)
		}
		if !cur.HasParent {
			break
		}
		cur = g.Node(cur.Parent)
	}
	return dedupSpans(spans)
}

// MergeSpans combines spec-side and impl-side spans for a refinement
// counterexample (section 4.7 preference rule (b)), deduplicated.
func MergeSpans(implSpans, specSpans []ir.Span) []ir.Span {
	all := append(append([]ir.Span{}, implSpans...), specSpans...)
	return dedupSpans(all)
}

func dedupSpans(spans []ir.Span) []ir.Span {
	seen := make(map[ir.Span]bool, len(spans))
	out := make([]ir.Span, 0, len(spans))
	for _, s := range spans {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
