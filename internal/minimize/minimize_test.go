package minimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cspx/internal/ir"
)

func lbl(name string) ir.Label { return ir.Event(name, ir.PayloadNone, 0) }

func TestMinimizeDropsIrrelevantEvents(t *testing.T) {
	events := []ir.Label{lbl("a"), lbl("x"), lbl("b"), lbl("y"), lbl("c")}

	// Only a,b,c are required for the failure to reproduce, in order.
	oracle := func(cand []ir.Label) bool {
		want := []string{"a", "b", "c"}
		var got []string
		for _, l := range cand {
			for _, w := range want {
				if l.Channel == w {
					got = append(got, l.Channel)
				}
			}
		}
		if len(got) != len(want) {
			return false
		}
		for i := range want {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}

	result, isMin := Minimize(events, oracle)
	assert.Equal(t, []ir.Label{lbl("a"), lbl("b"), lbl("c")}, result)
	assert.True(t, isMin)
}

func TestMinimizeNotMinimizedWhenOracleFailsOnResult(t *testing.T) {
	events := []ir.Label{lbl("a"), lbl("b")}
	oracle := func(cand []ir.Label) bool { return len(cand) > 2 }

	result, isMin := Minimize(events, oracle)
	assert.Len(t, result, 2)
	assert.False(t, isMin)
}

func TestMinimizeLocalMinimumOnly(t *testing.T) {
	// Oracle requires at least one of {a,b} present, but removing either
	// alone still satisfies it (the other remains) — so the greedy left-
	// to-right pass removes 'a' first (oracle still holds via 'b'), then
	// cannot remove 'b' (oracle would fail), landing on a local minimum
	// of length 1 rather than exploring removing 'b' instead.
	events := []ir.Label{lbl("a"), lbl("b")}
	oracle := func(cand []ir.Label) bool {
		for _, l := range cand {
			if l.Channel == "a" || l.Channel == "b" {
				return true
			}
		}
		return false
	}

	result, isMin := Minimize(events, oracle)
	assert.Equal(t, []ir.Label{lbl("b")}, result)
	assert.True(t, isMin)
}
