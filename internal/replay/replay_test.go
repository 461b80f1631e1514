package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspx/internal/ir"
	"cspx/internal/transition"
)

func eventA() ir.Label { return ir.Event("a", ir.PayloadNone, 0) }
func eventB() ir.Label { return ir.Event("b", ir.PayloadNone, 0) }

// P = a -> b -> STOP.
func abStop() *ir.Process {
	body := ir.Prefix(eventA(), ir.Prefix(eventB(), ir.Stop(ir.Span{}), ir.Span{}), ir.Span{})
	return &ir.Process{Name: "P", Body: body}
}

func TestVerifyReplaysExactSequence(t *testing.T) {
	proc := abStop()
	m := ir.NewModule()
	m.Processes["P"] = proc
	prov := transition.New(m)

	final, ok := Verify(prov, proc.Body, []ir.Label{eventA(), eventB()})
	require.True(t, ok)
	assert.Empty(t, prov.Transitions(final))
}

func TestVerifyFailsOnWrongOrder(t *testing.T) {
	proc := abStop()
	m := ir.NewModule()
	m.Processes["P"] = proc
	prov := transition.New(m)

	_, ok := Verify(prov, proc.Body, []ir.Label{eventB()})
	assert.False(t, ok)
}

func TestVerifyFailsOnExtraTrailingEvent(t *testing.T) {
	proc := abStop()
	m := ir.NewModule()
	m.Processes["P"] = proc
	prov := transition.New(m)

	_, ok := Verify(prov, proc.Body, []ir.Label{eventA(), eventB(), eventA()})
	assert.False(t, ok)
}

// Q = (a -> STOP) \ {a}, so the only move from the top is a tau;
// Verify steps through it while looking for a visible label, finds no
// visible "a" behind it, and replays the tau only when asked for it
// directly.
func TestVerifySkipsTauTransparently(t *testing.T) {
	proc := &ir.Process{Name: "Q"}
	proc.Body = ir.Hide(ir.Prefix(eventA(), ir.Stop(ir.Span{}), ir.Span{}), []string{"a"}, ir.Span{})
	m := ir.NewModule()
	m.Processes["Q"] = proc
	prov := transition.New(m)

	// "a" is hidden, so no visible event replays it; the tau-step is
	// only reachable by asking for a tau directly.
	_, ok := Verify(prov, proc.Body, []ir.Label{eventA()})
	assert.False(t, ok)

	final, ok := Verify(prov, proc.Body, []ir.Label{ir.Tau})
	require.True(t, ok)
	assert.Empty(t, prov.Transitions(final))
}

func TestOracleHoldsOnlyWhenPredicateMatchesReachedState(t *testing.T) {
	proc := abStop()
	m := ir.NewModule()
	m.Processes["P"] = proc
	prov := transition.New(m)

	isStuck := func(t *ir.Term) bool { return len(prov.Transitions(t)) == 0 }
	oracle := Oracle(prov, proc.Body, isStuck)

	assert.True(t, oracle([]ir.Label{eventA(), eventB()}))
	assert.False(t, oracle([]ir.Label{eventA()}))
	assert.False(t, oracle([]ir.Label{eventB()}))
}
