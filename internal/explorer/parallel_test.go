package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/store"
	"cspx/internal/transition"
)

func eventA() ir.Label { return ir.Event("a", ir.PayloadNone, 0) }
func eventB() ir.Label { return ir.Event("b", ir.PayloadNone, 0) }

// P = (a -> STOP) ||| (b -> STOP): a four-state diamond (init, after-a,
// after-b, both-done) with a genuine deadlock at the join, enough
// branching to exercise partition() splitting a frontier across
// multiple workers.
func diamond() *ir.Term {
	left := ir.Prefix(eventA(), ir.Stop(ir.Span{}), ir.Span{})
	right := ir.Prefix(eventB(), ir.Stop(ir.Span{}), ir.Span{})
	return ir.Interleave(left, right, ir.Span{})
}

// labelByteMismatch builds
//
//	(a -> (STOP [] STOP)) [] (b -> STOP)
//
// whose two one-step successors are both deadlocked but encode in the
// opposite order from their labels: the a-successor (STOP [] STOP) tags
// as tagExtChoice followed by two tagStop bytes, while the b-successor
// (plain STOP) is the single, smaller tagStop byte, so its encoding
// sorts first even though 'a' sorts before 'b'. A dequeue order that
// follows discovery (a pushed before b) disagrees with one that follows
// sorted encoded bytes (STOP before STOP [] STOP) about which successor
// a hook sees first.
func labelByteMismatch() *ir.Term {
	left := ir.Prefix(eventA(), ir.ExtChoice(ir.Stop(ir.Span{}), ir.Stop(ir.Span{}), ir.Span{}), ir.Span{})
	right := ir.Prefix(eventB(), ir.Stop(ir.Span{}), ir.Span{})
	return ir.ExtChoice(left, right, ir.Span{})
}

func newMemStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.Open(store.Config{}))
	t.Cleanup(func() { s.Close() })
	return s
}

func deadlockHook(failNode *[]byte) Hook {
	return func(n *Node) bool {
		if len(n.Out) == 0 {
			*failNode = n.Encoded
			return true
		}
		return false
	}
}

// spec.md section 4.4 requires RunParallel to produce the same states,
// transitions, and reachability as RunSerial for every worker count.
func TestRunParallelMatchesSerialAcrossWorkerCounts(t *testing.T) {
	m := ir.NewModule()
	prov := transition.New(m)

	var serialFail []byte
	serial := RunSerial(prov, newMemStore(t), []*ir.Term{diamond()}, limits.Limits{}, deadlockHook(&serialFail))
	require.Nil(t, serial.Reason)
	require.NotNil(t, serialFail)

	serialEvents := Path(serial.Graph, serialFail)

	for _, workers := range []int{1, 2, 3, 4, 8} {
		var failNode []byte
		res := RunParallel(prov, newMemStore(t), []*ir.Term{diamond()}, limits.Limits{}, workers, deadlockHook(&failNode))
		require.Nil(t, res.Reason)
		require.NotNilf(t, failNode, "workers=%d", workers)

		assert.Equalf(t, serial.Stats.States, res.Stats.States, "workers=%d", workers)
		assert.Equalf(t, serial.Stats.Transitions, res.Stats.Transitions, "workers=%d", workers)

		events := Path(res.Graph, failNode)
		assert.Equalf(t, serialEvents, events, "workers=%d", workers)
	}
}

// Two same-level deadlocks whose label order ('a' before 'b') disagrees
// with their encoded-byte order (the b-successor's encoding sorts
// first): RunSerial must still dequeue the level in encoded-byte order,
// matching RunParallel at every worker count including W=1, so both
// backends report the same failing state and the same counterexample.
func TestRunSerialMatchesParallelWhenLabelOrderDisagreesWithByteOrder(t *testing.T) {
	m := ir.NewModule()
	prov := transition.New(m)

	var serialFail []byte
	serial := RunSerial(prov, newMemStore(t), []*ir.Term{labelByteMismatch()}, limits.Limits{}, deadlockHook(&serialFail))
	require.Nil(t, serial.Reason)
	require.NotNil(t, serialFail)

	serialEvents := Path(serial.Graph, serialFail)
	require.Equal(t, []ir.Label{eventB()}, serialEvents)

	for _, workers := range []int{1, 2, 3, 4, 8} {
		var failNode []byte
		res := RunParallel(prov, newMemStore(t), []*ir.Term{labelByteMismatch()}, limits.Limits{}, workers, deadlockHook(&failNode))
		require.Nil(t, res.Reason)
		require.NotNilf(t, failNode, "workers=%d", workers)

		assert.Equalf(t, serial.Stats.States, res.Stats.States, "workers=%d", workers)
		assert.Equalf(t, serial.Stats.Transitions, res.Stats.Transitions, "workers=%d", workers)

		events := Path(res.Graph, failNode)
		assert.Equalf(t, serialEvents, events, "workers=%d", workers)
	}
}

// Without a hook, both backends must still discover the same reachable
// set and agree on the full graph's size; used by the divergence checker,
// which needs the whole LTS rather than stopping early.
func TestRunParallelFullExplorationMatchesSerial(t *testing.T) {
	m := ir.NewModule()
	prov := transition.New(m)

	serial := RunSerial(prov, newMemStore(t), []*ir.Term{diamond()}, limits.Limits{}, nil)
	require.Nil(t, serial.Reason)

	for _, workers := range []int{1, 2, 4} {
		res := RunParallel(prov, newMemStore(t), []*ir.Term{diamond()}, limits.Limits{}, workers, nil)
		require.Nil(t, res.Reason)
		assert.Equalf(t, serial.Stats.States, res.Stats.States, "workers=%d", workers)
		assert.Equalf(t, serial.Stats.Transitions, res.Stats.Transitions, "workers=%d", workers)
		assert.Equalf(t, len(serial.Graph.Order), len(res.Graph.Order), "workers=%d", workers)
	}
}
