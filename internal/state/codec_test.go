package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspx/internal/ir"
)

func TestEncodeDeterministic(t *testing.T) {
	a := ir.Prefix(ir.Event("a", ir.PayloadNone, 0), ir.Stop(ir.Span{}), ir.Span{})
	b := ir.Prefix(ir.Event("a", ir.PayloadNone, 0), ir.Stop(ir.Span{}), ir.Span{})

	require.Equal(t, Encode(a), Encode(b))
}

func TestEncodeInjective(t *testing.T) {
	stop := ir.Stop(ir.Span{})
	cases := []*ir.Term{
		stop,
		ir.Prefix(ir.Event("a", ir.PayloadNone, 0), stop, ir.Span{}),
		ir.Prefix(ir.Event("b", ir.PayloadNone, 0), stop, ir.Span{}),
		ir.Prefix(ir.Event("a", ir.PayloadConst, 1), stop, ir.Span{}),
		ir.ExtChoice(stop, stop, ir.Span{}),
		ir.IntChoice(stop, stop, ir.Span{}),
		ir.Interleave(stop, stop, ir.Span{}),
		ir.Parallel(stop, stop, []string{"a"}, ir.Span{}),
		ir.Hide(stop, []string{"a"}, ir.Span{}),
		ir.Ref("P", ir.Span{}),
		ir.Ref("Q", ir.Span{}),
	}

	seen := map[string]int{}
	for i, c := range cases {
		enc := Hex(Encode(c))
		if prev, ok := seen[enc]; ok {
			t.Fatalf("cases %d and %d collided on encoding %s", prev, i, enc)
		}
		seen[enc] = i
	}
}

func TestHexRoundTrip(t *testing.T) {
	t1 := ir.Prefix(ir.Event("a", ir.PayloadNone, 0), ir.Stop(ir.Span{}), ir.Span{})
	enc := Encode(t1)
	decoded, err := FromHex(Hex(enc))
	require.NoError(t, err)
	assert.Equal(t, enc, decoded)
}

func TestCompareTotalOrder(t *testing.T) {
	a := Encode(ir.Prefix(ir.Event("a", ir.PayloadNone, 0), ir.Stop(ir.Span{}), ir.Span{}))
	b := Encode(ir.Prefix(ir.Event("b", ir.PayloadNone, 0), ir.Stop(ir.Span{}), ir.Span{}))
	assert.Less(t, Compare(a, b), 0)
	assert.Greater(t, Compare(b, a), 0)
	assert.Equal(t, 0, Compare(a, a))
}
