package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	assert.True(t, q.Empty())

	q.Push(1)
	q.Push(2)
	q.Push(3)
	require.Equal(t, 3, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestPopEmpty(t *testing.T) {
	q := New[string]()
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestDrainLevel(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	level := q.DrainLevel()
	assert.Equal(t, []int{1, 2}, level)
	assert.True(t, q.Empty())

	q.Push(3)
	assert.Equal(t, []int{3}, q.DrainLevel())
}
