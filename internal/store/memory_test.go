package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInsertIdempotent(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Open(Config{}))
	defer m.Close()

	assert.True(t, m.Insert([]byte("a")))
	assert.False(t, m.Insert([]byte("a")))
	assert.True(t, m.Contains([]byte("a")))
	assert.False(t, m.Contains([]byte("b")))
}
