package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskInsertPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	d1 := NewDisk(nil)
	require.NoError(t, d1.Open(Config{Path: dir}))
	assert.True(t, d1.Insert([]byte("abc")))
	assert.False(t, d1.Insert([]byte("abc")))
	require.NoError(t, d1.Close())

	d2 := NewDisk(nil)
	require.NoError(t, d2.Open(Config{Path: dir}))
	assert.True(t, d2.Contains([]byte("abc")))
	require.NoError(t, d2.Close())
}

func TestDiskOpenFailsWhenLocked(t *testing.T) {
	dir := t.TempDir()

	d1 := NewDisk(nil)
	require.NoError(t, d1.Open(Config{Path: dir}))
	defer d1.Close()

	d2 := NewDisk(nil)
	err := d2.Open(Config{Path: dir})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestDiskIndexDeletionRebuildsIdentically(t *testing.T) {
	dir := t.TempDir()

	d1 := NewDisk(nil)
	require.NoError(t, d1.Open(Config{Path: dir}))
	d1.Insert([]byte("x"))
	d1.Insert([]byte("y"))
	require.NoError(t, d1.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, "state.idx")))

	d2 := NewDisk(nil)
	require.NoError(t, d2.Open(Config{Path: dir}))
	assert.True(t, d2.Contains([]byte("x")))
	assert.True(t, d2.Contains([]byte("y")))
	require.NoError(t, d2.Close())

	_, err := os.Stat(filepath.Join(dir, "state.idx"))
	require.NoError(t, err)
}

func TestDiskTruncatedTrailingRecordRecovered(t *testing.T) {
	dir := t.TempDir()

	d1 := NewDisk(nil)
	require.NoError(t, d1.Open(Config{Path: dir}))
	d1.Insert([]byte("x"))
	d1.Insert([]byte("y"))
	require.NoError(t, d1.Close())

	logPath := filepath.Join(dir, "state.log")
	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	// Drop the trailing newline of the last record to simulate a crash
	// mid-write, and also delete the index so the rebuild path runs.
	require.NoError(t, os.WriteFile(logPath, raw[:len(raw)-1], 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "state.idx")))

	d2 := NewDisk(nil)
	require.NoError(t, d2.Open(Config{Path: dir}))
	assert.True(t, d2.Contains([]byte("x")))
	assert.False(t, d2.Contains([]byte("y")))
	require.NoError(t, d2.Close())

	truncated, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Less(t, len(truncated), len(raw))
}

func TestDiskMidLogCorruptionIsFatal(t *testing.T) {
	dir := t.TempDir()

	d1 := NewDisk(nil)
	require.NoError(t, d1.Open(Config{Path: dir}))
	d1.Insert([]byte("x"))
	d1.Insert([]byte("y"))
	require.NoError(t, d1.Close())

	logPath := filepath.Join(dir, "state.log")
	require.NoError(t, os.WriteFile(logPath, []byte("not-hex\n797a\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "state.idx")))

	d2 := NewDisk(nil)
	err := d2.Open(Config{Path: dir})
	require.Error(t, err)
	var invalid *InvalidDataError
	assert.ErrorAs(t, err, &invalid)
}

func TestDiskIndexStaleAfterExternalLogGrowthTriggersRebuild(t *testing.T) {
	dir := t.TempDir()

	d1 := NewDisk(nil)
	require.NoError(t, d1.Open(Config{Path: dir}))
	d1.Insert([]byte("x"))
	require.NoError(t, d1.Close())

	// Append a record directly to the log without updating the index,
	// simulating an index that has fallen behind.
	f, err := os.OpenFile(filepath.Join(dir, "state.log"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("797a\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	d2 := NewDisk(nil)
	require.NoError(t, d2.Open(Config{Path: dir}))
	assert.True(t, d2.Contains([]byte("x")))
	assert.True(t, d2.Contains([]byte("yz")))
	require.NoError(t, d2.Close())
}
