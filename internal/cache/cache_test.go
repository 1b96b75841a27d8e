package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeEntry(t *testing.T, root, key string, size int, mtime time.Time) {
	t.Helper()
	dir := filepath.Join(root, key)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload"), make([]byte, size), 0644))
	require.NoError(t, os.Chtimes(dir, mtime, mtime))
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, "a", 100, time.Now())
	writeEntry(t, root, "b", 200, time.Now())

	m := New(root, 1000, nil)
	entries, err := m.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestEntryInfo_Missing(t *testing.T) {
	m := New(t.TempDir(), 1000, nil)
	_, exists, err := m.EntryInfo("nope")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSweep_EvictsOldestUntilUnderBudget(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeEntry(t, root, "old", 500, now.Add(-time.Hour))
	writeEntry(t, root, "new", 500, now)

	m := New(root, 500, nil)
	require.NoError(t, m.Sweep())

	entries, err := m.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "new", entries[0].Key)
}

func TestSweep_NoopUnderBudget(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, "a", 100, time.Now())

	m := New(root, 1000, nil)
	require.NoError(t, m.Sweep())

	entries, err := m.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
