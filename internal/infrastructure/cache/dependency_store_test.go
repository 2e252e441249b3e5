package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageWithContent(t *testing.T, s *DependencyStore, fingerprint, triple, content string) *ports.CacheEntry {
	t.Helper()
	staged, err := s.Stage(s.Key(fingerprint, triple))
	require.NoError(t, err)
	staged.Fingerprint = fingerprint
	staged.Triple = triple
	require.NoError(t, os.WriteFile(filepath.Join(staged.TargetDir, "libdep.rlib"), []byte(content), 0o644))
	return staged
}

func TestMakeKey(t *testing.T) {
	k1 := MakeKey("fp", "x86_64-unknown-linux-gnu")
	assert.Equal(t, k1, MakeKey("fp", "x86_64-unknown-linux-gnu"))
	assert.True(t, strings.HasPrefix(k1, "x86_64-unknown-linux-gnu-"))
	assert.Len(t, strings.TrimPrefix(k1, "x86_64-unknown-linux-gnu-"), keyHashLength)

	assert.NotEqual(t, k1, MakeKey("fp", "aarch64-unknown-linux-gnu"))
	assert.NotEqual(t, k1, MakeKey("fp2", "x86_64-unknown-linux-gnu"))
}

func TestDependencyStore_StageCommitLookup(t *testing.T) {
	s := NewDependencyStore(t.TempDir(), nil)
	key := s.Key("fp", "x86_64-unknown-linux-gnu")

	_, ok := s.Lookup(key)
	assert.False(t, ok)

	staged := stageWithContent(t, s, "fp", "x86_64-unknown-linux-gnu", "rlib")
	_, ok = s.Lookup(key)
	assert.False(t, ok, "staged entries are invisible")

	committed, err := s.Commit(staged)
	require.NoError(t, err)
	assert.Equal(t, int64(4), committed.Size)

	got, ok := s.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "fp", got.Fingerprint)
	assert.Equal(t, "x86_64-unknown-linux-gnu", got.Triple)
	data, err := os.ReadFile(filepath.Join(got.TargetDir, "libdep.rlib"))
	require.NoError(t, err)
	assert.Equal(t, "rlib", string(data))
}

func TestDependencyStore_CommitReplaces(t *testing.T) {
	s := NewDependencyStore(t.TempDir(), nil)

	_, err := s.Commit(stageWithContent(t, s, "fp", "t", "old"))
	require.NoError(t, err)
	_, err = s.Commit(stageWithContent(t, s, "fp", "t", "newer"))
	require.NoError(t, err)

	got, ok := s.Lookup(s.Key("fp", "t"))
	require.True(t, ok)
	data, err := os.ReadFile(filepath.Join(got.TargetDir, "libdep.rlib"))
	require.NoError(t, err)
	assert.Equal(t, "newer", string(data))

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDependencyStore_Discard(t *testing.T) {
	s := NewDependencyStore(t.TempDir(), nil)
	staged := stageWithContent(t, s, "fp", "t", "x")
	s.Discard(staged)

	_, err := os.Stat(staged.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestDependencyStore_CleanAndStats(t *testing.T) {
	s := NewDependencyStore(t.TempDir(), nil)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.Add(-48 * time.Hour) }
	_, err := s.Commit(stageWithContent(t, s, "old", "t", "aa"))
	require.NoError(t, err)

	s.now = func() time.Time { return now }
	_, err = s.Commit(stageWithContent(t, s, "new", "t", "bbb"))
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, int64(5), stats.TotalSize)

	removed, err := s.Clean(24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "old", removed[0].Fingerprint)

	removed, err = s.Clean(0)
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDependencyStore_LockIsExclusive(t *testing.T) {
	s := NewDependencyStore(t.TempDir(), nil)
	key := s.Key("fp", "t")

	unlock, err := s.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx, key)
	assert.Error(t, err, "second writer must wait")

	require.NoError(t, unlock())

	unlock2, err := s.Lock(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, unlock2())
}

func TestDependencyStore_RemoveRejectsPaths(t *testing.T) {
	s := NewDependencyStore(t.TempDir(), nil)
	assert.Error(t, s.Remove("../etc"))
	assert.Error(t, s.Remove(".locks"))
	assert.NoError(t, s.Remove("missing-key"))
}
