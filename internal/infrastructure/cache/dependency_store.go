// Package cache implements the persistent, content-addressed dependency store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/infrastructure/filesystem"
)

// lockRetryDelay is how often a blocked writer retries the key lock.
const lockRetryDelay = 200 * time.Millisecond

// DependencyStore keeps compiled dependency graphs under
// {root}/{key}/{metadata.json,target/}. Writers stage under {root}/.staging
// and publish with a rename; readers never see a partial entry.
type DependencyStore struct {
	root   string
	logger ports.Logger
	now    func() time.Time
}

// NewDependencyStore creates a store rooted at dir.
func NewDependencyStore(dir string, logger ports.Logger) *DependencyStore {
	return &DependencyStore{
		root:   dir,
		logger: logger,
		now:    time.Now,
	}
}

// Root returns the store directory.
func (s *DependencyStore) Root() string {
	return s.root
}

// Key implements ports.DependencyStore.
func (s *DependencyStore) Key(fingerprint, triple string) string {
	return MakeKey(fingerprint, triple)
}

func (s *DependencyStore) entryDir(key string) string {
	return filepath.Join(s.root, key)
}

// Lock takes an exclusive file lock for key, waiting until ctx is done.
func (s *DependencyStore) Lock(ctx context.Context, key string) (func() error, error) {
	dir := filepath.Join(s.root, locksSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CacheError{Operation: "lock", Key: key, Err: err}
	}

	fl := flock.New(filepath.Join(dir, key+".lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, &CacheError{Operation: "lock", Key: key, Err: err}
	}
	if !locked {
		return nil, &CacheError{Operation: "lock", Key: key, Err: errors.New("lock not acquired")}
	}
	return fl.Unlock, nil
}

// Lookup returns a committed entry whose metadata and target dir both exist.
func (s *DependencyStore) Lookup(key string) (*ports.CacheEntry, bool) {
	dir := s.entryDir(key)
	meta, err := ReadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, false
	}
	target := filepath.Join(dir, TargetSubdir)
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		if s.logger != nil {
			s.logger.Debug("Ignoring cache entry %s without target directory", key)
		}
		return nil, false
	}
	entry := meta.toEntry(key, dir)
	entry.TargetDir = target
	return entry, true
}

// Stage creates a fresh staging directory for key.
func (s *DependencyStore) Stage(key string) (*ports.CacheEntry, error) {
	base := filepath.Join(s.root, stagingSubdir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, &CacheError{Operation: "stage", Key: key, Err: err}
	}
	dir, err := os.MkdirTemp(base, key+"-")
	if err != nil {
		return nil, &CacheError{Operation: "stage", Key: key, Err: err}
	}
	target := filepath.Join(dir, TargetSubdir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		os.RemoveAll(dir)
		return nil, &CacheError{Operation: "stage", Key: key, Err: err}
	}
	return &ports.CacheEntry{Key: key, Dir: dir, TargetDir: target}, nil
}

// Commit writes metadata into the staged entry and renames it into place.
// An existing entry under the same key is replaced.
func (s *DependencyStore) Commit(staged *ports.CacheEntry) (*ports.CacheEntry, error) {
	if staged == nil || staged.Key == "" {
		return nil, &CacheError{Operation: "commit", Err: errors.New("nothing staged")}
	}

	size, err := filesystem.DirSize(staged.TargetDir)
	if err != nil {
		return nil, &CacheError{Operation: "commit", Key: staged.Key, Err: err}
	}
	meta := &Metadata{
		Fingerprint: staged.Fingerprint,
		Triple:      staged.Triple,
		CreatedAt:   s.now().UTC(),
		Size:        size,
		RunID:       staged.RunID,
	}
	if err := WriteMetadata(filepath.Join(staged.Dir, MetadataFile), meta); err != nil {
		return nil, &CacheError{Operation: "commit", Key: staged.Key, Err: err}
	}

	final := s.entryDir(staged.Key)
	var previous string
	if _, err := os.Stat(final); err == nil {
		previous = staged.Dir + ".old"
		if err := os.Rename(final, previous); err != nil {
			return nil, &CacheError{Operation: "commit", Key: staged.Key, Err: err}
		}
	}
	if err := os.Rename(staged.Dir, final); err != nil {
		if previous != "" {
			os.Rename(previous, final)
		}
		return nil, &CacheError{Operation: "commit", Key: staged.Key, Err: err}
	}
	if previous != "" {
		os.RemoveAll(previous)
	}

	entry := meta.toEntry(staged.Key, final)
	entry.TargetDir = filepath.Join(final, TargetSubdir)
	return entry, nil
}

// Discard removes a staged entry.
func (s *DependencyStore) Discard(staged *ports.CacheEntry) {
	if staged == nil || staged.Dir == "" {
		return
	}
	if err := os.RemoveAll(staged.Dir); err != nil && s.logger != nil {
		s.logger.Warn("Failed to remove staging directory %s: %v", staged.Dir, err)
	}
}

// List returns committed entries, newest first.
func (s *DependencyStore) List() ([]*ports.CacheEntry, error) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &CacheError{Operation: "list", Err: err}
	}

	var entries []*ports.CacheEntry
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		entry, ok := s.Lookup(d.Name())
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Remove deletes one entry.
func (s *DependencyStore) Remove(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return &CacheError{Operation: "remove", Key: key, Err: errors.New("invalid key")}
	}
	if err := os.RemoveAll(s.entryDir(key)); err != nil {
		return &CacheError{Operation: "remove", Key: key, Err: err}
	}
	return nil
}

// Clean removes entries created more than olderThan ago (all entries when
// olderThan is zero) and any abandoned staging directories.
func (s *DependencyStore) Clean(olderThan time.Duration) ([]*ports.CacheEntry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-olderThan)
	var removed []*ports.CacheEntry
	for _, e := range entries {
		if olderThan > 0 && e.CreatedAt.After(cutoff) {
			continue
		}
		if err := s.Remove(e.Key); err != nil {
			return removed, err
		}
		removed = append(removed, e)
	}

	if olderThan == 0 {
		if err := os.RemoveAll(filepath.Join(s.root, stagingSubdir)); err != nil {
			return removed, &CacheError{Operation: "clean", Err: err}
		}
	}
	return removed, nil
}

// Stats returns entry count and total size.
func (s *DependencyStore) Stats() (*ports.CacheStats, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	stats := &ports.CacheStats{TotalEntries: len(entries)}
	for _, e := range entries {
		stats.TotalSize += e.Size
	}
	return stats, nil
}

// ReadMetadata reads entry metadata from a JSON file.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata.Fingerprint == "" || metadata.Triple == "" {
		return nil, fmt.Errorf("metadata missing fingerprint or triple")
	}
	return &metadata, nil
}

// WriteMetadata writes entry metadata to a JSON file.
func WriteMetadata(path string, metadata *Metadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

var _ ports.DependencyStore = (*DependencyStore)(nil)
