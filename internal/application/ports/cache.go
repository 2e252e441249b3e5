package ports

import (
	"context"
	"time"
)

// CacheEntry describes one dependency cache entry.
type CacheEntry struct {
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	Triple      string    `json:"triple"`
	CreatedAt   time.Time `json:"created_at"`
	Size        int64     `json:"size"`
	RunID       string    `json:"run_id,omitempty"`
	Dir         string    `json:"-"`
	TargetDir   string    `json:"-"`
}

// CacheStats summarises the dependency store.
type CacheStats struct {
	TotalEntries int
	TotalSize    int64
}

// DependencyStore is the persistent content-addressed store keyed by
// (dependency fingerprint, triple).
type DependencyStore interface {
	Key(fingerprint, triple string) string

	// Lock serialises writers of one key. The returned func releases it.
	Lock(ctx context.Context, key string) (func() error, error)

	Lookup(key string) (*CacheEntry, bool)

	// Stage creates an empty staging entry; the caller fills its TargetDir.
	Stage(key string) (*CacheEntry, error)

	// Commit atomically publishes a staged entry under its key, replacing
	// any existing one.
	Commit(staged *CacheEntry) (*CacheEntry, error)

	// Discard removes a staged entry that will not be committed.
	Discard(staged *CacheEntry)

	List() ([]*CacheEntry, error)
	Remove(key string) error
	Clean(olderThan time.Duration) ([]*CacheEntry, error)
	Stats() (*CacheStats, error)
}
