package build

import (
	"context"
	"fmt"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
)

// CacheListUseCase handles listing dependency cache entries.
type CacheListUseCase struct {
	store  ports.DependencyStore
	logger ports.Logger
}

// NewCacheListUseCase creates a new CacheListUseCase.
func NewCacheListUseCase(store ports.DependencyStore, logger ports.Logger) *CacheListUseCase {
	return &CacheListUseCase{
		store:  store,
		logger: logger,
	}
}

// Execute lists cached dependency artifacts.
func (uc *CacheListUseCase) Execute(ctx context.Context, input dto.CacheListInput) (*dto.CacheListOutput, error) {
	entries, err := uc.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list dependency cache: %w", err)
	}

	output := &dto.CacheListOutput{Entries: make([]dto.CacheEntry, 0, len(entries))}
	for _, entry := range entries {
		if input.Triple != "" && entry.Triple != input.Triple {
			continue
		}
		output.Entries = append(output.Entries, toCacheEntry(entry))
		output.TotalSize += entry.Size
	}
	return output, nil
}

// CacheInfoUseCase handles inspecting one dependency cache entry.
type CacheInfoUseCase struct {
	store ports.DependencyStore
}

// NewCacheInfoUseCase creates a new CacheInfoUseCase.
func NewCacheInfoUseCase(store ports.DependencyStore) *CacheInfoUseCase {
	return &CacheInfoUseCase{store: store}
}

// Execute returns the entry stored under input.Key together with store
// totals. An empty key reports the totals only.
func (uc *CacheInfoUseCase) Execute(ctx context.Context, input dto.CacheInfoInput) (*dto.CacheInfoOutput, error) {
	stats, err := uc.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to read dependency cache: %w", err)
	}
	output := &dto.CacheInfoOutput{
		TotalEntries: stats.TotalEntries,
		TotalSize:    stats.TotalSize,
	}
	if input.Key == "" {
		return output, nil
	}

	entry, ok := uc.store.Lookup(input.Key)
	if !ok {
		return nil, fmt.Errorf("no cache entry %q", input.Key)
	}
	e := toCacheEntry(entry)
	output.Entry = &e
	return output, nil
}

// CacheCleanUseCase handles pruning the dependency cache.
type CacheCleanUseCase struct {
	store  ports.DependencyStore
	logger ports.Logger
}

// NewCacheCleanUseCase creates a new CacheCleanUseCase.
func NewCacheCleanUseCase(store ports.DependencyStore, logger ports.Logger) *CacheCleanUseCase {
	return &CacheCleanUseCase{
		store:  store,
		logger: logger,
	}
}

// Execute removes the requested keys, or every entry older than
// input.OlderThan when no keys are given.
func (uc *CacheCleanUseCase) Execute(ctx context.Context, input dto.CacheCleanInput) (*dto.CacheCleanOutput, error) {
	output := &dto.CacheCleanOutput{Removed: make([]string, 0)}

	if len(input.Keys) > 0 {
		for _, key := range input.Keys {
			entry, ok := uc.store.Lookup(key)
			if !ok {
				uc.logger.Warn("No cache entry %s", key)
				continue
			}
			if err := uc.store.Remove(key); err != nil {
				uc.logger.Warn("Failed to remove %s: %v", key, err)
				continue
			}
			output.Removed = append(output.Removed, key)
			output.SpaceFreed += entry.Size
		}
		return output, nil
	}

	removed, err := uc.store.Clean(input.OlderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to clean dependency cache: %w", err)
	}
	for _, entry := range removed {
		output.Removed = append(output.Removed, entry.Key)
		output.SpaceFreed += entry.Size
	}
	return output, nil
}

func toCacheEntry(entry *ports.CacheEntry) dto.CacheEntry {
	return dto.CacheEntry{
		Key:         entry.Key,
		Triple:      entry.Triple,
		Fingerprint: entry.Fingerprint,
		Size:        entry.Size,
		CreatedAt:   entry.CreatedAt,
		RunID:       entry.RunID,
		Path:        entry.Dir,
	}
}
