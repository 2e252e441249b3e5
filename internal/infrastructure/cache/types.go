package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/b-harvest/relbuild/internal/application/ports"
)

const (
	// MetadataFile is the name of the metadata JSON file of each entry.
	MetadataFile = "metadata.json"

	// TargetSubdir holds the compiler output of an entry.
	TargetSubdir = "target"

	stagingSubdir = ".staging"
	locksSubdir   = ".locks"

	// keyHashLength is the number of hex characters of the key digest.
	keyHashLength = 16
)

// Metadata is persisted next to every committed entry.
type Metadata struct {
	Fingerprint string    `json:"fingerprint"`
	Triple      string    `json:"triple"`
	CreatedAt   time.Time `json:"created_at"`
	Size        int64     `json:"size"`
	RunID       string    `json:"run_id,omitempty"`
}

// MakeKey derives the store key of a (dependency fingerprint, triple) pair.
// Format: {triple}-{sha256(fingerprint, triple)[:16]}
// Example: "x86_64-unknown-linux-gnu-1a2b3c4d5e6f7a8b"
func MakeKey(fingerprint, triple string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(triple))
	return triple + "-" + hex.EncodeToString(h.Sum(nil))[:keyHashLength]
}

func (m *Metadata) toEntry(key, dir string) *ports.CacheEntry {
	return &ports.CacheEntry{
		Key:         key,
		Fingerprint: m.Fingerprint,
		Triple:      m.Triple,
		CreatedAt:   m.CreatedAt,
		Size:        m.Size,
		RunID:       m.RunID,
		Dir:         dir,
	}
}
