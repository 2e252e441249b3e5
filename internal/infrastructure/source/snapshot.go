// Package source builds immutable, filtered snapshots of the project tree.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// ManifestFile must be present at the root of every snapshot.
const ManifestFile = "Cargo.toml"

// Snapshotter walks a project tree, keeps only the files compilation can
// observe and materialises them into a staging directory.
type Snapshotter struct {
	logger ports.Logger
}

// NewSnapshotter creates a Snapshotter.
func NewSnapshotter(logger ports.Logger) *Snapshotter {
	return &Snapshotter{logger: logger}
}

// Snapshot implements ports.Snapshotter.
func (s *Snapshotter) Snapshot(ctx context.Context, opts ports.SnapshotOptions) (*release.SourceSnapshot, error) {
	root, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	if _, err := os.Stat(filepath.Join(root, ManifestFile)); err != nil {
		return nil, fmt.Errorf("%s not found in %s: %w", ManifestFile, root, err)
	}
	if opts.StagingDir == "" {
		return nil, fmt.Errorf("staging directory is required")
	}
	staging, err := filepath.Abs(opts.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging directory: %w", err)
	}

	excluded := make(map[string]bool, len(opts.Exclude)+1)
	excluded[staging] = true
	for _, e := range opts.Exclude {
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}

	ignores := newIgnoreSet()
	var files []release.SourceFile

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		segments := splitRel(rel)

		if d.IsDir() {
			if rel != "." && (skipDir(p, segments) || excluded[p] || ignores.ignored(segments, true)) {
				return filepath.SkipDir
			}
			return ignores.load(p, segments)
		}

		if ignores.ignored(segments, false) || !retained(filepath.ToSlash(rel), opts.Include) {
			return nil
		}

		info, err := os.Stat(p) // follows symlinks
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		sum, err := materialize(p, filepath.Join(staging, rel), info.Mode().Perm())
		if err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
		files = append(files, release.SourceFile{
			Path:   filepath.ToSlash(rel),
			Size:   info.Size(),
			Mode:   info.Mode().Perm(),
			SHA256: sum,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	snap := &release.SourceSnapshot{
		Origin:    root,
		Root:      staging,
		Files:     files,
		Digest:    Digest(files),
		CreatedAt: time.Now(),
	}
	if s.logger != nil {
		s.logger.Debug("Snapshot %s: %d files from %s", snap.ShortDigest(), len(files), root)
	}
	return snap, nil
}

// retained reports whether a file takes part in compilation or validation.
func retained(rel string, include []string) bool {
	base := path.Base(rel)
	switch {
	case strings.HasSuffix(base, ".rs"), strings.HasSuffix(base, ".toml"):
		return true
	case base == "Cargo.lock", base == "rust-toolchain":
		return true
	case rel == ".cargo/config":
		return true
	}
	for _, pattern := range include {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// materialize copies src to dst and returns the sha256 of the content.
func materialize(src, dst string, perm fs.FileMode) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest identifies a file list by path, mode and content.
func Digest(files []release.SourceFile) string {
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%o\x00%s\n", f.Path, f.Mode, f.SHA256)
	}
	return hex.EncodeToString(h.Sum(nil))
}
