// Package release places the compiled binary into the release directory
// under its platform-specific name.
package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	domain "github.com/b-harvest/relbuild/internal/domain/release"
)

// PackageUseCase moves a compiled binary to <output>/gh-jj-<tag>. It does not
// consult the validation gate.
type PackageUseCase struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// NewPackageUseCase creates a new PackageUseCase.
func NewPackageUseCase(fs ports.FileSystem, logger ports.Logger) *PackageUseCase {
	return &PackageUseCase{
		fs:     fs,
		logger: logger,
	}
}

// Execute creates the output directory if needed and moves the binary into
// it. Other files in the directory are left alone; an existing artifact with
// the same name is replaced.
func (uc *PackageUseCase) Execute(ctx context.Context, input dto.PackageInput) (*domain.ReleaseArtifact, error) {
	if input.Tag == "" {
		return nil, &domain.PackagingError{Op: "name", Path: input.Binary.Path, Err: errors.New("empty platform tag")}
	}
	if _, err := uc.fs.Stat(input.Binary.Path); err != nil {
		return nil, &domain.PackagingError{Op: "read", Path: input.Binary.Path, Err: err}
	}
	if err := uc.fs.MkdirAll(input.OutputDir, 0o755); err != nil {
		return nil, &domain.PackagingError{Op: "mkdir", Path: input.OutputDir, Err: err}
	}

	dest := filepath.Join(input.OutputDir, domain.FileNameFor(input.Tag))
	if err := uc.move(input.Binary.Path, dest); err != nil {
		return nil, &domain.PackagingError{Op: "move", Path: dest, Err: err}
	}

	info, err := uc.fs.Stat(dest)
	if err != nil {
		return nil, &domain.PackagingError{Op: "stat", Path: dest, Err: err}
	}
	sum, err := uc.fs.SHA256(dest)
	if err != nil {
		return nil, &domain.PackagingError{Op: "checksum", Path: dest, Err: err}
	}

	uc.logger.Success("Packaged %s", dest)
	return &domain.ReleaseArtifact{
		Path:        dest,
		PlatformTag: input.Tag,
		SHA256:      sum,
		Size:        info.Size(),
	}, nil
}

// move renames src to dst, falling back to copy and remove when they are on
// different filesystems.
func (uc *PackageUseCase) move(src, dst string) error {
	err := uc.fs.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	uc.logger.Debug("Rename across devices, copying %s", src)
	if err := uc.fs.CopyFile(src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := uc.fs.Remove(src); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}
