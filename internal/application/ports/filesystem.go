package ports

import "io/fs"

// FileSystem is the subset of filesystem operations the builders and the
// packager perform.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
	RemoveAll(path string) error

	// CopyFile copies src to dst preserving the permission bits.
	CopyFile(src, dst string) error

	// CopyTree recursively copies the directory src to dst.
	CopyTree(src, dst string) error

	// SHA256 returns the hex digest of a file's contents.
	SHA256(path string) (string, error)
}
