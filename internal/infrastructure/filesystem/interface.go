package filesystem

import "io/fs"

// FileSystem abstracts the filesystem operations used by the builders and
// the release packager so failures can be injected in tests.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
	RemoveAll(path string) error
	CopyFile(src, dst string) error
	CopyTree(src, dst string) error
	SHA256(path string) (string, error)
}
