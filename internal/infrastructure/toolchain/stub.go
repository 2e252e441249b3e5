package toolchain

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// stubSource replaces every Rust file in the stub tree. It is a valid crate
// root for libraries, binaries, examples, tests and build scripts alike.
const stubSource = "#![allow(dead_code)]\nfn main() {}\n"

// writeStubTree mirrors src into dst, keeping manifests, the lockfile and
// toolchain configuration verbatim and replacing Rust sources with stubs.
// The dependency graph cargo resolves in dst is therefore identical to src.
func writeStubTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".rs") {
			return os.WriteFile(target, []byte(stubSource), 0644)
		}
		return copyRegular(path, target)
	})
}

func copyRegular(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
